package models

import "time"

// ClosedDate marks a calendar day on which the library is closed.
type ClosedDate struct {
	DateKey   string    `gorm:"column:date_key;type:text;primaryKey"`
	Reason    *string   `gorm:"column:reason"`
	CreatedBy *string   `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ClosedDate) TableName() string { return "closed_dates" }
