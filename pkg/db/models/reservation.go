package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	"github.com/angelmondragon/lendinglib-backend/pkg/types"
)

// Reservation is a client's request to borrow items for an event.
// The availability columns are owned by the reconciler.
type Reservation struct {
	ID                    uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	ClientName            string                      `gorm:"column:client_name;not null"`
	ClientEmail           *string                     `gorm:"column:client_email"`
	ClientPhone           *string                     `gorm:"column:client_phone"`
	EventDate             *time.Time                  `gorm:"column:event_date;type:date"`
	PickupDate            *time.Time                  `gorm:"column:pickup_date;type:date"`
	ReturnDate            *time.Time                  `gorm:"column:return_date;type:date"`
	Status                enums.ReservationStatus     `gorm:"column:status;type:text;not null;default:'open'"`
	AvailabilityStatus    enums.AvailabilityStatus    `gorm:"column:availability_status;type:text;not null;default:'OK'"`
	AvailabilityConflicts types.AvailabilityConflicts `gorm:"column:availability_conflicts;type:jsonb;serializer:json"`
	NeedsAttention        bool                        `gorm:"column:needs_attention;not null;default:false"`
	ConflictDetectedAt    *time.Time                  `gorm:"column:conflict_detected_at"`
	LastAvailabilityCheck *time.Time                  `gorm:"column:last_availability_check"`
	Notes                 *string                     `gorm:"column:notes"`
	ClosedAt              *time.Time                  `gorm:"column:closed_at"`
	Lines                 []ReservationLine           `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Reservation) TableName() string { return "reservations" }

func (r *Reservation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ReservationLine is one requested item on a reservation. ItemID may be empty
// for lines entered by name only.
type ReservationLine struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ReservationID uuid.UUID  `gorm:"column:reservation_id;type:uuid;not null;index"`
	ItemID        *uuid.UUID `gorm:"column:item_id;type:uuid"`
	ItemName      string     `gorm:"column:item_name;not null"`
	Quantity      int        `gorm:"column:quantity;not null"`
	Position      int        `gorm:"column:position;not null;default:0"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (ReservationLine) TableName() string { return "reservation_lines" }

func (l *ReservationLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
