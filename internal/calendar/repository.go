package calendar

import (
	"context"

	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists closed dates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.ClosedDate, error)
	Get(ctx context.Context, key DateKey) (*models.ClosedDate, error)
	Create(ctx context.Context, closed *models.ClosedDate) error
	Delete(ctx context.Context, key DateKey) (bool, error)
	DeleteBefore(ctx context.Context, cutoff DateKey) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a closed-date repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.ClosedDate, error) {
	var rows []models.ClosedDate
	if err := r.db.WithContext(ctx).Order("date_key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Get(ctx context.Context, key DateKey) (*models.ClosedDate, error) {
	var row models.ClosedDate
	if err := r.db.WithContext(ctx).Where("date_key = ?", string(key)).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, closed *models.ClosedDate) error {
	return r.db.WithContext(ctx).Create(closed).Error
}

func (r *repository) Delete(ctx context.Context, key DateKey) (bool, error) {
	res := r.db.WithContext(ctx).Where("date_key = ?", string(key)).Delete(&models.ClosedDate{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteBefore removes closed dates strictly earlier than cutoff. Keys are
// YYYY-MM-DD so text comparison matches calendar order.
func (r *repository) DeleteBefore(ctx context.Context, cutoff DateKey) (int64, error) {
	res := r.db.WithContext(ctx).Where("date_key < ?", string(cutoff)).Delete(&models.ClosedDate{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
