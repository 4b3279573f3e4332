package reservations

import (
	"context"
	"time"

	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("created_at ASC")
}

func (r *repository) ListOpen(ctx context.Context) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("status = ?", enums.ReservationStatusOpen).
		Order("pickup_date ASC").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListFlagged returns open reservations currently carrying a conflict flag.
func (r *repository) ListFlagged(ctx context.Context) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("status = ?", enums.ReservationStatusOpen).
		Where("availability_status = ? OR needs_attention = ?", enums.AvailabilityStatusConflict, true).
		Order("pickup_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var row models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// UpdateAvailability writes only the reconciler-owned columns, including
// zero values, so a resolution clears the previous flag.
func (r *repository) UpdateAvailability(ctx context.Context, id uuid.UUID, update AvailabilityUpdate) error {
	checked := update.LastAvailabilityCheck
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{ID: id}).
		Select(
			"availability_status",
			"availability_conflicts",
			"needs_attention",
			"conflict_detected_at",
			"last_availability_check",
		).
		Updates(&models.Reservation{
			AvailabilityStatus:    update.Status,
			AvailabilityConflicts: update.Conflicts,
			NeedsAttention:        update.NeedsAttention,
			ConflictDetectedAt:    update.ConflictDetectedAt,
			LastAvailabilityCheck: &checked,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CloseOpen moves an open reservation to status. It reports false when the
// reservation was not open.
func (r *repository) CloseOpen(ctx context.Context, id uuid.UUID, status enums.ReservationStatus, closedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, enums.ReservationStatusOpen).
		Updates(map[string]any{
			"status":    status,
			"closed_at": closedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
