package reservations

import (
	"context"
	"time"

	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	"github.com/angelmondragon/lendinglib-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilityUpdate carries the reconciler-owned columns of a reservation.
type AvailabilityUpdate struct {
	Status                enums.AvailabilityStatus
	Conflicts             types.AvailabilityConflicts
	NeedsAttention        bool
	ConflictDetectedAt    *time.Time
	LastAvailabilityCheck time.Time
}

// Repository reads reservations and writes their derived availability state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListOpen(ctx context.Context) ([]models.Reservation, error)
	ListFlagged(ctx context.Context) ([]models.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	UpdateAvailability(ctx context.Context, id uuid.UUID, update AvailabilityUpdate) error
	CloseOpen(ctx context.Context, id uuid.UUID, status enums.ReservationStatus, closedAt time.Time) (bool, error)
}
