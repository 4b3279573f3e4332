package calendar

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/lendinglib-backend/pkg/clock"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/events"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubReservations struct {
	open []models.Reservation
}

func (s stubReservations) ListOpen(context.Context) ([]models.Reservation, error) {
	return s.open, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.ClosedDate{}))
	return conn
}

func newTestService(t *testing.T, open []models.Reservation) (*Service, *events.LocalBus) {
	t.Helper()
	bus := events.NewLocalBus(4)
	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(newTestDB(t)),
		Reservations: stubReservations{open: open},
		Clock:        clock.NewFixed(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		Publisher:    bus,
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, bus
}

func TestServiceCloseAndReopen(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t, nil)
	sub, cancel, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	row, err := svc.CloseDate(ctx, CloseDateInput{Date: "06/10/2024", Reason: "inventory count", CreatedBy: "admin@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-10", row.DateKey)
	require.NotNil(t, row.Reason)
	assert.Equal(t, "inventory count", *row.Reason)

	select {
	case evt := <-sub:
		assert.Equal(t, events.TypeCalendarChanged, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("expected calendar change event")
	}

	closed, err := svc.IsDateClosed(ctx, "2024-06-10T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, closed)

	_, err = svc.CloseDate(ctx, CloseDateInput{Date: "2024-06-10"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	check, err := svc.ValidateReservationDates(ctx, "2024-06-10", "2024-06-11")
	require.NoError(t, err)
	assert.False(t, check.IsValid)
	assert.Contains(t, check.Errors, FieldPickupDate)

	require.NoError(t, svc.ReopenDate(ctx, "2024-06-10"))
	closed, err = svc.IsDateClosed(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.False(t, closed)

	err = svc.ReopenDate(ctx, "2024-06-10")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceCloseDateRejections(t *testing.T) {
	ctx := context.Background()
	pickup := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	ret := time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC)
	open := []models.Reservation{{
		ID:         uuid.New(),
		ClientName: "Gala",
		PickupDate: &pickup,
		ReturnDate: &ret,
		Status:     enums.ReservationStatusOpen,
	}}
	svc, _ := newTestService(t, open)

	_, err := svc.CloseDate(ctx, CloseDateInput{Date: "2020-01-01"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, ReasonPastDate, pkgerrors.As(err).Message())

	_, err = svc.CloseDate(ctx, CloseDateInput{Date: "2024-06-20"})
	require.Error(t, err)
	assert.Equal(t, ReasonHasEvents, pkgerrors.As(err).Message())

	_, err = svc.CloseDate(ctx, CloseDateInput{Date: "someday"})
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidDate, pkgerrors.As(err).Message())

	row, err := svc.CloseDate(ctx, CloseDateInput{Date: "2024-06-22"})
	require.NoError(t, err, "a day in the middle of a loan may still be closed")
	assert.Equal(t, "2024-06-22", row.DateKey)
}

func TestServicePruneBefore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	repo := svc.repo

	for _, key := range []string{"2023-01-01", "2023-12-31", "2024-06-15"} {
		require.NoError(t, repo.Create(ctx, &models.ClosedDate{DateKey: key}))
	}

	removed, err := svc.PruneBefore(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	set, err := svc.ClosedSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, []DateKey{"2024-06-15"}, set.Keys())

	_, err = svc.PruneBefore(ctx, "bad")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
