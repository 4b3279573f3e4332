package calendar

import (
	"testing"
	"time"

	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	"github.com/google/uuid"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestEventsOn(t *testing.T) {
	wedding := models.Reservation{
		ID:         uuid.New(),
		ClientName: "Wedding",
		PickupDate: day("2024-06-07"),
		EventDate:  day("2024-06-08"),
		ReturnDate: day("2024-06-10"),
		Status:     enums.ReservationStatusOpen,
	}
	picnic := models.Reservation{
		ID:         uuid.New(),
		ClientName: "Picnic",
		PickupDate: day("2024-06-10"),
		ReturnDate: day("2024-06-10"),
		Status:     enums.ReservationStatusOpen,
	}
	returned := models.Reservation{
		ID:         uuid.New(),
		ClientName: "Old",
		PickupDate: day("2024-06-08"),
		ReturnDate: day("2024-06-09"),
		Status:     enums.ReservationStatusReturned,
	}
	all := []models.Reservation{wedding, picnic, returned}

	onEventDay := EventsOn("2024-06-08", all)
	if len(onEventDay) != 1 || onEventDay[0].Kind != enums.CalendarEventEventDay {
		t.Fatalf("unexpected events on event day: %+v", onEventDay)
	}

	midLoan := EventsOn("2024-06-09", all)
	if len(midLoan) != 1 || midLoan[0].Kind != enums.CalendarEventActive || midLoan[0].ReservationID != wedding.ID.String() {
		t.Fatalf("expected a single active bookkeeping event, got %+v", midLoan)
	}

	busy := EventsOn("2024-06-10T00:00:00Z", all)
	kinds := map[enums.CalendarEventKind]int{}
	for _, evt := range busy {
		kinds[evt.Kind]++
	}
	if kinds[enums.CalendarEventReturn] != 2 || kinds[enums.CalendarEventPickup] != 1 {
		t.Fatalf("unexpected events on busy day: %+v", busy)
	}

	if got := EventsOn("garbage", all); got != nil {
		t.Fatalf("invalid day should yield nothing, got %+v", got)
	}
}
