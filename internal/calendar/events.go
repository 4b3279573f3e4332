package calendar

import (
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
)

// EventsOn lists what each open reservation has scheduled on date. A
// reservation contributes one event per matching role; days strictly
// between pickup and return yield a single bookkeeping event.
func EventsOn(date any, reservations []models.Reservation) []ScheduledEvent {
	day := Normalize(date)
	if day == InvalidDate {
		return nil
	}

	var out []ScheduledEvent
	for _, res := range reservations {
		if !res.Status.IsOpen() {
			continue
		}
		pickup := Normalize(res.PickupDate)
		ret := Normalize(res.ReturnDate)
		event := Normalize(res.EventDate)

		add := func(kind enums.CalendarEventKind) {
			out = append(out, ScheduledEvent{
				ReservationID: res.ID.String(),
				ClientName:    res.ClientName,
				Kind:          kind,
			})
		}

		matched := false
		if pickup != InvalidDate && pickup == day {
			add(enums.CalendarEventPickup)
			matched = true
		}
		if ret != InvalidDate && ret == day {
			add(enums.CalendarEventReturn)
			matched = true
		}
		if event != InvalidDate && event == day {
			add(enums.CalendarEventEventDay)
			matched = true
		}
		if !matched && pickup != InvalidDate && ret != InvalidDate && day.After(pickup) && day.Before(ret) {
			add(enums.CalendarEventActive)
		}
	}
	return out
}
