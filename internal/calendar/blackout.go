package calendar

import (
	"fmt"
	"sort"

	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
)

const (
	ReasonInvalidDate = "invalid date"
	ReasonPastDate    = "date in the past"
	ReasonHasEvents   = "date has scheduled events"
)

const (
	FieldPickupDate = "pickupDate"
	FieldReturnDate = "returnDate"
)

// ClosedSet is the set of blacked-out days.
type ClosedSet map[DateKey]struct{}

// NewClosedSet normalizes every value; unreadable values are dropped.
func NewClosedSet(values ...any) ClosedSet {
	set := make(ClosedSet, len(values))
	for _, v := range values {
		if key := Normalize(v); key != InvalidDate {
			set[key] = struct{}{}
		}
	}
	return set
}

// Contains reports whether value falls on a closed day.
func (s ClosedSet) Contains(value any) bool {
	key := Normalize(value)
	if key == InvalidDate {
		return false
	}
	_, ok := s[key]
	return ok
}

// Keys returns the closed days in calendar order.
func (s ClosedSet) Keys() []DateKey {
	keys := make([]DateKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// IsClosed reports whether value normalizes to a key in set.
func IsClosed(value any, set ClosedSet) bool {
	return set.Contains(value)
}

// ScheduledEvent is a reservation's presence on a calendar day.
type ScheduledEvent struct {
	ReservationID string                  `json:"reservationId"`
	ClientName    string                  `json:"clientName,omitempty"`
	Kind          enums.CalendarEventKind `json:"kind"`
}

type ClosureValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateClosure decides whether a day may be blacked out. Days before
// today and days carrying pickups, returns or event days are refused;
// reservations merely in progress on that day do not block it.
func ValidateClosure(value any, events []ScheduledEvent, today DateKey) ClosureValidation {
	key := Normalize(value)
	if key == InvalidDate {
		return ClosureValidation{Reason: ReasonInvalidDate}
	}
	if key.Before(today) {
		return ClosureValidation{Reason: ReasonPastDate}
	}
	for _, evt := range events {
		if !evt.Kind.IsBookkeeping() {
			return ClosureValidation{Reason: ReasonHasEvents}
		}
	}
	return ClosureValidation{Valid: true}
}

type ReservationDateValidation struct {
	IsValid bool              `json:"isValid"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ValidateReservationDates flags a pickup or return that lands on a closed
// day. The event date is not checked.
func ValidateReservationDates(pickup, ret any, set ClosedSet) ReservationDateValidation {
	errs := map[string]string{}
	if key := Normalize(pickup); key != InvalidDate && set.Contains(key) {
		errs[FieldPickupDate] = fmt.Sprintf("Pickup date %s falls on a day the library is closed", key)
	}
	if key := Normalize(ret); key != InvalidDate && set.Contains(key) {
		errs[FieldReturnDate] = fmt.Sprintf("Return date %s falls on a day the library is closed", key)
	}
	if len(errs) == 0 {
		return ReservationDateValidation{IsValid: true}
	}
	return ReservationDateValidation{IsValid: false, Errors: errs}
}
