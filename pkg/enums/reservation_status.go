package enums

import "fmt"

// ReservationStatus tracks the lifecycle of a reservation.
type ReservationStatus string

const (
	ReservationStatusOpen     ReservationStatus = "open"
	ReservationStatusClosed   ReservationStatus = "closed"
	ReservationStatusReturned ReservationStatus = "returned"
	ReservationStatusCanceled ReservationStatus = "canceled"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusOpen,
	ReservationStatusClosed,
	ReservationStatusReturned,
	ReservationStatusCanceled,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsOpen reports whether the reservation participates in conflict accounting.
func (r ReservationStatus) IsOpen() bool {
	return r == ReservationStatusOpen
}

// IsTerminal reports whether the reservation no longer holds inventory.
func (r ReservationStatus) IsTerminal() bool {
	return r.IsValid() && r != ReservationStatusOpen
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
