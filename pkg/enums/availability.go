package enums

import "fmt"

// AvailabilityStatus is the derived conflict state persisted on a reservation.
type AvailabilityStatus string

const (
	AvailabilityStatusOK       AvailabilityStatus = "OK"
	AvailabilityStatusConflict AvailabilityStatus = "CONFLICT"
	// AvailabilityStatusUnknown marks reservations whose dates or lines are missing.
	AvailabilityStatusUnknown AvailabilityStatus = "UNKNOWN"
)

var validAvailabilityStatuses = []AvailabilityStatus{
	AvailabilityStatusOK,
	AvailabilityStatusConflict,
	AvailabilityStatusUnknown,
}

// String implements fmt.Stringer.
func (a AvailabilityStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AvailabilityStatus.
func (a AvailabilityStatus) IsValid() bool {
	for _, candidate := range validAvailabilityStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAvailabilityStatus converts raw input into an AvailabilityStatus.
func ParseAvailabilityStatus(value string) (AvailabilityStatus, error) {
	for _, candidate := range validAvailabilityStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid availability status %q", value)
}

// ConflictKind classifies a single unmet reservation line.
type ConflictKind string

const (
	ConflictKindItemNotFound      ConflictKind = "ITEM_NOT_FOUND"
	ConflictKindInsufficientStock ConflictKind = "INSUFFICIENT_STOCK"
)

// String implements fmt.Stringer.
func (c ConflictKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConflictKind.
func (c ConflictKind) IsValid() bool {
	return c == ConflictKindItemNotFound || c == ConflictKindInsufficientStock
}

// AvailabilityFailure names the non-conflict outcomes of a reconcile pass.
type AvailabilityFailure string

const (
	AvailabilityFailureMalformedInput     AvailabilityFailure = "MALFORMED_INPUT"
	AvailabilityFailurePersistenceFailure AvailabilityFailure = "PERSISTENCE_FAILURE"
)

// String implements fmt.Stringer.
func (f AvailabilityFailure) String() string {
	return string(f)
}
