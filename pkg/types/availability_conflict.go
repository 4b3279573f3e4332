package types

import (
	"fmt"

	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
)

// AvailabilityConflict describes one reservation line that cannot be satisfied.
type AvailabilityConflict struct {
	ItemName   string             `json:"itemName"`
	ItemRef    string             `json:"itemRef,omitempty"`
	Requested  int                `json:"requested"`
	Available  int                `json:"available"`
	TotalStock *int               `json:"totalStock,omitempty"`
	Kind       enums.ConflictKind `json:"kind"`
	Message    string             `json:"message"`
}

// Equal compares two conflicts field by field, dereferencing TotalStock.
func (c AvailabilityConflict) Equal(other AvailabilityConflict) bool {
	if c.ItemName != other.ItemName ||
		c.ItemRef != other.ItemRef ||
		c.Requested != other.Requested ||
		c.Available != other.Available ||
		c.Kind != other.Kind ||
		c.Message != other.Message {
		return false
	}
	switch {
	case c.TotalStock == nil && other.TotalStock == nil:
		return true
	case c.TotalStock == nil || other.TotalStock == nil:
		return false
	default:
		return *c.TotalStock == *other.TotalStock
	}
}

// AvailabilityConflicts is persisted as a JSON array on the reservation row.
type AvailabilityConflicts []AvailabilityConflict

// Equal reports whether both slices hold the same conflicts in the same order.
// A nil slice equals an empty one.
func (c AvailabilityConflicts) Equal(other AvailabilityConflicts) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if !c[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// ItemNotFoundConflict builds the record for a line whose item cannot be resolved.
func ItemNotFoundConflict(name, ref string, requested int) AvailabilityConflict {
	return AvailabilityConflict{
		ItemName:  name,
		ItemRef:   ref,
		Requested: requested,
		Available: 0,
		Kind:      enums.ConflictKindItemNotFound,
		Message:   fmt.Sprintf("%s not found in inventory", name),
	}
}

// InsufficientStockConflict builds the record for a line that exceeds remaining stock.
func InsufficientStockConflict(name, ref string, requested, available, total int) AvailabilityConflict {
	stock := total
	return AvailabilityConflict{
		ItemName:   name,
		ItemRef:    ref,
		Requested:  requested,
		Available:  available,
		TotalStock: &stock,
		Kind:       enums.ConflictKindInsufficientStock,
		Message:    fmt.Sprintf("%s: requested %d, only %d available", name, requested, available),
	}
}
