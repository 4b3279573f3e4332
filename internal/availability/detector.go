package availability

import (
	"strings"

	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/types"
	"github.com/google/uuid"
)

// Inventory indexes the active items of one snapshot.
type Inventory struct {
	byID   map[uuid.UUID]models.Item
	byName map[string]models.Item
}

// NewInventory indexes items; inactive items are left out entirely.
func NewInventory(items []models.Item) *Inventory {
	inv := &Inventory{
		byID:   make(map[uuid.UUID]models.Item, len(items)),
		byName: make(map[string]models.Item, len(items)),
	}
	for _, item := range items {
		if !item.IsActive {
			continue
		}
		inv.byID[item.ID] = item
		key := foldName(item.Name)
		if _, taken := inv.byName[key]; !taken && key != "" {
			inv.byName[key] = item
		}
	}
	return inv
}

// Resolve finds the item a line refers to. Lines carrying an item id are
// matched by id only; lines without one fall back to a case-insensitive
// name match.
func (inv *Inventory) Resolve(line models.ReservationLine) (models.Item, bool) {
	if line.ItemID != nil && *line.ItemID != uuid.Nil {
		item, ok := inv.byID[*line.ItemID]
		return item, ok
	}
	item, ok := inv.byName[foldName(line.ItemName)]
	return item, ok
}

// Lookup returns an active item by id.
func (inv *Inventory) Lookup(id uuid.UUID) (models.Item, bool) {
	item, ok := inv.byID[id]
	return item, ok
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Window is a reservation's inclusive [pickup, return] range.
type Window struct {
	Pickup calendar.DateKey
	Return calendar.DateKey
}

// WindowOf returns the reservation's normalized range. ok is false when a
// date is missing or unreadable, or when return precedes pickup.
func WindowOf(res models.Reservation) (Window, bool) {
	w := Window{
		Pickup: calendar.Normalize(res.PickupDate),
		Return: calendar.Normalize(res.ReturnDate),
	}
	if w.Pickup == calendar.InvalidDate || w.Return == calendar.InvalidDate {
		return Window{}, false
	}
	if w.Return.Before(w.Pickup) {
		return Window{}, false
	}
	return w, true
}

// Overlaps reports whether two windows share a day, boundaries included.
func (w Window) Overlaps(other Window) bool {
	return calendar.Overlaps(w.Pickup, w.Return, other.Pickup, other.Return)
}

// Checkable reports whether a reservation has enough data to be audited.
func Checkable(res models.Reservation) bool {
	if len(res.Lines) == 0 {
		return false
	}
	_, ok := WindowOf(res)
	return ok
}

type demand struct {
	reservationID uuid.UUID
	window        Window
	quantity      int
}

// Detector answers conflict questions against one fixed snapshot of open
// reservations and active items.
type Detector struct {
	inventory *Inventory
	demand    map[uuid.UUID][]demand
}

// NewDetector builds the per-item demand index once for a pass. Only open,
// checkable reservations contribute demand.
func NewDetector(open []models.Reservation, items []models.Item) *Detector {
	d := &Detector{
		inventory: NewInventory(items),
		demand:    make(map[uuid.UUID][]demand),
	}
	for _, res := range open {
		if !res.Status.IsOpen() || !Checkable(res) {
			continue
		}
		window, _ := WindowOf(res)
		for _, line := range res.Lines {
			if line.Quantity <= 0 {
				continue
			}
			item, ok := d.inventory.Resolve(line)
			if !ok {
				continue
			}
			d.demand[item.ID] = append(d.demand[item.ID], demand{
				reservationID: res.ID,
				window:        window,
				quantity:      line.Quantity,
			})
		}
	}
	return d
}

// Inventory exposes the snapshot's item index.
func (d *Detector) Inventory() *Inventory {
	return d.inventory
}

// Reserved sums the demand for itemID from reservations other than exclude
// whose window overlaps w.
func (d *Detector) Reserved(itemID uuid.UUID, w Window, exclude uuid.UUID) int {
	reserved := 0
	for _, dm := range d.demand[itemID] {
		if dm.reservationID == exclude {
			continue
		}
		if dm.window.Overlaps(w) {
			reserved += dm.quantity
		}
	}
	return reserved
}

// Available returns max(0, total - reserved) for item over w.
func (d *Detector) Available(item models.Item, w Window, exclude uuid.UUID) int {
	available := item.Quantity - d.Reserved(item.ID, w, exclude)
	if available < 0 {
		return 0
	}
	return available
}

// Detect lists the unmet lines of target. A reservation that is not
// checkable yields no conflicts; callers must use Checkable to tell that
// apart from a clean result.
func (d *Detector) Detect(target models.Reservation) []types.AvailabilityConflict {
	window, ok := WindowOf(target)
	if !ok || len(target.Lines) == 0 {
		return nil
	}

	var conflicts []types.AvailabilityConflict
	for _, line := range target.Lines {
		if line.Quantity <= 0 {
			continue
		}
		item, found := d.inventory.Resolve(line)
		if !found {
			conflicts = append(conflicts, types.ItemNotFoundConflict(lineName(line, nil), lineRef(line, nil), line.Quantity))
			continue
		}
		available := d.Available(item, window, target.ID)
		if line.Quantity > available {
			conflicts = append(conflicts, types.InsufficientStockConflict(
				lineName(line, &item), lineRef(line, &item), line.Quantity, available, item.Quantity,
			))
		}
	}
	return conflicts
}

// DetectConflicts runs a one-off detection of target against the snapshot.
func DetectConflicts(target models.Reservation, open []models.Reservation, items []models.Item) []types.AvailabilityConflict {
	return NewDetector(open, items).Detect(target)
}

func lineName(line models.ReservationLine, item *models.Item) string {
	if name := strings.TrimSpace(line.ItemName); name != "" {
		return name
	}
	if item != nil {
		return item.Name
	}
	return "Unknown item"
}

func lineRef(line models.ReservationLine, item *models.Item) string {
	if item != nil {
		return item.ID.String()
	}
	if line.ItemID != nil && *line.ItemID != uuid.Nil {
		return line.ItemID.String()
	}
	return ""
}
