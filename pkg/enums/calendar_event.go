package enums

// CalendarEventKind describes why a reservation touches a calendar day.
type CalendarEventKind string

const (
	CalendarEventPickup   CalendarEventKind = "pickup"
	CalendarEventReturn   CalendarEventKind = "return"
	CalendarEventEventDay CalendarEventKind = "event"
	// CalendarEventActive is bookkeeping for days strictly inside a loan period.
	CalendarEventActive CalendarEventKind = "active"
)

// String implements fmt.Stringer.
func (k CalendarEventKind) String() string {
	return string(k)
}

// IsBookkeeping reports whether the kind only reflects an in-progress loan.
func (k CalendarEventKind) IsBookkeeping() bool {
	return k == CalendarEventActive
}
