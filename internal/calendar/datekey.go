package calendar

import (
	"strings"
	"time"

	"github.com/angelmondragon/lendinglib-backend/pkg/clock"
)

const (
	keyLayout    = "2006-01-02"
	usDateLayout = "01/02/2006"
	usDateLoose  = "1/2/2006"
)

// DateKey is a local calendar day in YYYY-MM-DD form. Keys order
// lexicographically in calendar order.
type DateKey string

// InvalidDate is returned by Normalize for input it cannot read.
const InvalidDate DateKey = ""

// Normalize canonicalises a date value to its DateKey.
//
// Strings are read from their leading YYYY-MM-DD (so "2024-06-10T00:00:00Z"
// stays on the 10th) or as MM/DD/YYYY. time.Time values use the year, month
// and day of their own location; no zone conversion is applied.
func Normalize(value any) DateKey {
	switch v := value.(type) {
	case DateKey:
		return normalizeString(string(v))
	case string:
		return normalizeString(v)
	case *string:
		if v == nil {
			return InvalidDate
		}
		return normalizeString(*v)
	case time.Time:
		return fromTime(v)
	case *time.Time:
		if v == nil {
			return InvalidDate
		}
		return fromTime(*v)
	default:
		return InvalidDate
	}
}

func fromTime(t time.Time) DateKey {
	if t.IsZero() {
		return InvalidDate
	}
	return DateKey(t.Format(keyLayout))
}

func normalizeString(raw string) DateKey {
	s := strings.TrimSpace(raw)
	if len(s) >= len(keyLayout) {
		prefix := s[:len(keyLayout)]
		if len(s) == len(keyLayout) || s[len(keyLayout)] == 'T' || s[len(keyLayout)] == ' ' {
			if _, err := time.Parse(keyLayout, prefix); err == nil {
				return DateKey(prefix)
			}
		}
	}
	for _, layout := range []string{usDateLayout, usDateLoose} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateKey(t.Format(keyLayout))
		}
	}
	return InvalidDate
}

// Today returns the current calendar day of c in the clock's own location.
func Today(c clock.Clock) DateKey {
	return fromTime(c.Now())
}

// Valid reports whether k is a well-formed key.
func (k DateKey) Valid() bool {
	return k != InvalidDate && normalizeString(string(k)) == k
}

func (k DateKey) String() string {
	return string(k)
}

// Before reports whether k is strictly earlier than other.
func (k DateKey) Before(other DateKey) bool {
	return k < other
}

// After reports whether k is strictly later than other.
func (k DateKey) After(other DateKey) bool {
	return k > other
}

// Time returns midnight of k in loc.
func (k DateKey) Time(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(keyLayout, string(k), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AddDays shifts k by n calendar days.
func (k DateKey) AddDays(n int) DateKey {
	t, ok := k.Time(time.UTC)
	if !ok {
		return InvalidDate
	}
	return fromTime(t.AddDate(0, 0, n))
}

// DaysUntil returns the number of calendar days from k to other; negative
// when other is earlier.
func (k DateKey) DaysUntil(other DateKey) (int, bool) {
	from, ok := k.Time(time.UTC)
	if !ok {
		return 0, false
	}
	to, ok := other.Time(time.UTC)
	if !ok {
		return 0, false
	}
	return int(to.Sub(from).Hours() / 24), true
}

// Overlaps reports whether the inclusive ranges [p1, r1] and [p2, r2] share
// at least one day. A return on the same day as another pickup overlaps.
func Overlaps(p1, r1, p2, r2 DateKey) bool {
	return r2 >= p1 && p2 <= r1
}
