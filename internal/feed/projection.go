package feed

import (
	"sort"
	"time"

	"github.com/angelmondragon/lendinglib-backend/internal/calendar"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	"github.com/angelmondragon/lendinglib-backend/pkg/types"
	"github.com/google/uuid"
)

// DefaultUrgentWindowDays marks a pickup as urgent when it is this many days
// away or fewer.
const DefaultUrgentWindowDays = 3

// Entry is one flagged reservation as shown to staff.
type Entry struct {
	ReservationID   uuid.UUID                   `json:"reservationId"`
	ClientName      string                      `json:"clientName"`
	ClientEmail     *string                     `json:"clientEmail,omitempty"`
	ClientPhone     *string                     `json:"clientPhone,omitempty"`
	PickupDate      calendar.DateKey            `json:"pickupDate"`
	ReturnDate      calendar.DateKey            `json:"returnDate"`
	Conflicts       types.AvailabilityConflicts `json:"conflicts"`
	ConflictCount   int                         `json:"conflictCount"`
	DaysUntilPickup *int                        `json:"daysUntilPickup,omitempty"`
	Urgent          bool                        `json:"urgent"`
	DetectedAt      *time.Time                  `json:"conflictDetectedAt,omitempty"`
}

type Stats struct {
	TotalFlagged          int        `json:"totalFlagged"`
	TotalConflictingLines int        `json:"totalConflictingLines"`
	Urgent                int        `json:"urgent"`
	OldestDetectedAt      *time.Time `json:"oldestDetectedAt,omitempty"`
}

// View is the derived feed state.
type View struct {
	Entries   []Entry          `json:"entries"`
	Stats     Stats            `json:"stats"`
	Today     calendar.DateKey `json:"today"`
	Dismissed int              `json:"dismissed"`
}

// Project builds the feed from persisted reservation state. Only open
// reservations carrying CONFLICT are included; entries are ordered by pickup
// date, undated last.
func Project(reservations []models.Reservation, today calendar.DateKey, urgentWindowDays int) View {
	if urgentWindowDays < 0 {
		urgentWindowDays = DefaultUrgentWindowDays
	}

	entries := make([]Entry, 0)
	for _, res := range reservations {
		if !res.Status.IsOpen() || res.AvailabilityStatus != enums.AvailabilityStatusConflict {
			continue
		}
		entries = append(entries, project(res, today, urgentWindowDays))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].PickupDate, entries[j].PickupDate
		switch {
		case a == b:
			return entries[i].ReservationID.String() < entries[j].ReservationID.String()
		case a == calendar.InvalidDate:
			return false
		case b == calendar.InvalidDate:
			return true
		}
		return a.Before(b)
	})

	return View{
		Entries: entries,
		Stats:   summarize(entries),
		Today:   today,
	}
}

func project(res models.Reservation, today calendar.DateKey, urgentWindowDays int) Entry {
	conflicts := res.AvailabilityConflicts
	if conflicts == nil {
		conflicts = types.AvailabilityConflicts{}
	}
	entry := Entry{
		ReservationID: res.ID,
		ClientName:    res.ClientName,
		ClientEmail:   res.ClientEmail,
		ClientPhone:   res.ClientPhone,
		PickupDate:    calendar.Normalize(res.PickupDate),
		ReturnDate:    calendar.Normalize(res.ReturnDate),
		Conflicts:     conflicts,
		ConflictCount: len(conflicts),
		DetectedAt:    res.ConflictDetectedAt,
	}
	if days, ok := today.DaysUntil(entry.PickupDate); ok {
		entry.DaysUntilPickup = &days
		entry.Urgent = days <= urgentWindowDays
	}
	return entry
}

func summarize(entries []Entry) Stats {
	stats := Stats{TotalFlagged: len(entries)}
	for _, entry := range entries {
		stats.TotalConflictingLines += entry.ConflictCount
		if entry.Urgent {
			stats.Urgent++
		}
		if entry.DetectedAt == nil {
			continue
		}
		if stats.OldestDetectedAt == nil || entry.DetectedAt.Before(*stats.OldestDetectedAt) {
			oldest := *entry.DetectedAt
			stats.OldestDetectedAt = &oldest
		}
	}
	return stats
}
