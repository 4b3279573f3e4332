package availability

import (
	"time"

	"github.com/angelmondragon/lendinglib-backend/internal/reservations"
	"github.com/angelmondragon/lendinglib-backend/pkg/db/models"
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
	"github.com/angelmondragon/lendinglib-backend/pkg/types"
	"github.com/google/uuid"
)

// Transition names what a staged update does to a reservation.
type Transition string

const (
	// TransitionFlagged moves a reservation into CONFLICT.
	TransitionFlagged Transition = "flagged"
	// TransitionChanged rewrites the conflict list of an already flagged reservation.
	TransitionChanged Transition = "changed"
	// TransitionResolved clears a previous conflict.
	TransitionResolved Transition = "resolved"
	// TransitionCleared moves an UNKNOWN reservation back to OK.
	TransitionCleared Transition = "cleared"
	// TransitionUnknown marks a reservation that can no longer be checked.
	TransitionUnknown Transition = "unknown"
)

type Options struct {
	// MarkMalformedUnknown stages UNKNOWN for reservations missing dates or
	// lines instead of leaving their last status in place.
	MarkMalformedUnknown bool
}

// StatusUpdate is one staged write.
type StatusUpdate struct {
	ReservationID uuid.UUID
	Transition    Transition
	Update        reservations.AvailabilityUpdate
}

// Plan is the outcome of a pure reconcile pass.
type Plan struct {
	Updates   []StatusUpdate
	Checked   int
	Flagged   int
	Resolved  int
	Unchanged int
	Skipped   int
	Malformed []uuid.UUID
}

// ReconcileAll audits every open reservation against one snapshot and stages
// only the writes needed to bring persisted status in line. Running it again
// on the result of applying its own plan stages nothing.
func ReconcileAll(open []models.Reservation, items []models.Item, now time.Time, opts Options) Plan {
	detector := NewDetector(open, items)
	plan := Plan{}

	for _, res := range open {
		if !res.Status.IsOpen() {
			continue
		}
		plan.Checked++

		if !Checkable(res) {
			plan.Skipped++
			plan.Malformed = append(plan.Malformed, res.ID)
			if opts.MarkMalformedUnknown && res.AvailabilityStatus != enums.AvailabilityStatusUnknown {
				plan.Updates = append(plan.Updates, StatusUpdate{
					ReservationID: res.ID,
					Transition:    TransitionUnknown,
					Update: reservations.AvailabilityUpdate{
						Status:                enums.AvailabilityStatusUnknown,
						Conflicts:             types.AvailabilityConflicts{},
						LastAvailabilityCheck: now,
					},
				})
			}
			continue
		}

		conflicts := types.AvailabilityConflicts(detector.Detect(res))
		if len(conflicts) > 0 {
			plan.Flagged++
			update, staged := stageConflict(res, conflicts, now)
			if !staged {
				plan.Unchanged++
				continue
			}
			plan.Updates = append(plan.Updates, update)
			continue
		}

		update, staged := stageClear(res, now)
		if !staged {
			plan.Unchanged++
			continue
		}
		if update.Transition == TransitionResolved {
			plan.Resolved++
		}
		plan.Updates = append(plan.Updates, update)
	}

	return plan
}

func wasConflicted(res models.Reservation) bool {
	return res.AvailabilityStatus == enums.AvailabilityStatusConflict || res.NeedsAttention
}

func stageConflict(res models.Reservation, conflicts types.AvailabilityConflicts, now time.Time) (StatusUpdate, bool) {
	if res.AvailabilityStatus == enums.AvailabilityStatusConflict &&
		res.NeedsAttention &&
		res.AvailabilityConflicts.Equal(conflicts) {
		return StatusUpdate{}, false
	}

	transition := TransitionFlagged
	detectedAt := now
	if res.AvailabilityStatus == enums.AvailabilityStatusConflict {
		transition = TransitionChanged
		if res.ConflictDetectedAt != nil {
			detectedAt = *res.ConflictDetectedAt
		}
	}

	return StatusUpdate{
		ReservationID: res.ID,
		Transition:    transition,
		Update: reservations.AvailabilityUpdate{
			Status:                enums.AvailabilityStatusConflict,
			Conflicts:             conflicts,
			NeedsAttention:        true,
			ConflictDetectedAt:    &detectedAt,
			LastAvailabilityCheck: now,
		},
	}, true
}

func stageClear(res models.Reservation, now time.Time) (StatusUpdate, bool) {
	var transition Transition
	switch {
	case wasConflicted(res):
		transition = TransitionResolved
	case res.AvailabilityStatus == enums.AvailabilityStatusUnknown:
		transition = TransitionCleared
	default:
		return StatusUpdate{}, false
	}
	return StatusUpdate{
		ReservationID: res.ID,
		Transition:    transition,
		Update: reservations.AvailabilityUpdate{
			Status:                enums.AvailabilityStatusOK,
			Conflicts:             types.AvailabilityConflicts{},
			LastAvailabilityCheck: now,
		},
	}, true
}

// Apply returns res with update applied, as the store would after the write.
func Apply(res models.Reservation, update reservations.AvailabilityUpdate) models.Reservation {
	checked := update.LastAvailabilityCheck
	res.AvailabilityStatus = update.Status
	res.AvailabilityConflicts = update.Conflicts
	res.NeedsAttention = update.NeedsAttention
	res.ConflictDetectedAt = update.ConflictDetectedAt
	res.LastAvailabilityCheck = &checked
	return res
}
