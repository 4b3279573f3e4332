package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names an event published on the bus.
type Type string

const (
	// TypeSnapshotChanged fires after reservation availability state was written.
	TypeSnapshotChanged Type = "snapshot.changed"
	// TypeReservationClosed fires when a reservation leaves the open state.
	TypeReservationClosed Type = "reservation.closed"
	// TypeCalendarChanged fires when closed dates are added or removed.
	TypeCalendarChanged Type = "calendar.changed"
)

// Event is the envelope carried by every Bus implementation.
type Event struct {
	ID             uuid.UUID `json:"id"`
	Type           Type      `json:"type"`
	Source         string    `json:"source,omitempty"`
	ReservationIDs []string  `json:"reservationIds,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// New stamps a fresh event.
func New(t Type, source string, occurredAt time.Time, reservationIDs ...string) Event {
	return Event{
		ID:             uuid.New(),
		Type:           t,
		Source:         source,
		ReservationIDs: reservationIDs,
		OccurredAt:     occurredAt.UTC(),
	}
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Subscriber delivers events until ctx is canceled or the returned cancel
// func is called. The channel is closed once delivery stops.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// Bus is the combined publish/subscribe surface.
type Bus interface {
	Publisher
	Subscriber
}

func encode(evt Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return payload, nil
}

func decode(payload []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if evt.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return evt, nil
}

// Nop discards everything; used when no bus is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}, nil
}
