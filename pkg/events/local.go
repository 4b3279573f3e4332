package events

import (
	"context"
	"sync"
)

const defaultBuffer = 16

// LocalBus fans events out to in-process subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	buffer int
}

// NewLocalBus builds an in-memory bus; buffer <= 0 uses the default.
func NewLocalBus(buffer int) *LocalBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &LocalBus{subs: make(map[int]chan Event), buffer: buffer}
}

// Publish delivers evt to every current subscriber.
func (b *LocalBus) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber.
func (b *LocalBus) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}
