package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const dismissedFieldPrefix = "dismissed:"

// PreferenceStore remembers which flagged reservations a user dismissed. A
// dismissal records the detection time it hid, so a later re-flag shows again.
type PreferenceStore interface {
	Dismissed(ctx context.Context, userID string) (map[uuid.UUID]time.Time, error)
	Dismiss(ctx context.Context, userID string, reservationID uuid.UUID, detectedAt time.Time) error
	Restore(ctx context.Context, userID string, reservationID uuid.UUID) error
}

type hashStore interface {
	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	PreferencesKey(userID string) string
}

// RedisPreferences keeps one hash per user.
type RedisPreferences struct {
	store hashStore
}

func NewRedisPreferences(store hashStore) (*RedisPreferences, error) {
	if store == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisPreferences{store: store}, nil
}

func (p *RedisPreferences) Dismissed(ctx context.Context, userID string) (map[uuid.UUID]time.Time, error) {
	fields, err := p.store.HGetAll(ctx, p.store.PreferencesKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	out := make(map[uuid.UUID]time.Time, len(fields))
	for field, value := range fields {
		raw, ok := strings.CutPrefix(field, dismissedFieldPrefix)
		if !ok {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		at, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			continue
		}
		out[id] = at
	}
	return out, nil
}

func (p *RedisPreferences) Dismiss(ctx context.Context, userID string, reservationID uuid.UUID, detectedAt time.Time) error {
	return p.store.HSet(ctx, p.store.PreferencesKey(userID), dismissedFieldPrefix+reservationID.String(), detectedAt.UTC().Format(time.RFC3339Nano))
}

func (p *RedisPreferences) Restore(ctx context.Context, userID string, reservationID uuid.UUID) error {
	return p.store.HDel(ctx, p.store.PreferencesKey(userID), dismissedFieldPrefix+reservationID.String())
}

// MemoryPreferences is a process-local PreferenceStore.
type MemoryPreferences struct {
	mu    sync.RWMutex
	users map[string]map[uuid.UUID]time.Time
}

func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{users: make(map[string]map[uuid.UUID]time.Time)}
}

func (p *MemoryPreferences) Dismissed(_ context.Context, userID string) (map[uuid.UUID]time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[uuid.UUID]time.Time, len(p.users[userID]))
	for id, at := range p.users[userID] {
		out[id] = at
	}
	return out, nil
}

func (p *MemoryPreferences) Dismiss(_ context.Context, userID string, reservationID uuid.UUID, detectedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.users[userID] == nil {
		p.users[userID] = make(map[uuid.UUID]time.Time)
	}
	p.users[userID][reservationID] = detectedAt.UTC()
	return nil
}

func (p *MemoryPreferences) Restore(_ context.Context, userID string, reservationID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.users[userID], reservationID)
	return nil
}
