package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/lendinglib-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "ll:lock:job", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "ll:lock:job", "owner-2", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}
	value, err := client.Get(ctx, "ll:lock:job")
	if err != nil || value != "owner-1" {
		t.Fatalf("unexpected owner %q err=%v", value, err)
	}
	if err := client.Del(ctx, "ll:lock:job"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, "ll:lock:job"); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestHashLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.PreferencesKey("user-1")

	if err := client.HSet(ctx, key, "res-1", "2024-06-01T00:00:00Z"); err != nil {
		t.Fatalf("hset: %v", err)
	}
	if err := client.HSet(ctx, key, "res-2", "2024-06-02T00:00:00Z"); err != nil {
		t.Fatalf("hset: %v", err)
	}
	fields, err := client.HGetAll(ctx, key)
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if len(fields) != 2 || fields["res-1"] != "2024-06-01T00:00:00Z" {
		t.Fatalf("unexpected hash %v", fields)
	}
	if err := client.HDel(ctx, key, "res-1"); err != nil {
		t.Fatalf("hdel: %v", err)
	}
	fields, _ = client.HGetAll(ctx, key)
	if _, ok := fields["res-1"]; ok {
		t.Fatalf("expected res-1 removed, got %v", fields)
	}
}

func TestPublishRecordsPayload(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	channel := client.EventsChannel("snapshot")
	if err := client.Publish(context.Background(), channel, []byte(`{"type":"snapshot.changed"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mock.published[channel]) != 1 {
		t.Fatalf("expected one published message, got %v", mock.published)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	if err := client.Ping(ctx); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if _, err := client.Subscribe(ctx, "x"); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("availability-reconcile"); got != "ll:lock:availability-reconcile" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.PreferencesKey("user"); got != "ll:prefs:user" {
		t.Fatalf("unexpected preferences key %s", got)
	}
	if got := client.EventsChannel("snapshot"); got != "ll:events:snapshot" {
		t.Fatalf("unexpected channel %s", got)
	}
	if got := client.PreferencesKey(""); got != "ll:prefs" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected missing address to fail")
	}
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://localhost:6379/2",
		PoolSize: 7,
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data      map[string]string
	hashes    map[string]map[string]string
	published map[string][]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:      make(map[string]string),
		hashes:    make(map[string]map[string]string),
		published: make(map[string][]string),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.hashes, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) HSet(ctx context.Context, key string, values ...any) *redis.IntCmd {
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}
	var added int64
	for i := 0; i+1 < len(values); i += 2 {
		field := fmt.Sprint(values[i])
		if _, exists := hash[field]; !exists {
			added++
		}
		hash[field] = fmt.Sprint(values[i+1])
	}
	return redis.NewIntResult(added, nil)
}

func (m *mockCmdable) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	out := make(map[string]string)
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (m *mockCmdable) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	var removed int64
	for _, field := range fields {
		if _, ok := m.hashes[key][field]; ok {
			delete(m.hashes[key], field)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	switch v := message.(type) {
	case []byte:
		m.published[channel] = append(m.published[channel], string(v))
	default:
		m.published[channel] = append(m.published[channel], fmt.Sprint(v))
	}
	return redis.NewIntResult(1, nil)
}
