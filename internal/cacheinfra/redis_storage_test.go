package cacheinfra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T, now func() time.Time) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := NewRedisStorage(context.Background(), RedisConfig{
		Addr:    mr.Addr(),
		Prefix:  "memoize:",
		Timeout: time.Second,
	}, Options{Now: now})
	if err != nil {
		t.Fatalf("NewRedisStorage() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStorage_Prefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t, nil)

	keyData := []any{[]any{"X"}, map[string]any{}}
	if err := s.Put(ctx, "fetchPrice", keyData, 42); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	key, _ := DeriveKey("fetchPrice", keyData)
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "memoize:"+key {
		t.Errorf("Keys() = %v, want [memoize:%s]", keys, key)
	}
	if ttl := mr.TTL("memoize:" + key); ttl != 0 {
		t.Errorf("TTL() = %v, want no expiry", ttl)
	}
}

func TestRedisStorage_CreatedAtRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newTestRedis(t, func() time.Time { return now })

	if err := s.Put(ctx, "f", []any{1}, "v"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	entry, err := s.Get(ctx, "f", []any{1}, time.Minute)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry == nil {
		t.Fatal("Get() = nil, want entry")
	}
	if !entry.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, now)
	}
}

func TestRedisStorage_CorruptEnvelope(t *testing.T) {
	s, mr := newTestRedis(t, nil)

	key, _ := DeriveKey("f", []any{1})
	if err := mr.Set("memoize:"+key, "not msgpack"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	_, err := s.Get(context.Background(), "f", []any{1}, 0)
	if !IsCorruptEntry(err) {
		t.Errorf("Get() error = %v, want corrupt entry", err)
	}
}

func TestRedisStorage_Unavailable(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStorage(context.Background(), RedisConfig{
		Addr:    addr,
		Timeout: 500 * time.Millisecond,
	}, Options{})
	if !IsStorageUnavailable(err) {
		t.Errorf("NewRedisStorage() error = %v, want storage unavailable", err)
	}
}

func TestRedisStorage_WithClientLeavesClientOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStorageWithClient(client, RedisConfig{Addr: mr.Addr()}, Options{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		t.Errorf("Ping() after storage Close() error = %v", err)
	}
}
