package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-memoize/internal/cacheinfra"
)

// Entry is a stored result: the derived key, the canonical JSON payload and
// the instant it was written.
type Entry = cacheinfra.Entry

// Storage is the contract every backend implements.
//
// Get returns (nil, nil) on a miss. When ttl > 0 and the entry is older than
// ttl, Get deletes it and reports a miss; callers never observe an expired
// entry. Put is an upsert that refreshes the creation time. Delete of a
// missing key is a no-op.
//
// funcName only takes part in key derivation; keyData is any JSON-serializable
// value describing the call arguments.
type Storage interface {
	Get(ctx context.Context, funcName string, keyData any, ttl time.Duration) (*Entry, error)
	Put(ctx context.Context, funcName string, keyData any, value any) error
	Delete(ctx context.Context, funcName string, keyData any) error
}

// GetAs is a type-safe wrapper around Storage.Get. The boolean reports a hit.
func GetAs[T any](ctx context.Context, storage Storage, funcName string, keyData any, ttl time.Duration) (T, bool, error) {
	var zero T

	entry, err := storage.Get(ctx, funcName, keyData, ttl)
	if err != nil || entry == nil {
		return zero, false, err
	}

	var value T
	if err := entry.Decode(&value); err != nil {
		return zero, false, err
	}
	return value, true, nil
}
