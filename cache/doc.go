// Package cache provides the storage contract, key derivation and ttl policy
// used by the memoize package.
//
// # Overview
//
// A memoized call is identified by the function name and the data describing
// its arguments. This package turns that pair into a content-addressed key and
// defines the Storage contract that persists results under it:
//
//   - DeriveKey: hex SHA-256 of the canonical JSON of [funcName, keyData]
//   - Storage: Get / Put / Delete over (funcName, keyData)
//   - TTLPolicy: strict greater-than age check, ttl <= 0 never expires
//
// # Basic Usage
//
//	storage, err := cache.NewStorage(ctx, cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer storage.Close()
//
//	keyData := []any{[]any{"X"}, map[string]any{}}
//	if err := storage.Put(ctx, "fetchPrice", keyData, 42); err != nil {
//		return err
//	}
//
//	price, ok, err := cache.GetAs[int](ctx, storage, "fetchPrice", keyData, time.Minute)
//
// # Backends
//
// All backends satisfy the same contract and derive identical keys:
//
//   - file: one <key>.json per entry under <dir>/<function>, mtime is created_at
//   - sqlite, postgres: table (key CHAR(64) PRIMARY KEY, data TEXT, created_at TIMESTAMP)
//   - memory: in-process sturdyc client bounded by capacity and retention
//   - redis: msgpack envelope under <prefix><key>
//
// SQL backends create their table (and for PostgreSQL, the database) when they
// are constructed. Every operation checks a connection out of the pool and
// returns it before the call ends.
//
// # Canonical Form
//
// Canonicalize marshals with encoding/json, then re-encodes the generic tree so
// object keys are sorted at every depth. Struct tags are honoured. Values
// encoding/json rejects (channels, functions, NaN) produce an error for which
// IsUnserializableArgument reports true; such errors surface at call time and
// are never swallowed.
//
// # Error Handling
//
// Errors are *errors.Error values from github.com/goliatone/go-errors carrying
// a text code. Use IsUnserializableArgument, IsStorageUnavailable and
// IsCorruptEntry to branch on them; the underlying driver error remains
// reachable through errors.Is and errors.As.
package cache
