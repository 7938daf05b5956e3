package cacheinfra

import (
	"context"
	"time"
)

// Backend is the contract every storage in this package satisfies.
type Backend interface {
	Get(ctx context.Context, funcName string, keyData any, ttl time.Duration) (*Entry, error)
	Put(ctx context.Context, funcName string, keyData any, value any) error
	Delete(ctx context.Context, funcName string, keyData any) error
	Close() error
}

var (
	_ Backend = (*FileStorage)(nil)
	_ Backend = (*SQLStorage)(nil)
	_ Backend = (*MemoryStorage)(nil)
	_ Backend = (*RedisStorage)(nil)
)

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg Config, opts Options) (Backend, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendSQLite:
		return backend(NewSQLiteStorage(ctx, cfg.SQLite, opts))
	case BackendPostgres:
		return backend(NewPostgresStorage(ctx, cfg.Postgres, opts))
	case BackendMemory:
		return backend(NewMemoryStorage(cfg.Memory, opts))
	case BackendRedis:
		return backend(NewRedisStorage(ctx, cfg.Redis, opts))
	default:
		return backend(NewFileStorage(cfg.File, opts))
	}
}

// backend keeps a typed nil pointer from leaking out as a non-nil interface.
func backend[B Backend](b B, err error) (Backend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}
