package cache

import (
	"context"
	"io"
	"time"

	"github.com/goliatone/go-memoize/internal/cacheinfra"
	"go.uber.org/zap"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile     = cacheinfra.BackendFile
	BackendSQLite   = cacheinfra.BackendSQLite
	BackendPostgres = cacheinfra.BackendPostgres
	BackendMemory   = cacheinfra.BackendMemory
	BackendRedis    = cacheinfra.BackendRedis
)

// DefaultTableName is the table used by the SQL backends.
const DefaultTableName = cacheinfra.DefaultTableName

// Backend specific settings.
type (
	FileConfig     = cacheinfra.FileConfig
	SQLiteConfig   = cacheinfra.SQLiteConfig
	PostgresConfig = cacheinfra.PostgresConfig
	MemoryConfig   = cacheinfra.MemoryConfig
	RedisConfig    = cacheinfra.RedisConfig
)

// Config exposes storage configuration options for consumers of the cache package.
type Config struct {
	Backend  string         `mapstructure:"backend" json:"backend"`
	File     FileConfig     `mapstructure:"file" json:"file"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" json:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" json:"postgres"`
	Memory   MemoryConfig   `mapstructure:"memory" json:"memory"`
	Redis    RedisConfig    `mapstructure:"redis" json:"redis"`
}

// DefaultConfig returns a Config populated with sensible defaults. The
// default backend stores files under ./cache.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// Option customises the collaborators of a storage.
type Option func(*cacheinfra.Options)

// WithLogger sets the logger used for backend diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *cacheinfra.Options) {
		o.Logger = logger
	}
}

// WithClock sets the clock used for creation timestamps and ttl checks.
func WithClock(now func() time.Time) Option {
	return func(o *cacheinfra.Options) {
		o.Now = now
	}
}

// ClosableStorage is a Storage that holds resources until closed.
type ClosableStorage interface {
	Storage
	io.Closer
}

// NewStorage constructs the backend selected by cfg.Backend. Construction
// eagerly creates directories, databases and tables.
func NewStorage(ctx context.Context, cfg Config, opts ...Option) (ClosableStorage, error) {
	return cacheinfra.New(ctx, cfg.toInternal(), buildOptions(opts))
}

// NewFileStorage returns a backend keeping one file per entry under cfg.Dir.
func NewFileStorage(cfg FileConfig, opts ...Option) (ClosableStorage, error) {
	return closable(cacheinfra.NewFileStorage(cfg, buildOptions(opts)))
}

// NewSQLiteStorage returns a backend storing entries in a SQLite table.
func NewSQLiteStorage(ctx context.Context, cfg SQLiteConfig, opts ...Option) (ClosableStorage, error) {
	return closable(cacheinfra.NewSQLiteStorage(ctx, cfg, buildOptions(opts)))
}

// NewPostgresStorage returns a backend storing entries in a PostgreSQL table,
// creating the database when needed.
func NewPostgresStorage(ctx context.Context, cfg PostgresConfig, opts ...Option) (ClosableStorage, error) {
	return closable(cacheinfra.NewPostgresStorage(ctx, cfg, buildOptions(opts)))
}

// NewMemoryStorage returns an in-process backend.
func NewMemoryStorage(cfg MemoryConfig, opts ...Option) (ClosableStorage, error) {
	return closable(cacheinfra.NewMemoryStorage(cfg, buildOptions(opts)))
}

// NewRedisStorage returns a backend storing entries in Redis.
func NewRedisStorage(ctx context.Context, cfg RedisConfig, opts ...Option) (ClosableStorage, error) {
	return closable(cacheinfra.NewRedisStorage(ctx, cfg, buildOptions(opts)))
}

func closable[S ClosableStorage](s S, err error) (ClosableStorage, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func buildOptions(opts []Option) cacheinfra.Options {
	var o cacheinfra.Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Backend:  c.Backend,
		File:     c.File,
		SQLite:   c.SQLite,
		Postgres: c.Postgres,
		Memory:   c.Memory,
		Redis:    c.Redis,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend:  cfg.Backend,
		File:     cfg.File,
		SQLite:   cfg.SQLite,
		Postgres: cfg.Postgres,
		Memory:   cfg.Memory,
		Redis:    cfg.Redis,
	}
}
