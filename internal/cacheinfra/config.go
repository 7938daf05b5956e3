package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// DefaultTableName is the table shared by every memoized function in the SQL backends.
const DefaultTableName = "botasaurus_cache"

// Config selects a storage backend and carries the settings of each one.
// Only the section matching Backend is validated and used.
type Config struct {
	// Backend is one of file, sqlite, postgres, memory or redis. Default: file
	Backend string `mapstructure:"backend" json:"backend"`

	File     FileConfig     `mapstructure:"file" json:"file"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" json:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" json:"postgres"`
	Memory   MemoryConfig   `mapstructure:"memory" json:"memory"`
	Redis    RedisConfig    `mapstructure:"redis" json:"redis"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	// Dir is the root directory. Each function gets its own subdirectory.
	Dir string `mapstructure:"dir" json:"dir"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path of the database file, created when missing.
	Path  string `mapstructure:"path" json:"path"`
	Table string `mapstructure:"table" json:"table"`
}

// PostgresConfig configures the PostgreSQL backend. The database is created
// through the postgres maintenance database when it does not exist yet.
type PostgresConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	Database string `mapstructure:"database" json:"database"`
	Table    string `mapstructure:"table" json:"table"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`

	// ConnectTimeout bounds the connectivity check done at construction.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`

	// Prefix is prepended to every derived key.
	Prefix string `mapstructure:"prefix" json:"prefix"`

	// Timeout bounds each Redis round trip. Zero disables the bound.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults for every backend.
func DefaultConfig() Config {
	return Config{
		Backend: BackendFile,
		File: FileConfig{
			Dir: "cache",
		},
		SQLite: SQLiteConfig{
			Path:  "cache.db",
			Table: DefaultTableName,
		},
		Postgres: PostgresConfig{
			Host:           "localhost",
			Port:           5432,
			Username:       "postgres",
			Password:       "postgres",
			Database:       "cache",
			Table:          DefaultTableName,
			SSLMode:        "disable",
			ConnectTimeout: 10 * time.Second,
		},
		Memory: DefaultMemoryConfig(),
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Prefix:  "memoize:",
			Timeout: 2 * time.Second,
		},
	}
}

// Validate checks the backend name and the section it selects.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendFile, BackendSQLite, BackendPostgres, BackendMemory, BackendRedis)),
		validation.Field(&c.File, validation.Skip.When(c.Backend != BackendFile)),
		validation.Field(&c.SQLite, validation.Skip.When(c.Backend != BackendSQLite)),
		validation.Field(&c.Postgres, validation.Skip.When(c.Backend != BackendPostgres)),
		validation.Field(&c.Memory, validation.Skip.When(c.Backend != BackendMemory)),
		validation.Field(&c.Redis, validation.Skip.When(c.Backend != BackendRedis)),
	)
	return invalidConfig(err)
}

// Validate checks the file backend settings.
func (c FileConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// Validate checks the SQLite backend settings.
func (c SQLiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Table, validation.Required),
	)
}

// Validate checks the PostgreSQL backend settings.
func (c PostgresConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.Table, validation.Required),
		validation.Field(&c.SSLMode, validation.In("disable", "allow", "prefer", "require", "verify-ca", "verify-full")),
		validation.Field(&c.ConnectTimeout, validation.Min(time.Duration(0))),
	)
}

// Validate checks the Redis backend settings.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func invalidConfig(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, "invalid cache configuration").
		WithTextCode(TextCodeInvalidConfig)
}

// Options carries the collaborators shared by every backend.
type Options struct {
	// Now is the clock used for creation timestamps and ttl checks. Nil means time.Now.
	Now func() time.Time

	// Logger receives backend diagnostics. Nil means zap.NewNop().
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) policy() TTLPolicy {
	return TTLPolicy{Now: o.Now}
}
