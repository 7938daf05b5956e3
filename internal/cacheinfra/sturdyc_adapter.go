package cacheinfra

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
	"go.uber.org/zap"
)

// MemoryConfig holds the configuration for the in-process backend built on
// sturdyc. Entries live only as long as the process.
type MemoryConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int `mapstructure:"capacity" json:"capacity"`

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int `mapstructure:"num_shards" json:"num_shards"`

	// Retention is the hard upper bound an entry is kept in memory, whatever
	// ttl the callers ask for. Must be greater than 0. Default: 24h
	Retention time.Duration `mapstructure:"retention" json:"retention"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int `mapstructure:"eviction_percentage" json:"eviction_percentage"`

	// EvictionInterval sets how often sturdyc sweeps entries past Retention.
	// Zero value uses the default interval.
	EvictionInterval time.Duration `mapstructure:"eviction_interval" json:"eviction_interval"`
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults for most use cases.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          256,
		Retention:          24 * time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the config to sturdyc options. Capacity,
// NumShards, Retention and EvictionPercentage go to sturdyc.New directly.
func (c MemoryConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.Retention, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

// memoryEntry is what the sturdyc client stores per key.
type memoryEntry struct {
	data      []byte
	createdAt time.Time
}

// MemoryStorage wraps a sturdyc client and applies the ttl policy on read.
type MemoryStorage struct {
	client *sturdyc.Client[memoryEntry]
	policy TTLPolicy
	now    func() time.Time
	logger *zap.Logger
}

// NewMemoryStorage validates the configuration and initializes a sturdyc
// client with it.
func NewMemoryStorage(cfg MemoryConfig, opts Options) (*MemoryStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	opts = opts.withDefaults()

	client := sturdyc.New[memoryEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.Retention,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryStorage{
		client: client,
		policy: opts.policy(),
		now:    opts.Now,
		logger: opts.Logger.With(zap.String("backend", BackendMemory)),
	}, nil
}

// Get returns the entry or nil when missing or older than ttl.
func (s *MemoryStorage) Get(ctx context.Context, funcName string, keyData any, ttl time.Duration) (*Entry, error) {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return nil, err
	}

	item, ok := s.client.Get(key)
	if !ok {
		return nil, nil
	}

	if s.policy.IsExpired(item.createdAt, ttl) {
		s.logger.Debug("evicting expired entry", zap.String("function", funcName), zap.String("key", key))
		s.client.Delete(key)
		return nil, nil
	}

	return &Entry{Key: key, Data: item.data, CreatedAt: item.createdAt}, nil
}

// Put stores the canonical payload, replacing any previous entry.
func (s *MemoryStorage) Put(ctx context.Context, funcName string, keyData any, value any) error {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return err
	}
	data, err := Canonicalize(value)
	if err != nil {
		return err
	}

	s.client.Set(key, memoryEntry{data: data, createdAt: s.now()})
	return nil
}

// Delete removes a single entry. Missing keys are ignored.
func (s *MemoryStorage) Delete(ctx context.Context, funcName string, keyData any) error {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return err
	}
	s.client.Delete(key)
	return nil
}

// Len reports the number of entries currently held.
func (s *MemoryStorage) Len() int {
	return s.client.Size()
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}
