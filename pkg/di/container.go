package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/memoize"
	"github.com/goliatone/go-memoize/retry"
)

// Container wires the storage, logger and metrics described by a Config and
// builds memoized functions and retry policies on top of them.
type Container struct {
	config   Config
	mode     memoize.Mode
	storage  cache.ClosableStorage
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *memoize.Metrics
}

// Option customises a Container.
type Option func(*containerOptions)

type containerOptions struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	now      func() time.Time
}

// WithLogger replaces the logger built from Config.Logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) { o.logger = logger }
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *containerOptions) { o.registry = reg }
}

// WithClock sets the clock used by the storage for ttl checks.
func WithClock(now func() time.Time) Option {
	return func(o *containerOptions) { o.now = now }
}

// NewContainer validates cfg and opens the configured storage.
func NewContainer(ctx context.Context, cfg Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := memoize.ParseMode(cfg.Memoize.Mode)
	if err != nil {
		return nil, err
	}

	o := containerOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger, err = NewLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
	}

	storageOpts := []cache.Option{cache.WithLogger(logger.Named("storage"))}
	if o.now != nil {
		storageOpts = append(storageOpts, cache.WithClock(o.now))
	}
	storage, err := cache.NewStorage(ctx, cfg.Cache, storageOpts...)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:  cfg,
		mode:    mode,
		storage: storage,
		logger:  logger,
	}

	if cfg.Metrics.Enabled {
		c.registry = o.registry
		if c.registry == nil {
			c.registry = prometheus.NewRegistry()
		}
		c.metrics, err = memoize.NewMetrics(c.registry)
		if err != nil {
			storage.Close()
			return nil, err
		}
	}

	logger.Debug("container ready",
		zap.String("backend", cfg.Cache.Backend),
		zap.String("mode", mode.String()),
		zap.Duration("ttl", cfg.Memoize.TTL),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)
	return c, nil
}

// NewContainerWithDefaults creates a Container from DefaultConfig.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, DefaultConfig(), opts...)
}

// NewLogger builds a zap logger from the logging section.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zcfg.Build()
}

// Storage returns the shared storage.
func (c *Container) Storage() cache.Storage {
	return c.storage
}

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Metrics returns the memoize collectors, or nil when metrics are disabled.
func (c *Container) Metrics() *memoize.Metrics {
	return c.metrics
}

// Registry returns the prometheus registry, or nil when metrics are disabled.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// MemoizeOptions returns the wrap-time defaults applied by NewMemoized.
func (c *Container) MemoizeOptions() memoize.Options {
	return memoize.Options{
		Mode:    c.mode,
		TTL:     c.config.Memoize.TTL,
		Storage: c.storage,
		Logger:  c.logger.Named("memoize"),
		Metrics: c.metrics,
	}
}

// NewRetryPolicy builds a policy from the retry section; opts adjust it.
func (c *Container) NewRetryPolicy(opts ...retry.Option) (*retry.Policy, error) {
	cfg := retry.Config{
		Matcher:        retry.Any,
		Retries:        c.config.Retry.Retries,
		WaitTime:       c.config.Retry.WaitTime,
		RaiseException: c.config.Retry.RaiseException,
		Logger:         c.logger.Named("retry"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return retry.New(cfg)
}

// Close releases the storage and flushes the logger.
func (c *Container) Close() error {
	err := c.storage.Close()
	_ = c.logger.Sync()
	return err
}

// NewMemoized memoizes fn with the container defaults.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewMemoized(container, "fetchPrice", fetchPrice)
func NewMemoized[A, T any](c *Container, name string, fn func(context.Context, A) (memoize.Result[T], error)) *memoize.Func[A, T] {
	return memoize.Wrap(name, fn, c.MemoizeOptions())
}

// NewMemoizedPlain is NewMemoized for functions whose results are always cacheable.
func NewMemoizedPlain[A, T any](c *Container, name string, fn func(context.Context, A) (T, error)) *memoize.Func[A, T] {
	return memoize.WrapPlain(name, fn, c.MemoizeOptions())
}
