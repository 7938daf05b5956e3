package di

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-viper/mapstructure/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/viper"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/memoize"
)

// EnvPrefix prefixes the environment variables read by LoadConfig, for
// example MEMOIZE_CACHE_BACKEND or MEMOIZE_MEMOIZE_TTL.
const EnvPrefix = "MEMOIZE"

// Config is the full configuration of a Container.
type Config struct {
	Cache   cache.Config  `mapstructure:"cache" json:"cache"`
	Memoize MemoizeConfig `mapstructure:"memoize" json:"memoize"`
	Retry   RetryConfig   `mapstructure:"retry" json:"retry"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics"`
}

// MemoizeConfig holds the defaults applied to functions built by NewMemoized.
type MemoizeConfig struct {
	// Mode is parsed with memoize.ParseMode. Default: true
	Mode string        `mapstructure:"mode" json:"mode"`
	TTL  time.Duration `mapstructure:"ttl" json:"ttl"`
}

// RetryConfig holds the defaults of policies built by NewRetryPolicy.
type RetryConfig struct {
	Retries        int           `mapstructure:"retries" json:"retries"`
	WaitTime       time.Duration `mapstructure:"wait_time" json:"wait_time"`
	RaiseException bool          `mapstructure:"raise_exception" json:"raise_exception"`
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	Development bool   `mapstructure:"development" json:"development"`
}

// MetricsConfig toggles the prometheus collectors.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// DefaultConfig returns the configuration used by NewContainerWithDefaults.
func DefaultConfig() Config {
	return Config{
		Cache: cache.DefaultConfig(),
		Memoize: MemoizeConfig{
			Mode: string(memoize.ModeOn),
		},
		Retry: RetryConfig{
			Retries:        3,
			RaiseException: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Cache),
		validation.Field(&c.Memoize),
		validation.Field(&c.Retry),
		validation.Field(&c.Logging),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid container configuration").
			WithTextCode(cache.TextCodeInvalidConfig)
	}
	return nil
}

// Validate checks the mode and the ttl.
func (c MemoizeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.By(func(v any) error {
			s, _ := v.(string)
			if _, err := memoize.ParseMode(s); err != nil {
				return errors.New("must be one of true, false or REFRESH")
			}
			return nil
		})),
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
	)
}

// Validate checks the attempt budget and the delay.
func (c RetryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Retries, validation.Required, validation.Min(1)),
		validation.Field(&c.WaitTime, validation.Min(time.Duration(0))),
	)
}

// Validate checks the level name.
func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error", "dpanic", "panic", "fatal")),
	)
}

// LoadConfig reads a YAML, JSON or TOML file into a Config. Keys missing
// from the file keep their DefaultConfig value and every key can be
// overridden from the environment with the MEMOIZE_ prefix. With an empty
// path a file named memoize.* in the working directory is used when present.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("memoize")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	decoderOpt := func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
		cfg.WeaklyTypedInput = true
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg, decoderOpt); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper, cfg Config) {
	defaults := map[string]any{
		"cache.backend":                    cfg.Cache.Backend,
		"cache.file.dir":                   cfg.Cache.File.Dir,
		"cache.sqlite.path":                cfg.Cache.SQLite.Path,
		"cache.sqlite.table":               cfg.Cache.SQLite.Table,
		"cache.postgres.host":              cfg.Cache.Postgres.Host,
		"cache.postgres.port":              cfg.Cache.Postgres.Port,
		"cache.postgres.username":          cfg.Cache.Postgres.Username,
		"cache.postgres.password":          cfg.Cache.Postgres.Password,
		"cache.postgres.database":          cfg.Cache.Postgres.Database,
		"cache.postgres.table":             cfg.Cache.Postgres.Table,
		"cache.postgres.sslmode":           cfg.Cache.Postgres.SSLMode,
		"cache.postgres.connect_timeout":   cfg.Cache.Postgres.ConnectTimeout,
		"cache.memory.capacity":            cfg.Cache.Memory.Capacity,
		"cache.memory.num_shards":          cfg.Cache.Memory.NumShards,
		"cache.memory.retention":           cfg.Cache.Memory.Retention,
		"cache.memory.eviction_percentage": cfg.Cache.Memory.EvictionPercentage,
		"cache.memory.eviction_interval":   cfg.Cache.Memory.EvictionInterval,
		"cache.redis.addr":                 cfg.Cache.Redis.Addr,
		"cache.redis.username":             cfg.Cache.Redis.Username,
		"cache.redis.password":             cfg.Cache.Redis.Password,
		"cache.redis.db":                   cfg.Cache.Redis.DB,
		"cache.redis.prefix":               cfg.Cache.Redis.Prefix,
		"cache.redis.timeout":              cfg.Cache.Redis.Timeout,
		"memoize.mode":                     cfg.Memoize.Mode,
		"memoize.ttl":                      cfg.Memoize.TTL,
		"retry.retries":                    cfg.Retry.Retries,
		"retry.wait_time":                  cfg.Retry.WaitTime,
		"retry.raise_exception":            cfg.Retry.RaiseException,
		"logging.level":                    cfg.Logging.Level,
		"logging.development":              cfg.Logging.Development,
		"metrics.enabled":                  cfg.Metrics.Enabled,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
