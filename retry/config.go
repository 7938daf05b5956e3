package retry

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

// Config configures a Policy.
type Config struct {
	// Matcher selects the errors that are retried. The zero value is Any.
	Matcher Matcher

	// Retries is the maximum number of attempts, the first one included.
	// Default: 3
	Retries int

	// WaitTime is the fixed delay between attempts. Zero retries at once.
	WaitTime time.Duration

	// RaiseException returns the last error once attempts are exhausted.
	// When false the error is dropped and Do reports ok == false.
	// Default: true
	RaiseException bool

	// OnExhausted runs once with the last error when attempts are exhausted,
	// before the error is returned or dropped.
	OnExhausted func(error)

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// DefaultConfig retries any error three times without waiting and returns
// the last error.
func DefaultConfig() Config {
	return Config{
		Matcher:        Any,
		Retries:        3,
		RaiseException: true,
	}
}

// Validate checks the attempt budget and the delay.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Retries, validation.Required, validation.Min(1)),
		validation.Field(&c.WaitTime, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Option adjusts a Config.
type Option func(*Config)

// WithRetries sets the maximum number of attempts.
func WithRetries(n int) Option {
	return func(c *Config) { c.Retries = n }
}

// WithWaitTime sets the delay between attempts.
func WithWaitTime(d time.Duration) Option {
	return func(c *Config) { c.WaitTime = d }
}

// WithRaiseException sets whether the last error is returned on exhaustion.
func WithRaiseException(raise bool) Option {
	return func(c *Config) { c.RaiseException = raise }
}

// WithOnExhausted sets the exhaustion callback.
func WithOnExhausted(fn func(error)) Option {
	return func(c *Config) { c.OnExhausted = fn }
}

// WithMatcher sets the matcher.
func WithMatcher(m Matcher) Option {
	return func(c *Config) { c.Matcher = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
