package retry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Policy runs functions under a fixed-delay retry budget.
type Policy struct {
	cfg    Config
	logger *zap.Logger
}

// New validates cfg and returns a Policy.
func New(cfg Config) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{cfg: cfg, logger: logger}, nil
}

// NewWithOptions applies opts to DefaultConfig and calls New.
func NewWithOptions(opts ...Option) (*Policy, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

// Config returns the policy configuration.
func (p *Policy) Config() Config {
	return p.cfg
}

// Do calls fn until it succeeds or the policy gives up.
//
// On success it returns the value and ok == true. An error the matcher does
// not select is returned at once without using an attempt. When attempts
// run out, OnExhausted runs and the last error is returned if
// RaiseException is set; otherwise Do returns the zero value, ok == false
// and a nil error. A cancelled ctx stops the wait between attempts and its
// error is returned.
func Do[T any](ctx context.Context, p *Policy, fn func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	if p == nil {
		return zero, false, ErrNilPolicy
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := p.cfg
	logger := p.logger.With(zap.String("run_id", uuid.NewString()))

	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, true, nil
		}

		idx, matched := cfg.Matcher.Lookup(err)
		if !matched {
			logger.Debug("error not selected for retry", zap.Int("attempt", attempt), zap.Error(err))
			return zero, false, err
		}

		if cfg.RaiseException {
			logger.Warn("attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("retries", cfg.Retries),
				zap.Error(err),
			)
		}
		cfg.Matcher.notify(idx, err)

		if attempt >= cfg.Retries {
			if cfg.OnExhausted != nil {
				cfg.OnExhausted(err)
			}
			if cfg.RaiseException {
				logger.Error("retries exhausted", zap.Int("attempts", attempt), zap.Error(err))
				return zero, false, err
			}
			logger.Info("retries exhausted, error dropped", zap.Int("attempts", attempt), zap.Error(err))
			return zero, false, nil
		}

		logger.Info("retrying", zap.Int("attempt", attempt), zap.Duration("wait", cfg.WaitTime))
		if err := wait(ctx, cfg.WaitTime); err != nil {
			return zero, false, err
		}
	}
}

// Run is Do for functions without a result. A dropped error is reported as nil.
func (p *Policy) Run(ctx context.Context, fn func(context.Context) error) error {
	_, _, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Wrap returns fn guarded by p.
func Wrap[A, T any](p *Policy, fn func(context.Context, A) (T, error)) func(context.Context, A) (T, bool, error) {
	return func(ctx context.Context, arg A) (T, bool, error) {
		return Do(ctx, p, func(ctx context.Context) (T, error) {
			return fn(ctx, arg)
		})
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
