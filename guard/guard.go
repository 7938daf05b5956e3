// Package guard holds small function wrappers that pair with memoize and
// retry: Timed measures a call and Ignore turns a failing call into a
// fallback value.
package guard

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// TimedOptions configures Timed.
type TimedOptions struct {
	// Logger receives one Info entry per call. Nil disables logging.
	Logger *zap.Logger

	// Histogram, when set, observes the duration in seconds labelled by
	// function name.
	Histogram prometheus.ObserverVec
}

// NewDurationHistogram registers a histogram suitable for TimedOptions on reg.
func NewDurationHistogram(reg prometheus.Registerer) (*prometheus.HistogramVec, error) {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "memoize",
		Name:      "guarded_call_duration_seconds",
		Help:      "Duration of calls wrapped with guard.Timed.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"function"})
	if err := reg.Register(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Timed wraps fn and reports how long each call took, failed calls included.
func Timed[A, T any](name string, fn func(context.Context, A) (T, error), opts TimedOptions) func(context.Context, A) (T, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx context.Context, arg A) (T, error) {
		start := time.Now()
		v, err := fn(ctx, arg)
		elapsed := time.Since(start)

		logger.Info("execution time",
			zap.String("function", name),
			zap.Duration("duration", elapsed),
			zap.Bool("failed", err != nil),
		)
		if opts.Histogram != nil {
			opts.Histogram.WithLabelValues(name).Observe(elapsed.Seconds())
		}
		return v, err
	}
}

// Ignore wraps fn so an error is logged and replaced by fallback.
func Ignore[A, T any](name string, fn func(context.Context, A) (T, error), fallback T, logger *zap.Logger) func(context.Context, A) T {
	return IgnoreFunc(name, fn, func() T { return fallback }, logger)
}

// IgnoreFunc is Ignore with the fallback computed on each failure.
func IgnoreFunc[A, T any](name string, fn func(context.Context, A) (T, error), fallback func() T, logger *zap.Logger) func(context.Context, A) T {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx context.Context, arg A) T {
		v, err := fn(ctx, arg)
		if err == nil {
			return v
		}
		logger.Warn("error ignored", zap.String("function", name), zap.Error(err))
		if fallback == nil {
			var zero T
			return zero
		}
		return fallback()
	}
}
