package memoize

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-memoize/cache"
)

// DefaultDir is where the fallback file storage keeps its entries.
const DefaultDir = "cache"

// Options are the wrap-time defaults of a memoized function.
type Options struct {
	// Mode defaults to ModeOn.
	Mode Mode

	// TTL is the maximum age of a stored value. Zero or negative never expires.
	TTL time.Duration

	// Storage holds the results. Nil selects a file storage in DefaultDir,
	// created on first use.
	Storage cache.Storage

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// CallOptions override the wrap-time defaults for a single call. Nil fields
// keep the default. They never take part in the key and never reach the
// wrapped function.
type CallOptions struct {
	CacheOverride   *Mode
	TTLOverride     *time.Duration
	StorageOverride cache.Storage
}

// WithMode returns options overriding the mode.
func WithMode(m Mode) CallOptions {
	return CallOptions{CacheOverride: &m}
}

// WithTTL returns options overriding the ttl.
func WithTTL(ttl time.Duration) CallOptions {
	return CallOptions{TTLOverride: &ttl}
}

// WithStorage returns options overriding the storage.
func WithStorage(s cache.Storage) CallOptions {
	return CallOptions{StorageOverride: s}
}

// merge layers o over base, field by field.
func (o CallOptions) merge(base CallOptions) CallOptions {
	if o.CacheOverride != nil {
		base.CacheOverride = o.CacheOverride
	}
	if o.TTLOverride != nil {
		base.TTLOverride = o.TTLOverride
	}
	if o.StorageOverride != nil {
		base.StorageOverride = o.StorageOverride
	}
	return base
}

type callOptionsContextKey struct{}

// WithCallOptions attaches overrides to ctx for every memoized call made
// with it. Options already on ctx are kept for the fields opts leaves nil.
// Options passed to CallWith take precedence over the ones on ctx.
func WithCallOptions(ctx context.Context, opts CallOptions) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	combined := opts.merge(callOptionsFromContext(ctx))
	return context.WithValue(ctx, callOptionsContextKey{}, combined)
}

func callOptionsFromContext(ctx context.Context) CallOptions {
	if ctx == nil {
		return CallOptions{}
	}
	if opts, ok := ctx.Value(callOptionsContextKey{}).(CallOptions); ok {
		return opts
	}
	return CallOptions{}
}
