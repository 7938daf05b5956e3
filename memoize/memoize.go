package memoize

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-memoize/cache"
)

// Func is a memoized function. It derives a key from the function name and
// the call argument and consults storage according to the resolved Mode.
// Errors from the function and from storage are returned unchanged.
//
// A Func is safe for concurrent use. Concurrent misses on the same key may
// both run the function; the last write wins.
type Func[A, T any] struct {
	name    string
	fn      func(context.Context, A) (Result[T], error)
	opts    Options
	logger  *zap.Logger
	metrics *Metrics

	fallbackOnce sync.Once
	fallback     cache.Storage
	fallbackErr  error
}

// Wrap memoizes fn under name. An empty name is derived from the function
// symbol.
func Wrap[A, T any](name string, fn func(context.Context, A) (Result[T], error), opts Options) *Func[A, T] {
	if fn == nil {
		panic("memoize: nil function")
	}
	if name == "" {
		name = symbolName(fn)
	}
	return newFunc(name, fn, opts)
}

// WrapPlain memoizes a function whose results are always cacheable.
func WrapPlain[A, T any](name string, fn func(context.Context, A) (T, error), opts Options) *Func[A, T] {
	if fn == nil {
		panic("memoize: nil function")
	}
	if name == "" {
		name = symbolName(fn)
	}
	return newFunc(name, func(ctx context.Context, a A) (Result[T], error) {
		v, err := fn(ctx, a)
		if err != nil {
			return Result[T]{}, err
		}
		return Persisted(v), nil
	}, opts)
}

func newFunc[A, T any](name string, fn func(context.Context, A) (Result[T], error), opts Options) *Func[A, T] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Func[A, T]{
		name:    name,
		fn:      fn,
		opts:    opts,
		logger:  logger.With(zap.String("function", name)),
		metrics: opts.Metrics,
	}
}

// Name returns the name the keys are derived from.
func (f *Func[A, T]) Name() string {
	return f.name
}

// Call runs the function through the cache using the options found on ctx
// and the wrap-time defaults.
func (f *Func[A, T]) Call(ctx context.Context, arg A) (T, error) {
	return f.CallWith(ctx, arg, CallOptions{})
}

// CallWith is Call with per-call overrides. opts win over options on ctx,
// which win over the wrap-time defaults.
func (f *Func[A, T]) CallWith(ctx context.Context, arg A, opts CallOptions) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	defer f.metrics.observe(f.name, time.Now())

	resolved := opts.merge(callOptionsFromContext(ctx))
	mode := f.opts.Mode
	if resolved.CacheOverride != nil {
		mode = *resolved.CacheOverride
	}
	if !mode.valid() {
		f.metrics.fail(f.name, "mode")
		return zero, invalidMode(string(mode))
	}
	mode = mode.normalize()

	ttl := f.opts.TTL
	if resolved.TTLOverride != nil {
		ttl = *resolved.TTLOverride
	}

	if !mode.writes() {
		f.metrics.lookup(f.name, LookupBypass)
		f.logger.Debug("cache bypassed")
		res, err := f.fn(ctx, arg)
		if err != nil {
			f.metrics.fail(f.name, "call")
			return zero, err
		}
		return res.Value(), nil
	}

	keyData := keyDataOf(arg)
	key, err := cache.DeriveKey(f.name, keyData)
	if err != nil {
		f.metrics.fail(f.name, "key")
		return zero, err
	}
	logger := f.logger.With(zap.String("key", key))

	storage, err := f.storage(resolved.StorageOverride)
	if err != nil {
		f.metrics.fail(f.name, "storage")
		return zero, err
	}

	if mode.reads() {
		value, hit, err := cache.GetAs[T](ctx, storage, f.name, keyData, ttl)
		if err != nil {
			f.metrics.fail(f.name, "get")
			return zero, err
		}
		if hit {
			f.metrics.lookup(f.name, LookupHit)
			logger.Debug("cache hit")
			return value, nil
		}
		f.metrics.lookup(f.name, LookupMiss)
		logger.Debug("cache miss", zap.Duration("ttl", ttl))
	} else {
		f.metrics.lookup(f.name, LookupRefresh)
		logger.Debug("cache refresh")
	}

	res, err := f.fn(ctx, arg)
	if err != nil {
		f.metrics.fail(f.name, "call")
		return zero, err
	}

	if res.IsTransient() {
		if err := storage.Delete(ctx, f.name, keyData); err != nil {
			f.metrics.fail(f.name, "delete")
			return zero, err
		}
		f.metrics.write(f.name, "delete")
		logger.Debug("transient result, entry removed")
		return res.Value(), nil
	}

	if err := storage.Put(ctx, f.name, keyData, res.Value()); err != nil {
		f.metrics.fail(f.name, "put")
		return zero, err
	}
	f.metrics.write(f.name, "put")
	return res.Value(), nil
}

// Invalidate removes the stored value for arg from the storage the call
// would use.
func (f *Func[A, T]) Invalidate(ctx context.Context, arg A) error {
	if ctx == nil {
		ctx = context.Background()
	}

	storage, err := f.storage(callOptionsFromContext(ctx).StorageOverride)
	if err != nil {
		return err
	}
	if err := storage.Delete(ctx, f.name, keyDataOf(arg)); err != nil {
		f.metrics.fail(f.name, "delete")
		return err
	}
	f.metrics.write(f.name, "delete")
	return nil
}

func (f *Func[A, T]) storage(override cache.Storage) (cache.Storage, error) {
	if override != nil {
		return override, nil
	}
	if f.opts.Storage != nil {
		return f.opts.Storage, nil
	}

	f.fallbackOnce.Do(func() {
		f.logger.Debug("using fallback file storage", zap.String("dir", DefaultDir))
		f.fallback, f.fallbackErr = cache.NewFileStorage(cache.FileConfig{Dir: DefaultDir}, cache.WithLogger(f.logger))
	})
	return f.fallback, f.fallbackErr
}

// symbolName turns "github.com/acme/prices.fetchPrice" into "fetchPrice".
func symbolName(fn any) string {
	rf := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if rf == nil {
		return "anonymous"
	}
	name := rf.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
