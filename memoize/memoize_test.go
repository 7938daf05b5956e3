package memoize_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/memoize"
	"github.com/goliatone/go-memoize/pkg/testsupport"
)

// counter records how often the wrapped function body ran.
type counter struct {
	mu    sync.Mutex
	calls int
}

func (c *counter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.calls
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newMemoryStorage(t *testing.T, clock *testsupport.Clock) cache.ClosableStorage {
	t.Helper()

	s, err := cache.NewMemoryStorage(cache.DefaultConfig().Memory, cache.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMemoryStorage() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// failingStorage fails every operation with err.
type failingStorage struct {
	err error
}

func (f failingStorage) Get(ctx context.Context, funcName string, keyData any, ttl time.Duration) (*cache.Entry, error) {
	return nil, f.err
}

func (f failingStorage) Put(ctx context.Context, funcName string, keyData any, value any) error {
	return f.err
}

func (f failingStorage) Delete(ctx context.Context, funcName string, keyData any) error {
	return f.err
}

func oneArg(symbol string) any {
	return []any{[]any{symbol}, map[string]any{}}
}

func TestFunc_Modes(t *testing.T) {
	tests := []struct {
		name       string
		mode       memoize.Mode
		wantCalls  int
		wantResult int
		wantStored any
	}{
		{name: "off", mode: memoize.ModeOff, wantCalls: 2, wantResult: 2, wantStored: nil},
		{name: "on", mode: memoize.ModeOn, wantCalls: 1, wantResult: 1, wantStored: float64(1)},
		{name: "default is on", mode: "", wantCalls: 1, wantResult: 1, wantStored: float64(1)},
		{name: "refresh", mode: memoize.ModeRefresh, wantCalls: 2, wantResult: 2, wantStored: float64(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			clock := testsupport.NewClock(testsupport.Epoch)
			storage := newMemoryStorage(t, clock)
			c := &counter{}

			fn := memoize.WrapPlain("next", func(ctx context.Context, arg string) (int, error) {
				return c.inc(), nil
			}, memoize.Options{Mode: tt.mode, Storage: storage})

			var got int
			for i := 0; i < 2; i++ {
				v, err := fn.Call(ctx, "a")
				if err != nil {
					t.Fatalf("Call() error = %v", err)
				}
				got = v
			}

			if c.count() != tt.wantCalls {
				t.Errorf("function ran %d times, want %d", c.count(), tt.wantCalls)
			}
			if got != tt.wantResult {
				t.Errorf("Call() = %d, want %d", got, tt.wantResult)
			}

			stored, _, err := cache.GetAs[any](ctx, storage, "next", oneArg("a"), 0)
			if err != nil {
				t.Fatalf("GetAs() error = %v", err)
			}
			if stored != tt.wantStored {
				t.Errorf("stored = %v, want %v", stored, tt.wantStored)
			}
		})
	}
}

func TestFunc_FetchPriceScenario(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)
	c := &counter{}

	fetchPrice := memoize.WrapPlain("fetchPrice", func(ctx context.Context, symbol string) (int, error) {
		c.inc()
		return 42, nil
	}, memoize.Options{TTL: 60 * time.Second, Storage: storage})

	price, err := fetchPrice.Call(ctx, "X")
	if err != nil || price != 42 {
		t.Fatalf("first Call() = %d, %v; want 42, nil", price, err)
	}
	if c.count() != 1 {
		t.Fatalf("first call ran body %d times, want 1", c.count())
	}

	entry, err := storage.Get(ctx, "fetchPrice", oneArg("X"), 0)
	if err != nil || entry == nil {
		t.Fatalf("Get() = %v, %v; want stored entry", entry, err)
	}
	if entry.Key != "b58555205f1e53bd7acab01ae34573d8def6cb5d54ab247842dd4c5d61b03857" {
		t.Errorf("entry key = %s", entry.Key)
	}
	if string(entry.Data) != "42" {
		t.Errorf("entry data = %s, want 42", entry.Data)
	}

	clock.Advance(30 * time.Second)
	if price, err := fetchPrice.Call(ctx, "X"); err != nil || price != 42 {
		t.Fatalf("second Call() = %d, %v; want 42, nil", price, err)
	}
	if c.count() != 1 {
		t.Errorf("second call within ttl ran body, count = %d", c.count())
	}

	clock.Advance(31 * time.Second)
	if price, err := fetchPrice.Call(ctx, "X"); err != nil || price != 42 {
		t.Fatalf("third Call() = %d, %v; want 42, nil", price, err)
	}
	if c.count() != 2 {
		t.Errorf("call after 61s ran body %d times in total, want 2", c.count())
	}

	entry, err = storage.Get(ctx, "fetchPrice", oneArg("X"), 0)
	if err != nil || entry == nil {
		t.Fatalf("Get() = %v, %v; want stored entry", entry, err)
	}
	if want := testsupport.Epoch.Add(61 * time.Second); !entry.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, want)
	}
}

func TestFunc_TransientNeverPersists(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)

	scrape := memoize.Wrap("scrape", func(ctx context.Context, url string) (memoize.Result[string], error) {
		return memoize.Transient("blocked"), nil
	}, memoize.Options{Storage: storage})

	got, err := scrape.Call(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "blocked" {
		t.Errorf("Call() = %q, want blocked", got)
	}

	entry, err := storage.Get(ctx, "scrape", oneArg("https://example.com"), 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry != nil {
		t.Errorf("Get() = %+v, want nil", entry)
	}
}

func TestFunc_TransientRemovesStoredEntry(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)

	if err := storage.Put(ctx, "scrape", oneArg("u"), "old page"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	scrape := memoize.Wrap("scrape", func(ctx context.Context, url string) (memoize.Result[string], error) {
		return memoize.Transient("captcha"), nil
	}, memoize.Options{Mode: memoize.ModeRefresh, Storage: storage})

	got, err := scrape.Call(ctx, "u")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "captcha" {
		t.Errorf("Call() = %q, want captcha", got)
	}

	entry, err := storage.Get(ctx, "scrape", oneArg("u"), 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry != nil {
		t.Errorf("stored entry survived a transient result: %+v", entry)
	}
}

func TestFunc_TransientUnderOffLeavesStorage(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)

	if err := storage.Put(ctx, "scrape", oneArg("u"), "old page"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	scrape := memoize.Wrap("scrape", func(ctx context.Context, url string) (memoize.Result[string], error) {
		return memoize.Transient("captcha"), nil
	}, memoize.Options{Mode: memoize.ModeOff, Storage: storage})

	if got, err := scrape.Call(ctx, "u"); err != nil || got != "captcha" {
		t.Fatalf("Call() = %q, %v; want captcha, nil", got, err)
	}

	entry, err := storage.Get(ctx, "scrape", oneArg("u"), 0)
	if err != nil || entry == nil {
		t.Errorf("Get() = %v, %v; want untouched entry", entry, err)
	}
}

func TestFunc_FunctionErrorPropagates(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)
	boom := errors.New("upstream 503")

	fn := memoize.WrapPlain("flaky", func(ctx context.Context, arg string) (int, error) {
		return 0, boom
	}, memoize.Options{Storage: storage})

	_, err := fn.Call(ctx, "a")
	if err != boom {
		t.Fatalf("Call() error = %v, want %v unchanged", err, boom)
	}

	entry, _ := storage.Get(ctx, "flaky", oneArg("a"), 0)
	if entry != nil {
		t.Errorf("failed call stored %+v", entry)
	}
}

func TestFunc_StorageErrorPropagates(t *testing.T) {
	storageErr := errors.New("disk full")
	c := &counter{}

	fn := memoize.WrapPlain("f", func(ctx context.Context, arg string) (int, error) {
		return c.inc(), nil
	}, memoize.Options{Storage: failingStorage{err: storageErr}})

	if _, err := fn.Call(context.Background(), "a"); !errors.Is(err, storageErr) {
		t.Errorf("Call() error = %v, want %v", err, storageErr)
	}
	if c.count() != 0 {
		t.Errorf("function ran after a failed read")
	}

	refresh := memoize.WithMode(memoize.ModeRefresh)
	if _, err := fn.CallWith(context.Background(), "a", refresh); !errors.Is(err, storageErr) {
		t.Errorf("CallWith(refresh) error = %v, want %v", err, storageErr)
	}
	if c.count() != 1 {
		t.Errorf("refresh ran the function %d times, want 1", c.count())
	}
}

func TestFunc_UnserializableArgument(t *testing.T) {
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)
	c := &counter{}

	fn := memoize.WrapPlain("f", func(ctx context.Context, args memoize.Args) (int, error) {
		return c.inc(), nil
	}, memoize.Options{Storage: storage})

	_, err := fn.Call(context.Background(), memoize.Positional(make(chan int)))
	if !cache.IsUnserializableArgument(err) {
		t.Fatalf("Call() error = %v, want unserializable argument", err)
	}
	if c.count() != 0 {
		t.Error("function ran with an unserializable argument")
	}
}

func TestFunc_ArgsKeyData(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)

	fn := memoize.WrapPlain("fetchPrice", func(ctx context.Context, args memoize.Args) (int, error) {
		return 42, nil
	}, memoize.Options{Storage: storage})

	args := memoize.Positional("X").With("currency", "USD").With("precision", 2)
	if _, err := fn.Call(ctx, args); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	reordered := []any{[]any{"X"}, map[string]any{"precision": 2, "currency": "USD"}}
	entry, err := storage.Get(ctx, "fetchPrice", reordered, 0)
	if err != nil || entry == nil {
		t.Fatalf("Get() = %v, %v; want entry stored under [positional, keyword]", entry, err)
	}

	// A plain argument and a single positional Args derive the same key.
	if _, err := fn.Call(ctx, memoize.Positional("Y")); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if entry, _ := storage.Get(ctx, "fetchPrice", oneArg("Y"), 0); entry == nil {
		t.Error("expected Positional(\"Y\") to be stored as [[\"Y\"],{}]")
	}
}

func TestFunc_OverridePrecedence(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	defaults := newMemoryStorage(t, clock)
	fromCtx := newMemoryStorage(t, clock)
	explicit := newMemoryStorage(t, clock)

	fn := memoize.WrapPlain("f", func(ctx context.Context, arg string) (string, error) {
		return "v", nil
	}, memoize.Options{Storage: defaults})

	ctxWithStorage := memoize.WithCallOptions(ctx, memoize.WithStorage(fromCtx))
	if _, err := fn.Call(ctxWithStorage, "a"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if _, err := fn.CallWith(ctxWithStorage, "b", memoize.WithStorage(explicit)); err != nil {
		t.Fatalf("CallWith() error = %v", err)
	}

	tests := []struct {
		name    string
		storage cache.Storage
		arg     string
		want    bool
	}{
		{name: "ctx storage used by Call", storage: fromCtx, arg: "a", want: true},
		{name: "defaults skipped when ctx overrides", storage: defaults, arg: "a", want: false},
		{name: "explicit storage wins over ctx", storage: explicit, arg: "b", want: true},
		{name: "ctx storage skipped when explicit", storage: fromCtx, arg: "b", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := tt.storage.Get(ctx, "f", oneArg(tt.arg), 0)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if (entry != nil) != tt.want {
				t.Errorf("stored = %v, want %v", entry != nil, tt.want)
			}
		})
	}
}

func TestFunc_ModeOverrideLayers(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)
	c := &counter{}

	fn := memoize.WrapPlain("f", func(ctx context.Context, arg string) (int, error) {
		return c.inc(), nil
	}, memoize.Options{Mode: memoize.ModeOn, Storage: storage})

	if _, err := fn.Call(ctx, "a"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	offCtx := memoize.WithCallOptions(ctx, memoize.WithMode(memoize.ModeOff))
	if got, _ := fn.Call(offCtx, "a"); got != 2 {
		t.Errorf("Call() with ctx off = %d, want fresh value 2", got)
	}

	// Layering keeps the mode from the outer context.
	layered := memoize.WithCallOptions(offCtx, memoize.WithTTL(time.Hour))
	if got, _ := fn.Call(layered, "a"); got != 3 {
		t.Errorf("Call() with layered ctx = %d, want fresh value 3", got)
	}

	if got, _ := fn.CallWith(offCtx, "a", memoize.WithMode(memoize.ModeOn)); got != 1 {
		t.Errorf("CallWith(on) over ctx off = %d, want stored value 1", got)
	}
}

func TestFunc_TTLOverride(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)
	c := &counter{}

	fn := memoize.WrapPlain("f", func(ctx context.Context, arg string) (int, error) {
		return c.inc(), nil
	}, memoize.Options{Storage: storage})

	if _, err := fn.Call(ctx, "a"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	clock.Advance(10 * time.Minute)

	if got, _ := fn.Call(ctx, "a"); got != 1 {
		t.Errorf("Call() without ttl = %d, want stored value 1", got)
	}
	if got, _ := fn.CallWith(ctx, "a", memoize.WithTTL(time.Minute)); got != 2 {
		t.Errorf("CallWith(ttl 1m) after 10m = %d, want recomputed 2", got)
	}
}

func TestFunc_InvalidMode(t *testing.T) {
	fn := memoize.WrapPlain("f", func(ctx context.Context, arg string) (int, error) {
		return 1, nil
	}, memoize.Options{Mode: "sometimes", Storage: failingStorage{}})

	if _, err := fn.Call(context.Background(), "a"); err == nil {
		t.Error("Call() with unknown mode expected error")
	}
}

func TestFunc_Invalidate(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)
	c := &counter{}

	fn := memoize.WrapPlain("f", func(ctx context.Context, arg string) (int, error) {
		return c.inc(), nil
	}, memoize.Options{Storage: storage})

	fn.Call(ctx, "a")
	if err := fn.Invalidate(ctx, "a"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if err := fn.Invalidate(ctx, "a"); err != nil {
		t.Fatalf("second Invalidate() error = %v", err)
	}
	if got, _ := fn.Call(ctx, "a"); got != 2 {
		t.Errorf("Call() after Invalidate() = %d, want 2", got)
	}
}

func fetchQuote(ctx context.Context, symbol string) (int, error) {
	return len(symbol), nil
}

func TestWrap_DerivesName(t *testing.T) {
	fn := memoize.WrapPlain("", fetchQuote, memoize.Options{Storage: failingStorage{}})
	if fn.Name() != "fetchQuote" {
		t.Errorf("Name() = %q, want fetchQuote", fn.Name())
	}
}

func TestWrap_FallbackFileStorage(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	fn := memoize.WrapPlain("fetchPrice", fetchQuote, memoize.Options{})
	if _, err := fn.Call(context.Background(), "X"); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	key, _ := cache.DeriveKey("fetchPrice", oneArg("X"))
	if _, err := os.Stat(filepath.Join(dir, memoize.DefaultDir, "fetch_price", key+".json")); err != nil {
		t.Errorf("expected fallback file entry: %v", err)
	}
}

func TestFunc_Logging(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewClock(testsupport.Epoch)
	storage := newMemoryStorage(t, clock)
	core, logs := observer.New(zap.DebugLevel)

	fn := memoize.WrapPlain("f", func(ctx context.Context, arg string) (int, error) {
		return 1, nil
	}, memoize.Options{Storage: storage, Logger: zap.New(core)})

	fn.Call(ctx, "a")
	fn.Call(ctx, "a")

	if n := logs.FilterMessage("cache miss").Len(); n != 1 {
		t.Errorf("cache miss logged %d times, want 1", n)
	}
	hits := logs.FilterMessage("cache hit").All()
	if len(hits) != 1 {
		t.Fatalf("cache hit logged %d times, want 1", len(hits))
	}
	if fields := hits[0].ContextMap(); fields["function"] != "f" {
		t.Errorf("function field = %v, want f", fields["function"])
	}
}
