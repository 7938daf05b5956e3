package testsupport

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-memoize/cache"
)

// StorageFactory builds a fresh, empty storage driven by the given clock.
type StorageFactory func(t *testing.T, now func() time.Time) cache.Storage

// RunStorageContract runs the behaviour every cache.Storage must share, so a
// value written through one backend reads back the same way from any other.
func RunStorageContract(t *testing.T, newStorage StorageFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("miss returns nil", func(t *testing.T) {
		s := newStorage(t, NewClock(Epoch).Now)

		entry, err := s.Get(ctx, "fetchPrice", callData("X"), 0)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry != nil {
			t.Errorf("Get() = %+v, want nil", entry)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		s := newStorage(t, NewClock(Epoch).Now)

		values := []struct {
			name  string
			value any
			want  any
		}{
			{name: "null", value: nil, want: nil},
			{name: "number", value: 42, want: float64(42)},
			{name: "string", value: "forty two", want: "forty two"},
			{name: "bool", value: false, want: false},
			{name: "list", value: []any{1, "a", nil}, want: []any{float64(1), "a", nil}},
			{name: "object", value: map[string]any{"b": 1, "a": []int{2}}, want: map[string]any{"a": []any{float64(2)}, "b": float64(1)}},
		}

		for _, v := range values {
			t.Run(v.name, func(t *testing.T) {
				keyData := callData(v.name)
				if err := s.Put(ctx, "roundTrip", keyData, v.value); err != nil {
					t.Fatalf("Put() error = %v", err)
				}

				entry, err := s.Get(ctx, "roundTrip", keyData, time.Hour)
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if entry == nil {
					t.Fatal("Get() = nil, want entry")
				}

				var got any
				if err := entry.Decode(&got); err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if !reflect.DeepEqual(got, v.want) {
					t.Errorf("Decode() = %#v, want %#v", got, v.want)
				}

				wantKey, _ := cache.DeriveKey("roundTrip", keyData)
				if entry.Key != wantKey {
					t.Errorf("entry.Key = %v, want %v", entry.Key, wantKey)
				}
			})
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStorage(t, NewClock(Epoch).Now)
		keyData := callData("X")

		if err := s.Put(ctx, "fetchPrice", keyData, 1); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Put(ctx, "fetchPrice", keyData, 2); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, ok, err := cache.GetAs[int](ctx, s, "fetchPrice", keyData, 0)
		if err != nil || !ok {
			t.Fatalf("GetAs() = %v, %v, %v", got, ok, err)
		}
		if got != 2 {
			t.Errorf("GetAs() = %v, want 2", got)
		}
	})

	t.Run("put refreshes created at", func(t *testing.T) {
		clock := NewClock(Epoch)
		s := newStorage(t, clock.Now)
		keyData := callData("X")
		ttl := time.Minute

		if err := s.Put(ctx, "fetchPrice", keyData, 1); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		clock.Advance(ttl)
		if err := s.Put(ctx, "fetchPrice", keyData, 2); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		clock.Advance(ttl)

		entry, err := s.Get(ctx, "fetchPrice", keyData, ttl)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry == nil {
			t.Fatal("Get() = nil, want refreshed entry")
		}
		if !entry.CreatedAt.Equal(Epoch.Add(ttl)) {
			t.Errorf("entry.CreatedAt = %v, want %v", entry.CreatedAt, Epoch.Add(ttl))
		}
	})

	t.Run("ttl boundary", func(t *testing.T) {
		clock := NewClock(Epoch)
		s := newStorage(t, clock.Now)
		keyData := callData("X")
		ttl := 60 * time.Second

		if err := s.Put(ctx, "fetchPrice", keyData, 42); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		clock.Advance(ttl)
		entry, err := s.Get(ctx, "fetchPrice", keyData, ttl)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry == nil {
			t.Fatal("Get() at exactly ttl = nil, want entry")
		}

		clock.Advance(time.Second)
		entry, err = s.Get(ctx, "fetchPrice", keyData, ttl)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry != nil {
			t.Fatalf("Get() past ttl = %+v, want nil", entry)
		}

		// The expired read removed the entry; it is gone even without a ttl.
		entry, err = s.Get(ctx, "fetchPrice", keyData, 0)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry != nil {
			t.Errorf("Get() after expiry = %+v, want nil", entry)
		}
	})

	t.Run("no ttl never expires", func(t *testing.T) {
		clock := NewClock(Epoch)
		s := newStorage(t, clock.Now)

		if err := s.Put(ctx, "fetchPrice", callData("X"), 42); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		clock.Advance(10000 * time.Hour)

		entry, err := s.Get(ctx, "fetchPrice", callData("X"), 0)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry == nil {
			t.Error("Get() = nil, want entry")
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStorage(t, NewClock(Epoch).Now)
		keyData := callData("X")

		if err := s.Delete(ctx, "fetchPrice", keyData); err != nil {
			t.Fatalf("Delete() of missing key error = %v", err)
		}
		if err := s.Put(ctx, "fetchPrice", keyData, 42); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Delete(ctx, "fetchPrice", keyData); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, "fetchPrice", keyData); err != nil {
			t.Fatalf("second Delete() error = %v", err)
		}

		entry, err := s.Get(ctx, "fetchPrice", keyData, 0)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry != nil {
			t.Errorf("Get() after Delete() = %+v, want nil", entry)
		}
	})

	t.Run("function name namespaces entries", func(t *testing.T) {
		s := newStorage(t, NewClock(Epoch).Now)
		keyData := callData("X")

		if err := s.Put(ctx, "fetchPrice", keyData, 1); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Put(ctx, "fetchVolume", keyData, 2); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		price, _, _ := cache.GetAs[int](ctx, s, "fetchPrice", keyData, 0)
		volume, _, _ := cache.GetAs[int](ctx, s, "fetchVolume", keyData, 0)
		if price != 1 || volume != 2 {
			t.Errorf("price, volume = %v, %v, want 1, 2", price, volume)
		}
	})

	t.Run("keyword order does not matter", func(t *testing.T) {
		s := newStorage(t, NewClock(Epoch).Now)

		first := []any{[]any{}, map[string]any{"a": 1, "b": 2}}
		second := []any{[]any{}, map[string]any{"b": 2, "a": 1}}

		if err := s.Put(ctx, "f", first, "v"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		got, ok, err := cache.GetAs[string](ctx, s, "f", second, 0)
		if err != nil || !ok || got != "v" {
			t.Errorf("GetAs() = %v, %v, %v; want v, true, nil", got, ok, err)
		}
	})

	t.Run("unserializable arguments", func(t *testing.T) {
		s := newStorage(t, NewClock(Epoch).Now)
		keyData := []any{[]any{make(chan int)}, map[string]any{}}

		if _, err := s.Get(ctx, "f", keyData, 0); !cache.IsUnserializableArgument(err) {
			t.Errorf("Get() error = %v, want unserializable argument", err)
		}
		if err := s.Put(ctx, "f", keyData, 1); !cache.IsUnserializableArgument(err) {
			t.Errorf("Put() error = %v, want unserializable argument", err)
		}
		if err := s.Put(ctx, "f", callData("X"), func() {}); !cache.IsUnserializableArgument(err) {
			t.Errorf("Put() of unserializable value error = %v, want unserializable argument", err)
		}
		if err := s.Delete(ctx, "f", keyData); !cache.IsUnserializableArgument(err) {
			t.Errorf("Delete() error = %v, want unserializable argument", err)
		}
	})
}

// callData builds the [positional, keyword] pair for a single positional argument.
func callData(arg any) []any {
	return []any{[]any{arg}, map[string]any{}}
}
