package memoize

// Result is what a memoized function returns: the value plus whether it may
// be stored. Build one with Persisted or Transient.
type Result[T any] struct {
	value     T
	transient bool
}

// Persisted marks v as cacheable.
func Persisted[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Transient marks v as not cacheable. When a Transient result is produced
// under ModeOn or ModeRefresh any entry already stored for the call is
// deleted, and the caller still receives v.
func Transient[T any](v T) Result[T] {
	return Result[T]{value: v, transient: true}
}

// Value returns the wrapped value.
func (r Result[T]) Value() T {
	return r.value
}

// IsTransient reports whether the result must not be stored.
func (r Result[T]) IsTransient() bool {
	return r.transient
}
