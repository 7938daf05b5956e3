package retry

import (
	"errors"
	"reflect"

	goerrors "github.com/goliatone/go-errors"
)

// MatcherEntry selects one kind of error and optionally runs a callback when
// it matches.
type MatcherEntry struct {
	name     string
	match    func(error) bool
	callback func(error)
}

// Name describes what the entry matches.
func (e MatcherEntry) Name() string {
	return e.name
}

// Matcher decides which errors are retried. Any matches every error. A
// matcher built with Match checks its entries in order and the first match
// wins; errors matching no entry are not retried.
type Matcher struct {
	restricted bool
	entries    []MatcherEntry
}

// Any retries every error.
var Any = Matcher{}

// Match builds a restricted matcher. Match() with no entries retries nothing.
func Match(entries ...MatcherEntry) Matcher {
	return Matcher{restricted: true, entries: append([]MatcherEntry(nil), entries...)}
}

// IsAny reports whether m retries every error.
func (m Matcher) IsAny() bool {
	return !m.restricted
}

// Entries returns a copy of the entries of a restricted matcher.
func (m Matcher) Entries() []MatcherEntry {
	return append([]MatcherEntry(nil), m.entries...)
}

// Lookup reports whether err is retried and the index of the entry that
// matched it. The index is -1 for Any.
func (m Matcher) Lookup(err error) (int, bool) {
	if err == nil {
		return -1, false
	}
	if !m.restricted {
		return -1, true
	}
	for i, e := range m.entries {
		if e.match(err) {
			return i, true
		}
	}
	return -1, false
}

// notify runs the callback of entry i, if any.
func (m Matcher) notify(i int, err error) {
	if i < 0 || i >= len(m.entries) || m.entries[i].callback == nil {
		return
	}
	m.entries[i].callback(err)
}

// Exact matches errors whose chain contains an E.
func Exact[E error]() MatcherEntry {
	return MatcherEntry{
		name: typeName[E](),
		match: func(err error) bool {
			var target E
			return errors.As(err, &target)
		},
	}
}

// WithCallback matches like Exact and hands the matched E to cb.
func WithCallback[E error](cb func(E)) MatcherEntry {
	entry := Exact[E]()
	entry.callback = func(err error) {
		var target E
		if errors.As(err, &target) {
			cb(target)
		}
	}
	return entry
}

// Is matches errors for which errors.Is(err, target) holds.
func Is(target error) MatcherEntry {
	return MatcherEntry{
		name:  target.Error(),
		match: func(err error) bool { return errors.Is(err, target) },
	}
}

// IsWithCallback matches like Is and hands the error to cb.
func IsWithCallback(target error, cb func(error)) MatcherEntry {
	entry := Is(target)
	entry.callback = cb
	return entry
}

// Retryable matches errors in the chain that report themselves retryable,
// such as the ones built by goerrors.NewRetryable.
func Retryable() MatcherEntry {
	return MatcherEntry{
		name: "retryable",
		match: func(err error) bool {
			var r interface {
				error
				IsRetryable() bool
			}
			return errors.As(err, &r) && goerrors.IsRetryableError(r)
		},
	}
}

func typeName[E any]() string {
	return reflect.TypeOf((*E)(nil)).Elem().String()
}
