package retry

import (
	"fmt"
	"time"
)

// DetachedElementError reports a page element that disappeared or was
// re-rendered between lookup and use.
type DetachedElementError struct {
	Selector string
	Err      error
}

func (e *DetachedElementError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("element %q detached from document", e.Selector)
	}
	return fmt.Sprintf("element %q detached from document: %v", e.Selector, e.Err)
}

func (e *DetachedElementError) Unwrap() error {
	return e.Err
}

// OnStaleElement retries DetachedElementError up to 3 times, 1s apart.
func OnStaleElement(opts ...Option) (*Policy, error) {
	cfg := Config{
		Matcher:        Match(Exact[*DetachedElementError]()),
		Retries:        3,
		WaitTime:       time.Second,
		RaiseException: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

// OnRequestFailure retries any error up to 5 times, 1s apart.
func OnRequestFailure(opts ...Option) (*Policy, error) {
	cfg := Config{
		Matcher:        Any,
		Retries:        5,
		WaitTime:       time.Second,
		RaiseException: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}
