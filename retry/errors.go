package retry

import "errors"

// Sentinel errors for retry configuration.
var (
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("retry: invalid config")

	// ErrNilPolicy indicates Do or Run was given a nil *Policy.
	ErrNilPolicy = errors.New("retry: policy is nil")
)
