package cache

import "github.com/goliatone/go-memoize/internal/cacheinfra"

// Text codes carried by the *errors.Error values this module returns.
const (
	TextCodeUnserializableArgument = cacheinfra.TextCodeUnserializableArgument
	TextCodeStorageUnavailable     = cacheinfra.TextCodeStorageUnavailable
	TextCodeStorageOperation       = cacheinfra.TextCodeStorageOperation
	TextCodeCorruptEntry           = cacheinfra.TextCodeCorruptEntry
	TextCodeInvalidConfig          = cacheinfra.TextCodeInvalidConfig
)

// IsUnserializableArgument reports whether key or payload canonicalisation failed.
func IsUnserializableArgument(err error) bool {
	return cacheinfra.IsUnserializableArgument(err)
}

// IsStorageUnavailable reports whether a backend could not reach its medium.
func IsStorageUnavailable(err error) bool {
	return cacheinfra.IsStorageUnavailable(err)
}

// IsCorruptEntry reports whether a stored payload could not be decoded.
func IsCorruptEntry(err error) bool {
	return cacheinfra.IsCorruptEntry(err)
}
