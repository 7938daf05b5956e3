package cacheinfra

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the errors produced by this package.
const (
	TextCodeUnserializableArgument = "UNSERIALIZABLE_ARGUMENT"
	TextCodeStorageUnavailable     = "STORAGE_UNAVAILABLE"
	TextCodeStorageOperation       = "STORAGE_OPERATION"
	TextCodeCorruptEntry           = "CORRUPT_ENTRY"
	TextCodeInvalidConfig          = "INVALID_CONFIG"
)

// NewUnserializableArgumentError reports a value that has no canonical JSON form.
func NewUnserializableArgumentError(source error) *goerrors.Error {
	return wrapOrNew(source, goerrors.CategoryBadInput, "value cannot be canonically serialized").
		WithTextCode(TextCodeUnserializableArgument)
}

// NewStorageUnavailableError reports a backend that could not reach its medium.
func NewStorageUnavailableError(backend string, source error) *goerrors.Error {
	return wrapOrNew(source, goerrors.CategoryExternal, fmt.Sprintf("%s storage unavailable", backend)).
		WithTextCode(TextCodeStorageUnavailable).
		WithMetadata(map[string]any{"backend": backend})
}

// NewStorageOperationError reports a failed read, write or delete once the
// backend has been reached.
func NewStorageOperationError(backend, op string, source error) *goerrors.Error {
	return wrapOrNew(source, goerrors.CategoryOperation, fmt.Sprintf("%s storage %s failed", backend, op)).
		WithTextCode(TextCodeStorageOperation).
		WithMetadata(map[string]any{"backend": backend, "operation": op})
}

// NewCorruptEntryError reports a stored payload that cannot be decoded.
func NewCorruptEntryError(key string, source error) *goerrors.Error {
	return wrapOrNew(source, goerrors.CategoryInternal, "stored entry cannot be decoded").
		WithTextCode(TextCodeCorruptEntry).
		WithMetadata(map[string]any{"key": key})
}

// IsUnserializableArgument reports whether err carries the unserializable argument code.
func IsUnserializableArgument(err error) bool {
	return hasTextCode(err, TextCodeUnserializableArgument)
}

// IsStorageUnavailable reports whether err carries the storage unavailable code.
func IsStorageUnavailable(err error) bool {
	return hasTextCode(err, TextCodeStorageUnavailable)
}

// IsCorruptEntry reports whether err carries the corrupt entry code.
func IsCorruptEntry(err error) bool {
	return hasTextCode(err, TextCodeCorruptEntry)
}

func hasTextCode(err error, code string) bool {
	var e *goerrors.Error
	for err != nil {
		if !goerrors.As(err, &e) {
			return false
		}
		if e.TextCode == code {
			return true
		}
		err = e.Source
	}
	return false
}

// wrapOrNew keeps the category of the returned error stable. goerrors.Wrap
// clones an *Error source and would inherit its category.
func wrapOrNew(source error, category goerrors.Category, message string) *goerrors.Error {
	err := goerrors.New(message, category)
	err.Source = source
	return err
}
