package cache

import "github.com/goliatone/go-memoize/internal/cacheinfra"

// KeyLength is the length of every derived key (hex encoded SHA-256).
const KeyLength = cacheinfra.KeyLength

// Canonicalize encodes v as compact JSON with object keys sorted at every
// depth. Values without a JSON form yield an error for which
// IsUnserializableArgument reports true.
func Canonicalize(v any) ([]byte, error) {
	return cacheinfra.Canonicalize(v)
}

// DeriveKey returns the content address of a call, the hex SHA-256 of the
// canonical form of [funcName, keyData]. Every backend uses it, so switching
// backend never changes keys.
func DeriveKey(funcName string, keyData any) (string, error) {
	return cacheinfra.DeriveKey(funcName, keyData)
}
