package cacheinfra

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

var errInvalidUTF8 = errors.New("string is not valid UTF-8")

// KeyLength is the length of every derived key (hex encoded SHA-256).
const KeyLength = sha256.Size * 2

// Canonicalize encodes v as compact JSON with object keys sorted at every
// depth. Struct values are encoded through their json tags first, so a struct
// and the equivalent map produce the same bytes. Values encoding/json refuses
// (channels, functions, complex numbers, NaN, cycles) yield an
// unserializable argument error, and so do strings or map keys holding
// invalid UTF-8, which encoding/json would otherwise fold into U+FFFD.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, NewUnserializableArgumentError(err)
	}
	if hasReplacedRune(raw) {
		return nil, NewUnserializableArgumentError(errInvalidUTF8)
	}

	// Round trip through a generic tree so every object becomes a map, which
	// encoding/json always writes in sorted key order. UseNumber keeps
	// numeric literals byte for byte.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, NewUnserializableArgumentError(err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, NewUnserializableArgumentError(err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DeriveKey returns the content address of a call: the hex SHA-256 digest of
// the canonical form of [funcName, keyData].
func DeriveKey(funcName string, keyData any) (string, error) {
	payload, err := Canonicalize([]any{funcName, keyData})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// hasReplacedRune reports whether raw holds the \ufffd escape encoding/json
// writes for invalid UTF-8. A valid U+FFFD is written as raw bytes, and a
// literal backslash is escaped, so only an unescaped backslash counts.
func hasReplacedRune(raw []byte) bool {
	const escape = `\ufffd`
	for i := 0; ; {
		j := bytes.Index(raw[i:], []byte(escape))
		if j < 0 {
			return false
		}
		at := i + j

		slashes := 0
		for k := at - 1; k >= 0 && raw[k] == '\\'; k-- {
			slashes++
		}
		if slashes%2 == 0 {
			return true
		}
		i = at + len(escape)
	}
}
