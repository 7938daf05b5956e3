package memoize

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Mode selects how a call interacts with storage.
type Mode string

const (
	// ModeOff never reads or writes storage; the function always runs.
	ModeOff Mode = "false"
	// ModeOn returns a stored value when one is fresh and stores the result
	// of a miss.
	ModeOn Mode = "true"
	// ModeRefresh always runs the function and overwrites the stored value.
	ModeRefresh Mode = "REFRESH"
)

// TextCodeInvalidMode is attached to the error ParseMode returns.
const TextCodeInvalidMode = "INVALID_MODE"

// ParseMode maps configuration text to a Mode. Matching is case-insensitive;
// the empty string selects ModeOn.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "on", "1", "yes":
		return ModeOn, nil
	case "false", "off", "0", "no":
		return ModeOff, nil
	case "refresh":
		return ModeRefresh, nil
	}
	return "", invalidMode(s)
}

func invalidMode(s string) *goerrors.Error {
	return goerrors.New("unknown cache mode "+s, goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidMode).
		WithMetadata(map[string]any{"mode": s})
}

func (m Mode) normalize() Mode {
	if m == "" {
		return ModeOn
	}
	return m
}

func (m Mode) valid() bool {
	switch m.normalize() {
	case ModeOff, ModeOn, ModeRefresh:
		return true
	}
	return false
}

func (m Mode) reads() bool {
	return m.normalize() == ModeOn
}

func (m Mode) writes() bool {
	m = m.normalize()
	return m == ModeOn || m == ModeRefresh
}

// String returns the configuration form of the mode.
func (m Mode) String() string {
	return string(m.normalize())
}
