package cacheinfra

import (
	"strings"
	"unicode"
)

// toSnake turns a function name into a single lower_snake path segment.
// Names come from reflection, so receivers, pointers and generic suffixes
// ("(*Client).Fetch-fm", "main.load[...]") collapse into one underscore.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	sep := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			// A word starts after a lower case rune or digit, or at the last
			// capital of an acronym ("HTTPResponse" -> "http_response").
			prev := rune(0)
			if i > 0 {
				prev = runes[i-1]
			}
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				sep()
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			sep()
		}
	}

	return strings.Trim(b.String(), "_")
}
