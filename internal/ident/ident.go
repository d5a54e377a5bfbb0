// Package ident decides which path components are legal name segments and
// turns arbitrary file and directory basenames into ones that are.
package ident

import (
	"strings"
	"unicode"
)

// Sanitizer converts a raw basename into an identifier-like segment.
// Implementations must be deterministic.
type Sanitizer func(raw string) string

func isStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '$' || unicode.Is(unicode.Sc, r)
}

func isPart(r rune) bool {
	return isStart(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}

// IsIdentifier reports whether s is a legal identifier. Directory names that
// fail this check (META-INF, 1.0, my-dir) are not packages.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !isStart(r) {
				return false
			}
			continue
		}
		if !isPart(r) {
			return false
		}
	}
	return true
}

// MakeIdentifier replaces every illegal rune with '_' and prefixes a leading
// digit with '_'. The empty string becomes "_".
func MakeIdentifier(raw string) string {
	if IsIdentifier(raw) {
		return raw
	}
	if raw == "" {
		return "_"
	}

	var sb strings.Builder
	sb.Grow(len(raw) + 1)
	for i, r := range raw {
		switch {
		case i == 0 && isStart(r):
			sb.WriteRune(r)
		case i == 0 && isPart(r):
			sb.WriteByte('_')
			sb.WriteRune(r)
		case i > 0 && isPart(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
