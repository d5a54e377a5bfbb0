package fqn

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/standardbeagle/fqnindex/internal/debug"
	fqnerrors "github.com/standardbeagle/fqnindex/internal/errors"
)

// DefaultSplitCacheSize bounds every split memo cache unless configured otherwise
const DefaultSplitCacheSize = 10000

// Validator maps a segment to its accepted form. Returning false rejects the
// segment and with it the whole name.
type Validator func(segment string) (string, bool)

// splitResult is what a memo cache holds. Rejections are cached too; malformed
// names are not, they fail fast on every call.
type splitResult struct {
	parts    []string
	rejected string
	ok       bool
}

// Splitter splits qualified names into segments and memoizes the results.
// The zero value is not usable; use NewSplitter.
type Splitter struct {
	validator Validator
	capacity  int
	cache     *lru.Cache[string, splitResult]
}

var defaultSplitter = NewSplitter(nil, DefaultSplitCacheSize)

// NewSplitter returns a splitter bound to validator (may be nil) with its own
// memo cache holding at most capacity names.
func NewSplitter(validator Validator, capacity int) *Splitter {
	if capacity <= 0 {
		capacity = DefaultSplitCacheSize
	}
	cache, _ := lru.NewWithEvict[string, splitResult](capacity, func(name string, _ splitResult) {
		debug.LogCache("split cache evicted %q\n", name)
	})
	return &Splitter{validator: validator, capacity: capacity, cache: cache}
}

// Split returns the segments of name using the process-wide cache.
func Split(name string) ([]string, error) {
	return defaultSplitter.Split(name)
}

// Split returns the segments of name. The returned slice is shared with the
// cache and must not be modified.
//
// Errors are *errors.NameError for unterminated generic clauses and
// *errors.ValidationError when the validator rejects a segment.
func (s *Splitter) Split(name string) ([]string, error) {
	if r, ok := s.cache.Get(name); ok {
		if !r.ok {
			return nil, fqnerrors.NewValidationError(name, r.rejected)
		}
		return r.parts, nil
	}

	parts, rejected, err := split(name, s.validator)
	if err != nil {
		return nil, err
	}
	if parts == nil {
		s.cache.Add(name, splitResult{rejected: rejected})
		return nil, fqnerrors.NewValidationError(name, rejected)
	}
	s.cache.Add(name, splitResult{parts: parts, ok: true})
	return parts, nil
}

// Len returns the number of memoized names
func (s *Splitter) Len() int {
	return s.cache.Len()
}

// Cap returns the most names the splitter memoizes
func (s *Splitter) Cap() int {
	return s.capacity
}

// Purge drops every memoized name
func (s *Splitter) Purge() {
	s.cache.Purge()
}

// split scans left to right taking one segment per step. A generic clause
// ("<...>") and an array marker ("[]") each become their own segment; dots
// separate everything else. A nil result with no error means validator
// rejected the returned segment.
func split(name string, validator Validator) ([]string, string, error) {
	rest := name
	parts := make([]string, 0, strings.Count(name, ".")+1)
	for done := false; !done; {
		iParam := strings.IndexByte(rest, '<')
		iDot := strings.IndexByte(rest, '.')
		iArray := strings.IndexByte(rest, '[')

		var part string
		switch {
		case iParam == 0:
			if iArray > 0 {
				part, rest = rest[:iArray], rest[iArray:]
			} else {
				if !strings.HasSuffix(rest, ">") {
					return nil, "", fqnerrors.NewNameError(name, "\""+rest+"\" does not end with '>'")
				}
				part, done = rest, true
			}
		case iArray == 0:
			if len(rest) < 2 {
				return nil, "", fqnerrors.NewNameError(name, "unterminated array marker")
			}
			part = rest[:2]
			if len(rest) == 2 {
				done = true
			} else {
				rest = rest[2:]
			}
		case iParam > 0:
			if iDot > 0 && iDot < iParam {
				part, rest, done = cutDot(rest, iDot)
			} else {
				part, rest = rest[:iParam], rest[iParam:]
			}
		case iDot > 0 && (iArray < 0 || iDot < iArray):
			part, rest, done = cutDot(rest, iDot)
		case iArray > 0:
			part, rest = rest[:iArray], rest[iArray:]
		default:
			part, done = rest, true
		}

		if validator != nil {
			accepted, ok := validator(part)
			if !ok {
				return nil, part, nil
			}
			part = accepted
		}
		parts = append(parts, Intern(part))
	}
	return parts, "", nil
}

func cutDot(s string, iDot int) (part, rest string, done bool) {
	if iDot+1 < len(s) {
		return s[:iDot], s[iDot+1:], false
	}
	return s[:iDot], "", true
}

// Join is the inverse of Split: segments are joined with '.' except that no
// dot precedes a generic clause or an array marker.
func Join(parts []string) string {
	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			sb.WriteString(separator(p))
		}
		sb.WriteString(p)
	}
	return sb.String()
}

func separator(segment string) string {
	if segment != "" && (segment[0] == '[' || segment[0] == '<') {
		return ""
	}
	return "."
}
