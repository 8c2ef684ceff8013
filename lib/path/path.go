package path

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Values is a nested mapping of JSON-like values.
type Values = map[string]any

var (
	// ErrInvalidPath is returned for paths with empty segments or unbalanced brackets.
	ErrInvalidPath = errors.New("path: invalid path")
	// ErrNotMapping is returned when the root is assigned a value that is not a mapping.
	ErrNotMapping = errors.New("path: root value must be a mapping")
)

// separator delimits path segments.
const separator = "."

// Entry is a single path/value pair. Slices of entries keep their order, which
// plain Go maps cannot.
type Entry struct {
	Path  string
	Value any
}

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

// Split parses p into its segments. The empty path yields no segments.
func Split(p string) ([]string, error) {
	if p == "" {
		return nil, nil
	}

	segments := make([]string, 0, strings.Count(p, separator)+1)
	var current strings.Builder

	for i := 0; i < len(p); i++ {
		switch c := p[i]; c {
		case '.':
			if current.Len() == 0 {
				// "a[0].b" - the dot after a bracket closes nothing
				if i > 0 && p[i-1] == ']' {
					continue
				}
				return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, p)
			}
			segments = append(segments, current.String())
			current.Reset()
		case '[':
			if current.Len() > 0 {
				segments = append(segments, current.String())
				current.Reset()
			}
			end := strings.IndexByte(p[i+1:], ']')
			if end <= 0 {
				return nil, fmt.Errorf("%w: unbalanced or empty brackets in %q", ErrInvalidPath, p)
			}
			segments = append(segments, p[i+1:i+1+end])
			i += end + 1
			if i+1 < len(p) && p[i+1] != '.' && p[i+1] != '[' {
				return nil, fmt.Errorf("%w: unexpected character after ']' in %q", ErrInvalidPath, p)
			}
		case ']':
			return nil, fmt.Errorf("%w: unexpected ']' in %q", ErrInvalidPath, p)
		default:
			current.WriteByte(c)
		}
	}

	if current.Len() > 0 {
		segments = append(segments, current.String())
	} else if strings.HasSuffix(p, separator) {
		return nil, fmt.Errorf("%w: trailing separator in %q", ErrInvalidPath, p)
	}

	return segments, nil
}

// Join builds a path from segments, skipping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, separator)
}

// Valid reports whether p parses.
func Valid(p string) bool {
	_, err := Split(p)
	return err == nil
}

// SortedEntries returns the entries of m ordered by path, so that a parent
// path is always applied before its children.
func SortedEntries(m Values) []Entry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Path: k, Value: m[k]}
	}
	return entries
}

// index parses a sequence index segment.
func index(segment string) (int, bool) {
	if segment == "" || (len(segment) > 1 && segment[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(segment)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
