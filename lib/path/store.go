package path

import (
	"fmt"
	"reflect"
	"strconv"
)

// MaxIndexGap is the largest number of elements a single write may append
// to a sequence beyond the element it stores.
const MaxIndexGap = 1024

// Store is a mutable, path-addressable root mapping.
//
// Thread-safety: Store is not safe for concurrent use.
type Store struct {
	root Values
}

// NewStore creates a store that takes ownership of root. A nil root starts empty.
func NewStore(root Values) *Store {
	if root == nil {
		root = Values{}
	}
	return &Store{root: root}
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the value at p and whether it exists. Composite results are
// references into the live tree, not copies.
func (s *Store) Get(p string) (any, bool) {
	segments, err := Split(p)
	if err != nil {
		return nil, false
	}

	var current any = s.root
	for _, segment := range segments {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Has reports whether a value (possibly nil) exists at p.
func (s *Store) Has(p string) bool {
	_, ok := s.Get(p)
	return ok
}

// ContainsInArray reports whether the value at p is a sequence containing
// scalar. Any other value, including an absent one, yields false.
func (s *Store) ContainsInArray(p string, scalar any) bool {
	v, ok := s.Get(p)
	if !ok || v == nil {
		return false
	}

	if seq, ok := v.([]any); ok {
		for _, e := range seq {
			if Equal(e, scalar) {
				return true
			}
		}
		return false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if Equal(rv.Index(i).Interface(), scalar) {
			return true
		}
	}
	return false
}

// Root returns the live root mapping.
func (s *Store) Root() Values {
	return s.root
}

// Snapshot returns a deep copy of the root mapping.
func (s *Store) Snapshot() Values {
	return CloneValues(s.root)
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set writes value at p, creating missing intermediate containers. Setting the
// empty path replaces the root and requires a mapping.
func (s *Store) Set(p string, value any) error {
	segments, err := Split(p)
	if err != nil {
		return err
	}

	if len(segments) == 0 {
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: got %T", ErrNotMapping, value)
		}
		if m == nil {
			m = Values{}
		}
		s.root = m
		return nil
	}

	root, err := setIn(s.root, segments, value)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPath, p, err)
	}
	s.root = root.(map[string]any)
	return nil
}

// Unset removes the value at p and reports whether something was removed.
// Sequence elements are set to nil so that sibling indices stay stable.
// Unsetting the empty path clears the store.
func (s *Store) Unset(p string) bool {
	segments, err := Split(p)
	if err != nil {
		return false
	}

	if len(segments) == 0 {
		s.root = Values{}
		return true
	}

	var parent any = s.root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := child(parent, segment)
		if !ok {
			return false
		}
		parent = next
	}

	last := segments[len(segments)-1]
	switch c := parent.(type) {
	case map[string]any:
		if _, ok := c[last]; !ok {
			return false
		}
		delete(c, last)
		return true
	case []any:
		idx, ok := index(last)
		if !ok || idx >= len(c) {
			return false
		}
		c[idx] = nil
		return true
	case nil:
		return false
	}

	// typed containers are modified in place
	rv := reflect.ValueOf(parent)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return false
		}
		key := reflect.ValueOf(last).Convert(rv.Type().Key())
		if !rv.MapIndex(key).IsValid() {
			return false
		}
		rv.SetMapIndex(key, reflect.Value{})
		return true
	case reflect.Slice:
		idx, ok := index(last)
		if !ok || idx >= rv.Len() {
			return false
		}
		rv.Index(idx).Set(reflect.Zero(rv.Type().Elem()))
		return true
	default:
		return false
	}
}

// Replace swaps the root for root, taking ownership of it.
func (s *Store) Replace(root Values) {
	if root == nil {
		root = Values{}
	}
	s.root = root
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// child returns the element selected by segment within container.
func child(container any, segment string) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		v, ok := c[segment]
		return v, ok
	case []any:
		idx, ok := index(segment)
		if !ok || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, ok := index(segment)
		if !ok || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	default:
		return nil, false
	}
}

// setIn writes value below container and returns the (possibly reallocated)
// container. Nothing is modified when an error is returned.
func setIn(container any, segments []string, value any) (any, error) {
	segment := segments[0]
	if len(segments) == 1 {
		return assign(container, segment, value)
	}

	next, _ := child(container, segment)
	next, ok := asContainer(next)
	if !ok {
		next = newContainer(segments[1])
	}
	next, err := setIn(next, segments[1:], value)
	if err != nil {
		return nil, err
	}
	return assign(container, segment, next)
}

// assign stores value under segment in container. Sequences grow as needed,
// but never by more than MaxIndexGap elements past their end. A non-index
// segment turns a sequence into a mapping keyed by position.
func assign(container any, segment string, value any) (any, error) {
	switch c := container.(type) {
	case map[string]any:
		c[segment] = value
		return c, nil
	case []any:
		idx, ok := index(segment)
		if !ok {
			m := make(map[string]any, len(c)+1)
			for i, e := range c {
				m[strconv.Itoa(i)] = e
			}
			m[segment] = value
			return m, nil
		}
		if idx-len(c) > MaxIndexGap {
			return nil, fmt.Errorf("index %d is more than %d past the end of a sequence of length %d", idx, MaxIndexGap, len(c))
		}
		if idx >= len(c) {
			c = append(c, make([]any, idx-len(c)+1)...)
		}
		c[idx] = value
		return c, nil
	default:
		return assign(newContainer(segment), segment, value)
	}
}

// asContainer returns v as a map[string]any or []any. Typed mappings with
// string keys and typed sequences are converted to a shallow generic copy, so
// that writing below them keeps their elements.
func asContainer(v any) (any, bool) {
	switch c := v.(type) {
	case map[string]any, []any:
		return c, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, true
	case reflect.Slice, reflect.Array:
		seq := make([]any, rv.Len())
		for i := range seq {
			seq[i] = rv.Index(i).Interface()
		}
		return seq, true
	default:
		return nil, false
	}
}

// newContainer creates the container type implied by the segment stored in it.
func newContainer(segment string) any {
	if _, ok := index(segment); ok {
		return []any{}
	}
	return map[string]any{}
}
