// Package path implements a path-addressable nested store for JSON-like values.
//
// Values live in a tree of mappings (map[string]any) and sequences ([]any). A
// path is a dot-delimited string where every segment selects a mapping key or a
// sequence index. Bracket indices are accepted as an alternative spelling, so
// "tabs[2].title" and "tabs.2.title" address the same location. The empty path
// addresses the root mapping.
//
// Key Components:
//
//   - Split / Join: Parse and build paths.
//
//   - Store: A mutable root mapping with Get, Set, Unset, Has and
//     ContainsInArray primitives. Set creates missing intermediate containers:
//     a sequence when the next segment is a non-negative integer, a mapping
//     otherwise. Typed containers written earlier become map[string]any or
//     []any when a write descends into them. A write may not grow a sequence
//     by more than MaxIndexGap elements. Store is not safe for concurrent use, callers serialize access.
//
//   - Clone / Equal: Deep copies of nested values and the scalar equality used
//     by ContainsInArray. Numbers of different Go kinds compare by value, so an
//     int written by a caller matches the float64 produced by a JSON round trip.
//
// Aliasing:
//
//	Store.Get returns references into the live tree. Mutating a returned
//	mapping or sequence mutates the store. Use Store.Snapshot or Clone when an
//	independent copy is required.
//
// Usage Example:
//
//	s := path.NewStore(nil)
//	_ = s.Set("ui.theme", "dark")
//	_ = s.Set("ui.tabs[0]", "inbox")
//
//	theme, ok := s.Get("ui.theme")            // "dark", true
//	hasInbox := s.ContainsInArray("ui.tabs", "inbox") // true
package path
