// Package codec implements the store's self-describing tagged binary
// format (spec.md §4.C2): a 1-byte tag followed by a fixed body, recursive
// for composite values.
//
// Values are modeled as the "tagged sum type" spec.md §9 recommends,
// expressed as a closed set of concrete Go types rather than a wrapper
// struct so the public store API stays ergonomic (callers pass native Go
// values). Encode and Decode type-switch over exactly this set; anything
// else is ErrUnsupportedType unless a Registry (registry.go) resolves it.
package codec

import (
	"fmt"
	"math/big"
)

// Keyword is a namespaced or bare symbolic name (codec tag 0x06).
type Keyword struct {
	Namespace string
	Name      string
}

func (k Keyword) String() string {
	if k.Namespace == "" {
		return k.Name
	}

	return k.Namespace + "/" + k.Name
}

// Symbol is a namespaced or bare identifier (codec tag 0x07). It shares
// Keyword's wire encoding but is kept as a distinct Go type because the
// two are not interchangeable at the API boundary.
type Symbol struct {
	Namespace string
	Name      string
}

func (s Symbol) String() string {
	if s.Namespace == "" {
		return s.Name
	}

	return s.Namespace + "/" + s.Name
}

// Char is a single UTF-16 code unit (codec tag 0x11), matching the wire
// format exactly rather than Go's 32-bit rune.
type Char uint16

// Decimal is an arbitrary-precision decimal (codec tag 0x13): an unscaled
// big integer together with a base-10 scale, i.e. the represented value is
// Unscaled * 10^-Scale.
//
// No arbitrary-precision decimal library appears anywhere in the example
// corpus, so this is built directly on math/big (see DESIGN.md).
type Decimal struct {
	Scale    int32
	Unscaled *big.Int
}

func (d Decimal) String() string {
	if d.Unscaled == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%sE-%d", d.Unscaled.String(), d.Scale)
}

// entry is one key/value pair of a Map, kept in insertion order.
type entry struct {
	key any
	val any
}

// Map is an insertion-ordered mapping (codec tag 0x0C). Order matters for
// exactly one reason in this store: wrapped records are written as a Map
// whose first entry is always "meta" (spec.md §3, §6), and the
// metadata-only decoder relies on that to stop after one field.
type Map struct {
	entries []entry
}

// NewMap creates an empty ordered map, optionally pre-sizing its backing
// storage.
func NewMap(sizeHint int) *Map {
	return &Map{entries: make([]entry, 0, sizeHint)}
}

// Set inserts or updates key, preserving its original position in the
// insertion order on update and appending on insert.
func (m *Map) Set(key, val any) *Map {
	for i := range m.entries {
		if keyEqual(m.entries[i].key, key) {
			m.entries[i].val = val

			return m
		}
	}
	m.entries = append(m.entries, entry{key: key, val: val})

	return m
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key any) (any, bool) {
	if m == nil {
		return nil, false
	}

	for _, e := range m.entries {
		if keyEqual(e.key, key) {
			return e.val, true
		}
	}

	return nil, false
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}

	return len(m.entries)
}

// At returns the key/value pair at position i, in insertion order.
func (m *Map) At(i int) (key, val any) {
	e := m.entries[i]

	return e.key, e.val
}

// Range calls fn for every entry in insertion order, stopping early if fn
// returns false.
func (m *Map) Range(fn func(key, val any) bool) {
	if m == nil {
		return
	}

	for _, e := range m.entries {
		if !fn(e.key, e.val) {
			return
		}
	}
}

// Clone returns a shallow copy of m, so a caller can apply Set to the
// copy without mutating a value another goroutine may still be reading
// (assoc-in/update-in build their new tree this way).
func (m *Map) Clone() *Map {
	if m == nil {
		return NewMap(0)
	}

	out := &Map{entries: make([]entry, len(m.entries))}
	copy(out.entries, m.entries)

	return out
}

func keyEqual(a, b any) bool {
	ka, ok := a.(Keyword)
	if ok {
		kb, ok := b.(Keyword)

		return ok && ka == kb
	}

	return a == b
}

// Set is a collection of unique elements (codec tag 0x0D). Uniqueness is
// the caller's responsibility at construction time; the codec does not
// deduplicate on encode.
type Set struct {
	Items []any
}

// NewSet creates a Set from items as given, without deduplicating.
func NewSet(items ...any) *Set {
	return &Set{Items: items}
}
