package storage

import (
	"sort"
	"strings"

	"github.com/p4lang/p4c-sub009/pkg/diag"
)

// Set is a set of locations. Sets are immutable; every operation returns a
// new set.
type Set struct {
	locs map[Location]struct{}
}

// Empty is the empty set.
var Empty = &Set{}

// NewSet returns a set holding the given locations. Nil entries are
// ignored.
func NewSet(locs ...Location) *Set {
	s := &Set{locs: make(map[Location]struct{}, len(locs))}
	for _, l := range locs {
		if l != nil {
			s.locs[l] = struct{}{}
		}
	}
	return s
}

func (s *Set) derive(f func(Location, map[Location]struct{})) *Set {
	out := &Set{locs: make(map[Location]struct{})}
	for l := range s.locs {
		f(l, out.locs)
	}
	return out
}

// Len returns the number of locations in s.
func (s *Set) Len() int { return len(s.locs) }

// IsEmpty reports whether s has no locations.
func (s *Set) IsEmpty() bool { return len(s.locs) == 0 }

// Contains reports whether l is a member of s.
func (s *Set) Contains(l Location) bool {
	_, ok := s.locs[l]
	return ok
}

// Union returns s ∪ o.
func (s *Set) Union(o *Set) *Set {
	if o == nil || o.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return o
	}
	out := &Set{locs: make(map[Location]struct{}, len(s.locs)+len(o.locs))}
	for l := range s.locs {
		out.locs[l] = struct{}{}
	}
	for l := range o.locs {
		out.locs[l] = struct{}{}
	}
	return out
}

// Field projects every struct in s onto the named member. Projecting
// ValidField yields the validity leaves, shared across the branches of a
// union. Last-index leaves, as denoted by stack.next, are skipped.
func (s *Set) Field(name string) *Set {
	if name == ValidField {
		return s.Valid()
	}
	return s.derive(func(l Location, out map[Location]struct{}) {
		if isLastIndex(l) {
			return
		}
		st, ok := l.(*Struct)
		if !ok {
			diag.Bugf("%s: field %s of non-struct location", l.Name(), name)
		}
		f := st.fields[name]
		if f == nil {
			diag.Bugf("%s: no field %s", l.Name(), name)
		}
		out[f] = struct{}{}
	})
}

// Valid returns the validity leaves of the headers and unions in s.
func (s *Set) Valid() *Set {
	return s.derive(func(l Location, out map[Location]struct{}) {
		if isLastIndex(l) {
			return
		}
		st, ok := l.(*Struct)
		if !ok || st.valid == nil {
			diag.Bugf("%s: no validity", l.Name())
		}
		out[st.valid] = struct{}{}
	})
}

// Index projects every array or tuple in s onto element i.
func (s *Set) Index(i int) *Set {
	return s.derive(func(l Location, out map[Location]struct{}) {
		elems := elements(l)
		if i < 0 || i >= len(elems) {
			diag.Bugf("%s: index %d out of range", l.Name(), i)
		}
		out[elems[i]] = struct{}{}
	})
}

// AllElements projects every array or tuple in s onto all its elements.
func (s *Set) AllElements() *Set {
	return s.derive(func(l Location, out map[Location]struct{}) {
		for _, e := range elements(l) {
			out[e] = struct{}{}
		}
	})
}

// LastIndex returns the last-index leaves of the arrays in s.
func (s *Set) LastIndex() *Set {
	return s.derive(func(l Location, out map[Location]struct{}) {
		a, ok := l.(*Array)
		if !ok {
			diag.Bugf("%s: lastIndex of non-array location", l.Name())
		}
		out[a.lastIndex] = struct{}{}
	})
}

func isLastIndex(l Location) bool {
	b, ok := l.(*Base)
	return ok && b.lastIndex
}

func elements(l Location) []Location {
	switch l := l.(type) {
	case *Array:
		return l.elems
	case *Tuple:
		return l.elems
	}
	diag.Bugf("%s: element of non-indexable location", l.Name())
	return nil
}

// Canonical expands every member of s into its leaves.
func (s *Set) Canonical() *Set {
	return s.derive(leaves)
}

// Synthetic returns the validity and last-index leaves below the members
// of s.
func (s *Set) Synthetic() *Set {
	return s.derive(func(l Location, out map[Location]struct{}) {
		synthetic(l, out)
	})
}

func synthetic(l Location, out map[Location]struct{}) {
	switch l := l.(type) {
	case *Struct:
		if l.valid != nil {
			out[l.valid] = struct{}{}
		}
		for _, f := range l.fields {
			synthetic(f, out)
		}
	case *Tuple:
		for _, e := range l.elems {
			synthetic(e, out)
		}
	case *Array:
		out[l.lastIndex] = struct{}{}
		for _, e := range l.elems {
			synthetic(e, out)
		}
	}
}

// RemoveHeaders returns the leaves of s that are not stored inside a
// header, union or header stack.
func (s *Set) RemoveHeaders() *Set {
	return s.derive(func(l Location, out map[Location]struct{}) {
		removeHeaders(l, out)
	})
}

func removeHeaders(l Location, out map[Location]struct{}) {
	switch l := l.(type) {
	case *Base:
		out[l] = struct{}{}
	case *Struct:
		if l.valid != nil {
			return
		}
		for _, f := range l.fields {
			removeHeaders(f, out)
		}
	case *Tuple:
		for _, e := range l.elems {
			removeHeaders(e, out)
		}
	case *Array:
		// stacks only hold headers
	}
}

// Headers returns the headers in s, expanding unions into their members
// and stacks into their elements.
func (s *Set) Headers() []*Struct {
	seen := make(map[*Struct]bool)
	var out []*Struct
	var walk func(Location)
	walk = func(l Location) {
		switch l := l.(type) {
		case *Struct:
			if l.IsHeader() {
				if !seen[l] {
					seen[l] = true
					out = append(out, l)
				}
				return
			}
			for _, f := range l.Fields() {
				walk(f)
			}
		case *Tuple:
			for _, e := range l.elems {
				walk(e)
			}
		case *Array:
			for _, e := range l.elems {
				walk(e)
			}
		}
	}
	for _, l := range s.Sorted() {
		walk(l)
	}
	return out
}

// Sorted returns the members of s in a deterministic order.
func (s *Set) Sorted() []Location {
	out := make([]Location, 0, len(s.locs))
	for l := range s.locs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return orderOf(out[i]) < orderOf(out[j])
	})
	return out
}

// Leaves returns the canonical expansion of s as sorted leaves.
func (s *Set) Leaves() []*Base {
	var out []*Base
	for _, l := range s.Canonical().Sorted() {
		out = append(out, l.(*Base))
	}
	return out
}

func orderOf(l Location) uint64 {
	switch l := l.(type) {
	case *Base:
		return l.order
	case *Struct:
		return l.order
	case *Tuple:
		return l.order
	case *Array:
		return l.order
	}
	return 0
}

func (s *Set) String() string {
	names := make([]string, 0, len(s.locs))
	for _, l := range s.Sorted() {
		names = append(names, l.Name())
	}
	return "{" + strings.Join(names, ", ") + "}"
}
