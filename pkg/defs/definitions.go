package defs

import (
	"fmt"
	"strings"

	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/storage"
)

// Definitions maps each leaf location to the points whose writes may reach
// it. Definitions are immutable: operations return updated copies.
type Definitions struct {
	defs        map[*storage.Base]*Points
	unreachable bool
}

// New returns empty, reachable definitions.
func New() *Definitions {
	return &Definitions{defs: make(map[*storage.Base]*Points)}
}

func (d *Definitions) clone() *Definitions {
	out := &Definitions{
		defs:        make(map[*storage.Base]*Points, len(d.defs)),
		unreachable: d.unreachable,
	}
	for k, v := range d.defs {
		out.defs[k] = v
	}
	return out
}

// IsUnreachable reports whether no execution reaches these definitions.
func (d *Definitions) IsUnreachable() bool { return d.unreachable }

// Unreachable returns a copy of d marked unreachable.
func (d *Definitions) Unreachable() *Definitions {
	if d.unreachable {
		return d
	}
	out := d.clone()
	out.unreachable = true
	return out
}

// Len returns the number of bound leaves.
func (d *Definitions) Len() int { return len(d.defs) }

// Set returns a copy of d with every leaf of set bound to pts.
func (d *Definitions) Set(set *storage.Set, pts *Points) *Definitions {
	if set.IsEmpty() {
		return d
	}
	out := d.clone()
	for _, l := range set.Leaves() {
		out.defs[l] = pts
	}
	return out
}

// Writes returns a copy of d in which point pt is the only definition of
// every leaf of set.
func (d *Definitions) Writes(pt ProgramPoint, set *storage.Set) *Definitions {
	return d.Set(set, NewPoints(pt))
}

// Remove returns a copy of d without the leaves of set.
func (d *Definitions) Remove(set *storage.Set) *Definitions {
	if set.IsEmpty() {
		return d
	}
	out := d.clone()
	for _, l := range set.Leaves() {
		delete(out.defs, l)
	}
	return out
}

// Points returns the union of the points bound to the leaves of set. An
// unbound leaf is a defect.
func (d *Definitions) Points(set *storage.Set) *Points {
	result := NewPoints()
	for _, l := range set.Leaves() {
		pts, ok := d.defs[l]
		if !ok {
			diag.Bugf("%s: no definitions", l.Name())
		}
		result = result.Merge(pts)
	}
	return result
}

// Bound reports whether leaf l has definitions.
func (d *Definitions) Bound(l *storage.Base) bool {
	_, ok := d.defs[l]
	return ok
}

// Join merges two control-flow paths. Unreachable operands contribute
// nothing.
func (d *Definitions) Join(o *Definitions) *Definitions {
	if d.unreachable && !o.unreachable {
		return o.clone()
	}
	if o.unreachable && !d.unreachable {
		return d.clone()
	}
	out := d.clone()
	for k, v := range o.defs {
		if prev, ok := out.defs[k]; ok {
			out.defs[k] = prev.Merge(v)
		} else {
			out.defs[k] = v
		}
	}
	out.unreachable = d.unreachable && o.unreachable
	return out
}

// Equal reports whether d and o bind the same leaves to the same points
// and agree on reachability.
func (d *Definitions) Equal(o *Definitions) bool {
	if d.unreachable != o.unreachable || len(d.defs) != len(o.defs) {
		return false
	}
	for k, v := range d.defs {
		w, ok := o.defs[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

func (d *Definitions) String() string {
	var sb strings.Builder
	if d.unreachable {
		sb.WriteString("unreachable\n")
	}
	set := storage.Empty
	for l := range d.defs {
		set = set.Union(storage.NewSet(l))
	}
	for _, l := range set.Leaves() {
		fmt.Fprintf(&sb, "%s => %s\n", l.Name(), d.defs[l])
	}
	return sb.String()
}
