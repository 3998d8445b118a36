package defuse

import (
	"sort"

	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/ir"
)

// Uses records which writes are read and which statements were analyzed.
// A write is identified by the innermost node of its program point.
type Uses struct {
	used    map[ir.ID]bool
	visited map[ir.ID]bool
}

// NewUses returns an empty use set.
func NewUses() *Uses {
	return &Uses{used: make(map[ir.ID]bool), visited: make(map[ir.ID]bool)}
}

// Add marks the writes at pts as used.
func (u *Uses) Add(pts *defs.Points) {
	for _, id := range pts.Lasts() {
		u.used[id] = true
	}
}

// Visit marks a statement as analyzed.
func (u *Uses) Visit(id ir.ID) { u.visited[id] = true }

// Used reports whether a write at node id is read somewhere.
func (u *Uses) Used(id ir.ID) bool { return u.used[id] }

// Visited reports whether the statement id was analyzed.
func (u *Uses) Visited(id ir.ID) bool { return u.visited[id] }

// Merge adds the contents of o to u.
func (u *Uses) Merge(o *Uses) {
	for id := range o.used {
		u.used[id] = true
	}
	for id := range o.visited {
		u.visited[id] = true
	}
}

// UsedIDs returns the used nodes in ascending order.
func (u *Uses) UsedIDs() []ir.ID {
	ids := make([]ir.ID, 0, len(u.used))
	for id := range u.used {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
