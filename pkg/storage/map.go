package storage

import (
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
)

// Map owns the storage trees of the declarations of one unit, keyed by
// declaration ID.
type Map struct {
	locs map[ir.ID]Location
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{locs: make(map[ir.ID]Location)}
}

// Add builds and registers the storage of d. It returns nil if values of
// type t have no storage. Adding the same declaration twice is a defect.
func (m *Map) Add(d ir.Decl, t ir.Type) Location {
	if d == nil {
		diag.Bugf("storage: nil declaration")
	}
	if _, ok := m.locs[d.ID()]; ok {
		diag.Bugf("%s: storage already allocated", d.DeclName())
	}
	loc := Build(t, d.DeclName())
	m.locs[d.ID()] = loc
	return loc
}

// GetOrAdd returns the storage of d, building it on first use.
func (m *Map) GetOrAdd(d ir.Decl, t ir.Type) Location {
	if loc, ok := m.locs[d.ID()]; ok {
		return loc
	}
	return m.Add(d, t)
}

// Get returns the storage of d, or nil if it has none.
func (m *Map) Get(d ir.Decl) Location {
	if d == nil {
		return nil
	}
	return m.locs[d.ID()]
}

// Len returns the number of registered declarations.
func (m *Map) Len() int { return len(m.locs) }

// Unsupported reports whether a local of type t cannot be modelled. Header
// union locals are only supported outside parsers.
func Unsupported(t ir.Type, inParser bool) bool {
	return inParser && ir.ContainsUnion(t)
}
