package defs

import (
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/storage"
)

// All records the definitions at every program point of one unit. A point
// stores the definitions after it executes, except unit and callee entry
// points, which store the definitions before the first statement.
type All struct {
	defs    map[ProgramPoint]*Definitions
	Storage *storage.Map
}

// NewAll returns an empty table over the given storage.
func NewAll(m *storage.Map) *All {
	return &All{defs: make(map[ProgramPoint]*Definitions), Storage: m}
}

// Set records d at pt. Each point is written once unless overwrite is set;
// a second write without it is a defect.
func (a *All) Set(pt ProgramPoint, d *Definitions, overwrite bool) {
	if _, ok := a.defs[pt]; ok && !overwrite {
		diag.Bugf("%s: definitions already set", pt)
	}
	a.defs[pt] = d
}

// Get returns the definitions at pt. A missing point is a defect.
func (a *All) Get(pt ProgramPoint) *Definitions {
	d, ok := a.defs[pt]
	if !ok {
		diag.Bugf("%s: no definitions", pt)
	}
	return d
}

// Lookup returns the definitions at pt, if any.
func (a *All) Lookup(pt ProgramPoint) (*Definitions, bool) {
	d, ok := a.defs[pt]
	return d, ok
}

// Len returns the number of recorded points.
func (a *All) Len() int { return len(a.defs) }
