// Package validity tracks the three-valued validity of headers along
// control flow.
package validity

import (
	"fmt"
	"strings"

	"github.com/p4lang/p4c-sub009/pkg/storage"
)

// Status is the validity of a header.
type Status int

const (
	Valid   Status = iota // definitely valid
	Invalid               // definitely invalid
	Maybe                 // possibly invalid
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Maybe:
		return "maybe"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Defs maps headers to their validity. Headers without an entry are
// valid. Headers tested with isValid() are kept in a do-not-report set
// until their validity changes again.
type Defs struct {
	status    map[*storage.Struct]Status
	notReport map[*storage.Struct]bool
}

// New returns an empty map.
func New() *Defs {
	return &Defs{
		status:    make(map[*storage.Struct]Status),
		notReport: make(map[*storage.Struct]bool),
	}
}

// Clone returns a copy of d.
func (d *Defs) Clone() *Defs {
	out := &Defs{
		status:    make(map[*storage.Struct]Status, len(d.status)),
		notReport: make(map[*storage.Struct]bool, len(d.notReport)),
	}
	for k, v := range d.status {
		out.status[k] = v
	}
	for k := range d.notReport {
		out.notReport[k] = true
	}
	return out
}

// Get returns the status of h.
func (d *Defs) Get(h *storage.Struct) Status {
	if s, ok := d.status[h]; ok {
		return s
	}
	return Valid
}

// Set updates the status of h and clears its do-not-report mark.
func (d *Defs) Set(h *storage.Struct, s Status) {
	d.status[h] = s
	delete(d.notReport, h)
}

// SetAll sets the status of every header in hs.
func (d *Defs) SetAll(hs []*storage.Struct, s Status) {
	for _, h := range hs {
		d.Set(h, s)
	}
}

// Suppress marks h as explicitly tested.
func (d *Defs) Suppress(h *storage.Struct) {
	d.notReport[h] = true
}

// Suppressed reports whether h was tested since its last change.
func (d *Defs) Suppressed(h *storage.Struct) bool {
	return d.notReport[h]
}

// Copy assigns the status of the headers in from to the headers in to.
// Headers are paired by position; if the shapes differ every target
// receives the merged status of the sources.
func (d *Defs) Copy(from, to []*storage.Struct) {
	if len(from) == len(to) {
		statuses := make([]Status, len(from))
		for i, h := range from {
			statuses[i] = d.Get(h)
		}
		for i, h := range to {
			d.Set(h, statuses[i])
		}
		return
	}
	if len(from) == 0 {
		d.SetAll(to, Valid)
		return
	}
	s := d.Get(from[0])
	for _, h := range from[1:] {
		s = merge(s, d.Get(h))
	}
	d.SetAll(to, s)
}

func merge(a, b Status) Status {
	if a == b {
		return a
	}
	return Maybe
}

// Merge joins the states of two control-flow paths. A header keeps its
// status if both paths agree and becomes Maybe otherwise. A header without
// an entry on one path is valid there, as for Get. A nil operand is a path
// that does not reach the join.
func Merge(a, b *Defs) *Defs {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	out := New()
	for h, s := range a.status {
		out.status[h] = merge(s, b.Get(h))
	}
	for h, s := range b.status {
		if _, ok := a.status[h]; !ok {
			out.status[h] = merge(a.Get(h), s)
		}
	}
	for h := range a.notReport {
		if b.notReport[h] {
			out.notReport[h] = true
		}
	}
	return out
}

// Equal reports whether d and o agree on every header and on the
// do-not-report set.
func (d *Defs) Equal(o *Defs) bool {
	if len(d.notReport) != len(o.notReport) {
		return false
	}
	for h := range d.notReport {
		if !o.notReport[h] {
			return false
		}
	}
	for h, s := range d.status {
		if o.Get(h) != s {
			return false
		}
	}
	for h, s := range o.status {
		if d.Get(h) != s {
			return false
		}
	}
	return true
}

func (d *Defs) String() string {
	var sb strings.Builder
	set := storage.Empty
	for h := range d.status {
		set = set.Union(storage.NewSet(h))
	}
	for _, l := range set.Sorted() {
		h := l.(*storage.Struct)
		fmt.Fprintf(&sb, "%s: %s", h.Name(), d.status[h])
		if d.notReport[h] {
			sb.WriteString(" (tested)")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
