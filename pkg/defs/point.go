// Package defs implements program points and the reaching-definitions
// lattice.
package defs

import (
	"encoding/binary"
	"sort"
	"strconv"
	"strings"

	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
)

const idSize = 4

// ProgramPoint is a calling context followed by the current node. A
// trailing ir.NoID marks the point after the node has fully executed.
// ProgramPoints are comparable and may be used as map keys.
type ProgramPoint struct {
	stack string
}

// BeforeStart is the empty stack: the state before the unit runs. A
// definition at BeforeStart means the location may be uninitialized.
var BeforeStart ProgramPoint

// Point returns the point with the given stack.
func Point(ids ...ir.ID) ProgramPoint {
	var p ProgramPoint
	for _, id := range ids {
		p = p.Push(id)
	}
	return p
}

// At returns the point of node n in context ctx.
func At(ctx ProgramPoint, n ir.Node) ProgramPoint {
	return ctx.Push(n.ID())
}

// Push returns p extended with id.
func (p ProgramPoint) Push(id ir.ID) ProgramPoint {
	var b [idSize]byte
	binary.BigEndian.PutUint32(b[:], uint32(id))
	return ProgramPoint{stack: p.stack + string(b[:])}
}

// After returns the point after p has fully executed.
func (p ProgramPoint) After() ProgramPoint {
	return p.Push(ir.NoID)
}

// IsBeforeStart reports whether p is the empty stack.
func (p ProgramPoint) IsBeforeStart() bool { return p.stack == "" }

// Len returns the depth of the stack.
func (p ProgramPoint) Len() int {
	p.check()
	return len(p.stack) / idSize
}

// IDs returns the stack, outermost first.
func (p ProgramPoint) IDs() []ir.ID {
	p.check()
	ids := make([]ir.ID, 0, len(p.stack)/idSize)
	for i := 0; i < len(p.stack); i += idSize {
		ids = append(ids, ir.ID(binary.BigEndian.Uint32([]byte(p.stack[i:i+idSize]))))
	}
	return ids
}

// Last returns the innermost node, ir.NoID for an after point or for
// BeforeStart.
func (p ProgramPoint) Last() ir.ID {
	p.check()
	if p.stack == "" {
		return ir.NoID
	}
	return ir.ID(binary.BigEndian.Uint32([]byte(p.stack[len(p.stack)-idSize:])))
}

// IsAfter reports whether p is an after point.
func (p ProgramPoint) IsAfter() bool {
	return p.stack != "" && p.Last() == ir.NoID
}

func (p ProgramPoint) check() {
	if len(p.stack)%idSize != 0 {
		diag.Bugf("malformed program point stack size %d", len(p.stack))
	}
}

func (p ProgramPoint) String() string {
	if p.IsBeforeStart() {
		return "<BeforeStart>"
	}
	ids := p.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		if id == ir.NoID {
			parts[i] = "after"
			continue
		}
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return "<" + strings.Join(parts, "/") + ">"
}

// Points is an immutable set of program points.
type Points struct {
	pts map[ProgramPoint]struct{}
}

// NewPoints returns a set holding pts.
func NewPoints(pts ...ProgramPoint) *Points {
	p := &Points{pts: make(map[ProgramPoint]struct{}, len(pts))}
	for _, pt := range pts {
		p.pts[pt] = struct{}{}
	}
	return p
}

// Len returns the number of points.
func (p *Points) Len() int { return len(p.pts) }

// Contains reports whether pt is in p.
func (p *Points) Contains(pt ProgramPoint) bool {
	_, ok := p.pts[pt]
	return ok
}

// ContainsBeforeStart reports whether p holds BeforeStart.
func (p *Points) ContainsBeforeStart() bool {
	return p.Contains(BeforeStart)
}

// Merge returns p ∪ o. It returns one of its operands if the other adds
// nothing.
func (p *Points) Merge(o *Points) *Points {
	if o.subsetOf(p) {
		return p
	}
	if p.subsetOf(o) {
		return o
	}
	out := &Points{pts: make(map[ProgramPoint]struct{}, len(p.pts)+len(o.pts))}
	for pt := range p.pts {
		out.pts[pt] = struct{}{}
	}
	for pt := range o.pts {
		out.pts[pt] = struct{}{}
	}
	return out
}

func (p *Points) subsetOf(o *Points) bool {
	if len(p.pts) > len(o.pts) {
		return false
	}
	for pt := range p.pts {
		if _, ok := o.pts[pt]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether p and o hold the same points.
func (p *Points) Equal(o *Points) bool {
	return len(p.pts) == len(o.pts) && p.subsetOf(o)
}

// Sorted returns the points in a deterministic order.
func (p *Points) Sorted() []ProgramPoint {
	out := make([]ProgramPoint, 0, len(p.pts))
	for pt := range p.pts {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].stack < out[j].stack })
	return out
}

// Lasts returns the innermost nodes of the points, skipping after points
// and BeforeStart.
func (p *Points) Lasts() []ir.ID {
	var ids []ir.ID
	for _, pt := range p.Sorted() {
		if id := pt.Last(); id != ir.NoID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p *Points) String() string {
	parts := make([]string, 0, len(p.pts))
	for _, pt := range p.Sorted() {
		parts = append(parts, pt.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
