package defuse

import (
	"container/list"

	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/validity"
)

// parser checks every reachable state. Reads are checked against the
// fixpoint definitions stored by the write-set analysis, while header
// validity is iterated to its own fixpoint over the same state graph.
// Diagnostics are held back until the fixpoint is reached, then each state
// is checked once more with its final validity.
func (c *checker) parser(p *ir.Parser) {
	f := &frame{ctx: defs.BeforeStart, inParser: true}
	entry := defs.At(f.ctx, p)
	f.point = entry
	v := validity.New()
	c.seed(v, p.Params)
	v = c.locals(f, v, p.Locals)

	start := p.State(ir.StateStart)
	if start == nil {
		return
	}

	in := map[*ir.ParserState]*validity.Defs{start: v}
	queued := map[*ir.ParserState]bool{start: true}
	worklist := list.New()
	worklist.PushBack(start)

	c.quiet = true
	for worklist.Len() > 0 {
		st := worklist.Remove(worklist.Front()).(*ir.ParserState)
		queued[st] = false
		c.log.Debug("checking parser state", "parser", p.Name, "state", st.Name)

		out := c.state(f, in[st], st)
		if out == nil {
			continue
		}
		for _, succ := range ir.Successors(p, st, c.info) {
			prev, ok := in[succ]
			next := out
			if ok {
				next = validity.Merge(prev, out)
				if next.Equal(prev) {
					continue
				}
			}
			in[succ] = next
			if !queued[succ] {
				queued[succ] = true
				worklist.PushBack(succ)
			}
		}
	}
	c.quiet = false

	for _, st := range p.States {
		if v, ok := in[st]; ok {
			c.state(f, v, st)
		}
	}

	c.checkOut(p.Params, p.Name, entry.After(), defs.At(f.ctx, p.State(ir.StateAccept)))
}

// state checks the body and transition of st and returns the validity at
// the transition.
func (c *checker) state(f *frame, v *validity.Defs, st *ir.ParserState) *validity.Defs {
	c.uses.Visit(st.ID())
	f.point = defs.At(f.ctx, st)
	if !c.reachable(f) {
		return nil
	}
	v = c.stmts(f, v.Clone(), st.Body)
	if v != nil && st.Next != nil {
		v = c.expr(f, v, st.Next, true)
	}
	return v
}
