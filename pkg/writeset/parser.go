package writeset

import (
	"container/list"

	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
)

// parser iterates the state machine to a fixpoint. The definitions at the
// entry of each state are the join of the definitions flowing out of its
// predecessors; a state is analyzed again only when they change.
func (a *analyzer) parser(p *ir.Parser, visits map[string]int) *defs.Definitions {
	f := &frame{ctx: defs.BeforeStart, exited: &outcome{}, inParser: true}
	entry := defs.At(f.ctx, p)
	cur, _ := a.enter(defs.New(), p.Params, entry)
	a.set(f, entry, cur)
	cur = a.locals(f, cur, p.Locals)

	start := p.State(ir.StateStart)
	if start == nil {
		a.set(f, entry.After(), cur)
		return cur
	}

	f.overwrite = true
	in := map[*ir.ParserState]*defs.Definitions{start: cur}
	queued := map[*ir.ParserState]bool{start: true}
	worklist := list.New()
	worklist.PushBack(start)

	for worklist.Len() > 0 {
		st := worklist.Remove(worklist.Front()).(*ir.ParserState)
		queued[st] = false
		visits[st.Name]++
		a.log.Debug("analyzing parser state", "parser", p.Name, "state", st.Name, "visit", visits[st.Name])

		out := a.state(f, in[st], st)
		for _, succ := range ir.Successors(p, st, a.info) {
			prev, ok := in[succ]
			next := out
			if ok {
				next = prev.Join(out)
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
	f.overwrite = false

	var final *defs.Definitions
	for _, name := range []string{ir.StateAccept, ir.StateReject} {
		if d, ok := in[p.State(name)]; ok {
			final = join(final, d)
		}
	}
	if final == nil {
		final = cur.Unreachable()
	}
	a.set(f, entry.After(), final)
	return final
}

// state analyzes one state from the definitions at its entry and returns
// the definitions at its transition.
func (a *analyzer) state(f *frame, cur *defs.Definitions, st *ir.ParserState) *defs.Definitions {
	pt := defs.At(f.ctx, st)
	a.set(f, pt, cur)

	cur = a.stmts(f, cur, st.Body)
	if st.Next != nil && !cur.IsUnreachable() {
		var w *storage.Set
		w, cur = a.expr(f, cur, st.Next)
		cur = cur.Writes(defs.At(f.ctx, st.Next), w)
	}
	cur = cur.Remove(a.vars(declared(st.Body)))
	a.set(f, pt.After(), cur)
	return cur
}
