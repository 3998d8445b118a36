// Package deadwrite removes assignments and side-effect-free calls whose
// results are never read.
package deadwrite

import (
	"github.com/p4lang/p4c-sub009/pkg/defuse"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
)

// Stats counts the rewrites performed.
type Stats struct {
	Removed  int `json:"removed" yaml:"removed" msgpack:"removed"`
	Replaced int `json:"replaced" yaml:"replaced" msgpack:"replaced"`
}

// Changes returns the number of rewritten statements.
func (s Stats) Changes() int { return s.Removed + s.Replaced }

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Removed += o.Removed
	s.Replaced += o.Replaced
}

// Result is a rewritten program with the resolution rebound to its copied
// declarations.
type Result struct {
	Program *ir.Program
	Info    *ir.Info
	Stats   Stats
}

// Eliminate returns a copy of prog without the dead writes recorded in
// uses. Only statements the checker visited are candidates; an unvisited
// statement was unreachable or never analyzed and is kept. The input
// program and info are not modified and kept nodes keep their IDs.
func Eliminate(prog *ir.Program, info *ir.Info, uses *defuse.Uses) (res *Result, err error) {
	defer diag.Recover(&err)

	e := &eliminator{info: info, uses: uses, moved: make(map[ir.Decl]ir.Decl)}
	out := *prog
	e.prog = &out
	out.Decls = e.decls(prog.Decls)
	return &Result{Program: &out, Info: info.Rebind(e.moved), Stats: e.stats}, nil
}

type eliminator struct {
	prog  *ir.Program
	info  *ir.Info
	uses  *defuse.Uses
	moved map[ir.Decl]ir.Decl
	stats Stats
}

func (e *eliminator) decl(d ir.Decl) ir.Decl {
	var c ir.Decl
	switch d := d.(type) {
	case *ir.Action:
		n := *d
		n.Body = e.block(d.Body)
		c = &n
	case *ir.Function:
		n := *d
		n.Body = e.block(d.Body)
		c = &n
	case *ir.Control:
		n := *d
		n.Locals = e.decls(d.Locals)
		n.Body = e.block(d.Body)
		c = &n
	case *ir.Parser:
		n := *d
		n.Locals = e.decls(d.Locals)
		n.States = make([]*ir.ParserState, len(d.States))
		for i, s := range d.States {
			ns := *s
			ns.Body = e.stmts(s.Body)
			e.moved[s] = &ns
			n.States[i] = &ns
		}
		c = &n
	case *ir.Instance:
		n := *d
		n.Virtual = make([]*ir.Function, len(d.Virtual))
		for i, f := range d.Virtual {
			n.Virtual[i] = e.decl(f).(*ir.Function)
		}
		c = &n
	default:
		return d
	}
	e.moved[d] = c
	return c
}

func (e *eliminator) decls(list []ir.Decl) []ir.Decl {
	out := make([]ir.Decl, len(list))
	for i, d := range list {
		out[i] = e.decl(d)
	}
	return out
}

func (e *eliminator) block(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}
	c := *b
	c.Stmts = e.stmts(b.Stmts)
	return &c
}

func (e *eliminator) stmts(list []ir.Stmt) []ir.Stmt {
	var out []ir.Stmt
	for _, s := range list {
		if s = e.stmt(s); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// stmt returns the rewritten statement, or nil if it is removed.
func (e *eliminator) stmt(s ir.Stmt) ir.Stmt {
	switch s := s.(type) {
	case *ir.Block:
		return e.block(s)
	case *ir.Assign:
		if !e.dead(s) {
			return s
		}
		switch calls := e.sideEffects(s.RHS); len(calls) {
		case 0:
			e.stats.Removed++
			return nil
		case 1:
			e.stats.Replaced++
			cs := &ir.CallStmt{Call: calls[0]}
			cs.SetPos(s.Pos())
			e.prog.Number(cs)
			return cs
		default:
			diag.Bugf("%s: %s has %d side effects", s.Pos(), ir.String(s), len(calls))
		}
	case *ir.CallStmt:
		if e.dead(s) && e.builtin(s.Call) {
			e.stats.Removed++
			return nil
		}
		return s
	case *ir.If:
		c := *s
		c.Then = e.stmt(s.Then)
		if c.Then == nil {
			empty := &ir.Empty{}
			empty.SetPos(s.Then.Pos())
			e.prog.Number(empty)
			c.Then = empty
		}
		if s.Else != nil {
			c.Else = e.stmt(s.Else)
		}
		return &c
	case *ir.Switch:
		c := *s
		c.Cases = make([]ir.SwitchCase, len(s.Cases))
		for i, cs := range s.Cases {
			c.Cases[i] = ir.SwitchCase{Label: cs.Label, Body: e.block(cs.Body)}
		}
		return &c
	}
	return s
}

func (e *eliminator) dead(s ir.Stmt) bool {
	return e.uses.Visited(s.ID()) && !e.uses.Used(s.ID())
}

func (e *eliminator) builtin(c *ir.Call) bool {
	t, err := ir.ResolveCall(c, e.info)
	return err == nil && t.SideEffectFree()
}

// sideEffects returns the outermost calls in x that may have effects
// other than producing a value.
func (e *eliminator) sideEffects(x ir.Expr) []*ir.Call {
	var calls []*ir.Call
	ir.Inspect(x, func(n ir.Node) bool {
		c, ok := n.(*ir.Call)
		if !ok || e.builtin(c) {
			return true
		}
		calls = append(calls, c)
		return false
	})
	return calls
}
