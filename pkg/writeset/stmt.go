package writeset

import (
	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
)

// block runs the statements of b in order. Variables declared directly in
// b go out of scope at its end.
func (a *analyzer) block(f *frame, cur *defs.Definitions, b *ir.Block) *defs.Definitions {
	if b == nil {
		return cur
	}
	cur = a.stmts(f, cur, b.Stmts)
	return cur.Remove(a.vars(declared(b.Stmts)))
}

func (a *analyzer) stmts(f *frame, cur *defs.Definitions, stmts []ir.Stmt) *defs.Definitions {
	for _, s := range stmts {
		if cur.IsUnreachable() {
			break
		}
		cur = a.stmt(f, cur, s)
	}
	return cur
}

func declared(stmts []ir.Stmt) []*ir.VarDecl {
	var vars []*ir.VarDecl
	for _, s := range stmts {
		if v, ok := s.(*ir.VarDecl); ok {
			vars = append(vars, v)
		}
	}
	return vars
}

// stmt analyzes s and records the definitions after it.
func (a *analyzer) stmt(f *frame, cur *defs.Definitions, s ir.Stmt) *defs.Definitions {
	pt := defs.At(f.ctx, s)
	switch s := s.(type) {
	case *ir.Block:
		cur = a.block(f, cur, s)
	case *ir.Assign:
		lhs, ok := storage.Locate(s.LHS, a.info, a.store)
		if !ok {
			diag.Bugf("%s: %s is not a left value", s.Pos(), ir.String(s.LHS))
		}
		var w *storage.Set
		w, cur = a.lvalueExprs(f, cur, s.LHS)
		lhs = lhs.Union(w)
		w, cur = a.expr(f, cur, s.RHS)
		cur = cur.Writes(pt, lhs.Union(w))
	case *ir.CallStmt:
		var w *storage.Set
		w, cur = a.expr(f, cur, s.Call)
		cur = cur.Writes(pt, w)
	case *ir.If:
		cur = a.ifStmt(f, cur, s)
	case *ir.Switch:
		cur = a.switchStmt(f, cur, s)
	case *ir.Return:
		if s.X != nil {
			var w *storage.Set
			w, cur = a.expr(f, cur, s.X)
			cur = cur.Writes(pt, w)
		}
		f.returned = join(f.returned, cur)
		cur = cur.Unreachable()
	case *ir.Exit:
		f.exited.add(cur)
		cur = cur.Unreachable()
	case *ir.VarDecl:
		cur = a.varDecl(f, cur, s)
	case *ir.ConstDecl, *ir.Empty:
	default:
		diag.Bugf("%s: unexpected statement %T", s.Pos(), s)
	}
	a.set(f, pt, cur)
	return cur
}

func (a *analyzer) ifStmt(f *frame, cur *defs.Definitions, s *ir.If) *defs.Definitions {
	var w *storage.Set
	w, cur = a.expr(f, cur, s.Cond)
	condPt := defs.At(f.ctx, s.Cond)
	cur = cur.Writes(condPt, w)
	a.set(f, condPt, cur)

	then := a.stmt(f, cur, s.Then)
	els := cur
	if s.Else != nil {
		els = a.stmt(f, cur, s.Else)
	}
	return then.Join(els)
}

// switchStmt runs every case body against the definitions after the
// selector. The selector state itself reaches the end unless the labels
// cover every possible value.
func (a *analyzer) switchStmt(f *frame, cur *defs.Definitions, s *ir.Switch) *defs.Definitions {
	var w *storage.Set
	w, cur = a.expr(f, cur, s.X)
	selPt := defs.At(f.ctx, s.X)
	cur = cur.Writes(selPt, w)
	a.set(f, selPt, cur)

	var result *defs.Definitions
	for _, c := range s.Cases {
		if c.Body == nil {
			continue
		}
		result = join(result, a.block(f, cur, c.Body))
	}
	if !Exhaustive(s, a.info) {
		result = join(result, cur)
	}
	if result == nil {
		return cur
	}
	return result
}

// Exhaustive reports whether a switch always runs one of its cases: it has
// a default label or its labels cover every action of the table or every
// member of the enum.
func Exhaustive(s *ir.Switch, info *ir.Info) bool {
	labels := make(map[string]bool)
	for _, c := range s.Cases {
		switch l := c.Label.(type) {
		case *ir.DefaultExpr:
			return true
		case *ir.PathExpr:
			labels[l.Name] = true
		case *ir.Member:
			labels[l.Name] = true
		}
	}
	switch t := info.TypeOf(s.X).(type) {
	case *ir.ActionRunType:
		for _, name := range tableActions(t.Table) {
			if !labels[name] {
				return false
			}
		}
		return true
	case *ir.EnumType:
		for _, m := range t.Members {
			if !labels[m] {
				return false
			}
		}
		return true
	}
	return false
}

func tableActions(t *ir.Table) []string {
	var names []string
	seen := make(map[string]bool)
	calls := t.Actions
	if t.Default != nil {
		calls = append(calls[:len(calls):len(calls)], t.Default)
	}
	for _, c := range calls {
		if p, ok := c.Fun.(*ir.PathExpr); ok && !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	return names
}
