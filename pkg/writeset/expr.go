package writeset

import (
	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
)

// expr returns the locations written while evaluating e. Calls inside e
// run their callees, so the definitions are threaded through.
func (a *analyzer) expr(f *frame, cur *defs.Definitions, e ir.Expr) (*storage.Set, *defs.Definitions) {
	switch e := e.(type) {
	case *ir.Call:
		return a.call(f, cur, e)
	case *ir.Member:
		return a.expr(f, cur, e.X)
	case *ir.Index:
		return a.exprs(f, cur, e.X, e.Index)
	case *ir.Slice:
		return a.expr(f, cur, e.X)
	case *ir.Unary:
		return a.expr(f, cur, e.X)
	case *ir.Cast:
		return a.expr(f, cur, e.X)
	case *ir.Binary:
		return a.exprs(f, cur, e.X, e.Y)
	case *ir.Mux:
		return a.exprs(f, cur, e.Cond, e.Then, e.Else)
	case *ir.ListExpr:
		return a.exprs(f, cur, e.Elems...)
	case *ir.StructExpr:
		list := make([]ir.Expr, len(e.Fields))
		for i, fe := range e.Fields {
			list[i] = fe.Value
		}
		return a.exprs(f, cur, list...)
	case *ir.SelectExpr:
		return a.exprs(f, cur, e.Keys...)
	}
	return storage.Empty, cur
}

func (a *analyzer) exprs(f *frame, cur *defs.Definitions, list ...ir.Expr) (*storage.Set, *defs.Definitions) {
	result := storage.Empty
	for _, e := range list {
		var w *storage.Set
		w, cur = a.expr(f, cur, e)
		result = result.Union(w)
	}
	return result, cur
}

// lvalueExprs evaluates the index expressions inside a left value.
func (a *analyzer) lvalueExprs(f *frame, cur *defs.Definitions, e ir.Expr) (*storage.Set, *defs.Definitions) {
	switch e := e.(type) {
	case *ir.Member:
		return a.lvalueExprs(f, cur, e.X)
	case *ir.Slice:
		return a.lvalueExprs(f, cur, e.X)
	case *ir.Index:
		var w, wi *storage.Set
		w, cur = a.lvalueExprs(f, cur, e.X)
		wi, cur = a.expr(f, cur, e.Index)
		return w.Union(wi), cur
	}
	return storage.Empty, cur
}

func (a *analyzer) resolve(c *ir.Call) *ir.CallTarget {
	t, err := ir.ResolveCall(c, a.info)
	if err != nil {
		diag.Bugf("%v", err)
	}
	return t
}

func (a *analyzer) locate(e ir.Expr) *storage.Set {
	set, ok := storage.Locate(e, a.info, a.store)
	if !ok {
		diag.Bugf("%s: %s does not denote storage", e.Pos(), ir.String(e))
	}
	return set
}

// call returns the locations the call writes: out and inout arguments,
// header validity for setValid and setInvalid, and the elements of a stack
// for push_front and pop_front. The effects of callee bodies are folded
// into the returned definitions.
func (a *analyzer) call(f *frame, cur *defs.Definitions, c *ir.Call) (*storage.Set, *defs.Definitions) {
	t := a.resolve(c)

	written := storage.Empty
	for i, arg := range c.Args {
		var w *storage.Set
		if _, ok := arg.(*ir.DontCare); ok {
			continue
		}
		if i < len(t.Params) && t.Params[i].Dir.Writes() {
			written = written.Union(a.locate(arg))
			w, cur = a.lvalueExprs(f, cur, arg)
		} else {
			w, cur = a.expr(f, cur, arg)
		}
		written = written.Union(w)
	}

	switch t.Kind {
	case ir.CallBuiltin:
		base := a.locate(t.Base)
		switch t.Builtin {
		case ir.MethodSetValid, ir.MethodSetInvalid:
			written = written.Union(base.Valid())
		case ir.MethodPushFront, ir.MethodPopFront:
			written = written.Union(base.AllElements()).Union(base.LastIndex())
		}
	case ir.CallTableApply:
		cur = a.table(f, cur, c, t.Table)
	default:
		for _, callee := range t.Callees() {
			cur = a.callee(f, cur, c, callee)
		}
	}
	return written, cur
}

// callee analyzes the body of an action or function called at c, starting
// from the caller's definitions. Its parameters and locals are out of
// scope afterwards.
func (a *analyzer) callee(f *frame, cur *defs.Definitions, c *ir.Call, d ir.Decl) *defs.Definitions {
	params, body, ok := ir.Procedure(d)
	if !ok {
		diag.Bugf("%s: %s is not callable", c.Pos(), d.DeclName())
	}
	sub := &frame{
		ctx:       f.ctx.Push(c.ID()),
		exited:    f.exited,
		overwrite: f.overwrite,
		inParser:  f.inParser,
	}
	entry := defs.At(sub.ctx, d)
	cur, bound := a.enter(cur, params, entry)
	a.set(sub, entry, cur)

	cur = a.block(sub, cur, body)
	cur = join(cur, sub.returned)
	a.set(sub, entry.After(), cur)
	return cur.Remove(bound.Union(a.vars(ir.LocalVars(body))))
}

// table runs every distinct action the table may invoke against the
// definitions before the apply and joins the outcomes.
func (a *analyzer) table(f *frame, cur *defs.Definitions, c *ir.Call, t *ir.Table) *defs.Definitions {
	sub := &frame{
		ctx:       f.ctx.Push(c.ID()),
		exited:    f.exited,
		overwrite: f.overwrite,
		inParser:  f.inParser,
	}
	var w *storage.Set
	w, cur = a.exprs(sub, cur, t.Keys...)
	entry := defs.At(sub.ctx, t)
	cur = cur.Writes(entry, w)
	a.set(sub, entry, cur)

	var result *defs.Definitions
	for _, ale := range Alternatives(t, a.info) {
		w, out := a.call(sub, cur, ale)
		pt := defs.At(sub.ctx, ale)
		out = out.Writes(pt, w)
		a.set(sub, pt, out)
		result = join(result, out)
	}
	if result == nil {
		return cur
	}
	return result
}

// Alternatives returns the action calls a table may execute: its action
// list plus a default action that does not appear in the list.
func Alternatives(t *ir.Table, info *ir.Info) []*ir.Call {
	alts := t.Actions
	if t.Default == nil {
		return alts
	}
	if d, ok := t.Default.Fun.(*ir.PathExpr); ok {
		target := info.Declaration(d)
		for _, ale := range t.Actions {
			if p, ok := ale.Fun.(*ir.PathExpr); ok && info.Declaration(p) == target {
				return alts
			}
		}
	}
	return append(alts[:len(alts):len(alts)], t.Default)
}
