package defuse

import (
	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
	"github.com/p4lang/p4c-sub009/pkg/validity"
	"github.com/p4lang/p4c-sub009/pkg/writeset"
)

// expr checks the reads performed by e. final is false when e is the
// prefix of a member or index expression: only the complete access is
// reported, so a.b.c yields at most one warning.
func (c *checker) expr(f *frame, v *validity.Defs, e ir.Expr, final bool) *validity.Defs {
	if v == nil {
		return nil
	}
	switch e := e.(type) {
	case *ir.PathExpr:
		if final {
			c.read(f, e)
		}
	case *ir.Member:
		if _, ok := c.info.TypeOf(e.X).(*ir.TableResultType); ok {
			return c.expr(f, v, e.X, true)
		}
		v = c.expr(f, v, e.X, false)
		if _, ok := c.info.TypeOf(e.X).(*ir.StackType); ok && e.Name == ir.MemberNext {
			c.report(diag.Warningf(diag.CategoryUninitializedUse, e, "%s: reading uninitialized value", ir.String(e)))
		}
		c.checkHeader(f, v, e)
		if final {
			c.read(f, e)
		}
	case *ir.Index:
		v = c.expr(f, v, e.X, false)
		v = c.expr(f, v, e.Index, true)
		if final {
			c.read(f, e)
		}
	case *ir.Slice:
		v = c.expr(f, v, e.X, true)
	case *ir.Unary:
		v = c.expr(f, v, e.X, true)
	case *ir.Cast:
		v = c.expr(f, v, e.X, true)
	case *ir.Binary:
		v = c.expr(f, v, e.X, true)
		v = c.expr(f, v, e.Y, true)
	case *ir.Mux:
		v = c.expr(f, v, e.Cond, true)
		v = c.expr(f, v, e.Then, true)
		v = c.expr(f, v, e.Else, true)
	case *ir.ListExpr:
		for _, el := range e.Elems {
			v = c.expr(f, v, el, true)
		}
	case *ir.StructExpr:
		for _, fe := range e.Fields {
			v = c.expr(f, v, fe.Value, true)
		}
	case *ir.SelectExpr:
		for _, k := range e.Keys {
			v = c.expr(f, v, k, true)
		}
	case *ir.Call:
		v = c.call(f, v, e)
	}
	return v
}

// read registers the definitions reaching a complete read of e and warns
// if any of them is BeforeStart.
func (c *checker) read(f *frame, e ir.Expr) {
	set, ok := storage.Locate(e, c.info, c.store)
	if !ok || set.IsEmpty() {
		return
	}
	pts := c.current(f).Points(set)
	c.uses.Add(pts)
	if !pts.ContainsBeforeStart() {
		return
	}
	format := "%s may not be completely initialized"
	if ir.IsBase(c.info.TypeOf(e)) {
		format = "%s may be uninitialized"
	}
	c.report(diag.Warningf(diag.CategoryUninitializedUse, e, format, ir.String(e)))
}

// readQuietly registers the definitions reaching set without reporting.
func (c *checker) readQuietly(f *frame, set *storage.Set) {
	if set.IsEmpty() {
		return
	}
	c.uses.Add(c.current(f).Points(set))
}

// lvalue checks a written expression. The written locations are not
// read, but indices are, and a slice reads the rest of its base.
func (c *checker) lvalue(f *frame, v *validity.Defs, e ir.Expr) *validity.Defs {
	if v == nil {
		return nil
	}
	switch e := e.(type) {
	case *ir.Member:
		v = c.lvalue(f, v, e.X)
		c.checkHeader(f, v, e)
	case *ir.Index:
		v = c.lvalue(f, v, e.X)
		v = c.expr(f, v, e.Index, true)
	case *ir.Slice:
		v = c.lvalue(f, v, e.X)
		if set, ok := storage.Locate(e.X, c.info, c.store); ok {
			c.readQuietly(f, set)
		}
	}
	return v
}

// checkHeader warns about a field access through a header that may be
// invalid.
func (c *checker) checkHeader(f *frame, v *validity.Defs, e *ir.Member) {
	if v == nil {
		return
	}
	if _, ok := c.info.TypeOf(e.X).(*ir.HeaderType); !ok {
		return
	}
	set, ok := storage.Locate(e.X, c.info, c.store)
	if !ok || set.Len() != 1 {
		return
	}
	hs := set.Headers()
	if len(hs) != 1 || v.Suppressed(hs[0]) {
		return
	}
	switch v.Get(hs[0]) {
	case validity.Invalid:
		c.report(diag.Warningf(diag.CategoryInvalidHeader, e, "accessing a field of an invalid header %s", ir.String(e.X)))
	case validity.Maybe:
		c.report(diag.Warningf(diag.CategoryInvalidHeader, e, "accessing a field of a potentially invalid header %s", ir.String(e.X)))
	}
}

func (c *checker) resolve(call *ir.Call) *ir.CallTarget {
	t, err := ir.ResolveCall(call, c.info)
	if err != nil {
		diag.Bugf("%v", err)
	}
	return t
}

func (c *checker) locate(e ir.Expr) *storage.Set {
	set, ok := storage.Locate(e, c.info, c.store)
	if !ok {
		diag.Bugf("%s: %s does not denote storage", e.Pos(), ir.String(e))
	}
	return set
}

func (c *checker) call(f *frame, v *validity.Defs, call *ir.Call) *validity.Defs {
	if v == nil {
		return nil
	}
	t := c.resolve(call)

	for i, arg := range call.Args {
		if _, ok := arg.(*ir.DontCare); ok {
			continue
		}
		if i < len(t.Params) && t.Params[i].Dir == ir.DirOut {
			v = c.lvalue(f, v, arg)
		} else {
			v = c.expr(f, v, arg, true)
		}
	}
	if v == nil {
		return nil
	}

	switch t.Kind {
	case ir.CallBuiltin:
		return c.builtin(f, v, t)
	case ir.CallTableApply:
		return c.table(f, v, call, t.Table)
	}
	for _, d := range t.Callees() {
		v = c.callee(f, v, call, d)
		if v == nil {
			return nil
		}
	}
	if t.Opaque() {
		v = v.Clone()
		for _, a := range t.Args() {
			if !a.Param.Dir.Writes() {
				continue
			}
			if set, ok := storage.Locate(a.Expr, c.info, c.store); ok {
				v.SetAll(set.Headers(), validity.Valid)
			}
		}
	}
	return v
}

func (c *checker) builtin(f *frame, v *validity.Defs, t *ir.CallTarget) *validity.Defs {
	v = c.lvalue(f, v, t.Base)
	base := c.locate(t.Base)
	v = v.Clone()
	switch t.Builtin {
	case ir.MethodIsValid:
		c.readQuietly(f, base.Valid())
		for _, h := range base.Headers() {
			v.Suppress(h)
		}
	case ir.MethodSetValid:
		hs := base.Headers()
		if m, ok := t.Base.(*ir.Member); ok {
			if _, ok := c.info.TypeOf(m.X).(*ir.HeaderUnionType); ok {
				if union, ok := storage.Locate(m.X, c.info, c.store); ok {
					v.SetAll(union.Headers(), validity.Invalid)
				}
			}
		}
		v.SetAll(hs, validity.Valid)
	case ir.MethodSetInvalid:
		v.SetAll(base.Headers(), validity.Invalid)
	case ir.MethodPushFront, ir.MethodPopFront:
		c.readQuietly(f, base)
		v.SetAll(base.Headers(), validity.Maybe)
	}
	return v
}

// callee checks the body of an action or function called at call. Header
// validity flows into the parameters and back out through out and inout
// arguments.
func (c *checker) callee(f *frame, v *validity.Defs, call *ir.Call, d ir.Decl) *validity.Defs {
	params, body, ok := ir.Procedure(d)
	if !ok {
		diag.Bugf("%s: %s is not callable", call.Pos(), d.DeclName())
	}
	sub := &frame{ctx: f.ctx.Push(call.ID()), inParser: f.inParser}
	entry := defs.At(sub.ctx, d)
	sub.point = entry

	v = v.Clone()
	args := c.argHeaders(call)
	for i, p := range params {
		to := c.headers(p)
		switch {
		case p.Dir == ir.DirOut:
			v.SetAll(to, validity.Invalid)
		case i < len(args) && args[i] != nil:
			v.Copy(args[i], to)
		default:
			v.SetAll(to, validity.Valid)
		}
	}

	end := c.block(sub, v, body)
	end = validity.Merge(end, sub.returned)
	c.checkOut(params, d.DeclName(), entry.After(), entry.After())
	if end == nil {
		return nil
	}
	for i, p := range params {
		if p.Dir.Writes() && i < len(args) && args[i] != nil {
			end.Copy(c.headers(p), args[i])
		}
	}
	return end
}

func (c *checker) argHeaders(call *ir.Call) [][]*storage.Struct {
	out := make([][]*storage.Struct, len(call.Args))
	for i, arg := range call.Args {
		if set, ok := storage.Locate(arg, c.info, c.store); ok {
			out[i] = set.Headers()
		}
	}
	return out
}

// table checks every action the table may run and merges their outcomes.
func (c *checker) table(f *frame, v *validity.Defs, call *ir.Call, t *ir.Table) *validity.Defs {
	sub := &frame{ctx: f.ctx.Push(call.ID()), inParser: f.inParser}
	entry := defs.At(sub.ctx, t)
	sub.point = entry
	for _, k := range t.Keys {
		v = c.expr(sub, v, k, true)
	}
	if v == nil {
		return nil
	}
	alts := writeset.Alternatives(t, c.info)
	if len(alts) == 0 {
		return v
	}
	var result *validity.Defs
	for _, ale := range alts {
		sub.point = entry
		result = validity.Merge(result, c.call(sub, v.Clone(), ale))
	}
	return result
}
