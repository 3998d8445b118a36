package defuse

import (
	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
	"github.com/p4lang/p4c-sub009/pkg/validity"
	"github.com/p4lang/p4c-sub009/pkg/writeset"
)

// The statement visitors return the validity at the end of the statement,
// or nil if execution does not continue past it.

func (c *checker) block(f *frame, v *validity.Defs, b *ir.Block) *validity.Defs {
	if b == nil {
		return v
	}
	return c.stmts(f, v, b.Stmts)
}

func (c *checker) stmts(f *frame, v *validity.Defs, stmts []ir.Stmt) *validity.Defs {
	for _, s := range stmts {
		if v == nil || !c.reachable(f) {
			return nil
		}
		v = c.stmt(f, v, s)
	}
	return v
}

func (c *checker) stmt(f *frame, v *validity.Defs, s ir.Stmt) *validity.Defs {
	c.uses.Visit(s.ID())
	switch s := s.(type) {
	case *ir.Block:
		v = c.block(f, v, s)
	case *ir.Assign:
		v = c.expr(f, v, s.RHS, true)
		v = c.lvalue(f, v, s.LHS)
		v = c.assignValidity(v, s.LHS, s.RHS)
	case *ir.CallStmt:
		v = c.call(f, v, s.Call)
	case *ir.If:
		v = c.ifStmt(f, v, s)
	case *ir.Switch:
		v = c.switchStmt(f, v, s)
	case *ir.Return:
		if s.X != nil {
			v = c.expr(f, v, s.X, true)
		}
		f.returned = validity.Merge(f.returned, v)
		v = nil
	case *ir.Exit:
		v = nil
	case *ir.VarDecl:
		v = c.varDecl(f, v, s)
	case *ir.ConstDecl, *ir.Empty:
	default:
		diag.Bugf("%s: unexpected statement %T", s.Pos(), s)
	}
	f.point = defs.At(f.ctx, s)
	if v != nil && !c.reachable(f) {
		v = nil
	}
	return v
}

func (c *checker) ifStmt(f *frame, v *validity.Defs, s *ir.If) *validity.Defs {
	v = c.expr(f, v, s.Cond, true)
	if v == nil {
		return nil
	}
	condPt := defs.At(f.ctx, s.Cond)

	f.point = condPt
	then := c.stmt(f, v.Clone(), s.Then)
	els := v
	if s.Else != nil {
		f.point = condPt
		els = c.stmt(f, v.Clone(), s.Else)
	}
	return validity.Merge(then, els)
}

func (c *checker) switchStmt(f *frame, v *validity.Defs, s *ir.Switch) *validity.Defs {
	v = c.expr(f, v, s.X, true)
	if v == nil {
		return nil
	}
	selPt := defs.At(f.ctx, s.X)

	var result *validity.Defs
	for _, cs := range s.Cases {
		if cs.Body == nil {
			continue
		}
		f.point = selPt
		c.uses.Visit(cs.Body.ID())
		result = validity.Merge(result, c.block(f, v.Clone(), cs.Body))
	}
	if !writeset.Exhaustive(s, c.info) {
		result = validity.Merge(result, v)
	}
	return result
}

// varDecl checks the initializer of d. Headers of an uninitialized
// variable are invalid.
func (c *checker) varDecl(f *frame, v *validity.Defs, d *ir.VarDecl) *validity.Defs {
	if storage.Unsupported(d.Type, f.inParser) {
		c.report(diag.Errorf(diag.CategoryUnsupported, d,
			"%s: header union variables are not supported in parsers", d.Name))
		return v
	}
	if d.Init == nil {
		v = v.Clone()
		v.SetAll(c.headers(d), validity.Invalid)
		return v
	}
	v = c.expr(f, v, d.Init, true)
	if v == nil {
		return nil
	}
	v = v.Clone()
	c.copyValidity(v, c.headers(d), d.Init)
	return v
}

// assignValidity propagates header validity through an assignment of
// aggregates.
func (c *checker) assignValidity(v *validity.Defs, lhs, rhs ir.Expr) *validity.Defs {
	if v == nil || !ir.ContainsHeaders(c.info.TypeOf(lhs)) {
		return v
	}
	set, ok := storage.Locate(lhs, c.info, c.store)
	if !ok {
		return v
	}
	v = v.Clone()
	c.copyValidity(v, set.Headers(), rhs)
	return v
}

// copyValidity sets the validity of the headers in to from the value of
// rhs. Copying from a path or member transfers the status of each header;
// values produced by calls, literals or indexing are valid.
func (c *checker) copyValidity(v *validity.Defs, to []*storage.Struct, rhs ir.Expr) {
	if len(to) == 0 {
		return
	}
	if isLocation(rhs) {
		if from, ok := storage.Locate(rhs, c.info, c.store); ok {
			v.Copy(from.Headers(), to)
			return
		}
	}
	v.SetAll(to, validity.Valid)
}

// isLocation reports whether e is a chain of members ending in a path.
// Indexed stack elements are not locations.
func isLocation(e ir.Expr) bool {
	switch e := e.(type) {
	case *ir.PathExpr:
		return true
	case *ir.Member:
		return isLocation(e.X)
	}
	return false
}
