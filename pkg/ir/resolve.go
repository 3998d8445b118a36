package ir

import (
	"errors"
	"fmt"
)

// Info holds the results of name resolution and typing, keyed by node ID.
type Info struct {
	decls     map[ID]Decl // PathExpr -> declaration
	types     map[ID]Type // Expr -> type
	instances map[ID]Decl // Instance -> instantiated Extern, Control or Parser
}

// NewInfo returns an empty Info.
func NewInfo() *Info {
	return &Info{
		decls:     make(map[ID]Decl),
		types:     make(map[ID]Type),
		instances: make(map[ID]Decl),
	}
}

// Declaration returns the declaration a path refers to, or nil.
func (i *Info) Declaration(p *PathExpr) Decl {
	return i.decls[p.ID()]
}

// TypeOf returns the type of an expression, or nil if it has no value.
func (i *Info) TypeOf(e Expr) Type {
	return i.types[e.ID()]
}

// InstanceType returns the declaration an instance instantiates.
func (i *Info) InstanceType(inst *Instance) Decl {
	return i.instances[inst.ID()]
}

// Bind records the declaration a path refers to.
func (i *Info) Bind(p *PathExpr, d Decl) {
	i.decls[p.ID()] = d
}

// Record records the type of an expression.
func (i *Info) Record(e Expr, t Type) {
	i.types[e.ID()] = t
}

// Rebind returns a copy of i in which references to a key of m refer to
// its value instead. It is used after a rewrite replaces declarations with
// modified copies.
func (i *Info) Rebind(m map[Decl]Decl) *Info {
	out := NewInfo()
	for id, d := range i.decls {
		if r, ok := m[d]; ok {
			d = r
		}
		out.decls[id] = d
	}
	for id, t := range i.types {
		out.types[id] = t
	}
	for id, d := range i.instances {
		if r, ok := m[d]; ok {
			d = r
		}
		out.instances[id] = d
	}
	return out
}

// Resolve performs scoped name resolution over p and types every
// expression bottom-up. It is the minimal front-end service the def-use
// analyses need; it does not reject ill-typed programs beyond reporting
// names and members it cannot find.
func Resolve(p *Program) (*Info, error) {
	r := &resolver{info: NewInfo()}
	global := newScope(nil)
	for _, t := range p.Types {
		global.declare(t)
	}
	for _, d := range p.Decls {
		global.declare(d)
	}
	for _, d := range p.Decls {
		r.decl(global, d)
	}
	return r.info, errors.Join(r.errs...)
}

type scope struct {
	parent *scope
	names  map[string]Decl
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]Decl)}
}

func (s *scope) declare(d Decl) {
	s.names[d.DeclName()] = d
}

func (s *scope) lookup(name string) Decl {
	for ; s != nil; s = s.parent {
		if d, ok := s.names[name]; ok {
			return d
		}
	}
	return nil
}

type resolver struct {
	info *Info
	errs []error
}

func (r *resolver) errorf(n Node, format string, args ...interface{}) {
	r.errs = append(r.errs, fmt.Errorf("%s: %s", n.Pos(), fmt.Sprintf(format, args...)))
}

func (r *resolver) params(s *scope, params []*Param) *scope {
	inner := newScope(s)
	for _, p := range params {
		inner.declare(p)
	}
	return inner
}

func (r *resolver) decl(s *scope, d Decl) {
	switch d := d.(type) {
	case *VarDecl:
		if d.Init != nil {
			r.expr(s, d.Init)
		}
	case *ConstDecl:
		if d.Value != nil {
			r.expr(s, d.Value)
		}
	case *Action:
		r.block(r.params(s, d.Params), d.Body)
	case *Function:
		r.block(r.params(s, d.Params), d.Body)
	case *Table:
		for _, k := range d.Keys {
			r.expr(s, k)
		}
		for _, a := range d.Actions {
			r.expr(s, a)
		}
		if d.Default != nil {
			r.expr(s, d.Default)
		}
	case *Instance:
		target := s.lookup(d.TypeName)
		switch target.(type) {
		case *Extern, *Control, *Parser:
			r.info.instances[d.ID()] = target
		default:
			r.errorf(d, "%s: cannot instantiate %q", d.Name, d.TypeName)
		}
		for _, a := range d.Args {
			r.expr(s, a)
		}
		for _, v := range d.Virtual {
			r.decl(s, v)
		}
	case *Control:
		inner := r.params(s, d.Params)
		for _, l := range d.Locals {
			inner.declare(l)
		}
		for _, l := range d.Locals {
			r.decl(inner, l)
		}
		r.block(inner, d.Body)
	case *Parser:
		inner := r.params(s, d.Params)
		for _, l := range d.Locals {
			inner.declare(l)
		}
		for _, st := range d.States {
			inner.declare(st)
		}
		for _, l := range d.Locals {
			r.decl(inner, l)
		}
		for _, st := range d.States {
			r.state(inner, st)
		}
	case *TypeDecl, *Extern, *ExternFunc, *ExternMethod, *Param:
		// nothing to resolve
	default:
		r.errorf(d, "unexpected declaration %T", d)
	}
}

func (r *resolver) state(s *scope, st *ParserState) {
	inner := newScope(s)
	for _, stmt := range st.Body {
		r.stmt(inner, stmt)
	}
	switch next := st.Next.(type) {
	case nil:
	case *PathExpr:
		r.stateRef(inner, next)
	case *SelectExpr:
		for _, k := range next.Keys {
			r.expr(inner, k)
		}
		for _, c := range next.Cases {
			r.expr(inner, c.Keyset)
			r.stateRef(inner, c.State)
		}
		r.info.Record(next, Void)
	default:
		r.errorf(st, "%s: unexpected transition %T", st.Name, next)
	}
}

func (r *resolver) stateRef(s *scope, p *PathExpr) {
	d, ok := s.lookup(p.Name).(*ParserState)
	if !ok {
		r.errorf(p, "undefined state %s", p.Name)
		return
	}
	r.info.Bind(p, d)
}

func (r *resolver) block(s *scope, b *Block) {
	if b == nil {
		return
	}
	inner := newScope(s)
	for _, stmt := range b.Stmts {
		r.stmt(inner, stmt)
	}
}

func (r *resolver) stmt(s *scope, st Stmt) {
	switch st := st.(type) {
	case *VarDecl:
		r.decl(s, st)
		s.declare(st)
	case *ConstDecl:
		r.decl(s, st)
		s.declare(st)
	case *Block:
		r.block(s, st)
	case *Assign:
		r.expr(s, st.LHS)
		r.expr(s, st.RHS)
	case *CallStmt:
		r.expr(s, st.Call)
	case *If:
		r.expr(s, st.Cond)
		r.stmt(s, st.Then)
		if st.Else != nil {
			r.stmt(s, st.Else)
		}
	case *Switch:
		r.expr(s, st.X)
		for _, c := range st.Cases {
			r.expr(s, c.Label)
			r.block(s, c.Body)
		}
	case *Return:
		if st.X != nil {
			r.expr(s, st.X)
		}
	case *Exit, *Empty:
	default:
		r.errorf(st, "unexpected statement %T", st)
	}
}

func (r *resolver) expr(s *scope, e Expr) Type {
	t := r.typeOf(s, e)
	r.info.Record(e, t)
	return t
}

func (r *resolver) typeOf(s *scope, e Expr) Type {
	switch e := e.(type) {
	case *PathExpr:
		d := s.lookup(e.Name)
		if d == nil {
			r.errorf(e, "undefined: %s", e.Name)
			return nil
		}
		r.info.Bind(e, d)
		switch d := d.(type) {
		case *Param:
			return d.Type
		case *VarDecl:
			return d.Type
		case *ConstDecl:
			return d.Type
		case *TypeDecl:
			return d.Type
		case *Action, *Function, *ExternFunc:
			return &MethodType{Name: e.Name}
		}
		return nil
	case *Member:
		return r.member(s, e)
	case *Index:
		xt := r.expr(s, e.X)
		r.expr(s, e.Index)
		switch xt := xt.(type) {
		case *StackType:
			return xt.Elem
		case *TupleType:
			lit, ok := e.Index.(*IntLit)
			if !ok || int(lit.Value) >= len(xt.Components) {
				r.errorf(e, "tuple index must be a constant in range")
				return nil
			}
			return xt.Components[lit.Value]
		}
		r.errorf(e, "cannot index %s", String(e.X))
		return nil
	case *Slice:
		r.expr(s, e.X)
		return Bits(e.Hi - e.Lo + 1)
	case *IntLit:
		if e.Width > 0 {
			return &BitsType{Width: e.Width, Signed: e.Signed}
		}
		return Int
	case *BoolLit:
		return Bool
	case *Unary:
		xt := r.expr(s, e.X)
		if e.Op == "!" {
			return Bool
		}
		return xt
	case *Binary:
		xt := r.expr(s, e.X)
		yt := r.expr(s, e.Y)
		switch e.Op {
		case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
			return Bool
		case "++":
			xb, ok1 := xt.(*BitsType)
			yb, ok2 := yt.(*BitsType)
			if ok1 && ok2 {
				return Bits(xb.Width + yb.Width)
			}
			return xt
		case "<<", ">>":
			return xt
		}
		if _, ok := xt.(*IntType); ok {
			return yt
		}
		return xt
	case *Mux:
		r.expr(s, e.Cond)
		tt := r.expr(s, e.Then)
		et := r.expr(s, e.Else)
		if _, ok := tt.(*IntType); ok {
			return et
		}
		return tt
	case *Cast:
		r.expr(s, e.X)
		return e.To
	case *ListExpr:
		comps := make([]Type, len(e.Elems))
		for i, el := range e.Elems {
			comps[i] = r.expr(s, el)
		}
		return &TupleType{Components: comps}
	case *StructExpr:
		st := &StructType{}
		for _, f := range e.Fields {
			st.Fields = append(st.Fields, Field{Name: f.Name, Type: r.expr(s, f.Value)})
		}
		return st
	case *Call:
		r.expr(s, e.Fun)
		for _, a := range e.Args {
			r.expr(s, a)
		}
		target, err := ResolveCall(e, r.info)
		if err != nil {
			r.errs = append(r.errs, err)
			return nil
		}
		return target.Result
	case *SelectExpr:
		for _, k := range e.Keys {
			r.expr(s, k)
		}
		return Void
	case *DefaultExpr, *DontCare:
		return nil
	}
	r.errorf(e, "unexpected expression %T", e)
	return nil
}

func (r *resolver) member(s *scope, e *Member) Type {
	xt := r.expr(s, e.X)
	if p, ok := e.X.(*PathExpr); ok {
		switch d := r.info.Declaration(p).(type) {
		case *TypeDecl:
			if enum, ok := d.Type.(*EnumType); ok {
				for _, m := range enum.Members {
					if m == e.Name {
						return enum
					}
				}
			}
			r.errorf(e, "%s has no member %s", d.Name, e.Name)
			return nil
		case *Table:
			if e.Name == MethodApply {
				return &MethodType{Name: d.Name + "." + e.Name}
			}
			r.errorf(e, "table %s has no member %s", d.Name, e.Name)
			return nil
		case *Instance:
			return &MethodType{Name: d.Name + "." + e.Name}
		}
	}
	if et, ok := xt.(*ExternType); ok {
		if et.Extern.Method(e.Name) != nil {
			return &MethodType{Name: et.Extern.Name + "." + e.Name}
		}
	}
	switch xt := xt.(type) {
	case *TableResultType:
		switch e.Name {
		case MemberHit, MemberMiss:
			return Bool
		case MemberActionRun:
			return &ActionRunType{Table: xt.Table}
		}
	case *HeaderType:
		switch e.Name {
		case MethodSetValid, MethodSetInvalid, MethodIsValid:
			return &MethodType{Name: e.Name}
		}
		if ft, ok := FieldType(xt, e.Name); ok {
			return ft
		}
	case *HeaderUnionType:
		if e.Name == MethodIsValid {
			return &MethodType{Name: e.Name}
		}
		if ft, ok := FieldType(xt, e.Name); ok {
			return ft
		}
	case *StructType:
		if ft, ok := FieldType(xt, e.Name); ok {
			return ft
		}
	case *StackType:
		switch e.Name {
		case MemberNext, MemberLast:
			return xt.Elem
		case MemberLastIndex, MemberSize:
			return Bits(32)
		case MethodPushFront, MethodPopFront:
			return &MethodType{Name: e.Name}
		}
	}
	r.errorf(e, "%s has no member %s", String(e.X), e.Name)
	return nil
}
