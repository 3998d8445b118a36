package storage

import "github.com/p4lang/p4c-sub009/pkg/ir"

// Locate returns the locations an expression denotes. The boolean is false
// if e does not denote storage at all, such as a literal or a call.
// Dynamic indices denote every element; stack.next and stack.last denote
// every element and the last-index leaf.
func Locate(e ir.Expr, info *ir.Info, m *Map) (*Set, bool) {
	switch e := e.(type) {
	case *ir.PathExpr:
		switch d := info.Declaration(e).(type) {
		case *ir.Param, *ir.VarDecl:
			return NewSet(m.Get(d)), true
		case *ir.ConstDecl:
			return Empty, true
		}
		return nil, false
	case *ir.Member:
		if _, ok := info.TypeOf(e).(*ir.MethodType); ok {
			return nil, false
		}
		base, ok := Locate(e.X, info, m)
		if !ok {
			return nil, false
		}
		if base.IsEmpty() {
			return Empty, true
		}
		switch xt := info.TypeOf(e.X).(type) {
		case *ir.StackType:
			switch e.Name {
			case ir.MemberNext, ir.MemberLast:
				return base.AllElements().Union(base.LastIndex()), true
			case ir.MemberLastIndex:
				return base.LastIndex(), true
			}
			return nil, false
		case *ir.StructType, *ir.HeaderType, *ir.HeaderUnionType:
			if _, ok := ir.FieldType(xt, e.Name); !ok {
				return nil, false
			}
			return base.Field(e.Name), true
		}
		return nil, false
	case *ir.Index:
		base, ok := Locate(e.X, info, m)
		if !ok {
			return nil, false
		}
		if base.IsEmpty() {
			return Empty, true
		}
		if lit, ok := e.Index.(*ir.IntLit); ok {
			return base.Index(int(lit.Value)), true
		}
		return base.AllElements(), true
	case *ir.Slice:
		return Locate(e.X, info, m)
	}
	return nil, false
}
