package ir

import "fmt"

// Builtin methods and properties.
const (
	MethodApply      = "apply"
	MethodSetValid   = "setValid"
	MethodSetInvalid = "setInvalid"
	MethodIsValid    = "isValid"
	MethodPushFront  = "push_front"
	MethodPopFront   = "pop_front"

	MemberHit       = "hit"
	MemberMiss      = "miss"
	MemberActionRun = "action_run"
	MemberNext      = "next"
	MemberLast      = "last"
	MemberLastIndex = "lastIndex"
	MemberSize      = "size"
)

// CallKind classifies the target of a call.
type CallKind int

const (
	CallBuiltin        CallKind = iota // header or stack method
	CallAction                         // direct action invocation
	CallFunction                       // function invocation
	CallTableApply                     // t.apply()
	CallApply                          // apply of an instantiated control or parser
	CallExternMethod                   // method of an extern instance
	CallExternFunction                 // free extern function
)

var callKindNames = [...]string{
	CallBuiltin:        "builtin",
	CallAction:         "action",
	CallFunction:       "function",
	CallTableApply:     "table apply",
	CallApply:          "apply",
	CallExternMethod:   "extern method",
	CallExternFunction: "extern function",
}

func (k CallKind) String() string {
	if int(k) < len(callKindNames) {
		return callKindNames[k]
	}
	return fmt.Sprintf("CallKind(%d)", int(k))
}

// CallTarget is the resolved meaning of a call expression.
type CallTarget struct {
	Kind    CallKind
	Call    *Call
	Builtin string // method name for CallBuiltin
	Base    Expr   // receiver of builtins, applies and extern methods

	Action   *Action
	Function *Function
	Table    *Table
	Instance *Instance
	Method   *ExternMethod
	Extern   *ExternFunc

	Params []*Param // formal parameters in argument order
	Result Type
}

var countParam = &Param{Name: "count", Type: Int, Dir: DirIn}

// ResolveCall determines what c invokes. Names and types must already be
// recorded in info.
func ResolveCall(c *Call, info *Info) (*CallTarget, error) {
	t := &CallTarget{Call: c, Result: Void}
	switch fn := c.Fun.(type) {
	case *PathExpr:
		switch d := info.Declaration(fn).(type) {
		case *Action:
			t.Kind, t.Action, t.Params = CallAction, d, d.Params
			return t, nil
		case *Function:
			t.Kind, t.Function, t.Params = CallFunction, d, d.Params
			if d.Result != nil {
				t.Result = d.Result
			}
			return t, nil
		case *ExternFunc:
			t.Kind, t.Extern, t.Params = CallExternFunction, d, d.Params
			if d.Result != nil {
				t.Result = d.Result
			}
			return t, nil
		}
	case *Member:
		t.Base = fn.X
		if p, ok := fn.X.(*PathExpr); ok {
			switch d := info.Declaration(p).(type) {
			case *Table:
				if fn.Name == MethodApply {
					t.Kind, t.Table = CallTableApply, d
					t.Result = &TableResultType{Table: d}
					return t, nil
				}
			case *Instance:
				t.Instance = d
				switch td := info.InstanceType(d).(type) {
				case *Control:
					if fn.Name == MethodApply {
						t.Kind, t.Params = CallApply, td.Params
						return t, nil
					}
				case *Parser:
					if fn.Name == MethodApply {
						t.Kind, t.Params = CallApply, td.Params
						return t, nil
					}
				case *Extern:
					if m := td.Method(fn.Name); m != nil {
						t.Kind, t.Method, t.Params = CallExternMethod, m, m.Params
						if m.Result != nil {
							t.Result = m.Result
						}
						return t, nil
					}
				}
			}
		}
		if et, ok := info.TypeOf(fn.X).(*ExternType); ok {
			if m := et.Extern.Method(fn.Name); m != nil {
				t.Kind, t.Method, t.Params = CallExternMethod, m, m.Params
				if m.Result != nil {
					t.Result = m.Result
				}
				return t, nil
			}
		}
		if b, ok := builtin(info.TypeOf(fn.X), fn.Name); ok {
			t.Kind, t.Builtin = CallBuiltin, b
			if b == MethodIsValid {
				t.Result = Bool
			}
			if b == MethodPushFront || b == MethodPopFront {
				t.Params = []*Param{countParam}
			}
			return t, nil
		}
	}
	return nil, fmt.Errorf("%s: cannot resolve call %s", c.Pos(), String(c))
}

func builtin(recv Type, name string) (string, bool) {
	switch recv.(type) {
	case *HeaderType:
		switch name {
		case MethodSetValid, MethodSetInvalid, MethodIsValid:
			return name, true
		}
	case *HeaderUnionType:
		if name == MethodIsValid {
			return name, true
		}
	case *StackType:
		switch name {
		case MethodPushFront, MethodPopFront:
			return name, true
		}
	}
	return "", false
}

// Callees returns the declarations whose bodies run when the call executes:
// the action or function, the table, or the implementation of an abstract
// extern method.
func (t *CallTarget) Callees() []Decl {
	switch t.Kind {
	case CallAction:
		return []Decl{t.Action}
	case CallFunction:
		return []Decl{t.Function}
	case CallTableApply:
		return []Decl{t.Table}
	case CallExternMethod:
		if t.Method.Abstract && t.Instance != nil {
			if v := t.Instance.VirtualMethod(t.Method.Name); v != nil {
				return []Decl{v}
			}
		}
	}
	return nil
}

// Opaque reports whether the callee's effect on its arguments is unknown
// to the analysis.
func (t *CallTarget) Opaque() bool {
	switch t.Kind {
	case CallApply, CallExternMethod, CallExternFunction:
		return true
	}
	return false
}

// SideEffectFree reports whether executing the call has no effect beyond
// the locations it writes.
func (t *CallTarget) SideEffectFree() bool {
	return t.Kind == CallBuiltin
}

// Arg pairs an actual argument with its formal parameter.
type Arg struct {
	Param *Param
	Expr  Expr
}

// Args returns the arguments paired with their parameters. Surplus
// arguments or parameters are ignored.
func (t *CallTarget) Args() []Arg {
	n := len(t.Call.Args)
	if len(t.Params) < n {
		n = len(t.Params)
	}
	args := make([]Arg, n)
	for i := range args {
		args[i] = Arg{Param: t.Params[i], Expr: t.Call.Args[i]}
	}
	return args
}
