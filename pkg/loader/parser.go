package loader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/p4lang/p4c-sub009/pkg/ir"
)

// ErrSyntax is wrapped by every error describing malformed input.
var ErrSyntax = errors.New("syntax error")

// SyntaxError is a malformed type, expression or document node.
type SyntaxError struct {
	Pos ir.Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// typeEnv resolves type names.
type typeEnv interface {
	lookupType(name string) (ir.Type, bool)
}

// parser parses one YAML scalar holding a type, expression or simple
// statement. Only the first error is kept; after it the parser behaves as
// if the input ended.
type parser struct {
	s   *scanner
	env typeEnv
	pos ir.Pos // position of the first character
	err error
}

func newParser(src string, pos ir.Pos, env typeEnv) *parser {
	p := &parser{s: newScanner(src), env: env, pos: pos}
	p.checkScan()
	return p
}

func (p *parser) tok() token  { return p.s.tok }
func (p *parser) lit() string { return p.s.lit }

func (p *parser) at() ir.Pos {
	pos := p.pos
	pos.Col += p.s.tokOff
	return pos
}

func (p *parser) next() {
	p.s.next()
	p.checkScan()
}

func (p *parser) checkScan() {
	if p.s.err != nil && p.err == nil {
		p.err = &SyntaxError{Pos: p.at(), Msg: p.s.err.Error()}
	}
}

func (p *parser) errorf(format string, args ...interface{}) {
	if p.err == nil {
		p.err = &SyntaxError{Pos: p.at(), Msg: fmt.Sprintf(format, args...)}
	}
	p.s.tok = tEOF
	p.s.off = len(p.s.src)
}

func (p *parser) got(t token) bool {
	if p.tok() == t {
		p.next()
		return true
	}
	return false
}

func (p *parser) want(t token) {
	if !p.got(t) {
		p.errorf("expected %s, found %s", t, p.describe())
	}
}

func (p *parser) describe() string {
	switch p.tok() {
	case tName, tInt:
		return strconv.Quote(p.lit())
	}
	return p.tok().String()
}

// peek returns the token after the current one.
func (p *parser) peek() token {
	save := *p.s
	p.s.next()
	t := p.s.tok
	*p.s = save
	return t
}

func (p *parser) done() error {
	if p.err == nil && p.tok() != tEOF {
		p.errorf("unexpected %s", p.describe())
	}
	return p.err
}

func (p *parser) name() string {
	if p.tok() != tName {
		p.errorf("expected name, found %s", p.describe())
		return "_"
	}
	n := p.lit()
	p.next()
	return n
}

func (p *parser) intValue() int {
	if p.tok() != tInt {
		p.errorf("expected integer, found %s", p.describe())
		return 0
	}
	lit, err := parseInt(p.lit())
	if err != nil {
		p.errorf("%v", err)
		return 0
	}
	p.next()
	return int(lit.Value)
}

// ----------------------------------------------------------------------------
// Types

func (p *parser) typ() ir.Type {
	var t ir.Type
	switch n := p.name(); n {
	case "bit", "int":
		if !p.got(tLss) {
			if n == "int" {
				t = ir.Int
				break
			}
			t = ir.Bits(1)
			break
		}
		w := p.intValue()
		p.close()
		t = &ir.BitsType{Width: w, Signed: n == "int"}
	case "bool":
		t = ir.Bool
	case "error":
		t = ir.Error
	case "void":
		t = ir.Void
	case "tuple":
		p.want(tLss)
		tt := &ir.TupleType{}
		for p.tok() != tGtr && p.tok() != tShr && p.tok() != tEOF {
			tt.Components = append(tt.Components, p.typ())
			if !p.got(tComma) {
				break
			}
		}
		p.close()
		t = tt
	case "_":
		return nil
	default:
		named, ok := p.env.lookupType(n)
		if !ok {
			p.errorf("unknown type %s", n)
			return nil
		}
		t = named
	}
	for p.got(tLbrack) {
		size := p.intValue()
		p.want(tRbrack)
		t = &ir.StackType{Elem: t, Size: size}
	}
	return t
}

// close consumes the > ending a type argument list.
func (p *parser) close() {
	if p.tok() == tShr {
		p.s.splitShr()
	}
	p.want(tGtr)
}

func isTypeKeyword(name string) bool {
	switch name {
	case "bit", "int", "bool", "tuple":
		return true
	}
	return false
}

// ----------------------------------------------------------------------------
// Expressions

func setPos[N interface{ SetPos(ir.Pos) }](n N, pos ir.Pos) N {
	n.SetPos(pos)
	return n
}

func (p *parser) expr() ir.Expr {
	x := p.binary(0)
	if p.tok() != tQuest {
		return x
	}
	m := setPos(&ir.Mux{Cond: x}, x.Pos())
	p.next()
	m.Then = p.expr()
	p.want(tColon)
	m.Else = p.expr()
	return m
}

func (p *parser) binary(prec int) ir.Expr {
	x := p.unary()
	for {
		oprec := p.tok().precedence()
		if oprec <= prec {
			return x
		}
		b := setPos(&ir.Binary{Op: p.tok().String(), X: x}, x.Pos())
		p.next()
		b.Y = p.binary(oprec)
		x = b
	}
}

func (p *parser) unary() ir.Expr {
	switch p.tok() {
	case tNot, tCompl, tSub:
		u := setPos(&ir.Unary{Op: p.tok().String()}, p.at())
		p.next()
		u.X = p.unary()
		return u
	}
	return p.primary()
}

func (p *parser) primary() ir.Expr {
	x := p.operand()
	for {
		switch p.tok() {
		case tDot:
			p.next()
			x = setPos(&ir.Member{X: x, Name: p.name()}, x.Pos())
		case tLbrack:
			x = p.index(x)
		case tLparen:
			call := setPos(&ir.Call{Fun: x}, x.Pos())
			p.next()
			call.Args = p.exprList(tRparen)
			p.want(tRparen)
			x = call
		default:
			return x
		}
	}
}

func (p *parser) index(x ir.Expr) ir.Expr {
	p.want(tLbrack)
	i := p.expr()
	if !p.got(tColon) {
		p.want(tRbrack)
		return setPos(&ir.Index{X: x, Index: i}, x.Pos())
	}
	lo := p.expr()
	p.want(tRbrack)
	hi, ok1 := i.(*ir.IntLit)
	l, ok2 := lo.(*ir.IntLit)
	if !ok1 || !ok2 || l.Value > hi.Value {
		p.errorf("slice bounds must be constants with hi >= lo")
		return x
	}
	return setPos(&ir.Slice{X: x, Hi: int(hi.Value), Lo: int(l.Value)}, x.Pos())
}

func (p *parser) exprList(end token) []ir.Expr {
	var list []ir.Expr
	for p.tok() != end && p.tok() != tEOF {
		list = append(list, p.expr())
		if !p.got(tComma) {
			break
		}
	}
	return list
}

func (p *parser) operand() ir.Expr {
	pos := p.at()
	switch p.tok() {
	case tName:
		switch n := p.lit(); n {
		case "true", "false":
			p.next()
			return setPos(&ir.BoolLit{Value: n == "true"}, pos)
		case "default":
			p.next()
			return setPos(&ir.DefaultExpr{}, pos)
		case "_":
			p.next()
			return setPos(&ir.DontCare{}, pos)
		}
		return setPos(&ir.PathExpr{Name: p.name()}, pos)
	case tInt:
		lit, err := parseInt(p.lit())
		if err != nil {
			p.errorf("%v", err)
			return setPos(&ir.IntLit{}, pos)
		}
		p.next()
		return setPos(lit, pos)
	case tLparen:
		p.next()
		if p.tok() == tName && isTypeKeyword(p.lit()) {
			to := p.typ()
			p.want(tRparen)
			return setPos(&ir.Cast{To: to, X: p.unary()}, pos)
		}
		x := p.expr()
		p.want(tRparen)
		return x
	case tLbrace:
		p.next()
		if p.tok() == tName && p.peek() == tAssign {
			s := setPos(&ir.StructExpr{}, pos)
			for p.tok() == tName {
				name := p.name()
				p.want(tAssign)
				s.Fields = append(s.Fields, ir.NamedExpr{Name: name, Value: p.expr()})
				if !p.got(tComma) {
					break
				}
			}
			p.want(tRbrace)
			return s
		}
		l := setPos(&ir.ListExpr{Elems: p.exprList(tRbrace)}, pos)
		p.want(tRbrace)
		return l
	}
	p.errorf("expected operand, found %s", p.describe())
	return setPos(&ir.PathExpr{Name: "_"}, pos)
}

// parseInt parses 5, 0x1f, 0b101, 8w5 and 8s5.
func parseInt(lit string) (*ir.IntLit, error) {
	out := &ir.IntLit{}
	if i := strings.IndexAny(lit, "ws"); i > 0 && !strings.HasPrefix(lit, "0x") && !strings.HasPrefix(lit, "0b") {
		w, err := strconv.Atoi(lit[:i])
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("invalid width in %s", lit)
		}
		out.Width, out.Signed = w, lit[i] == 's'
		lit = lit[i+1:]
	}
	v, err := strconv.ParseUint(lit, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %s", lit)
	}
	out.Value = v
	return out, nil
}

// ----------------------------------------------------------------------------
// Entry points

func parseType(src string, pos ir.Pos, env typeEnv) (ir.Type, error) {
	p := newParser(src, pos, env)
	t := p.typ()
	return t, p.done()
}

func parseExpr(src string, pos ir.Pos, env typeEnv) (ir.Expr, error) {
	p := newParser(src, pos, env)
	x := p.expr()
	return x, p.done()
}

// parseSimpleStmt parses an assignment, a call, return, exit or an empty
// statement.
func parseSimpleStmt(src string, pos ir.Pos, env typeEnv) (ir.Stmt, error) {
	src = strings.TrimSuffix(strings.TrimSpace(src), ";")
	p := newParser(src, pos, env)
	start := p.at()
	if p.tok() == tEOF {
		return setPos(&ir.Empty{}, start), p.done()
	}
	if p.tok() == tName {
		switch p.lit() {
		case "exit":
			p.next()
			return setPos(&ir.Exit{}, start), p.done()
		case "return":
			p.next()
			r := setPos(&ir.Return{}, start)
			if p.tok() != tEOF {
				r.X = p.expr()
			}
			return r, p.done()
		}
	}
	x := p.expr()
	if p.got(tAssign) {
		a := setPos(&ir.Assign{LHS: x, RHS: p.expr()}, start)
		return a, p.done()
	}
	call, ok := x.(*ir.Call)
	if !ok {
		p.errorf("expression %s is not a statement", ir.String(x))
		return nil, p.err
	}
	return setPos(&ir.CallStmt{Call: call}, start), p.done()
}

// parseParam parses "[in|out|inout] type name".
func parseParam(src string, pos ir.Pos, env typeEnv) (*ir.Param, error) {
	p := newParser(src, pos, env)
	param := setPos(&ir.Param{Dir: ir.DirNone}, p.at())
	if p.tok() == tName && p.peek() == tName {
		switch d := ir.Direction(p.lit()); d {
		case ir.DirIn, ir.DirOut, ir.DirInOut:
			param.Dir = d
			p.next()
		}
	}
	param.Type = p.typ()
	param.Name = p.name()
	return param, p.done()
}
