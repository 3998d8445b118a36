package ir

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// String returns the source rendering of n on a single line.
func String(n Node) string {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.node(n)
	return buf.String()
}

// Fprint writes the program in source form to w.
func Fprint(w io.Writer, prog *Program) error {
	var buf bytes.Buffer
	p := &printer{w: &buf, multiline: true}
	for _, t := range prog.Types {
		p.typeDecl(t)
	}
	for _, d := range prog.Decls {
		p.decl(d)
		p.nl()
	}
	_, err := w.Write(buf.Bytes())
	return err
}

type printer struct {
	w         *bytes.Buffer
	multiline bool
	indent    int
}

func (p *printer) print(args ...interface{}) {
	for _, a := range args {
		switch a := a.(type) {
		case string:
			p.w.WriteString(a)
		case Node:
			p.node(a)
		case Type:
			p.w.WriteString(a.String())
		default:
			fmt.Fprint(p.w, a)
		}
	}
}

func (p *printer) nl() {
	if !p.multiline {
		p.w.WriteByte(' ')
		return
	}
	p.w.WriteByte('\n')
	p.w.WriteString(strings.Repeat("    ", p.indent))
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case Expr:
		p.expr(n)
	case Stmt:
		p.stmt(n)
	case Decl:
		p.decl(n)
	default:
		fmt.Fprintf(p.w, "<%T>", n)
	}
}

func (p *printer) exprList(list []Expr) {
	for i, e := range list {
		if i > 0 {
			p.print(", ")
		}
		p.expr(e)
	}
}

// operand prints e, parenthesized when it is itself an operator expression.
func (p *printer) operand(e Expr) {
	switch e.(type) {
	case *Binary, *Mux:
		p.print("(", e, ")")
	default:
		p.expr(e)
	}
}

func (p *printer) expr(e Expr) {
	switch e := e.(type) {
	case *PathExpr:
		p.print(e.Name)
	case *Member:
		p.operand(e.X)
		p.print(".", e.Name)
	case *Index:
		p.operand(e.X)
		p.print("[", e.Index, "]")
	case *Slice:
		p.operand(e.X)
		p.print(fmt.Sprintf("[%d:%d]", e.Hi, e.Lo))
	case *IntLit:
		switch {
		case e.Width > 0 && e.Signed:
			p.print(fmt.Sprintf("%ds%d", e.Width, e.Value))
		case e.Width > 0:
			p.print(fmt.Sprintf("%dw%d", e.Width, e.Value))
		default:
			p.print(fmt.Sprintf("%d", e.Value))
		}
	case *BoolLit:
		p.print(fmt.Sprintf("%t", e.Value))
	case *Unary:
		p.print(e.Op)
		p.operand(e.X)
	case *Binary:
		p.operand(e.X)
		p.print(" ", e.Op, " ")
		p.operand(e.Y)
	case *Mux:
		p.operand(e.Cond)
		p.print(" ? ")
		p.operand(e.Then)
		p.print(" : ")
		p.operand(e.Else)
	case *Cast:
		p.print("(", e.To, ")")
		p.operand(e.X)
	case *ListExpr:
		p.print("{")
		p.exprList(e.Elems)
		p.print("}")
	case *StructExpr:
		p.print("{")
		for i, f := range e.Fields {
			if i > 0 {
				p.print(", ")
			}
			p.print(f.Name, " = ", f.Value)
		}
		p.print("}")
	case *Call:
		p.expr(e.Fun)
		p.print("(")
		p.exprList(e.Args)
		p.print(")")
	case *SelectExpr:
		p.print("select (")
		p.exprList(e.Keys)
		p.print(") {")
		for _, c := range e.Cases {
			p.print(" ", c.Keyset, ": ", c.State, ";")
		}
		p.print(" }")
	case *DefaultExpr:
		p.print("default")
	case *DontCare:
		p.print("_")
	default:
		fmt.Fprintf(p.w, "<%T>", e)
	}
}

func (p *printer) block(b *Block) {
	if b == nil {
		p.print("{}")
		return
	}
	p.print("{")
	p.indent++
	for _, s := range b.Stmts {
		p.nl()
		p.stmt(s)
	}
	p.indent--
	p.nl()
	p.print("}")
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *Block:
		p.block(s)
	case *Assign:
		p.print(s.LHS, " = ", s.RHS, ";")
	case *CallStmt:
		p.print(s.Call, ";")
	case *If:
		p.print("if (", s.Cond, ") ")
		p.stmt(s.Then)
		if s.Else != nil {
			p.print(" else ")
			p.stmt(s.Else)
		}
	case *Switch:
		p.print("switch (", s.X, ") {")
		p.indent++
		for _, c := range s.Cases {
			p.nl()
			p.print(c.Label, ":")
			if c.Body != nil {
				p.print(" ")
				p.block(c.Body)
			}
		}
		p.indent--
		p.nl()
		p.print("}")
	case *Return:
		if s.X != nil {
			p.print("return ", s.X, ";")
		} else {
			p.print("return;")
		}
	case *Exit:
		p.print("exit;")
	case *Empty:
		p.print(";")
	case *VarDecl:
		p.print(s.Type, " ", s.Name)
		if s.Init != nil {
			p.print(" = ", s.Init)
		}
		p.print(";")
	case *ConstDecl:
		p.print("const ", s.Type, " ", s.Name, " = ", s.Value, ";")
	default:
		fmt.Fprintf(p.w, "<%T>", s)
	}
}

func (p *printer) params(list []*Param) {
	p.print("(")
	for i, prm := range list {
		if i > 0 {
			p.print(", ")
		}
		if prm.Dir != DirNone {
			p.print(string(prm.Dir), " ")
		}
		if prm.Type == nil {
			p.print("_")
		} else {
			p.print(prm.Type)
		}
		p.print(" ", prm.Name)
	}
	p.print(")")
}

func (p *printer) result(t Type) {
	if t == nil {
		t = Void
	}
	p.print(t)
}

func (p *printer) typeDecl(t *TypeDecl) {
	switch typ := t.Type.(type) {
	case *EnumType:
		p.print("enum ", t.Name, " { ", strings.Join(typ.Members, ", "), " }")
	case *HeaderType, *StructType, *HeaderUnionType:
		var kw string
		switch typ.(type) {
		case *HeaderType:
			kw = "header"
		case *StructType:
			kw = "struct"
		default:
			kw = "header_union"
		}
		p.print(kw, " ", t.Name, " {")
		p.indent++
		for _, f := range FieldsOf(typ) {
			p.nl()
			p.print(f.Type, " ", f.Name, ";")
		}
		p.indent--
		p.nl()
		p.print("}")
	default:
		p.print("typedef ", t.Type, " ", t.Name, ";")
	}
	p.nl()
}

func (p *printer) decl(d Decl) {
	switch d := d.(type) {
	case *VarDecl, *ConstDecl:
		p.stmt(d.(Stmt))
	case *Param:
		p.params([]*Param{d})
	case *TypeDecl:
		p.typeDecl(d)
	case *Action:
		p.print("action ", d.Name)
		p.params(d.Params)
		p.print(" ")
		p.block(d.Body)
	case *Function:
		p.result(d.Result)
		p.print(" ", d.Name)
		p.params(d.Params)
		p.print(" ")
		p.block(d.Body)
	case *Table:
		p.print("table ", d.Name, " {")
		p.indent++
		if len(d.Keys) > 0 {
			p.nl()
			p.print("key = { ")
			p.exprList(d.Keys)
			p.print(" }")
		}
		p.nl()
		p.print("actions = {")
		for _, a := range d.Actions {
			p.print(" ", a, ";")
		}
		p.print(" }")
		if d.Default != nil {
			p.nl()
			p.print("default_action = ", d.Default, ";")
		}
		p.indent--
		p.nl()
		p.print("}")
	case *ExternMethod:
		if d.Abstract {
			p.print("abstract ")
		}
		p.result(d.Result)
		p.print(" ", d.Name)
		p.params(d.Params)
		p.print(";")
	case *Extern:
		p.print("extern ", d.Name, " {")
		p.indent++
		for _, m := range d.Methods {
			p.nl()
			p.decl(m)
		}
		p.indent--
		p.nl()
		p.print("}")
	case *ExternFunc:
		p.print("extern ")
		p.result(d.Result)
		p.print(" ", d.Name)
		p.params(d.Params)
		p.print(";")
	case *Instance:
		p.print(d.TypeName, "(")
		p.exprList(d.Args)
		p.print(") ", d.Name)
		if len(d.Virtual) > 0 {
			p.print(" = {")
			p.indent++
			for _, v := range d.Virtual {
				p.nl()
				p.decl(v)
			}
			p.indent--
			p.nl()
			p.print("}")
		}
		p.print(";")
	case *Control:
		p.print("control ", d.Name)
		p.params(d.Params)
		p.print(" {")
		p.indent++
		for _, l := range d.Locals {
			p.nl()
			p.decl(l)
		}
		p.nl()
		p.print("apply ")
		p.block(d.Body)
		p.indent--
		p.nl()
		p.print("}")
	case *Parser:
		p.print("parser ", d.Name)
		p.params(d.Params)
		p.print(" {")
		p.indent++
		for _, l := range d.Locals {
			p.nl()
			p.decl(l)
		}
		for _, s := range d.States {
			if s.Name == StateAccept || s.Name == StateReject {
				continue
			}
			p.nl()
			p.decl(s)
		}
		p.indent--
		p.nl()
		p.print("}")
	case *ParserState:
		p.print("state ", d.Name, " {")
		p.indent++
		for _, s := range d.Body {
			p.nl()
			p.stmt(s)
		}
		if d.Next != nil {
			p.nl()
			p.print("transition ", d.Next)
			if _, ok := d.Next.(*SelectExpr); !ok {
				p.print(";")
			}
		}
		p.indent--
		p.nl()
		p.print("}")
	default:
		fmt.Fprintf(p.w, "<%T>", d)
	}
}
