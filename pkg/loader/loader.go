// Package loader reads programs from YAML documents.
//
// A document has the optional keys program, types, externs and decls:
//
//	program: demo
//	types:
//	  - header: eth_t
//	    fields: {dst: bit<48>, type: bit<16>}
//	  - struct: headers_t
//	    fields: {eth: eth_t}
//	externs:
//	  - extern: packet_in
//	    methods:
//	      - {name: extract, params: ["out _ hdr"]}
//	decls:
//	  - control: ingress
//	    params: ["inout headers_t hdr"]
//	    locals:
//	      - {var: tmp, type: bit<16>}
//	    apply:
//	      - tmp = hdr.eth.type
//	      - if: tmp == 0x800
//	        then: [hdr.eth.setInvalid()]
//
// Statements, expressions, types and parameters are written in source form
// inside YAML scalars; compound statements are mappings.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/p4lang/p4c-sub009/pkg/ir"
)

// Load reads and decodes the program in the named file.
func Load(path string) (*ir.Program, *ir.Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(path, data)
}

// Decode parses a program document, numbers its nodes and resolves its
// names. name is used in positions.
func Decode(name string, data []byte) (*ir.Program, *ir.Info, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", name, ErrSyntax, err)
	}
	d := &decoder{
		file:    name,
		types:   make(map[string]*ir.TypeDecl),
		externs: make(map[string]*ir.Extern),
	}
	prog := d.document(&root)
	if d.err != nil {
		return nil, nil, d.err
	}
	info, err := ir.Resolve(prog)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return prog, info, nil
}

type decoder struct {
	file    string
	types   map[string]*ir.TypeDecl
	externs map[string]*ir.Extern
	err     error
}

func (d *decoder) lookupType(name string) (ir.Type, bool) {
	if t, ok := d.types[name]; ok {
		return t.Type, t.Type != nil
	}
	if e, ok := d.externs[name]; ok {
		return &ir.ExternType{Extern: e}, true
	}
	return nil, false
}

func (d *decoder) pos(n *yaml.Node) ir.Pos {
	pos := ir.Pos{File: d.file, Line: n.Line, Col: n.Column}
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		pos.Col++
	}
	return pos
}

func (d *decoder) fail(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...interface{}) {
	d.fail(&SyntaxError{Pos: d.pos(n), Msg: fmt.Sprintf(format, args...)})
}

// mapping is a YAML mapping with its keys in document order.
type mapping struct {
	node *yaml.Node
	keys []string
	vals map[string]*yaml.Node
}

func (d *decoder) mapping(n *yaml.Node) *mapping {
	m := &mapping{node: n, vals: make(map[string]*yaml.Node)}
	if n.Kind != yaml.MappingNode {
		d.errorf(n, "expected a mapping")
		return m
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		if _, dup := m.vals[k]; dup {
			d.errorf(n.Content[i], "duplicate key %s", k)
		}
		m.keys = append(m.keys, k)
		m.vals[k] = n.Content[i+1]
	}
	return m
}

func (m *mapping) get(key string) *yaml.Node { return m.vals[key] }

// kind returns the first of the given keys present in m.
func (d *decoder) kind(m *mapping, kinds ...string) (string, *yaml.Node) {
	for _, k := range m.keys {
		for _, want := range kinds {
			if k == want {
				return k, m.vals[k]
			}
		}
	}
	d.errorf(m.node, "expected one of %v", kinds)
	return "", nil
}

func (d *decoder) seq(n *yaml.Node) []*yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.errorf(n, "expected a sequence")
		return nil
	}
	return n.Content
}

func (d *decoder) str(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind != yaml.ScalarNode {
		d.errorf(n, "expected a scalar")
		return ""
	}
	return n.Value
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func (d *decoder) typ(n *yaml.Node) ir.Type {
	if n == nil {
		return nil
	}
	t, err := parseType(d.str(n), d.pos(n), d)
	d.fail(err)
	return t
}

func (d *decoder) expr(n *yaml.Node) ir.Expr {
	if n == nil {
		return nil
	}
	x, err := parseExpr(d.str(n), d.pos(n), d)
	d.fail(err)
	return x
}

func (d *decoder) exprs(n *yaml.Node) []ir.Expr {
	var list []ir.Expr
	for _, c := range d.seq(n) {
		list = append(list, d.expr(c))
	}
	return list
}

func (d *decoder) params(n *yaml.Node) []*ir.Param {
	var list []*ir.Param
	for _, c := range d.seq(n) {
		p, err := parseParam(d.str(c), d.pos(c), d)
		d.fail(err)
		if p != nil {
			list = append(list, p)
		}
	}
	return list
}

// ----------------------------------------------------------------------------
// Top level

func (d *decoder) document(root *yaml.Node) *ir.Program {
	n := root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	m := d.mapping(n)
	name := d.str(m.get("program"))
	if name == "" {
		name = d.file
	}
	types := d.typeDecls(m.get("types"))
	var decls []ir.Decl
	d.externDecls(m.get("externs"), &decls)
	for _, c := range d.seq(m.get("decls")) {
		if decl := d.decl(c); decl != nil {
			decls = append(decls, decl)
		}
	}
	return ir.NewProgram(name, types, decls)
}

// typeDecls declares every named type before decoding any field so types
// may refer to each other in any order.
func (d *decoder) typeDecls(n *yaml.Node) []*ir.TypeDecl {
	nodes := d.seq(n)
	decls := make([]*ir.TypeDecl, len(nodes))
	maps := make([]*mapping, len(nodes))
	for i, c := range nodes {
		m := d.mapping(c)
		kind, v := d.kind(m, "header", "struct", "union", "enum", "typedef")
		td := &ir.TypeDecl{Name: d.str(v)}
		td.SetPos(d.pos(c))
		switch kind {
		case "header":
			td.Type = &ir.HeaderType{Name: td.Name}
		case "struct":
			td.Type = &ir.StructType{Name: td.Name}
		case "union":
			td.Type = &ir.HeaderUnionType{Name: td.Name}
		case "enum":
			td.Type = &ir.EnumType{Name: td.Name, Members: d.strs(m.get("members"))}
		}
		if _, dup := d.types[td.Name]; dup {
			d.errorf(c, "type %s redeclared", td.Name)
		}
		d.types[td.Name] = td
		decls[i], maps[i] = td, m
	}
	for i, td := range decls {
		m := maps[i]
		switch t := td.Type.(type) {
		case *ir.HeaderType:
			t.Fields = d.fields(m.get("fields"))
		case *ir.StructType:
			t.Fields = d.fields(m.get("fields"))
		case *ir.HeaderUnionType:
			t.Fields = d.fields(m.get("fields"))
			for _, f := range t.Fields {
				if _, ok := f.Type.(*ir.HeaderType); !ok {
					d.errorf(nodes[i], "union %s: field %s is not a header", td.Name, f.Name)
				}
			}
		case nil:
			td.Type = d.typ(m.get("type"))
		}
	}
	return decls
}

func (d *decoder) strs(n *yaml.Node) []string {
	var out []string
	for _, c := range d.seq(n) {
		out = append(out, d.str(c))
	}
	return out
}

func (d *decoder) fields(n *yaml.Node) []ir.Field {
	if n == nil {
		return nil
	}
	m := d.mapping(n)
	fields := make([]ir.Field, 0, len(m.keys))
	for _, k := range m.keys {
		fields = append(fields, ir.Field{Name: k, Type: d.typ(m.get(k))})
	}
	return fields
}

func (d *decoder) externDecls(n *yaml.Node, decls *[]ir.Decl) {
	nodes := d.seq(n)
	maps := make([]*mapping, len(nodes))
	// Extern names are types, so declare them before any signature.
	for i, c := range nodes {
		m := d.mapping(c)
		maps[i] = m
		if v := m.get("extern"); v != nil {
			e := &ir.Extern{Name: d.str(v)}
			e.SetPos(d.pos(c))
			d.externs[e.Name] = e
		}
	}
	for i, c := range nodes {
		m := maps[i]
		kind, v := d.kind(m, "extern", "function")
		switch kind {
		case "extern":
			e := d.externs[d.str(v)]
			for _, mn := range d.seq(m.get("methods")) {
				mm := d.mapping(mn)
				meth := &ir.ExternMethod{
					Name:     d.str(mm.get("name")),
					Params:   d.params(mm.get("params")),
					Result:   d.typ(mm.get("result")),
					Abstract: d.str(mm.get("abstract")) == "true",
				}
				meth.SetPos(d.pos(mn))
				e.Methods = append(e.Methods, meth)
			}
			*decls = append(*decls, e)
		case "function":
			f := &ir.ExternFunc{
				Name:   d.str(v),
				Params: d.params(m.get("params")),
				Result: d.typ(m.get("result")),
			}
			f.SetPos(d.pos(c))
			*decls = append(*decls, f)
		}
	}
}

// decl decodes a declaration allowed at the top level or among locals.
func (d *decoder) decl(n *yaml.Node) ir.Decl {
	m := d.mapping(n)
	kind, v := d.kind(m, "action", "function", "control", "parser", "table", "instance", "var", "const")
	name := d.str(v)
	var decl ir.Decl
	switch kind {
	case "action":
		decl = &ir.Action{Name: name, Params: d.params(m.get("params")), Body: d.block(m.get("body"))}
	case "function":
		decl = d.function(m, name)
	case "control":
		decl = &ir.Control{
			Name:   name,
			Params: d.params(m.get("params")),
			Locals: d.locals(m.get("locals")),
			Body:   d.block(m.get("apply")),
		}
	case "parser":
		decl = d.parser(m, name)
	case "table":
		decl = d.table(m, name)
	case "instance":
		inst := &ir.Instance{Name: name, TypeName: d.str(m.get("type")), Args: d.exprs(m.get("args"))}
		for _, fn := range d.seq(m.get("virtual")) {
			fm := d.mapping(fn)
			f := d.function(fm, d.str(fm.get("function")))
			f.SetPos(d.pos(fn))
			inst.Virtual = append(inst.Virtual, f)
		}
		decl = inst
	case "var":
		decl = d.varDecl(m, name)
	case "const":
		decl = d.constDecl(m, name)
	default:
		return nil
	}
	decl.(interface{ SetPos(ir.Pos) }).SetPos(d.pos(n))
	return decl
}

func (d *decoder) function(m *mapping, name string) *ir.Function {
	return &ir.Function{
		Name:   name,
		Params: d.params(m.get("params")),
		Result: d.typ(m.get("result")),
		Body:   d.block(m.get("body")),
	}
}

func (d *decoder) varDecl(m *mapping, name string) *ir.VarDecl {
	v := &ir.VarDecl{Name: name, Type: d.typ(m.get("type"))}
	if v.Type == nil {
		d.errorf(m.node, "variable %s needs a type", name)
	}
	if init := m.get("init"); !isNull(init) {
		v.Init = d.expr(init)
	}
	return v
}

func (d *decoder) constDecl(m *mapping, name string) *ir.ConstDecl {
	return &ir.ConstDecl{Name: name, Type: d.typ(m.get("type")), Value: d.expr(m.get("value"))}
}

func (d *decoder) locals(n *yaml.Node) []ir.Decl {
	var list []ir.Decl
	for _, c := range d.seq(n) {
		if decl := d.decl(c); decl != nil {
			list = append(list, decl)
		}
	}
	return list
}

func (d *decoder) table(m *mapping, name string) *ir.Table {
	t := &ir.Table{Name: name, Keys: d.exprs(m.get("keys"))}
	for _, c := range d.seq(m.get("actions")) {
		t.Actions = append(t.Actions, d.actionRef(c))
	}
	if n := m.get("default"); !isNull(n) {
		t.Default = d.actionRef(n)
	}
	return t
}

// actionRef decodes an action list entry. A bare name is a call without
// arguments.
func (d *decoder) actionRef(n *yaml.Node) *ir.Call {
	switch x := d.expr(n).(type) {
	case *ir.Call:
		return x
	case *ir.PathExpr:
		c := &ir.Call{Fun: x}
		c.SetPos(x.Pos())
		return c
	}
	d.errorf(n, "expected an action")
	c := &ir.Call{Fun: &ir.PathExpr{Name: "_"}}
	return c
}

func (d *decoder) parser(m *mapping, name string) *ir.Parser {
	p := &ir.Parser{Name: name, Params: d.params(m.get("params")), Locals: d.locals(m.get("locals"))}
	for _, c := range d.seq(m.get("states")) {
		sm := d.mapping(c)
		st := &ir.ParserState{Name: d.str(sm.get("state"))}
		st.SetPos(d.pos(c))
		if st.Name == "" {
			d.errorf(c, "state without a name")
		}
		st.Body = d.stmts(sm.get("body"))
		if tn := sm.get("transition"); !isNull(tn) {
			st.Next = d.transition(tn)
		}
		p.States = append(p.States, st)
	}
	return p
}

func (d *decoder) transition(n *yaml.Node) ir.Expr {
	if n.Kind == yaml.ScalarNode {
		return d.stateRef(n)
	}
	m := d.mapping(n)
	sel := &ir.SelectExpr{Keys: d.exprs(m.get("select"))}
	sel.SetPos(d.pos(n))
	cases := m.get("cases")
	if cases == nil {
		d.errorf(n, "select without cases")
		return sel
	}
	cm := d.mapping(cases)
	for i, k := range cm.keys {
		sel.Cases = append(sel.Cases, ir.SelectCase{
			Keyset: d.expr(cases.Content[2*i]),
			State:  d.stateRef(cm.get(k)),
		})
	}
	return sel
}

func (d *decoder) stateRef(n *yaml.Node) *ir.PathExpr {
	p, ok := d.expr(n).(*ir.PathExpr)
	if !ok {
		d.errorf(n, "expected a state name")
		return &ir.PathExpr{Name: "_"}
	}
	return p
}

// ----------------------------------------------------------------------------
// Statements

func (d *decoder) block(n *yaml.Node) *ir.Block {
	b := &ir.Block{}
	if n != nil {
		b.SetPos(d.pos(n))
	}
	b.Stmts = d.stmts(n)
	return b
}

func (d *decoder) stmts(n *yaml.Node) []ir.Stmt {
	var list []ir.Stmt
	for _, c := range d.seq(n) {
		if s := d.stmt(c); s != nil {
			list = append(list, s)
		}
	}
	return list
}

// branch decodes the arm of an if: a sequence is a block, anything else a
// single statement.
func (d *decoder) branch(n *yaml.Node) ir.Stmt {
	if n.Kind == yaml.SequenceNode {
		return d.block(n)
	}
	return d.stmt(n)
}

func (d *decoder) stmt(n *yaml.Node) ir.Stmt {
	if n.Kind == yaml.ScalarNode {
		s, err := parseSimpleStmt(n.Value, d.pos(n), d)
		d.fail(err)
		return s
	}
	m := d.mapping(n)
	kind, v := d.kind(m, "if", "switch", "var", "const", "block")
	var s ir.Stmt
	switch kind {
	case "if":
		then := m.get("then")
		if then == nil {
			d.errorf(n, "if without then")
			return nil
		}
		is := &ir.If{Cond: d.expr(v), Then: d.branch(then)}
		if e := m.get("else"); !isNull(e) {
			is.Else = d.branch(e)
		}
		s = is
	case "switch":
		ss := &ir.Switch{X: d.expr(v)}
		if cases := m.get("cases"); cases != nil {
			cm := d.mapping(cases)
			for i, k := range cm.keys {
				c := ir.SwitchCase{Label: d.expr(cases.Content[2*i])}
				if body := cm.get(k); !isNull(body) {
					c.Body = d.block(body)
				}
				ss.Cases = append(ss.Cases, c)
			}
		}
		s = ss
	case "var":
		s = d.varDecl(m, d.str(v))
	case "const":
		s = d.constDecl(m, d.str(v))
	case "block":
		s = d.block(v)
	default:
		return nil
	}
	s.(interface{ SetPos(ir.Pos) }).SetPos(d.pos(n))
	return s
}
