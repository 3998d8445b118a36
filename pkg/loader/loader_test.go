package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p4lang/p4c-sub009/pkg/ir"
)

type testEnv map[string]ir.Type

func (e testEnv) lookupType(name string) (ir.Type, bool) {
	t, ok := e[name]
	return t, ok
}

var hType = &ir.HeaderType{Name: "h_t", Fields: []ir.Field{{Name: "f", Type: ir.Bits(8)}}}

func TestParseType(t *testing.T) {
	env := testEnv{"h_t": hType}
	tests := []struct {
		src  string
		want ir.Type
	}{
		{"bit<8>", ir.Bits(8)},
		{"bit", ir.Bits(1)},
		{"int<4>", &ir.BitsType{Width: 4, Signed: true}},
		{"int", ir.Int},
		{"bool", ir.Bool},
		{"tuple<bit<8>, bool>", &ir.TupleType{Components: []ir.Type{ir.Bits(8), ir.Bool}}},
		{"tuple<bit<8>>", &ir.TupleType{Components: []ir.Type{ir.Bits(8)}}},
		{"h_t[4]", &ir.StackType{Elem: hType, Size: 4}},
		{"_", nil},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := parseType(tt.src, ir.Pos{}, env)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseType(%q) mismatch (-want +got):\n%s", tt.src, diff)
			}
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"foo", "1:4: unknown type foo"},
		{"bit<8", "1:6: expected >, found end of input"},
		{"bit<x>", `1:5: expected integer, found "x"`},
		{"bit<8> y", `1:8: unexpected "y"`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := parseType(tt.src, ir.Pos{Line: 1, Col: 1}, testEnv{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a + b * c", "a + (b * c)"},
		{"(a + b) * c", "(a + b) * c"},
		{"a - b - c", "(a - b) - c"},
		{"!x && y", "!x && y"},
		{"c ? a : b", "c ? a : b"},
		{"h.f[7:0]", "h.f[7:0]"},
		{"s[1].f", "s[1].f"},
		{"8w5", "8w5"},
		{"8s3", "8s3"},
		{"0x10", "16"},
		{"0b101", "5"},
		{"(bit<8>) x", "(bit<8>)x"},
		{"{a = 1, b = 2}", "{a = 1, b = 2}"},
		{"{1, 2}", "{1, 2}"},
		{"f(a, b).g()", "f(a, b).g()"},
		{"default", "default"},
		{"_", "_"},
		{"true", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			x, err := parseExpr(tt.src, ir.Pos{}, testEnv{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ir.String(x))
		})
	}
}

func TestParseExprErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a +", "3:13: expected operand, found end of input"},
		{"a + #", "3:14: unexpected character '#'"},
		{"1x", "3:10: invalid integer 1x"},
		{"0w1", "3:10: invalid width in 0w1"},
		{"h[8:9]", "3:16: slice bounds must be constants with hi >= lo"},
		{"f(a", "3:13: expected ), found end of input"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := parseExpr(tt.src, ir.Pos{Line: 3, Col: 10}, testEnv{})
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 3, se.Pos.Line)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestParseSimpleStmt(t *testing.T) {
	tests := []struct {
		src  string
		want string
		typ  ir.Stmt
	}{
		{"x = 1;", "x = 1;", &ir.Assign{}},
		{"h.setValid()", "h.setValid();", &ir.CallStmt{}},
		{"exit", "exit;", &ir.Exit{}},
		{"return", "return;", &ir.Return{}},
		{"return x + 1", "return x + 1;", &ir.Return{}},
		{"  ", ";", &ir.Empty{}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			s, err := parseSimpleStmt(tt.src, ir.Pos{}, testEnv{})
			require.NoError(t, err)
			assert.IsType(t, tt.typ, s)
			assert.Equal(t, tt.want, ir.String(s))
		})
	}

	_, err := parseSimpleStmt("x + 1", ir.Pos{Line: 1, Col: 1}, testEnv{})
	assert.EqualError(t, err, "1:6: expression x + 1 is not a statement")
}

func TestParseParam(t *testing.T) {
	env := testEnv{"h_t": hType}
	tests := []struct {
		src  string
		dir  ir.Direction
		typ  string
		name string
	}{
		{"in bit<8> x", ir.DirIn, "bit<8>", "x"},
		{"out h_t hdr", ir.DirOut, "h_t", "hdr"},
		{"inout h_t[2] s", ir.DirInOut, "h_t[2]", "s"},
		{"bool b", ir.DirNone, "bool", "b"},
		{"h_t h", ir.DirNone, "h_t", "h"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := parseParam(tt.src, ir.Pos{}, env)
			require.NoError(t, err)
			assert.Equal(t, tt.dir, p.Dir)
			assert.Equal(t, tt.typ, p.Type.String())
			assert.Equal(t, tt.name, p.Name)
		})
	}

	p, err := parseParam("out _ hdr", ir.Pos{}, env)
	require.NoError(t, err)
	assert.Nil(t, p.Type, "an untyped extern parameter")
}

const document = `program: demo
types:
  - header: eth_t
    fields: {dst: bit<48>, type: bit<16>}
  - struct: headers_t
    fields: {eth: eth_t}
externs:
  - extern: packet_in
    methods:
      - {name: extract, params: ["out _ hdr"]}
decls:
  - control: ingress
    params: ["inout headers_t hdr"]
    locals:
      - {var: tmp, type: bit<16>}
    apply:
      - tmp = hdr.eth.type
      - if: tmp == 0x800
        then: [hdr.eth.setInvalid()]
`

func TestDecode(t *testing.T) {
	prog, info, err := Decode("demo.yaml", []byte(document))
	require.NoError(t, err)

	assert.Equal(t, "demo", prog.Name)
	require.Len(t, prog.Types, 2)
	hdrs := prog.Types[1].Type.(*ir.StructType)
	assert.Same(t, prog.Types[0].Type, hdrs.Fields[0].Type, "types refer to each other by name")

	ext := prog.Lookup("packet_in").(*ir.Extern)
	require.Len(t, ext.Methods, 1)
	assert.Equal(t, ir.DirOut, ext.Methods[0].Params[0].Dir)

	ctl := prog.Lookup("ingress").(*ir.Control)
	assert.Same(t, hdrs, ctl.Params[0].Type)
	assert.Equal(t, ir.Pos{File: "demo.yaml", Line: 12, Col: 5}, ctl.Pos())

	require.Len(t, ctl.Body.Stmts, 2)
	assign := ctl.Body.Stmts[0].(*ir.Assign)
	assert.Equal(t, ir.Pos{File: "demo.yaml", Line: 17, Col: 9}, assign.Pos())
	assert.Equal(t, "tmp = hdr.eth.type;", ir.String(assign))
	assert.Same(t, ctl.Locals[0], info.Declaration(assign.LHS.(*ir.PathExpr)))
	assert.Equal(t, ir.Bits(16), info.TypeOf(assign.RHS))

	ifs := ctl.Body.Stmts[1].(*ir.If)
	then := ifs.Then.(*ir.Block)
	assert.IsType(t, &ir.CallStmt{}, then.Stmts[0])
	assert.Nil(t, ifs.Else)
}

func TestDecodeDefaults(t *testing.T) {
	prog, _, err := Decode("anon.yaml", []byte(`decls: []`))
	require.NoError(t, err)
	assert.Equal(t, "anon.yaml", prog.Name)
	assert.Empty(t, prog.Decls)
}

func TestDecodeParser(t *testing.T) {
	prog, info, err := Decode("p.yaml", []byte(`
decls:
  - parser: p
    params: ["in bit<8> k"]
    states:
      - state: start
        transition:
          select: [k]
          cases: {1: a, default: accept}
      - state: a
        body: ["", exit]
`))
	require.NoError(t, err)
	p := prog.Lookup("p").(*ir.Parser)

	require.Len(t, p.States, 4, "accept and reject are added")
	sel := p.State("start").Next.(*ir.SelectExpr)
	require.Len(t, sel.Cases, 2)
	assert.Equal(t, "1", ir.String(sel.Cases[0].Keyset))
	assert.IsType(t, &ir.DefaultExpr{}, sel.Cases[1].Keyset)
	assert.Same(t, p.State("a"), info.Declaration(sel.Cases[0].State))

	a := p.State("a")
	assert.IsType(t, &ir.Empty{}, a.Body[0])
	assert.Nil(t, a.Next)
	assert.Equal(t, []*ir.ParserState{p.State("reject")}, ir.Successors(p, a, info))
}

func TestDecodeTableAndSwitch(t *testing.T) {
	prog, _, err := Decode("t.yaml", []byte(`
decls:
  - control: c
    params: ["inout bit<8> x"]
    locals:
      - action: set
        params: ["bit<8> v"]
        body: [x = v]
      - action: nop
      - table: t
        keys: [x]
        actions: [set, nop]
        default: set(3)
    apply:
      - switch: t.apply().action_run
        cases:
          set: null
          nop: [x = 0]
`))
	require.NoError(t, err)
	ctl := prog.Lookup("c").(*ir.Control)

	tbl := ctl.Locals[2].(*ir.Table)
	require.Len(t, tbl.Actions, 2)
	assert.Empty(t, tbl.Actions[0].Args)
	assert.Equal(t, "set(3)", ir.String(tbl.Default))

	sw := ctl.Body.Stmts[0].(*ir.Switch)
	require.Len(t, sw.Cases, 2)
	assert.Nil(t, sw.Cases[0].Body, "a null case falls through")
	assert.Len(t, sw.Cases[1].Body.Stmts, 1)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		want   string
		syntax bool
	}{
		{name: "yaml", src: "decls: [", want: "x.yaml: syntax error", syntax: true},
		{name: "expression", src: "decls: [{control: c, apply: ['x = ']}]", want: "expected operand", syntax: true},
		{name: "unknown type", src: "types: [{struct: s, fields: {a: foo}}]", want: "unknown type foo", syntax: true},
		{name: "redeclared type", src: "types: [{struct: s}, {header: s}]", want: "type s redeclared", syntax: true},
		{name: "union field", src: "types: [{union: u, fields: {a: bit<8>}}]", want: "union u: field a is not a header", syntax: true},
		{name: "unknown declaration", src: "decls: [{bogus: x}]", want: "expected one of", syntax: true},
		{name: "untyped variable", src: "decls: [{var: x}]", want: "variable x needs a type", syntax: true},
		{name: "if without then", src: "decls: [{action: a, body: [{if: 'true'}]}]", want: "if without then", syntax: true},
		{name: "state without name", src: "decls: [{parser: p, states: [{body: []}]}]", want: "state without a name", syntax: true},
		{name: "duplicate key", src: "decls: [{action: a, action: b}]", want: "duplicate key action", syntax: true},
		{name: "undefined name", src: "decls: [{action: a, body: [y = 1]}]", want: "undefined: y"},
		{name: "undefined state", src: "decls: [{parser: p, states: [{state: start, transition: nowhere}]}]", want: "undefined state nowhere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode("x.yaml", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, tt.syntax, errors.Is(err, ErrSyntax))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))

	prog, _, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, prog.Lookup("ingress"))

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
