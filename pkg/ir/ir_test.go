package ir_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/loader"
)

const callProgram = `
types:
  - header: h_t
    fields: {f: bit<8>}
externs:
  - extern: packet_in
    methods:
      - {name: extract, params: ["out h_t hdr"]}
  - extern: hasher
    methods:
      - {name: get, result: bit<8>, abstract: true}
      - {name: reset}
  - function: f
    params: ["in bit<8> v"]
decls:
  - action: a
    params: ["inout bit<8> v"]
  - function: fn
    result: bit<8>
    params: ["in bit<8> v"]
    body: [return v]
  - control: sub
    params: ["inout bit<8> v"]
  - control: c
    params: ["packet_in pkt", "inout h_t h", "inout h_t[2] s", "inout bit<8> x"]
    locals:
      - action: nop
      - table: t
        actions: [nop]
      - {instance: inst, type: sub}
      - instance: hs
        type: hasher
        virtual:
          - function: get
            result: bit<8>
            body: [return 1]
    apply:
      - a(x)
      - x = fn(x)
      - f(x)
      - t.apply()
      - inst.apply(x)
      - pkt.extract(h)
      - h.setValid()
      - if: h.isValid()
        then: [s.push_front(1)]
      - x = hs.get()
      - hs.reset()
`

func calls(t *testing.T, n ir.Node, info *ir.Info) map[string]*ir.CallTarget {
	t.Helper()
	out := make(map[string]*ir.CallTarget)
	ir.Inspect(n, func(n ir.Node) bool {
		if c, ok := n.(*ir.Call); ok {
			target, err := ir.ResolveCall(c, info)
			require.NoError(t, err, ir.String(c))
			out[ir.String(c)] = target
		}
		return true
	})
	return out
}

func TestResolveCall(t *testing.T) {
	prog, info, err := loader.Decode("calls.yaml", []byte(callProgram))
	require.NoError(t, err)
	ctl := prog.Lookup("c").(*ir.Control)
	got := calls(t, ctl.Body, info)

	tests := []struct {
		call     string
		kind     ir.CallKind
		callees  []ir.Decl
		opaque   bool
		pure     bool
		result   ir.Type
		nparams  int
		builtin  string
		instance bool
	}{
		{call: "a(x)", kind: ir.CallAction, callees: []ir.Decl{prog.Lookup("a")}, result: ir.Void, nparams: 1},
		{call: "fn(x)", kind: ir.CallFunction, callees: []ir.Decl{prog.Lookup("fn")}, result: ir.Bits(8), nparams: 1},
		{call: "f(x)", kind: ir.CallExternFunction, opaque: true, result: ir.Void, nparams: 1},
		{call: "t.apply()", kind: ir.CallTableApply, callees: []ir.Decl{ctl.Locals[1]},
			result: &ir.TableResultType{Table: ctl.Locals[1].(*ir.Table)}},
		{call: "inst.apply(x)", kind: ir.CallApply, opaque: true, result: ir.Void, nparams: 1, instance: true},
		{call: "pkt.extract(h)", kind: ir.CallExternMethod, opaque: true, result: ir.Void, nparams: 1},
		{call: "h.setValid()", kind: ir.CallBuiltin, pure: true, result: ir.Void, builtin: ir.MethodSetValid},
		{call: "h.isValid()", kind: ir.CallBuiltin, pure: true, result: ir.Bool, builtin: ir.MethodIsValid},
		{call: "s.push_front(1)", kind: ir.CallBuiltin, pure: true, result: ir.Void, nparams: 1, builtin: ir.MethodPushFront},
		{call: "hs.get()", kind: ir.CallExternMethod, opaque: true, result: ir.Bits(8),
			callees: []ir.Decl{ctl.Locals[3].(*ir.Instance).Virtual[0]}, instance: true},
		{call: "hs.reset()", kind: ir.CallExternMethod, opaque: true, result: ir.Void, instance: true},
	}
	require.Len(t, got, len(tests))
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			target := got[tt.call]
			require.NotNil(t, target)
			assert.Equal(t, tt.kind, target.Kind)
			assert.Equal(t, tt.callees, target.Callees())
			assert.Equal(t, tt.opaque, target.Opaque())
			assert.Equal(t, tt.pure, target.SideEffectFree())
			assert.Equal(t, tt.result, target.Result)
			assert.Len(t, target.Params, tt.nparams)
			assert.Len(t, target.Args(), tt.nparams)
			assert.Equal(t, tt.builtin, target.Builtin)
			assert.Equal(t, tt.instance, target.Instance != nil)
		})
	}

	assert.Equal(t, ctl.Params[0].Name, ir.String(got["pkt.extract(h)"].Base))
	assert.Same(t, prog.Lookup("sub").(*ir.Control).Params[0], got["inst.apply(x)"].Params[0])
	assert.Equal(t, "count", got["s.push_front(1)"].Params[0].Name)
}

func TestResolveCallErrors(t *testing.T) {
	_, _, err := loader.Decode("bad.yaml", []byte(`
types:
  - header: h_t
    fields: {f: bit<8>}
decls:
  - control: c
    params: ["inout h_t h", "inout bit<8> x"]
    apply: [h.f(), x.setValid()]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot resolve call h.f()")
	assert.Contains(t, err.Error(), "x has no member setValid")
}

func TestCallKindString(t *testing.T) {
	assert.Equal(t, "table apply", ir.CallTableApply.String())
	assert.Equal(t, "extern function", ir.CallExternFunction.String())
	assert.Equal(t, "CallKind(42)", ir.CallKind(42).String())
}

func TestResolveMembers(t *testing.T) {
	prog, info, err := loader.Decode("members.yaml", []byte(`
types:
  - header: h_t
    fields: {f: bit<8>}
  - header: g_t
    fields: {g: bit<4>}
  - union: u_t
    fields: {h: h_t, g: g_t}
  - enum: color_t
    members: [red, green]
externs:
  - function: use
decls:
  - control: c
    params: ["inout h_t[3] s", "inout u_t u", "in bit<16> w", "in color_t k"]
    locals:
      - action: nop
      - table: t
        actions: [nop]
    apply:
      - "use(s.next.f, s.last, s.lastIndex, s.size, u.g.g, w[7:0], w ++ 8w1, t.apply().hit, color_t.red, k == color_t.green, s[0])"
`))
	require.NoError(t, err)
	ctl := prog.Lookup("c").(*ir.Control)
	call := ctl.Body.Stmts[0].(*ir.CallStmt).Call

	var got []string
	for _, a := range call.Args {
		got = append(got, info.TypeOf(a).String())
	}
	assert.Equal(t, []string{
		"bit<8>", "h_t", "bit<32>", "bit<32>", "bit<4>", "bit<8>", "bit<24>", "bool", "color_t", "bool", "h_t",
	}, got)
}

const printProgram = `
types:
  - header: h_t
    fields: {f: bit<8>}
  - enum: color_t
    members: [red, green]
  - typedef: byte_t
    type: bit<8>
externs:
  - function: use
    params: ["in bit<8> v"]
decls:
  - action: a
    params: ["inout h_t h", "bit<8> v"]
    body:
      - h.f = v
      - if: h.isValid()
        then: [use(h.f)]
        else: h.setInvalid()
  - control: c
    params: ["inout h_t h"]
    locals:
      - {var: tmp, type: bit<8>, init: 8w1}
      - table: t
        keys: [h.f]
        actions: [a]
        default: a
    apply:
      - switch: t.apply().action_run
        cases: {a: [exit], default: null}
  - parser: p
    params: ["inout h_t h"]
    states:
      - state: start
        body: [h.setValid()]
        transition:
          select: [h.f]
          cases: {1: accept, default: reject}
`

const printed = `header h_t {
    bit<8> f;
}
enum color_t { red, green }
typedef bit<8> byte_t;
extern void use(in bit<8> v);
action a(inout h_t h, bit<8> v) {
    h.f = v;
    if (h.isValid()) {
        use(h.f);
    } else h.setInvalid();
}
control c(inout h_t h) {
    bit<8> tmp = 8w1;
    table t {
        key = { h.f }
        actions = { a(); }
        default_action = a();
    }
    apply {
        switch (t.apply().action_run) {
            a: {
                exit;
            }
            default:
        }
    }
}
parser p(inout h_t h) {
    state start {
        h.setValid();
        transition select (h.f) { 1: accept; default: reject; }
    }
}
`

func TestFprint(t *testing.T) {
	prog, _, err := loader.Decode("print.yaml", []byte(printProgram))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ir.Fprint(&buf, prog))
	assert.Equal(t, printed, buf.String())
}

func TestString(t *testing.T) {
	prog, _, err := loader.Decode("print.yaml", []byte(printProgram))
	require.NoError(t, err)
	a := prog.Lookup("a").(*ir.Action)

	assert.Equal(t, "if (h.isValid()) { use(h.f); } else h.setInvalid();", ir.String(a.Body.Stmts[1]))
	assert.Equal(t, "h.f", ir.String(a.Body.Stmts[0].(*ir.Assign).LHS))
}

func TestNumbering(t *testing.T) {
	prog, _, err := loader.Decode("print.yaml", []byte(printProgram))
	require.NoError(t, err)

	seen := make(map[ir.ID]bool)
	var maxID ir.ID
	for _, d := range prog.Decls {
		ir.Inspect(d, func(n ir.Node) bool {
			require.NotEqual(t, ir.NoID, n.ID(), "%T", n)
			require.False(t, seen[n.ID()], "duplicate ID %d", n.ID())
			seen[n.ID()] = true
			if n.ID() > maxID {
				maxID = n.ID()
			}
			return true
		})
	}

	p := prog.Lookup("p").(*ir.Parser)
	require.NotNil(t, p.State(ir.StateAccept))
	require.NotNil(t, p.State(ir.StateReject))

	e := &ir.Empty{}
	prog.Number(e)
	assert.Greater(t, e.ID(), maxID)
	id := e.ID()
	prog.Number(e)
	assert.Equal(t, id, e.ID(), "numbered nodes keep their ID")
}

func TestProcedureAndLocals(t *testing.T) {
	prog, _, err := loader.Decode("proc.yaml", []byte(`
decls:
  - function: f
    params: ["in bit<8> a"]
    result: bit<8>
    body:
      - {var: x, type: bit<8>, init: a}
      - block:
          - {var: y, type: bit<8>}
      - return x
  - control: c
`))
	require.NoError(t, err)
	f := prog.Lookup("f")

	params, body, ok := ir.Procedure(f)
	require.True(t, ok)
	assert.Len(t, params, 1)
	assert.Len(t, body.Stmts, 3)

	var names []string
	for _, v := range ir.LocalVars(body) {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"x", "y"}, names)

	_, _, ok = ir.Procedure(prog.Lookup("c"))
	assert.False(t, ok)
}

func TestRebind(t *testing.T) {
	prog, info, err := loader.Decode("calls.yaml", []byte(callProgram))
	require.NoError(t, err)
	ctl := prog.Lookup("c").(*ir.Control)
	call := ctl.Body.Stmts[0].(*ir.CallStmt).Call
	fun := call.Fun.(*ir.PathExpr)

	old := prog.Lookup("a").(*ir.Action)
	moved := *old
	rebound := info.Rebind(map[ir.Decl]ir.Decl{old: &moved})

	assert.Same(t, &moved, rebound.Declaration(fun))
	assert.Same(t, old, info.Declaration(fun))
	assert.Equal(t, info.TypeOf(call), rebound.TypeOf(call))
}
