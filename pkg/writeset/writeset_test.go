package writeset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/loader"
	"github.com/p4lang/p4c-sub009/pkg/storage"
)

func analyze(t *testing.T, src, unit string) (*ir.Program, *ir.Info, *defs.All, *Result) {
	t.Helper()
	prog, info, err := loader.Decode("test.yaml", []byte(src))
	require.NoError(t, err)
	u := prog.Lookup(unit)
	require.NotNil(t, u, "unit %s", unit)

	all := defs.NewAll(storage.NewMap())
	res, err := Analyze(u, info, all, Options{})
	require.NoError(t, err)
	return prog, info, all, res
}

func locs(all *defs.All, d ir.Decl) *storage.Set {
	return storage.NewSet(all.Storage.Get(d))
}

func pt(nodes ...ir.Node) defs.ProgramPoint {
	p := defs.BeforeStart
	for _, n := range nodes {
		p = defs.At(p, n)
	}
	return p
}

func TestAnalyzeStraightLineAndIf(t *testing.T) {
	prog, _, all, res := analyze(t, `
decls:
  - control: c
    params: ["inout bit<8> a", "out bit<8> b"]
    apply:
      - b = a
      - if: a == 0
        then: [b = 1]
`, "c")
	ctl := prog.Lookup("c").(*ir.Control)
	a, b := ctl.Params[0], ctl.Params[1]
	first := ctl.Body.Stmts[0]
	inner := ctl.Body.Stmts[1].(*ir.If).Then.(*ir.Block).Stmts[0]

	entry := all.Get(pt(ctl))
	assert.True(t, entry.Points(locs(all, a)).Equal(defs.NewPoints(pt(ctl))), "in parameters are defined at the entry")
	assert.True(t, entry.Points(locs(all, b)).Equal(defs.NewPoints(defs.BeforeStart)), "out parameters start uninitialized")

	assert.True(t, all.Get(pt(first)).Points(locs(all, b)).Equal(defs.NewPoints(pt(first))))
	assert.True(t, res.Final.Points(locs(all, b)).Equal(defs.NewPoints(pt(first), pt(inner))))
	assert.Same(t, res.Final, all.Get(pt(ctl).After()))
	assert.Nil(t, res.StateVisits)
}

func TestAnalyzeExit(t *testing.T) {
	prog, _, all, res := analyze(t, `
decls:
  - control: c
    params: ["inout bit<8> x", "in bool cond"]
    apply:
      - if: cond
        then: [x = 1, exit]
      - x = 2
`, "c")
	ctl := prog.Lookup("c").(*ir.Control)
	then := ctl.Body.Stmts[0].(*ir.If).Then.(*ir.Block)
	last := ctl.Body.Stmts[1]

	assert.True(t, all.Get(pt(then.Stmts[1])).IsUnreachable())
	assert.True(t, res.Final.Points(locs(all, ctl.Params[0])).Equal(defs.NewPoints(pt(then.Stmts[0]), pt(last))),
		"the definitions at exit reach the end of the control")
}

func TestAnalyzeBlockScope(t *testing.T) {
	prog, _, all, res := analyze(t, `
decls:
  - control: c
    params: ["inout bit<8> a"]
    apply:
      - block:
          - {var: tmp, type: bit<8>, init: a}
          - a = tmp
`, "c")
	ctl := prog.Lookup("c").(*ir.Control)
	blk := ctl.Body.Stmts[0].(*ir.Block)
	tmp := blk.Stmts[0].(*ir.VarDecl)
	leaf := all.Storage.Get(tmp).(*storage.Base)

	assert.True(t, all.Get(pt(blk.Stmts[1])).Bound(leaf))
	assert.True(t, all.Get(pt(tmp)).Points(locs(all, tmp)).Equal(defs.NewPoints(pt(tmp))))
	assert.False(t, res.Final.Bound(leaf), "block locals go out of scope")
}

func TestAnalyzeCallOutArgument(t *testing.T) {
	prog, _, all, res := analyze(t, `
decls:
  - action: set
    params: ["out bit<8> o"]
    body: [o = 5]
  - control: c
    params: ["out bit<8> b"]
    apply: [set(b)]
`, "c")
	ctl := prog.Lookup("c").(*ir.Control)
	act := prog.Lookup("set").(*ir.Action)
	stmt := ctl.Body.Stmts[0].(*ir.CallStmt)
	assign := act.Body.Stmts[0]

	callee, ok := all.Lookup(pt(stmt.Call, assign))
	require.True(t, ok, "the callee body is analyzed in the context of the call")
	assert.True(t, callee.Points(locs(all, act.Params[0])).Equal(defs.NewPoints(pt(stmt.Call, assign))))
	assert.True(t, all.Get(pt(stmt.Call, act)).Points(locs(all, act.Params[0])).ContainsBeforeStart())

	assert.True(t, res.Final.Points(locs(all, ctl.Params[0])).Equal(defs.NewPoints(pt(stmt))))
	assert.False(t, res.Final.Bound(all.Storage.Get(act.Params[0]).(*storage.Base)), "callee parameters go out of scope")
}

const tableProgram = `
decls:
  - control: c
    params: ["inout bit<8> x", "in bit<8> k"]
    locals:
      - action: a1
        body: [x = 1]
      - action: a2
        body: [x = 2]
      - action: a3
        body: [x = 3]
      - table: t
        keys: [k]
        actions: [a1, a2]
        default: a2
      - table: u
        keys: [k]
        actions: [a1]
        default: a3
    apply:
      - t.apply()
`

func TestAnalyzeTable(t *testing.T) {
	prog, info, all, res := analyze(t, tableProgram, "c")
	ctl := prog.Lookup("c").(*ir.Control)
	tbl := ctl.Locals[3].(*ir.Table)
	call := ctl.Body.Stmts[0].(*ir.CallStmt).Call
	a1 := ctl.Locals[0].(*ir.Action)
	a2 := ctl.Locals[1].(*ir.Action)

	require.Len(t, Alternatives(tbl, info), 2, "a listed default is not run twice")
	_, ok := all.Lookup(pt(call, tbl))
	assert.True(t, ok)

	want := defs.NewPoints(
		pt(call, tbl.Actions[0], a1.Body.Stmts[0]),
		pt(call, tbl.Actions[1], a2.Body.Stmts[0]),
	)
	got := res.Final.Points(locs(all, ctl.Params[0]))
	assert.True(t, got.Equal(want), "got %s, want %s", got, want)
}

func TestAlternatives(t *testing.T) {
	prog, info, _, _ := analyze(t, tableProgram, "c")
	ctl := prog.Lookup("c").(*ir.Control)
	u := ctl.Locals[4].(*ir.Table)

	alts := Alternatives(u, info)
	require.Len(t, alts, 2)
	assert.Same(t, u.Default, alts[1])
	assert.Len(t, u.Actions, 1, "the action list is not modified")
}

func TestExhaustive(t *testing.T) {
	tests := []struct {
		name  string
		cases string
		want  bool
	}{
		{name: "all actions", cases: "{a1: [x = 1], a2: [x = 2]}", want: true},
		{name: "missing action", cases: "{a1: [x = 1]}", want: false},
		{name: "default label", cases: "{a1: [x = 1], default: [x = 3]}", want: true},
		{name: "fallthrough", cases: "{a1: null, a2: [x = 3]}", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, info, _, _ := analyze(t, `
decls:
  - control: c
    params: ["inout bit<8> x"]
    locals:
      - action: a1
      - action: a2
      - table: t
        actions: [a1, a2]
    apply:
      - switch: t.apply().action_run
        cases: `+tt.cases+`
`, "c")
			ctl := prog.Lookup("c").(*ir.Control)
			sw := ctl.Body.Stmts[0].(*ir.Switch)
			assert.Equal(t, tt.want, Exhaustive(sw, info))
		})
	}
}

func TestAnalyzeParserFixpoint(t *testing.T) {
	prog, _, all, res := analyze(t, `
decls:
  - parser: p
    params: ["in bool more", "out bit<8> x"]
    states:
      - state: start
        transition: a
      - state: a
        body: [x = 1]
        transition: b
      - state: b
        transition: c
      - state: c
        transition:
          select: [more]
          cases: {true: a, default: accept}
`, "p")
	p := prog.Lookup("p").(*ir.Parser)
	a := p.State("a")
	write := a.Body[0]

	assert.Equal(t, map[string]int{"start": 1, "a": 2, "b": 1, "c": 1, "accept": 1}, res.StateVisits)

	total := 0
	for _, n := range res.StateVisits {
		total += n
	}
	assert.LessOrEqual(t, total-len(res.StateVisits), len(p.States))

	x := locs(all, p.Params[1])
	assert.True(t, all.Get(pt(a)).Points(x).Equal(defs.NewPoints(defs.BeforeStart, pt(write))),
		"the back edge joins into the state entry")
	assert.True(t, res.Final.Points(x).Equal(defs.NewPoints(pt(write))))
	_, ok := all.Lookup(pt(p.State("reject")))
	assert.False(t, ok, "unreachable states are not analyzed")
}

func TestAnalyzeParserWithoutStart(t *testing.T) {
	_, _, _, res := analyze(t, `
decls:
  - parser: p
    params: ["out bit<8> x"]
    states:
      - state: other
        body: [x = 1]
`, "p")
	assert.Empty(t, res.StateVisits)
}

func TestAnalyzeNotAUnit(t *testing.T) {
	prog, info, err := loader.Decode("test.yaml", []byte(`
externs:
  - function: use
    params: ["in bit<8> v"]
`))
	require.NoError(t, err)
	_, err = Analyze(prog.Lookup("use"), info, defs.NewAll(storage.NewMap()), Options{})
	require.Error(t, err)
	assert.True(t, diag.IsDefect(err))
}
