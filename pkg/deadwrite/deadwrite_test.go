package deadwrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/defuse"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/loader"
	"github.com/p4lang/p4c-sub009/pkg/storage"
	"github.com/p4lang/p4c-sub009/pkg/writeset"
)

func load(t *testing.T, src string) (*ir.Program, *ir.Info) {
	t.Helper()
	prog, info, err := loader.Decode("test.yaml", []byte(src))
	require.NoError(t, err)
	return prog, info
}

func collectUses(t *testing.T, prog *ir.Program, info *ir.Info) *defuse.Uses {
	t.Helper()
	uses := defuse.NewUses()
	for _, d := range prog.Decls {
		switch d.(type) {
		case *ir.Control, *ir.Parser, *ir.Action, *ir.Function:
		default:
			continue
		}
		all := defs.NewAll(storage.NewMap())
		_, err := writeset.Analyze(d, info, all, writeset.Options{})
		require.NoError(t, err)
		got, err := defuse.Check(d, info, all, diag.Discard, defuse.Options{})
		require.NoError(t, err)
		uses.Merge(got)
	}
	return uses
}

func eliminate(t *testing.T, prog *ir.Program, info *ir.Info) *Result {
	t.Helper()
	res, err := Eliminate(prog, info, collectUses(t, prog, info))
	require.NoError(t, err)
	return res
}

func body(prog *ir.Program, name string) string {
	return ir.String(prog.Lookup(name).(*ir.Control).Body)
}

func TestEliminate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		st   Stats
	}{
		{
			name: "unread copy",
			src: `
decls:
  - control: c
    params: ["out bit<8> r"]
    locals:
      - {var: a, type: bit<8>}
      - {var: b, type: bit<8>}
    apply:
      - a = 1
      - b = a
      - r = a
`,
			want: "{ a = 1; r = a; }",
			st:   Stats{Removed: 1},
		},
		{
			name: "overwritten before any read",
			src: `
decls:
  - control: c
    params: ["inout bit<8> x"]
    apply:
      - x = 1
      - x = 2
`,
			want: "{ x = 2; }",
			st:   Stats{Removed: 1},
		},
		{
			name: "read on one path",
			src: `
decls:
  - control: c
    params: ["in bool cond", "out bit<8> r"]
    locals:
      - {var: a, type: bit<8>}
    apply:
      - a = 1
      - if: cond
        then: [r = a]
        else: [r = 0]
`,
			want: "{ a = 1; if (cond) { r = a; } else { r = 0; } }",
		},
		{
			name: "side effect is kept",
			src: `
externs:
  - function: rnd
    result: bit<8>
decls:
  - control: c
    locals:
      - {var: x, type: bit<8>}
    apply:
      - x = rnd() + 1
`,
			want: "{ rnd(); }",
			st:   Stats{Replaced: 1},
		},
		{
			name: "unused validity operations",
			src: `
types:
  - header: h_t
    fields: {f: bit<8>}
decls:
  - control: c
    locals:
      - {var: h, type: h_t}
    apply:
      - h.setValid()
      - h.isValid()
      - h.setInvalid()
`,
			want: "{ h.setValid(); }",
			st:   Stats{Removed: 2},
		},
		{
			name: "removed branch becomes empty",
			src: `
decls:
  - control: c
    params: ["in bool cond"]
    locals:
      - {var: t, type: bit<8>}
    apply:
      - if: cond
        then: t = 1
`,
			want: "{ if (cond) ; }",
			st:   Stats{Removed: 1},
		},
		{
			name: "unreachable code is kept",
			src: `
decls:
  - control: c
    params: ["inout bit<8> x"]
    apply: [x = 1, exit, x = 2]
`,
			want: "{ x = 1; exit; x = 2; }",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, info := load(t, tt.src)
			res := eliminate(t, prog, info)
			assert.Equal(t, tt.want, body(res.Program, "c"))
			assert.Equal(t, tt.st, res.Stats)
		})
	}
}

func TestEliminateKeepsInput(t *testing.T) {
	prog, info := load(t, `
decls:
  - control: c
    params: ["inout bit<8> x"]
    apply:
      - x = 1
      - x = 2
`)
	before := body(prog, "c")
	res := eliminate(t, prog, info)

	assert.Equal(t, before, body(prog, "c"))
	in := prog.Lookup("c").(*ir.Control).Body.Stmts
	out := res.Program.Lookup("c").(*ir.Control).Body.Stmts
	require.Len(t, out, 1)
	assert.Equal(t, in[1].ID(), out[0].ID(), "kept statements keep their IDs")
}

func TestEliminateReplacementIsNumbered(t *testing.T) {
	prog, info := load(t, `
externs:
  - function: rnd
    result: bit<8>
decls:
  - control: c
    locals:
      - {var: x, type: bit<8>}
    apply:
      - x = rnd()
`)
	old := prog.Lookup("c").(*ir.Control).Body.Stmts[0].(*ir.Assign)
	res := eliminate(t, prog, info)

	cs := res.Program.Lookup("c").(*ir.Control).Body.Stmts[0].(*ir.CallStmt)
	assert.Same(t, old.RHS, cs.Call)
	assert.NotEqual(t, ir.NoID, cs.ID())
	assert.NotEqual(t, old.ID(), cs.ID())
	assert.Equal(t, old.Pos(), cs.Pos())
}

func TestEliminateRepeated(t *testing.T) {
	prog, info := load(t, `
decls:
  - control: c
    locals:
      - {var: a, type: bit<8>}
      - {var: b, type: bit<8>}
    apply:
      - a = 1
      - b = a
`)
	first := eliminate(t, prog, info)
	assert.Equal(t, "{ a = 1; }", body(first.Program, "c"), "a was read when the uses were collected")

	second := eliminate(t, first.Program, first.Info)
	assert.Equal(t, "{ }", body(second.Program, "c"))
	assert.Equal(t, Stats{Removed: 1}, second.Stats)

	third := eliminate(t, second.Program, second.Info)
	assert.Zero(t, third.Stats.Changes())
}

func TestEliminateRebindsDeclarations(t *testing.T) {
	prog, info := load(t, `
decls:
  - action: a
    params: ["inout bit<8> v"]
    body: [v = v + 1]
  - control: c
    params: ["inout bit<8> x"]
    apply: [a(x)]
`)
	res := eliminate(t, prog, info)
	call := res.Program.Lookup("c").(*ir.Control).Body.Stmts[0].(*ir.CallStmt).Call
	fun := call.Fun.(*ir.PathExpr)

	assert.Same(t, res.Program.Lookup("a"), res.Info.Declaration(fun))
	assert.Same(t, prog.Lookup("a"), info.Declaration(fun), "the input resolution is unchanged")
	assert.NotSame(t, prog.Lookup("a"), res.Program.Lookup("a"))
}

func TestEliminateTooManySideEffects(t *testing.T) {
	prog, info := load(t, `
externs:
  - function: rnd
    result: bit<8>
decls:
  - control: c
    locals:
      - {var: x, type: bit<8>}
    apply:
      - x = rnd() + rnd()
`)
	_, err := Eliminate(prog, info, collectUses(t, prog, info))
	require.Error(t, err)
	assert.True(t, diag.IsDefect(err))
}

func TestStats(t *testing.T) {
	s := Stats{Removed: 1}
	s.Add(Stats{Removed: 2, Replaced: 1})
	assert.Equal(t, Stats{Removed: 3, Replaced: 1}, s)
	assert.Equal(t, 4, s.Changes())
}
