package simplify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p4lang/p4c-sub009/pkg/deadwrite"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/loader"
)

const program = `
types:
  - header: h_t
    fields: {f: bit<8>}
externs:
  - function: use
    params: ["in bit<8> v"]
decls:
  - action: bump
    params: ["inout bit<8> v"]
    body: [v = v + 1]
  - control: copy
    locals:
      - {var: a, type: bit<8>}
      - {var: b, type: bit<8>}
    apply:
      - a = 1
      - b = a
  - control: uninit
    locals:
      - {var: x, type: bit<8>}
    apply: [use(x)]
  - parser: p
    params: ["inout h_t h"]
    states:
      - state: start
        body: [h.setValid()]
        transition: accept
`

func load(t *testing.T, src string) (*ir.Program, *ir.Info) {
	t.Helper()
	prog, info, err := loader.Decode("test.yaml", []byte(src))
	require.NoError(t, err)
	return prog, info
}

func body(prog *ir.Program, name string) string {
	return ir.String(prog.Lookup(name).(*ir.Control).Body)
}

func TestUnits(t *testing.T) {
	prog, _ := load(t, program)
	var names []string
	for _, u := range Units(prog) {
		names = append(names, u.DeclName())
	}
	assert.Equal(t, []string{"bump", "copy", "uninit", "p"}, names)
}

func TestRunCheckOnly(t *testing.T) {
	prog, info := load(t, program)
	res, err := Run(context.Background(), prog, info, Options{Parallelism: 4})
	require.NoError(t, err)

	assert.Same(t, prog, res.Program)
	assert.Equal(t, 1, res.Passes)
	assert.Zero(t, res.Stats)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.CategoryUninitializedUse, res.Diagnostics[0].Category)
	assert.Equal(t, diag.SeverityWarning, res.Diagnostics[0].Severity)

	require.Len(t, res.Units, 4)
	kinds := make(map[string]string)
	for _, u := range res.Units {
		kinds[u.Name] = u.Kind
		assert.Positive(t, u.Points, u.Name)
	}
	assert.Equal(t, map[string]string{"bump": "action", "copy": "control", "uninit": "control", "p": "parser"}, kinds)
	assert.Equal(t, "p", res.Units[3].Name)
	assert.Equal(t, 1, res.Units[3].StateVisits[ir.StateStart])
	assert.Nil(t, res.Units[1].StateVisits)
}

func TestRunEliminateRepeats(t *testing.T) {
	prog, info := load(t, program)
	res, err := Run(context.Background(), prog, info, Options{Eliminate: true, Parallelism: 2})
	require.NoError(t, err)

	assert.Equal(t, "{ }", body(res.Program, "copy"))
	assert.Equal(t, "{ a = 1; b = a; }", body(prog, "copy"), "the input is unchanged")
	assert.Equal(t, deadwrite.Stats{Removed: 2}, res.Stats)
	assert.Equal(t, 3, res.Passes)
	assert.Len(t, res.Diagnostics, 1, "diagnostics come from the first pass only")
}

func TestRunMaxPasses(t *testing.T) {
	prog, info := load(t, program)
	res, err := Run(context.Background(), prog, info, Options{Eliminate: true, MaxPasses: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, "{ a = 1; }", body(res.Program, "copy"))
	assert.Equal(t, deadwrite.Stats{Removed: 1}, res.Stats)
}

func TestRunFilters(t *testing.T) {
	prog, info := load(t, program)

	res, err := Run(context.Background(), prog, info, Options{WarningsAsErrors: true})
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.True(t, diag.HasErrors(res.Diagnostics))

	res, err = Run(context.Background(), prog, info, Options{
		Disabled: []diag.Category{diag.CategoryUninitializedUse},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}

func TestRunDefect(t *testing.T) {
	prog, info := load(t, `
externs:
  - function: rnd
    result: bit<8>
decls:
  - control: c
    locals:
      - {var: x, type: bit<8>}
    apply: [x = rnd() + rnd()]
`)
	_, err := Run(context.Background(), prog, info, Options{Eliminate: true})
	require.Error(t, err)
	assert.True(t, diag.IsDefect(err))
	assert.Contains(t, err.Error(), "eliminating dead writes")
}

func TestRunCanceled(t *testing.T) {
	prog, info := load(t, program)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, prog, info, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
