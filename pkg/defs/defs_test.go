package defs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
)

func TestProgramPoint(t *testing.T) {
	assert.True(t, BeforeStart.IsBeforeStart())
	assert.Equal(t, 0, BeforeStart.Len())
	assert.Equal(t, ir.NoID, BeforeStart.Last())
	assert.False(t, BeforeStart.IsAfter())
	assert.Equal(t, "<BeforeStart>", BeforeStart.String())

	p := Point(3, 7)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []ir.ID{3, 7}, p.IDs())
	assert.Equal(t, ir.ID(7), p.Last())
	assert.Equal(t, "<3/7>", p.String())
	assert.Equal(t, p, Point(3).Push(7), "points are compared by value")

	after := p.After()
	assert.True(t, after.IsAfter())
	assert.Equal(t, ir.NoID, after.Last())
	assert.Equal(t, "<3/7/after>", after.String())
	assert.NotEqual(t, p, after)

	s := &ir.Empty{}
	ir.NewProgram("test", nil, []ir.Decl{&ir.Action{Name: "a", Body: &ir.Block{Stmts: []ir.Stmt{s}}}})
	assert.Equal(t, Point(3, s.ID()), At(Point(3), s))
}

func TestPoints(t *testing.T) {
	a := NewPoints(Point(1), Point(2))
	b := NewPoints(Point(2), BeforeStart)

	m := a.Merge(b)
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.ContainsBeforeStart())
	assert.False(t, a.ContainsBeforeStart(), "operands are not modified")
	assert.Same(t, a, a.Merge(NewPoints(Point(1))))
	assert.Same(t, m, NewPoints(Point(1)).Merge(m))

	assert.True(t, a.Equal(NewPoints(Point(2), Point(1))))
	assert.False(t, a.Equal(b))
	assert.Equal(t, []ProgramPoint{BeforeStart, Point(1), Point(2)}, m.Sorted())
	assert.Equal(t, []ir.ID{1, 2}, m.Lasts())
	assert.Equal(t, []ir.ID{1}, NewPoints(Point(1), Point(1).After()).Lasts())
	assert.Equal(t, "{<BeforeStart> <1> <2>}", m.String())
}

func leaves(t *testing.T) (x, y *storage.Set) {
	t.Helper()
	h := &ir.HeaderType{Name: "h_t", Fields: []ir.Field{{Name: "f", Type: ir.Bits(8)}}}
	return storage.NewSet(storage.Build(h, "x")), storage.NewSet(storage.Build(ir.Bits(8), "y"))
}

func TestDefinitionsWrites(t *testing.T) {
	x, y := leaves(t)
	d0 := New().Set(x.Union(y), NewPoints(BeforeStart))
	d1 := d0.Writes(Point(5), x.Field("f"))

	assert.True(t, d0.Points(x.Field("f")).ContainsBeforeStart(), "d0 is unchanged")
	assert.True(t, d1.Points(x.Field("f")).Equal(NewPoints(Point(5))))
	assert.True(t, d1.Points(x).Equal(NewPoints(Point(5), BeforeStart)), "x.$valid keeps its definition")
	assert.True(t, d1.Points(y).ContainsBeforeStart())
	assert.Equal(t, 3, d1.Len())

	d2 := d1.Remove(y)
	assert.Equal(t, 2, d2.Len())
	assert.Panics(t, func() { d2.Points(y) })
	assert.Same(t, d2, d2.Remove(storage.Empty))
}

func TestDefinitionsJoin(t *testing.T) {
	x, y := leaves(t)
	base := New().Set(x.Union(y), NewPoints(BeforeStart))
	a := base.Writes(Point(1), y)
	b := base.Writes(Point(2), y)

	tests := []struct {
		name string
		l, r *Definitions
		want *Definitions
	}{
		{
			name: "union of points",
			l:    a,
			r:    b,
			want: base.Set(y, NewPoints(Point(1), Point(2))),
		},
		{
			name: "unreachable left",
			l:    a.Unreachable(),
			r:    b,
			want: b,
		},
		{
			name: "unreachable right",
			l:    a,
			r:    b.Unreachable(),
			want: a,
		},
		{
			name: "both unreachable",
			l:    a.Unreachable(),
			r:    b.Unreachable(),
			want: base.Set(y, NewPoints(Point(1), Point(2))).Unreachable(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.l.Join(tt.r)
			assert.True(t, got.Equal(tt.want), "got\n%swant\n%s", got, tt.want)
			assert.True(t, got.Equal(tt.r.Join(tt.l)), "join is commutative")
			assert.True(t, got.Equal(got.Join(got)), "join is idempotent")
		})
	}
}

func TestDefinitionsReachability(t *testing.T) {
	d := New()
	assert.False(t, d.IsUnreachable())
	u := d.Unreachable()
	assert.True(t, u.IsUnreachable())
	assert.False(t, d.IsUnreachable())
	assert.Same(t, u, u.Unreachable())
	assert.False(t, d.Equal(u))
	assert.Contains(t, u.String(), "unreachable")
}

func TestAll(t *testing.T) {
	all := NewAll(storage.NewMap())
	d := New()

	all.Set(Point(1), d, false)
	assert.Same(t, d, all.Get(Point(1)))
	assert.Panics(t, func() { all.Set(Point(1), New(), false) })

	d2 := New().Unreachable()
	all.Set(Point(1), d2, true)
	assert.Same(t, d2, all.Get(Point(1)))

	_, ok := all.Lookup(Point(2))
	assert.False(t, ok)
	assert.Panics(t, func() { all.Get(Point(2)) })
	require.Equal(t, 1, all.Len())
}
