// Package writeset computes, by symbolic execution in program order, the
// definitions reaching every program point of a unit.
//
// The analysis is a recursive traversal that threads the current
// definitions by value. Procedure calls re-enter the traversal for the
// callee under a calling context extended with the call site, and parser
// state machines are iterated to a fixpoint.
package writeset

import (
	"github.com/p4lang/p4c-sub009/internal/log"
	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
)

// Options configures an analysis run.
type Options struct {
	Logger log.Logger
}

// Result summarizes the analysis of one unit.
type Result struct {
	Unit ir.Decl
	// Final holds the definitions when the unit terminates.
	Final *defs.Definitions
	// StateVisits counts how often each parser state was analyzed.
	StateVisits map[string]int
}

// Analyze runs the analysis over a control, parser, action or function and
// records the definitions of every program point in all. Broken invariants
// are returned as *diag.Defect errors.
func Analyze(unit ir.Decl, info *ir.Info, all *defs.All, opts Options) (res *Result, err error) {
	defer diag.Recover(&err)

	a := &analyzer{
		info:  info,
		all:   all,
		store: all.Storage,
		log:   opts.Logger,
	}
	if a.log == nil {
		a.log = log.Nop
	}

	res = &Result{Unit: unit}
	switch u := unit.(type) {
	case *ir.Control:
		res.Final = a.control(u)
	case *ir.Parser:
		res.StateVisits = make(map[string]int)
		res.Final = a.parser(u, res.StateVisits)
	case *ir.Action, *ir.Function:
		res.Final = a.procedure(u)
	default:
		diag.Bugf("%s: not an analysis unit", unit.DeclName())
	}
	return res, nil
}

type analyzer struct {
	info  *ir.Info
	all   *defs.All
	store *storage.Map
	log   log.Logger
}

// frame is the context of one procedure activation.
type frame struct {
	ctx       defs.ProgramPoint
	returned  *defs.Definitions // join of the states at return statements
	exited    *outcome          // shared by every activation of the unit
	overwrite bool              // points are revisited inside parser loops
	inParser  bool
}

// outcome accumulates definitions at early termination.
type outcome struct {
	defs *defs.Definitions
}

func (o *outcome) add(d *defs.Definitions) {
	o.defs = join(o.defs, d)
}

// join is Definitions.Join with nil standing for "no path".
func join(a, b *defs.Definitions) *defs.Definitions {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return a.Join(b)
}

var uninitialized = defs.NewPoints(defs.BeforeStart)

func (a *analyzer) set(f *frame, pt defs.ProgramPoint, d *defs.Definitions) {
	a.all.Set(pt, d, f.overwrite)
}

// enter binds the parameters of a unit or callee at its entry point. Out
// parameters start uninitialized except for their validity and last-index
// leaves.
func (a *analyzer) enter(cur *defs.Definitions, params []*ir.Param, entry defs.ProgramPoint) (*defs.Definitions, *storage.Set) {
	bound := storage.Empty
	for _, p := range params {
		if p.Type == nil {
			continue
		}
		loc := a.store.GetOrAdd(p, p.Type)
		if loc == nil {
			continue
		}
		set := storage.NewSet(loc)
		bound = bound.Union(set)
		if p.Dir == ir.DirOut {
			cur = cur.Set(set, uninitialized).Writes(entry, set.Synthetic())
		} else {
			cur = cur.Writes(entry, set)
		}
	}
	return cur, bound
}

func (a *analyzer) control(c *ir.Control) *defs.Definitions {
	f := &frame{ctx: defs.BeforeStart, exited: &outcome{}}
	entry := defs.At(f.ctx, c)
	cur, _ := a.enter(defs.New(), c.Params, entry)
	a.set(f, entry, cur)

	cur = a.locals(f, cur, c.Locals)
	cur = a.block(f, cur, c.Body)
	cur = join(join(cur, f.returned), f.exited.defs)
	a.set(f, entry.After(), cur)
	return cur
}

func (a *analyzer) procedure(d ir.Decl) *defs.Definitions {
	params, body, _ := ir.Procedure(d)
	f := &frame{ctx: defs.BeforeStart, exited: &outcome{}}
	entry := defs.At(f.ctx, d)
	cur, _ := a.enter(defs.New(), params, entry)
	a.set(f, entry, cur)

	cur = a.block(f, cur, body)
	cur = join(join(cur, f.returned), f.exited.defs)
	a.set(f, entry.After(), cur)
	return cur
}

// locals analyzes the variable declarations of a control or parser.
func (a *analyzer) locals(f *frame, cur *defs.Definitions, locals []ir.Decl) *defs.Definitions {
	for _, l := range locals {
		if v, ok := l.(*ir.VarDecl); ok {
			cur = a.varDecl(f, cur, v)
			a.set(f, defs.At(f.ctx, v), cur)
		}
	}
	return cur
}

// varDecl allocates the storage of v. Without an initializer the variable
// is uninitialized, but its validity and last-index leaves are defined.
func (a *analyzer) varDecl(f *frame, cur *defs.Definitions, v *ir.VarDecl) *defs.Definitions {
	if storage.Unsupported(v.Type, f.inParser) {
		return cur
	}
	pt := defs.At(f.ctx, v)
	set := storage.NewSet(a.store.GetOrAdd(v, v.Type))
	if v.Init != nil {
		var w *storage.Set
		w, cur = a.expr(f, cur, v.Init)
		return cur.Writes(pt, set.Union(w))
	}
	return cur.Set(set, uninitialized).Writes(pt, set.Synthetic())
}

// vars returns the storage of the given variables.
func (a *analyzer) vars(vars []*ir.VarDecl) *storage.Set {
	set := storage.Empty
	for _, v := range vars {
		if loc := a.store.Get(v); loc != nil {
			set = set.Union(storage.NewSet(loc))
		}
	}
	return set
}
