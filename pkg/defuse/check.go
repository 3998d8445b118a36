// Package defuse checks reads against the reaching definitions computed by
// package writeset. It reports reads of possibly uninitialized locations
// and field accesses on possibly invalid headers, and records which writes
// are used.
package defuse

import (
	"github.com/p4lang/p4c-sub009/internal/log"
	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
	"github.com/p4lang/p4c-sub009/pkg/validity"
)

// Options configures a check.
type Options struct {
	Logger log.Logger
}

// Check traverses unit, which must already have been analyzed into all,
// sending diagnostics to sink. It returns the uses found in the unit.
// Broken invariants are returned as *diag.Defect errors.
func Check(unit ir.Decl, info *ir.Info, all *defs.All, sink diag.Sink, opts Options) (uses *Uses, err error) {
	defer diag.Recover(&err)

	c := &checker{
		info:     info,
		all:      all,
		store:    all.Storage,
		sink:     sink,
		log:      opts.Logger,
		uses:     NewUses(),
		reported: make(map[reportKey]bool),
	}
	if c.log == nil {
		c.log = log.Nop
	}

	switch u := unit.(type) {
	case *ir.Control:
		c.control(u)
	case *ir.Parser:
		c.parser(u)
	case *ir.Action, *ir.Function:
		c.procedure(u)
	default:
		diag.Bugf("%s: not an analysis unit", unit.DeclName())
	}
	return c.uses, nil
}

type checker struct {
	info     *ir.Info
	all      *defs.All
	store    *storage.Map
	sink     diag.Sink
	log      log.Logger
	uses     *Uses
	reported map[reportKey]bool

	// quiet drops diagnostics while a fixpoint is being computed.
	quiet bool
}

type reportKey struct {
	node ir.ID
	cat  diag.Category
}

// frame is the context of one procedure activation. point is the program
// point whose definitions hold before the statement being checked.
type frame struct {
	ctx      defs.ProgramPoint
	point    defs.ProgramPoint
	returned *validity.Defs
	inParser bool
}

func (c *checker) report(d diag.Diagnostic) {
	if c.quiet {
		return
	}
	key := reportKey{d.Node, d.Category}
	if c.reported[key] {
		return
	}
	c.reported[key] = true
	c.sink.Report(d)
}

func (c *checker) current(f *frame) *defs.Definitions {
	return c.all.Get(f.point)
}

func (c *checker) reachable(f *frame) bool {
	return !c.current(f).IsUnreachable()
}

// headers returns the headers stored in the parameters or variables.
func (c *checker) headers(d ir.Decl) []*storage.Struct {
	return storage.NewSet(c.store.Get(d)).Headers()
}

// seed sets the validity of the headers in the parameters: valid, or
// invalid for out parameters.
func (c *checker) seed(v *validity.Defs, params []*ir.Param) {
	for _, p := range params {
		s := validity.Valid
		if p.Dir == ir.DirOut {
			s = validity.Invalid
		}
		v.SetAll(c.headers(p), s)
	}
}

func (c *checker) control(ctl *ir.Control) {
	f := &frame{ctx: defs.BeforeStart}
	entry := defs.At(f.ctx, ctl)
	f.point = entry
	v := validity.New()
	c.seed(v, ctl.Params)

	v = c.locals(f, v, ctl.Locals)
	c.block(f, v, ctl.Body)
	c.checkOut(ctl.Params, ctl.Name, entry.After(), entry.After())
}

func (c *checker) procedure(d ir.Decl) {
	params, body, _ := ir.Procedure(d)
	f := &frame{ctx: defs.BeforeStart}
	entry := defs.At(f.ctx, d)
	f.point = entry
	v := validity.New()
	c.seed(v, params)

	c.block(f, v, body)
	c.checkOut(params, d.DeclName(), entry.After(), entry.After())
}

func (c *checker) locals(f *frame, v *validity.Defs, locals []ir.Decl) *validity.Defs {
	for _, l := range locals {
		if d, ok := l.(*ir.VarDecl); ok {
			c.uses.Visit(d.ID())
			v = c.varDecl(f, v, d)
			f.point = defs.At(f.ctx, d)
		}
	}
	return v
}

// checkOut registers the final values of out and inout parameters as used
// and warns about out parameters that may still be uninitialized. Uses are
// taken at usePt, warnings at warnPt.
func (c *checker) checkOut(params []*ir.Param, unit string, usePt, warnPt defs.ProgramPoint) {
	if d, ok := c.all.Lookup(usePt); ok && !d.IsUnreachable() {
		for _, p := range params {
			if !p.Dir.Writes() {
				continue
			}
			if set := storage.NewSet(c.store.Get(p)); !set.IsEmpty() {
				c.uses.Add(d.Points(set))
			}
		}
	}
	d, ok := c.all.Lookup(warnPt)
	if !ok || d.IsUnreachable() {
		return
	}
	for _, p := range params {
		if p.Dir != ir.DirOut {
			continue
		}
		set := storage.NewSet(c.store.Get(p)).RemoveHeaders()
		if set.IsEmpty() {
			continue
		}
		if d.Points(set).ContainsBeforeStart() {
			c.report(diag.Warningf(diag.CategoryUninitializedOutParam, p,
				"out parameter '%s' may be uninitialized when '%s' terminates", p.Name, unit))
		}
	}
}
