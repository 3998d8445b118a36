// Package simplify runs the def-use pipeline over a whole program: the
// write-set analysis and the checker for every unit, then dead-write
// elimination over the merged uses. Elimination is repeated until a pass
// removes nothing, since deleting a read can make the write it read dead.
package simplify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p4lang/p4c-sub009/internal/log"
	"github.com/p4lang/p4c-sub009/pkg/deadwrite"
	"github.com/p4lang/p4c-sub009/pkg/defs"
	"github.com/p4lang/p4c-sub009/pkg/defuse"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/storage"
	"github.com/p4lang/p4c-sub009/pkg/writeset"
)

// Options configures a run.
type Options struct {
	// Parallelism bounds the number of units analyzed at once. Zero or
	// less means one.
	Parallelism int
	// Eliminate enables dead-write elimination.
	Eliminate bool
	// MaxPasses bounds the analyze-and-eliminate rounds. Zero means
	// DefaultMaxPasses.
	MaxPasses int
	// Disabled categories are not reported.
	Disabled []diag.Category
	// WarningsAsErrors escalates every warning.
	WarningsAsErrors bool
	Logger           log.Logger
}

// DefaultMaxPasses is the round limit used when Options.MaxPasses is zero.
const DefaultMaxPasses = 8

// Unit summarizes the analysis of one unit.
type Unit struct {
	Name        string         `json:"name" yaml:"name" msgpack:"name"`
	Kind        string         `json:"kind" yaml:"kind" msgpack:"kind"`
	Points      int            `json:"points" yaml:"points" msgpack:"points"`
	Locations   int            `json:"locations" yaml:"locations" msgpack:"locations"`
	StateVisits map[string]int `json:"state_visits,omitempty" yaml:"state_visits,omitempty" msgpack:"state_visits,omitempty"`
	Duration    time.Duration  `json:"duration" yaml:"duration" msgpack:"duration"`
}

// Result is the outcome of a run.
type Result struct {
	// Program is the rewritten program, or the input if elimination is
	// disabled.
	Program     *ir.Program
	Units       []Unit
	Diagnostics []diag.Diagnostic
	Stats       deadwrite.Stats
	// Passes is the number of analysis rounds run.
	Passes int
}

// Units returns the declarations analyzed as independent units, in
// program order.
func Units(prog *ir.Program) []ir.Decl {
	var units []ir.Decl
	for _, d := range prog.Decls {
		switch d.(type) {
		case *ir.Control, *ir.Parser, *ir.Action, *ir.Function:
			units = append(units, d)
		}
	}
	return units
}

func kindOf(d ir.Decl) string {
	switch d.(type) {
	case *ir.Control:
		return "control"
	case *ir.Parser:
		return "parser"
	case *ir.Action:
		return "action"
	}
	return "function"
}

// Run analyzes every unit of prog. Diagnostics and unit summaries come
// from the first round, which sees the program as written. A broken
// invariant in any unit aborts the run with an error naming the unit.
func Run(ctx context.Context, prog *ir.Program, info *ir.Info, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop
	}
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	collector := &diag.Collector{}
	sink := &diag.Filter{
		Next:             collector,
		Disabled:         make(map[diag.Category]bool),
		WarningsAsErrors: opts.WarningsAsErrors,
	}
	for _, c := range opts.Disabled {
		sink.Disabled[c] = true
	}

	result := &Result{Program: prog}
	var s diag.Sink = sink
	for result.Passes < maxPasses {
		result.Passes++
		units, uses, err := analyze(ctx, result.Program, info, s, opts.Parallelism, logger)
		if err != nil {
			return nil, err
		}
		if result.Passes == 1 {
			result.Units = units
			result.Diagnostics = collector.Diagnostics()
			s = diag.Discard
		}
		if !opts.Eliminate {
			break
		}

		res, err := deadwrite.Eliminate(result.Program, info, uses)
		if err != nil {
			return nil, fmt.Errorf("eliminating dead writes: %w", err)
		}
		logger.Debug("eliminated dead writes", "pass", result.Passes,
			"removed", res.Stats.Removed, "replaced", res.Stats.Replaced)
		result.Program, info = res.Program, res.Info
		result.Stats.Add(res.Stats)
		if res.Stats.Changes() == 0 {
			break
		}
	}
	if opts.Eliminate {
		logger.Info("eliminated dead writes", "removed", result.Stats.Removed,
			"replaced", result.Stats.Replaced, "passes", result.Passes)
	}
	return result, nil
}

// analyze runs the write-set analysis and the checker over every unit of
// prog, at most limit at a time.
func analyze(ctx context.Context, prog *ir.Program, info *ir.Info, sink diag.Sink, limit int, logger log.Logger) ([]Unit, *defuse.Uses, error) {
	if limit <= 0 {
		limit = 1
	}
	units := Units(prog)
	summaries := make([]Unit, len(units))
	uses := defuse.NewUses()
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			all := defs.NewAll(storage.NewMap())
			res, err := writeset.Analyze(u, info, all, writeset.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("%s %s: %w", kindOf(u), u.DeclName(), err)
			}
			unitUses, err := defuse.Check(u, info, all, sink, defuse.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("%s %s: %w", kindOf(u), u.DeclName(), err)
			}
			summaries[i] = Unit{
				Name:        u.DeclName(),
				Kind:        kindOf(u),
				Points:      all.Len(),
				Locations:   all.Storage.Len(),
				StateVisits: res.StateVisits,
				Duration:    time.Since(start),
			}
			logger.Debug("analyzed unit", "unit", u.DeclName(), "points", all.Len())

			mu.Lock()
			uses.Merge(unitUses)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return summaries, uses, nil
}
