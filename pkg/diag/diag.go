// Package diag defines the diagnostics produced by the def-use analyses and
// the defect mechanism for broken internal invariants.
package diag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/p4lang/p4c-sub009/pkg/ir"
)

// Severity is the severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Category classifies a diagnostic.
type Category string

const (
	CategoryUninitializedUse      Category = "uninitialized_use"       // read of a possibly unwritten location
	CategoryUninitializedOutParam Category = "uninitialized_out_param" // out parameter not written on some path
	CategoryInvalidHeader         Category = "invalid_header"          // field access on a possibly invalid header
	CategoryUnsupported           Category = "unsupported"             // construct the analysis cannot handle
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CategoryUninitializedUse,
	CategoryUninitializedOutParam,
	CategoryInvalidHeader,
	CategoryUnsupported,
}

// Diagnostic is a single message attached to a node.
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity" msgpack:"severity"`
	Category Category `json:"category" yaml:"category" msgpack:"category"`
	Pos      ir.Pos   `json:"pos" yaml:"pos" msgpack:"pos"`
	Node     ir.ID    `json:"node" yaml:"node" msgpack:"node"`
	Message  string   `json:"message" yaml:"message" msgpack:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Pos, d.Severity, d.Message, d.Category)
}

// Warningf builds a warning attached to n.
func Warningf(cat Category, n ir.Node, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Category: cat,
		Pos:      n.Pos(),
		Node:     n.ID(),
		Message:  fmt.Sprintf(format, args...),
	}
}

// Errorf builds an error attached to n.
func Errorf(cat Category, n ir.Node, format string, args ...interface{}) Diagnostic {
	d := Warningf(cat, n, format, args...)
	d.Severity = SeverityError
	return d
}

// Sink receives diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// Collector is a Sink that stores diagnostics, keeping one copy of
// identical reports. It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
	seen  map[Diagnostic]bool
}

// Report implements Sink.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[d] {
		return
	}
	if c.seen == nil {
		c.seen = make(map[Diagnostic]bool)
	}
	c.seen[d] = true
	c.diags = append(c.diags, d)
}

// Diagnostics returns the collected diagnostics sorted by position.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	Sort(out)
	return out
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diags)
}

// Sort orders diagnostics by file, line, column, node and message.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		if a.Pos.Col != b.Pos.Col {
			return a.Pos.Col < b.Pos.Col
		}
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		return a.Message < b.Message
	})
}

// Filter forwards diagnostics to Next, dropping disabled categories and
// escalating warnings to errors when WarningsAsErrors is set.
type Filter struct {
	Next             Sink
	Disabled         map[Category]bool
	WarningsAsErrors bool
}

// Report implements Sink.
func (f *Filter) Report(d Diagnostic) {
	if f.Disabled[d.Category] {
		return
	}
	if f.WarningsAsErrors && d.Severity == SeverityWarning {
		d.Severity = SeverityError
	}
	f.Next.Report(d)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
