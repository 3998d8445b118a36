// Package report encodes the outcome of a pipeline run.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
	"github.com/p4lang/p4c-sub009/pkg/simplify"
)

// Format is an output encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatMsgpack}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (must be one of %v)", s, Formats)
}

// Report is the serializable result of checking one program.
type Report struct {
	Program     string            `json:"program" yaml:"program" msgpack:"program"`
	Units       []simplify.Unit   `json:"units" yaml:"units" msgpack:"units"`
	Diagnostics []diag.Diagnostic `json:"diagnostics" yaml:"diagnostics" msgpack:"diagnostics"`
	Removed     int               `json:"removed" yaml:"removed" msgpack:"removed"`
	Replaced    int               `json:"replaced" yaml:"replaced" msgpack:"replaced"`
	// Source is the rewritten program, when requested.
	Source string `json:"source,omitempty" yaml:"source,omitempty" msgpack:"source,omitempty"`
}

// New builds a report from a pipeline result. If withSource is set the
// rewritten program is included.
func New(res *simplify.Result, withSource bool) (*Report, error) {
	r := &Report{
		Program:     res.Program.Name,
		Units:       res.Units,
		Diagnostics: res.Diagnostics,
		Removed:     res.Stats.Removed,
		Replaced:    res.Stats.Replaced,
	}
	if r.Diagnostics == nil {
		r.Diagnostics = []diag.Diagnostic{}
	}
	if withSource {
		var buf bytes.Buffer
		if err := ir.Fprint(&buf, res.Program); err != nil {
			return nil, fmt.Errorf("failed to print program: %w", err)
		}
		r.Source = buf.String()
	}
	return r, nil
}

// Counts returns the number of warnings and errors.
func (r *Report) Counts() (warnings, errors int) {
	for _, d := range r.Diagnostics {
		if d.Severity == diag.SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return warnings, errors
}

// Write encodes r to w.
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatText:
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(r)
	}
	return fmt.Errorf("unknown format %q", f)
}

// Read decodes a report written with Write. The text format cannot be
// read back.
func Read(rd io.Reader, f Format) (*Report, error) {
	var r Report
	var err error
	switch f {
	case FormatJSON:
		err = json.NewDecoder(rd).Decode(&r)
	case FormatYAML:
		err = yaml.NewDecoder(rd).Decode(&r)
	case FormatMsgpack:
		err = msgpack.NewDecoder(rd).Decode(&r)
	default:
		return nil, fmt.Errorf("cannot read %s reports", f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

func writeText(w io.Writer, r *Report) error {
	var buf bytes.Buffer
	for _, d := range r.Diagnostics {
		fmt.Fprintln(&buf, d)
	}
	warnings, errors := r.Counts()
	fmt.Fprintf(&buf, "%s: %d warning(s), %d error(s)", r.Program, warnings, errors)
	if r.Removed > 0 || r.Replaced > 0 {
		fmt.Fprintf(&buf, "; %d dead write(s) removed, %d replaced by their call", r.Removed, r.Replaced)
	}
	buf.WriteByte('\n')
	if r.Source != "" {
		buf.WriteByte('\n')
		buf.WriteString(r.Source)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
