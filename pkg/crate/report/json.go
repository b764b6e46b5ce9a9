package report

import (
	"bytes"
	"encoding/json"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

type jsonOutput struct {
	Decisions []types.Decision  `json:"decisions"`
	Summary   jsonSummary       `json:"summary"`
	Errors    []types.ScanError `json:"errors,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

type jsonSummary struct {
	Summary
	Elapsed string `json:"elapsed"`
}

// JSONFormatter writes decisions and summary as one indented JSON document.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	out := jsonOutput{
		Decisions: r.Decisions,
		Summary:   jsonSummary{Summary: r.Summary, Elapsed: r.Summary.Elapsed.String()},
		Errors:    r.Errors,
		Warnings:  r.Warnings,
	}
	if out.Decisions == nil {
		out.Decisions = []types.Decision{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
}

var _ Formatter = (*JSONFormatter)(nil)
