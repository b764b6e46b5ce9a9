package report

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

type yamlOutput struct {
	Decisions []types.Decision  `yaml:"decisions"`
	Summary   yamlSummary       `yaml:"summary"`
	Errors    []types.ScanError `yaml:"errors,omitempty"`
	Warnings  []string          `yaml:"warnings,omitempty"`
}

type yamlSummary struct {
	FilesScanned     int          `yaml:"files_scanned"`
	Groups           int          `yaml:"groups"`
	Duplicates       int          `yaml:"duplicates"`
	Moved            int          `yaml:"moved"`
	Deleted          int          `yaml:"deleted"`
	Failed           int          `yaml:"failed"`
	ReclaimableBytes int64        `yaml:"reclaimable_bytes"`
	Elapsed          string       `yaml:"elapsed"`
	Action           types.Action `yaml:"action"`
	DryRun           bool         `yaml:"dry_run"`
}

// YAMLFormatter writes the same document as JSONFormatter in YAML.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	s := r.Summary
	out := yamlOutput{
		Decisions: r.Decisions,
		Summary: yamlSummary{
			FilesScanned:     s.FilesScanned,
			Groups:           s.Groups,
			Duplicates:       s.Duplicates,
			Moved:            s.Moved,
			Deleted:          s.Deleted,
			Failed:           s.Failed,
			ReclaimableBytes: s.ReclaimableBytes,
			Elapsed:          s.Elapsed.String(),
			Action:           s.Action,
			DryRun:           s.DryRun,
		},
		Errors:   r.Errors,
		Warnings: r.Warnings,
	}
	if out.Decisions == nil {
		out.Decisions = []types.Decision{}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}

var _ Formatter = (*YAMLFormatter)(nil)
