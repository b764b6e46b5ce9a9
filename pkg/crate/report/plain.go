package report

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes an aligned table without styling, then the summary.
type PlainFormatter struct{}

// Format implements Formatter.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	if len(r.Decisions) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "GROUP\tROLE\tACTION\tORIGIN\tPATH\tTARGET\tREASON")
		for _, d := range r.Decisions {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				d.GroupID, d.Role, d.Action, d.Origin, d.Path, d.TargetPath, d.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		w.WriteString("\n")
	}

	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s: %s\n", e.Path, e.Error)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, line := range r.Summary.Lines() {
		w.WriteString(line)
		w.WriteString("\n")
	}
	return nil
}

func init() {
	Register("plain", func() Formatter { return &PlainFormatter{} })
}

var _ Formatter = (*PlainFormatter)(nil)
