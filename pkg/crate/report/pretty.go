package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

// PrettyFormatter renders each group in a lipgloss box with the keeper
// highlighted, followed by a summary box.
type PrettyFormatter struct{}

// Format implements Formatter.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, group := range groupDecisions(r.Decisions) {
		w.WriteString(f.formatGroup(group))
		w.WriteString("\n")
	}

	if len(r.Errors) > 0 {
		w.WriteString(f.formatErrors(r.Errors))
	}
	for _, warning := range r.Warnings {
		w.WriteString(WarningStyle.Render(warning))
		w.WriteString("\n")
	}

	w.WriteString(FooterBox.Render(strings.Join(r.Summary.Lines(), "\n")))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatGroup(group []types.Decision) string {
	var lines []string
	lines = append(lines, TitleStyle.Render(fmt.Sprintf("Group %d", group[0].GroupID)))

	for _, d := range group {
		if d.Role == types.RoleKeep {
			lines = append(lines, KeepStyle.Render(padRight("keep", 8))+PathStyle.Render(d.Path)+originTag(d.Origin))
			continue
		}

		marker := DupStyle.Render(padRight(string(d.Action), 8))
		line := marker + PathStyle.Render(d.Path) + originTag(d.Origin)
		switch {
		case d.Failed():
			line += "\n        " + ErrorStyle.Render(d.Reason)
		case d.Action == types.ActionMove:
			line += "\n        " + MutedStyle.Render("-> "+d.TargetPath)
		}
		lines = append(lines, line)
	}
	return GroupBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatErrors(errs []types.ScanError) string {
	var sb strings.Builder
	sb.WriteString(ErrorStyle.Bold(true).Render(fmt.Sprintf("%d files could not be read:", len(errs))))
	sb.WriteString("\n")
	for _, e := range errs {
		sb.WriteString(ErrorStyle.Render("  " + e.Path + ": " + e.Error))
		sb.WriteString("\n")
	}
	return sb.String()
}

func originTag(o types.Origin) string {
	if o == "" {
		return ""
	}
	return MutedStyle.Render(" [" + string(o) + "]")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// groupDecisions splits decisions into runs sharing a group id, preserving
// order.
func groupDecisions(decisions []types.Decision) [][]types.Decision {
	var out [][]types.Decision
	for i, d := range decisions {
		if i == 0 || d.GroupID != decisions[i-1].GroupID {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], d)
	}
	return out
}

func init() {
	Register("pretty", func() Formatter { return &PrettyFormatter{} })
}

var _ Formatter = (*PrettyFormatter)(nil)
