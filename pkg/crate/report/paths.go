package report

import "bytes"

// PathsFormatter writes one duplicate path per line for piping into other
// tools. Keepers are not listed.
type PathsFormatter struct{}

// Format implements Formatter.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, p := range r.DuplicatePaths() {
		w.WriteString(p)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter { return &PathsFormatter{} })
}

var _ Formatter = (*PathsFormatter)(nil)
