package report

import "bytes"

// CSVFormatter writes the decision table in the same layout as WriteCSV.
type CSVFormatter struct{}

// Format implements Formatter.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	return encodeCSV(w, r.Decisions)
}

func init() {
	Register("csv", func() Formatter { return &CSVFormatter{} })
}

var _ Formatter = (*CSVFormatter)(nil)
