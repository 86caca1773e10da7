package report

import (
	"encoding/csv"
	"io"

	"github.com/mai-automation/linkstatus/internal/model"
)

// csvHeader is the column set downstream spreadsheet tooling expects.
// Changing it breaks the aggregation scripts that consume these reports.
var csvHeader = []string{
	"Page Linked from",
	"Anchor Text",
	"URL (linked)",
	"Response Code",
	"Destination URL",
}

// CSVWriter outputs one row per non-healthy link.
type CSVWriter struct {
	output io.Writer
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{output: output}
}

// Write outputs the report rows as CSV. The byte count is approximate
// (encoding/csv does not report it); we count fields and separators as
// written.
func (w *CSVWriter) Write(report *model.AuditReport) (int, error) {
	cw := csv.NewWriter(w.output)

	total := rowLen(csvHeader)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}

	for _, rec := range report.Records {
		row := []string{
			rec.SourcePage,
			rec.AnchorText,
			rec.URL,
			rec.ResponseCode,
			rec.DestinationURL,
		}
		if err := cw.Write(row); err != nil {
			return total, err
		}
		total += rowLen(row)
	}

	cw.Flush()
	return total, cw.Error()
}

// rowLen approximates the serialized length of a CSV row.
func rowLen(row []string) int {
	n := len(row) // separators plus newline
	for _, field := range row {
		n += len(field)
	}
	return n
}
