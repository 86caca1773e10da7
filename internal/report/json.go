package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/mai-automation/linkstatus/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because it is sufficient for our needs and behaves
// consistently across Go versions.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent bool
}

// JSONOption configures a JSONWriter.
type JSONOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent() JSONOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonReport is the serialized shape: the full report plus the computed
// summary, so consumers do not have to re-aggregate.
type jsonReport struct {
	*model.AuditReport
	Summary *model.Summary `json:"summary"`
}

// Write outputs the report and its summary as a single JSON document.
func (w *JSONWriter) Write(report *model.AuditReport) (int, error) {
	doc := jsonReport{
		AuditReport: report,
		Summary:     model.NewSummary(report),
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if w.indent {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(doc); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}
