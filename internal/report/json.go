package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/model"
)

// JSONWriter outputs JSON for scripts and other tools.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// PageDocument is the JSON form of a page. Unlike model.Page it carries the body.
type PageDocument struct {
	*model.Page

	// Body is the raw gemtext.
	Body string `json:"body"`

	// Size is the body length in bytes.
	Size int `json:"size"`
}

// Write outputs the page with its body.
func (w *JSONWriter) Write(page *model.Page) (int, error) {
	return w.writeJSON(newPageDocument(page))
}

func newPageDocument(page *model.Page) *PageDocument {
	return &PageDocument{Page: page, Body: page.Body, Size: page.Size()}
}

// WriteChecks outputs the check results as an array.
func (w *JSONWriter) WriteChecks(reports []*model.CheckReport) (int, error) {
	if reports == nil {
		reports = []*model.CheckReport{}
	}
	return w.writeJSON(reports)
}

// WriteVisits outputs the visits as an array.
func (w *JSONWriter) WriteVisits(visits []database.Visit) (int, error) {
	if visits == nil {
		visits = []database.Visit{}
	}
	return w.writeJSON(visits)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output.
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps output with the version of remi that produced it.
type JSONReport struct {
	// Version is the remi version that generated this report.
	Version string `json:"version"`

	// Page is set by Write.
	Page *PageDocument `json:"page,omitempty"`

	// Checks is set by WriteChecks.
	Checks []*model.CheckReport `json:"checks,omitempty"`

	// Visits is set by WriteVisits.
	Visits []database.Visit `json:"visits,omitempty"`
}

// FullJSONWriter outputs reports inside a JSONReport envelope.
type FullJSONWriter struct {
	*JSONWriter

	// version is the remi version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the page wrapped with metadata.
func (w *FullJSONWriter) Write(page *model.Page) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Page: newPageDocument(page)})
}

// WriteChecks outputs the check results wrapped with metadata.
func (w *FullJSONWriter) WriteChecks(reports []*model.CheckReport) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Checks: reports})
}

// WriteVisits outputs the visits wrapped with metadata.
func (w *FullJSONWriter) WriteVisits(visits []database.Visit) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Visits: visits})
}
