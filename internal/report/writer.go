package report

import (
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/protocol"
)

// Writer defines the interface for report output.
// Every method returns the number of bytes written.
type Writer interface {
	// Write renders a fetched page.
	Write(page *model.Page) (int, error)

	// WriteChecks renders the results of a bookmark check.
	WriteChecks(reports []*model.CheckReport) (int, error)

	// WriteVisits renders entries of the visit log.
	WriteVisits(visits []database.Visit) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the page with every writer.
func (m *MultiWriter) Write(page *model.Page) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(page) })
}

// WriteChecks renders the check results with every writer.
func (m *MultiWriter) WriteChecks(reports []*model.CheckReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteChecks(reports) })
}

// WriteVisits renders the visits with every writer.
func (m *MultiWriter) WriteVisits(visits []database.Visit) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteVisits(visits) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusLabel formats a status code with its category, e.g. "51 Permanent Failure".
// A zero code means no response arrived.
func statusLabel(code int) string {
	if code == 0 {
		return "-"
	}
	s := protocol.Status(code)
	return s.String() + " " + titleCase(s.Category().String())
}

// titleCase turns a snake_case name into words, e.g. "temporary_failure"
// becomes "Temporary Failure".
func titleCase(name string) string {
	// Casers are not safe for concurrent use.
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(name, "_", " "))
}
