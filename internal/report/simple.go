package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/gemtext"
	"github.com/nao1215/remi/internal/model"
)

const (
	ruleWidth  = 70
	timeLayout = "2006-01-02 15:04:05 MST"
)

// SimpleWriter outputs plain text for terminal display.
// Pages are rendered close to their gemtext source, with links numbered
// in document order so a user can pick one by index.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints placeholder lines for empty listings.
	showEmpty bool

	// verbose adds response metadata to page output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty listings.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write renders the page body. In verbose mode a header with the URL,
// status, size and fetch time precedes it.
func (w *SimpleWriter) Write(page *model.Page) (int, error) {
	var sb strings.Builder

	if w.verbose {
		writeRule(&sb, "=")
		fmt.Fprintf(&sb, "URL:     %s\n", page.URL)
		fmt.Fprintf(&sb, "Status:  %s\n", statusLabel(int(page.Status)))
		fmt.Fprintf(&sb, "Size:    %d bytes\n", page.Size())
		fmt.Fprintf(&sb, "Fetched: %s\n", page.FetchedAt.Format(timeLayout))
		writeRule(&sb, "=")
		sb.WriteString("\n")
	}

	if page.Document != nil {
		w.writeBlocks(&sb, page.Document.Blocks)
	} else {
		sb.WriteString(page.Body)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeBlocks renders each block on its own line(s).
func (w *SimpleWriter) writeBlocks(sb *strings.Builder, blocks []gemtext.Block) {
	index := 0
	for _, block := range blocks {
		switch b := block.(type) {
		case gemtext.Text:
			sb.WriteString(b.Line)
			sb.WriteString("\n")
		case gemtext.Link:
			index++
			if b.Label != "" {
				fmt.Fprintf(sb, "[%d] %s <%s>\n", index, b.Label, b.URL)
			} else {
				fmt.Fprintf(sb, "[%d] %s\n", index, b.URL)
			}
		case gemtext.Heading:
			sb.WriteString(strings.Repeat("#", b.Level))
			sb.WriteString(" ")
			sb.WriteString(b.Text)
			sb.WriteString("\n")
		case gemtext.List:
			for _, item := range b.Items {
				fmt.Fprintf(sb, "  * %s\n", item)
			}
		case gemtext.Quote:
			fmt.Fprintf(sb, "  | %s\n", b.Text)
		case gemtext.Preformatted:
			if b.AltText != "" {
				fmt.Fprintf(sb, "--- %s\n", b.AltText)
			} else {
				sb.WriteString("---\n")
			}
			sb.WriteString(b.Body)
			if b.Body != "" && !strings.HasSuffix(b.Body, "\n") {
				sb.WriteString("\n")
			}
			sb.WriteString("---\n")
		}
	}
}

// WriteChecks prints one line per bookmark followed by a summary.
func (w *SimpleWriter) WriteChecks(reports []*model.CheckReport) (int, error) {
	var sb strings.Builder

	writeRule(&sb, "-")
	sb.WriteString("BOOKMARK CHECK\n")
	writeRule(&sb, "-")
	sb.WriteString("\n")

	if len(reports) == 0 {
		if w.showEmpty {
			sb.WriteString("  No bookmarks\n\n")
		}
		return w.output.Write([]byte(sb.String()))
	}

	var ok, changed int
	for _, r := range reports {
		mark := "[ok]"
		if !r.OK() {
			mark = "[!!]"
		} else {
			ok++
		}
		fmt.Fprintf(&sb, "  %s %s\n", mark, r.Target)
		fmt.Fprintf(&sb, "       status: %s\n", statusLabel(r.Status))
		if r.Location != "" && r.Location != r.Target {
			fmt.Fprintf(&sb, "       moved:  %s\n", r.Location)
		}
		if r.Title != "" {
			fmt.Fprintf(&sb, "       title:  %s\n", r.Title)
		}
		if r.Changed {
			changed++
			sb.WriteString("       changed since last check\n")
		}
		if r.ErrorMessage != "" {
			fmt.Fprintf(&sb, "       error:  %s\n", r.ErrorMessage)
		}
		if w.verbose {
			fmt.Fprintf(&sb, "       time:   %s\n", r.Duration)
		}
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %d checked, %d reachable, %d failed, %d changed\n\n",
		len(reports), ok, len(reports)-ok, changed)

	return w.output.Write([]byte(sb.String()))
}

// WriteVisits prints one line per visit, newest first as given.
func (w *SimpleWriter) WriteVisits(visits []database.Visit) (int, error) {
	var sb strings.Builder

	if len(visits) == 0 {
		if w.showEmpty {
			sb.WriteString("No visits recorded\n")
		}
		return w.output.Write([]byte(sb.String()))
	}

	for _, v := range visits {
		target := v.Location
		if target == "" {
			target = v.Request
		}
		fmt.Fprintf(&sb, "%s  %-6s %-20s %s\n",
			v.Timestamp.Format(timeLayout), statusCode(v.Status), titleCase(v.Outcome), target)
		if w.verbose && v.Error != "" {
			fmt.Fprintf(&sb, "    error: %s\n", v.Error)
		}
	}

	return w.output.Write([]byte(sb.String()))
}

func statusCode(code int) string {
	if code == 0 {
		return "-"
	}
	return fmt.Sprintf("%02d", code)
}

func writeRule(sb *strings.Builder, char string) {
	sb.WriteString(strings.Repeat(char, ruleWidth))
	sb.WriteString("\n")
}
