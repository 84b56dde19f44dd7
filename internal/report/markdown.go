package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/gemtext"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/navigation"
)

// MarkdownWriter outputs Markdown for saving or sharing pages.
// Relative links are resolved against the page URL so they stay usable
// outside the client.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write converts the page document to Markdown.
func (w *MarkdownWriter) Write(page *model.Page) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writePageHeader(md, page)

	if page.Document != nil {
		w.writeBlocks(md, page, page.Document.Blocks)
	} else {
		md.CodeBlocks(markdown.SyntaxHighlight(""), page.Body)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writePageHeader writes the title and a property table.
func (w *MarkdownWriter) writePageHeader(md *markdown.Markdown, page *model.Page) {
	title := page.Title
	if title == "" {
		title = page.URL
	}
	md.H1(title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", page.URL},
			{"Status", statusLabel(int(page.Status))},
			{"Size", strconv.Itoa(page.Size()) + " bytes"},
			{"Links", strconv.Itoa(len(page.Links))},
			{"Fetched", page.FetchedAt.Format(timeLayout)},
		},
	})
	md.PlainText("")
	md.HorizontalRule()
	md.PlainText("")
}

// writeBlocks maps gemtext blocks onto their Markdown counterparts.
// Consecutive links are gathered into one bullet list.
func (w *MarkdownWriter) writeBlocks(md *markdown.Markdown, page *model.Page, blocks []gemtext.Block) {
	base, baseErr := model.ParseLocation(page.URL)

	var links []string
	flushLinks := func() {
		if len(links) == 0 {
			return
		}
		md.BulletList(links...)
		md.PlainText("")
		links = links[:0]
	}

	for _, block := range blocks {
		if l, ok := block.(gemtext.Link); ok {
			target := l.URL
			if baseErr == nil {
				if loc, err := navigation.Resolve(base, l.URL); err == nil {
					target = loc.Request()
				}
			}
			label := l.Label
			if label == "" {
				label = l.URL
			}
			links = append(links, fmt.Sprintf("[%s](%s)", escapeLinkText(label), target))
			continue
		}
		flushLinks()

		switch b := block.(type) {
		case gemtext.Text:
			md.PlainText(b.Line)
		case gemtext.Heading:
			switch b.Level {
			case 1:
				md.H2(b.Text)
			case 2:
				md.H3(b.Text)
			default:
				md.H4(b.Text)
			}
			md.PlainText("")
		case gemtext.List:
			md.BulletList(b.Items...)
			md.PlainText("")
		case gemtext.Quote:
			md.Blockquote(b.Text)
			md.PlainText("")
		case gemtext.Preformatted:
			if b.AltText != "" {
				md.PlainTextf("*%s*", b.AltText)
				md.PlainText("")
			}
			md.CodeBlocks(markdown.SyntaxHighlight(""), strings.TrimSuffix(b.Body, "\n"))
			md.PlainText("")
		}
	}
	flushLinks()
}

// WriteChecks writes a summary alert, an outcome chart and a result table.
func (w *MarkdownWriter) WriteChecks(reports []*model.CheckReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Bookmark Check")
	md.PlainText("")

	if len(reports) == 0 {
		md.Note("No bookmarks to check.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	counts := make(map[string]uint64)
	var failed, changed int
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		counts[r.Outcome]++
		if !r.OK() {
			failed++
		}
		if r.Changed {
			changed++
		}
		rows = append(rows, []string{
			r.Target,
			statusLabel(r.Status),
			titleCase(r.Outcome),
			r.Title,
			strconv.FormatBool(r.Changed),
			r.ErrorMessage,
		})
	}

	switch {
	case failed == len(reports):
		md.Cautionf("All %d bookmarks failed.", failed)
	case failed > 0:
		md.Warningf("%d of %d bookmarks failed.", failed, len(reports))
	case changed > 0:
		md.Importantf("%d bookmarks changed since the last check.", changed)
	default:
		md.Tip("All bookmarks are reachable and unchanged.")
	}
	md.PlainText("")

	w.writePieChart(md, counts)

	md.H2("Results")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Bookmark", "Status", "Outcome", "Title", "Changed", "Error"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writePieChart writes a mermaid pie chart of check outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[string]uint64) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Check Outcomes"),
		piechart.WithShowData(true),
	)

	for _, outcome := range []string{
		navigation.OutcomeSuccess.String(),
		navigation.OutcomeRecoverable.String(),
		navigation.OutcomeFatal.String(),
	} {
		if counts[outcome] > 0 {
			chart.LabelAndIntValue(titleCase(outcome), counts[outcome])
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// WriteVisits writes the visit log as a table.
func (w *MarkdownWriter) WriteVisits(visits []database.Visit) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Visit History")
	md.PlainText("")

	if len(visits) == 0 {
		md.Note("No visits recorded.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(visits))
	for _, v := range visits {
		rows = append(rows, []string{
			v.Timestamp.Format(timeLayout),
			v.Request,
			statusLabel(v.Status),
			titleCase(v.Outcome),
			strconv.FormatBool(v.Replay),
			v.Title,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Time", "Request", "Status", "Outcome", "Replay", "Title"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [remi](https://github.com/nao1215/remi)*")
}

// escapeLinkText escapes brackets so a label cannot close the link early.
func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
