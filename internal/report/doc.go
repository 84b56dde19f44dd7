// Package report renders pages, bookmark checks and the visit log.
//
// Three writers share the Writer interface:
//   - SimpleWriter: plain text for the terminal, links numbered in order
//   - MarkdownWriter: Markdown built with nao1215/markdown
//   - JSONWriter: structured output for scripts
//
// Writers only format. Fetching and storage live in the navigation,
// pipeline and database packages.
package report
