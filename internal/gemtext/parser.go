package gemtext

import (
	"strings"
	"unicode"
)

const (
	fenceMarker = "```"
	linkPrefix  = "=>"
	listPrefix  = "* "
	quotePrefix = ">"
)

var headingPrefixes = []struct {
	prefix string
	level  int
}{
	{"### ", 3},
	{"## ", 2},
	{"# ", 1},
}

// Option configures Parse.
type Option func(*parser)

// WithFlushUnterminated emits a preformatted block that is still open at
// end of input instead of dropping it.
func WithFlushUnterminated() Option {
	return func(p *parser) {
		p.flushUnterminated = true
	}
}

type parser struct {
	flushUnterminated bool

	blocks       []Block
	preformatted bool
	altText      string
	buffer       []string
}

// Parse converts a text/gemini body into a Document.
func Parse(text string, opts ...Option) *Document {
	p := &parser{blocks: make([]Block, 0)}
	for _, opt := range opts {
		opt(p)
	}

	for _, line := range splitLines(text) {
		p.line(line)
	}
	if p.preformatted && p.flushUnterminated {
		p.closeFence()
	}
	return &Document{Blocks: p.blocks}
}

func (p *parser) line(line string) {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)

	if p.preformatted {
		if strings.HasPrefix(trimmed, fenceMarker) {
			p.closeFence()
			return
		}
		p.buffer = append(p.buffer, line)
		return
	}

	switch {
	case strings.HasPrefix(trimmed, fenceMarker):
		p.preformatted = true
		p.altText = trimmed[len(fenceMarker):]
	case strings.HasPrefix(trimmed, linkPrefix):
		p.blocks = append(p.blocks, parseLink(trimmed[len(linkPrefix):]))
	case headingLevel(trimmed) > 0:
		level := headingLevel(trimmed)
		prefix := strings.Repeat("#", level) + " "
		p.blocks = append(p.blocks, Heading{Level: level, Text: trimmed[len(prefix):]})
	case strings.HasPrefix(trimmed, listPrefix):
		p.listItem(trimmed[len(listPrefix):])
	case strings.HasPrefix(trimmed, quotePrefix):
		p.blocks = append(p.blocks, Quote{Text: trimmed[len(quotePrefix):]})
	default:
		p.blocks = append(p.blocks, Text{Line: line})
	}
}

func (p *parser) listItem(item string) {
	if n := len(p.blocks); n > 0 {
		if list, ok := p.blocks[n-1].(List); ok {
			list.Items = append(list.Items, item)
			p.blocks[n-1] = list
			return
		}
	}
	p.blocks = append(p.blocks, List{Items: []string{item}})
}

func (p *parser) closeFence() {
	p.blocks = append(p.blocks, Preformatted{
		AltText: p.altText,
		Body:    strings.Join(p.buffer, "\n"),
	})
	p.preformatted = false
	p.altText = ""
	p.buffer = nil
}

// headingLevel returns the heading level of a trimmed line, or 0.
func headingLevel(trimmed string) int {
	for _, h := range headingPrefixes {
		if strings.HasPrefix(trimmed, h.prefix) {
			return h.level
		}
	}
	return 0
}

// parseLink splits the text after "=>" into URL and label.
func parseLink(rest string) Link {
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		return Link{URL: rest}
	}
	return Link{
		URL:   rest[:end],
		Label: strings.TrimLeftFunc(rest[end:], unicode.IsSpace),
	}
}

// splitLines splits on "\n", drops a trailing "\r" from each line and does
// not produce an empty final line for input ending in a line break.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
