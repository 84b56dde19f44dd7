package gemtext

// Block is one element of a parsed document.
//
// The implementations are Text, Link, Heading, List, Quote and Preformatted.
type Block interface {
	isBlock()
}

// Text is a plain line, preserved as written.
type Text struct {
	Line string
}

// Link is a "=>" line. Label may be empty.
type Link struct {
	URL   string
	Label string
}

// Heading is a "#", "##" or "###" line.
type Heading struct {
	// Level is 1, 2 or 3.
	Level int
	Text  string
}

// List is a run of consecutive "* " lines. Items is never empty.
type List struct {
	Items []string
}

// Quote is a single ">" line.
type Quote struct {
	Text string
}

// Preformatted is the content between two fence lines.
type Preformatted struct {
	// AltText is the text following the opening fence marker.
	AltText string

	// Body holds the captured lines joined with "\n".
	Body string
}

func (Text) isBlock()         {}
func (Link) isBlock()         {}
func (Heading) isBlock()      {}
func (List) isBlock()         {}
func (Quote) isBlock()        {}
func (Preformatted) isBlock() {}

// Document is an ordered sequence of blocks.
type Document struct {
	Blocks []Block
}

// Links returns every link in document order.
func (d *Document) Links() []Link {
	links := make([]Link, 0)
	for _, b := range d.Blocks {
		if l, ok := b.(Link); ok {
			links = append(links, l)
		}
	}
	return links
}

// Title returns the text of the first level 1 heading, or an empty string.
func (d *Document) Title() string {
	for _, b := range d.Blocks {
		if h, ok := b.(Heading); ok && h.Level == 1 {
			return h.Text
		}
	}
	return ""
}
