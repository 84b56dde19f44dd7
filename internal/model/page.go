package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/nao1215/remi/internal/gemtext"
	"github.com/nao1215/remi/internal/protocol"
)

// Page is a successfully fetched and parsed document.
type Page struct {
	// URL is the absolute request that produced the page.
	URL string `json:"url"`

	// Status is the response status code.
	Status protocol.Status `json:"status"`

	// Body is the raw document text.
	Body string `json:"-"`

	// Document is the parsed body.
	Document *gemtext.Document `json:"-"`

	// Title is the first level 1 heading, if any.
	Title string `json:"title,omitempty"`

	// Links lists every link of the document in order.
	Links []gemtext.Link `json:"links,omitempty"`

	// Hash is the SHA-256 of Body.
	// Used for change detection between visits.
	Hash string `json:"hash"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// NewPage builds a Page from a success body, parsing it and filling the
// derived fields.
func NewPage(url string, status protocol.Status, body string, doc *gemtext.Document) *Page {
	if doc == nil {
		doc = gemtext.Parse(body)
	}
	p := &Page{
		URL:       url,
		Status:    status,
		Body:      body,
		Document:  doc,
		Title:     doc.Title(),
		Links:     doc.Links(),
		FetchedAt: time.Now(),
	}
	p.ComputeHash()
	return p
}

// ComputeHash calculates and sets the SHA-256 hash of the body.
func (p *Page) ComputeHash() {
	if len(p.Body) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256([]byte(p.Body))
	p.Hash = hex.EncodeToString(hash[:])
}

// Size returns the body length in bytes.
func (p *Page) Size() int {
	return len(p.Body)
}
