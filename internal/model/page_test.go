package model

import (
	"testing"

	"github.com/nao1215/remi/internal/gemtext"
)

// TestPageComputeHash tests the ComputeHash method.
func TestPageComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("computes SHA256 hash of body", func(t *testing.T) {
		t.Parallel()

		page := &Page{Body: "Hello, World!"}
		page.ComputeHash()

		expected := "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"
		if page.Hash != expected {
			t.Errorf("got %q, expected %q", page.Hash, expected)
		}
	})

	t.Run("empty body produces empty hash", func(t *testing.T) {
		t.Parallel()

		page := &Page{}
		page.ComputeHash()

		if page.Hash != "" {
			t.Errorf("expected empty hash, got %q", page.Hash)
		}
	})
}

// TestNewPage tests derived fields.
func TestNewPage(t *testing.T) {
	t.Parallel()

	t.Run("parses body when no document is given", func(t *testing.T) {
		t.Parallel()

		page := NewPage("gemini://example.org/", 20, "# Welcome\n=> /a A\n", nil)

		if page.Title != "Welcome" {
			t.Errorf("Title = %q, expected %q", page.Title, "Welcome")
		}
		if len(page.Links) != 1 || page.Links[0].URL != "/a" {
			t.Errorf("Links = %#v", page.Links)
		}
		if page.Document == nil || len(page.Document.Blocks) != 2 {
			t.Errorf("Document = %#v", page.Document)
		}
		if page.Hash == "" {
			t.Error("expected hash to be set")
		}
		if page.Size() != len("# Welcome\n=> /a A\n") {
			t.Errorf("Size() = %d", page.Size())
		}
		if page.FetchedAt.IsZero() {
			t.Error("expected FetchedAt to be set")
		}
	})

	t.Run("uses the given document", func(t *testing.T) {
		t.Parallel()

		doc := &gemtext.Document{Blocks: []gemtext.Block{gemtext.Heading{Level: 1, Text: "Given"}}}
		page := NewPage("gemini://example.org/", 20, "ignored", doc)

		if page.Document != doc {
			t.Error("expected the provided document to be kept")
		}
		if page.Title != "Given" {
			t.Errorf("Title = %q", page.Title)
		}
	})
}
