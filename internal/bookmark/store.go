package bookmark

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nao1215/remi/internal/model"
)

// ErrNotBookmarked is returned by Remove for a request that is not bookmarked.
var ErrNotBookmarked = errors.New("not bookmarked")

// Store is an ordered, duplicate-free list of bookmarked requests backed by
// a file. A Store is not safe for concurrent use.
type Store struct {
	path    string
	entries []string
}

// Load reads the bookmark file at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the XDG data directory
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || slices.Contains(s.entries, line) {
			continue
		}
		s.entries = append(s.entries, line)
	}
	return s, nil
}

// Path returns the bookmark file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the bookmarks, one per line, without a trailing newline.
// The parent directory is created if needed.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create bookmark directory: %w", err)
	}
	data := strings.Join(s.entries, "\n")
	if err := os.WriteFile(s.path, []byte(data), 0600); err != nil {
		return fmt.Errorf("failed to write bookmarks: %w", err)
	}
	return nil
}

// Add appends request unless it is already bookmarked, and reports whether
// it was added. The request must be an absolute gemini:// request.
func (s *Store) Add(request string) (bool, error) {
	loc, err := model.ParseLocation(strings.TrimSpace(request))
	if err != nil {
		return false, err
	}
	if s.Contains(loc.Request()) {
		return false, nil
	}
	s.entries = append(s.entries, loc.Request())
	return true, nil
}

// Remove deletes request from the store.
func (s *Store) Remove(request string) error {
	i := slices.Index(s.entries, strings.TrimSpace(request))
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotBookmarked, request)
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return nil
}

// Contains reports whether request is bookmarked.
func (s *Store) Contains(request string) bool {
	return slices.Contains(s.entries, request)
}

// List returns a copy of the bookmarks in insertion order.
func (s *Store) List() []string {
	return slices.Clone(s.entries)
}

// Len returns the number of bookmarks.
func (s *Store) Len() int {
	return len(s.entries)
}
