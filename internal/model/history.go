package model

// History is the list of committed locations plus the index of the one
// currently displayed. Once non-empty, the index always points at a valid
// entry.
//
// History is not safe for concurrent use; the navigation engine owns it.
type History struct {
	entries []Location
	index   int
	limit   int
}

// NewHistory returns an empty history holding at most limit entries.
// A limit of zero or less means no limit.
func NewHistory(limit int) *History {
	return &History{
		entries: make([]Location, 0),
		limit:   limit,
	}
}

// Commit discards every entry after the current index, appends loc and
// makes it current. When the limit is exceeded the oldest entry is dropped.
func (h *History) Commit(loc Location) {
	if len(h.entries) > 0 {
		h.entries = h.entries[:h.index+1]
	}
	h.entries = append(h.entries, loc)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	h.index = len(h.entries) - 1
}

// Current returns the entry at the current index.
func (h *History) Current() (Location, bool) {
	if len(h.entries) == 0 {
		return Location{}, false
	}
	return h.entries[h.index], true
}

// Seek moves the index to i without changing the entries.
func (h *History) Seek(i int) (Location, bool) {
	if i < 0 || i >= len(h.entries) {
		return Location{}, false
	}
	h.index = i
	return h.entries[i], true
}

// Index returns the current index. It is meaningless for an empty history.
func (h *History) Index() int {
	return h.index
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// IsEmpty reports whether nothing has been committed yet.
func (h *History) IsEmpty() bool {
	return len(h.entries) == 0
}

// CanGoBack reports whether an entry exists before the current one.
func (h *History) CanGoBack() bool {
	return len(h.entries) > 0 && h.index > 0
}

// CanGoForward reports whether an entry exists after the current one.
func (h *History) CanGoForward() bool {
	return h.index+1 < len(h.entries)
}

// Entries returns a copy of all entries.
func (h *History) Entries() []Location {
	out := make([]Location, len(h.entries))
	copy(out, h.entries)
	return out
}
