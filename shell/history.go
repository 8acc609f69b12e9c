package shell

// History is the append-only log of submitted commands with an up-arrow
// cursor. A cursor of -1 means the user is not browsing.
type History struct {
	entries []string
	cursor  int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{cursor: -1}
}

// Push appends entry and stops browsing.
func (h *History) Push(entry string) {
	h.entries = append(h.entries, entry)
	h.cursor = -1
}

// Previous walks one step toward the oldest entry and returns it. It
// reports false only when the history is empty; at the oldest entry it
// keeps returning that entry.
func (h *History) Previous() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Reset stops browsing without touching the stored entries.
func (h *History) Reset() {
	h.cursor = -1
}

// Cursor returns the browse position, -1 when not browsing.
func (h *History) Cursor() int {
	return h.cursor
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the stored entries, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
