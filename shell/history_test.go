package shell

import "testing"

func TestHistoryPreviousNeverPassesOldest(t *testing.T) {
	h := NewHistory()
	if _, ok := h.Previous(); ok {
		t.Fatalf("expected empty history to report false")
	}
	h.Push("one")
	h.Push("two")
	for i, want := range []string{"two", "one", "one", "one"} {
		got, ok := h.Previous()
		if !ok || got != want {
			t.Fatalf("step %d: expected %q, got %q (%v)", i, want, got, ok)
		}
	}
	if h.Cursor() != 0 {
		t.Fatalf("expected cursor at oldest entry, got %d", h.Cursor())
	}
	h.Push("three")
	if h.Cursor() != -1 {
		t.Fatalf("expected push to stop browsing, got %d", h.Cursor())
	}
	if got, _ := h.Previous(); got != "three" {
		t.Fatalf("expected newest entry after push, got %q", got)
	}
	h.Reset()
	if h.Cursor() != -1 || h.Len() != 3 {
		t.Fatalf("expected reset to keep entries, got cursor %d len %d", h.Cursor(), h.Len())
	}
}

func TestHistoryEntriesIsCopy(t *testing.T) {
	h := NewHistory()
	h.Push("ls")
	entries := h.Entries()
	entries[0] = "mutated"
	if h.Entries()[0] != "ls" {
		t.Fatalf("expected stored history to be unaffected")
	}
}
