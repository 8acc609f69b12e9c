package shell

import (
	"bytes"
	"errors"
	"testing"
)

func TestTerminalDisplayTranslatesNewlines(t *testing.T) {
	var buf bytes.Buffer
	d := NewTerminalDisplay(&buf)
	d.Write("a\nb")
	d.WriteLine("c\r\nd")
	d.WriteLine("")
	d.Clear()
	want := "a\r\nbc\r\nd\r\n\r\n" + clearSequence
	if got := buf.String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestTerminalDisplayStopsAfterError(t *testing.T) {
	w := &failingWriter{}
	d := NewTerminalDisplay(w)
	d.Write("x")
	d.Write("y")
	if d.Err() == nil {
		t.Fatalf("expected write error to be kept")
	}
	if w.writes != 1 {
		t.Fatalf("expected writes to stop after the first failure, got %d", w.writes)
	}
}
