package shell

import (
	"io"
	"strings"
	"sync"
)

const clearSequence = "\x1b[H\x1b[2J\x1b[3J"

// TerminalDisplay writes engine output to a raw-mode terminal stream,
// translating line feeds to CRLF.
type TerminalDisplay struct {
	mu  sync.Mutex
	out io.Writer
	err error
}

// NewTerminalDisplay returns a display writing to out.
func NewTerminalDisplay(out io.Writer) *TerminalDisplay {
	return &TerminalDisplay{out: out}
}

func (d *TerminalDisplay) Write(text string) {
	d.write(toCRLF(text))
}

func (d *TerminalDisplay) WriteLine(text string) {
	d.write(toCRLF(text) + "\r\n")
}

func (d *TerminalDisplay) Clear() {
	d.write(clearSequence)
}

// Err returns the first write error, if any.
func (d *TerminalDisplay) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *TerminalDisplay) write(s string) {
	if s == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return
	}
	_, d.err = io.WriteString(d.out, s)
}

func toCRLF(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
