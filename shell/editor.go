package shell

import "strings"

// eraseSequence moves left, blanks the cell and moves left again.
const eraseSequence = "\b \b"

// lineBuffer holds the unsubmitted input line. Editing is append and
// backspace only.
type lineBuffer struct {
	buf []rune
}

func (l *lineBuffer) String() string {
	return string(l.buf)
}

func (l *lineBuffer) Len() int {
	return len(l.buf)
}

func (l *lineBuffer) Clear() {
	l.buf = nil
}

func (l *lineBuffer) SetString(value string) {
	if value == "" {
		l.Clear()
		return
	}
	l.buf = []rune(value)
}

func (l *lineBuffer) Append(r rune) {
	l.buf = append(l.buf, r)
}

// Backspace drops the last rune and reports whether anything was removed.
func (l *lineBuffer) Backspace() bool {
	if len(l.buf) == 0 {
		return false
	}
	l.buf = l.buf[:len(l.buf)-1]
	return true
}

// eraseVisual returns the byte sequence that wipes n cells left of the cursor.
func eraseVisual(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("\b", n) + strings.Repeat(" ", n) + strings.Repeat("\b", n)
}
