package shell

import (
	"bufio"
	"context"
	"io"
	"unicode"
	"unicode/utf8"
)

// KeyKind classifies a decoded key press.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyTab
	KeyOther
)

// Modifiers is a bit set of chord modifiers held with a key.
type Modifiers uint8

const (
	ModCtrl Modifiers = 1 << iota
	ModAlt
	ModMeta
)

// Chord reports whether any control, alt or meta modifier is held.
func (m Modifiers) Chord() bool {
	return m&(ModCtrl|ModAlt|ModMeta) != 0
}

// KeyEvent is one key press delivered to the engine.
type KeyEvent struct {
	Kind KeyKind
	Rune rune
	Mods Modifiers
}

// IsToggle reports whether the event is the hosting shell's show/hide
// shortcut (Ctrl+`).
func (k KeyEvent) IsToggle() bool {
	return k.Kind == KeyRune && k.Rune == '`' && k.Mods&ModCtrl != 0
}

// IsCtrl reports whether the event is Ctrl plus the given lowercase letter.
func (k KeyEvent) IsCtrl(r rune) bool {
	return k.Kind == KeyRune && k.Mods&ModCtrl != 0 && k.Rune == r
}

// Runes returns plain key events for each rune of s.
func Runes(s string) []KeyEvent {
	out := make([]KeyEvent, 0, len(s))
	for _, r := range s {
		out = append(out, KeyEvent{Kind: KeyRune, Rune: r})
	}
	return out
}

// ReadKeys decodes r in the background. The returned channel closes when r
// ends, ctx is done or stop reports true for an event. Decoding continues
// until r ends so the reader never blocks on an abandoned consumer.
func ReadKeys(ctx context.Context, r io.Reader, stop func(KeyEvent) bool) <-chan KeyEvent {
	raw := make(chan KeyEvent, 64)
	out := make(chan KeyEvent, 64)
	go DecodeKeys(r, raw)
	go func() {
		open := true
		shut := func() {
			if open {
				close(out)
				open = false
			}
		}
		defer shut()
		for k := range raw {
			if !open {
				continue
			}
			if stop != nil && stop(k) {
				shut()
				continue
			}
			select {
			case out <- k:
			case <-ctx.Done():
				shut()
			}
		}
	}()
	return out
}

// DecodeKeys reads a raw terminal byte stream and emits key events until
// the reader fails. The channel is closed on return.
func DecodeKeys(r io.Reader, out chan<- KeyEvent) {
	defer close(out)
	br := bufio.NewReader(r)
	lastWasCR := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		switch {
		case b == 0x1b:
			readEscape(br, out)
		case b == '\r':
			out <- KeyEvent{Kind: KeyEnter}
			lastWasCR = true
		case b == '\n':
			out <- KeyEvent{Kind: KeyEnter}
		case b == 0x7f || b == 0x08:
			out <- KeyEvent{Kind: KeyBackspace}
		case b == '\t':
			out <- KeyEvent{Kind: KeyTab}
		case b == 0x00:
			// Ctrl+` and Ctrl+Space both arrive as NUL.
			out <- KeyEvent{Kind: KeyRune, Rune: '`', Mods: ModCtrl}
		case b < 0x20:
			out <- KeyEvent{Kind: KeyRune, Rune: rune('a' + b - 1), Mods: ModCtrl}
		case b < utf8.RuneSelf:
			out <- KeyEvent{Kind: KeyRune, Rune: rune(b)}
		default:
			_ = br.UnreadByte()
			rn, _, err := br.ReadRune()
			if err != nil {
				return
			}
			out <- KeyEvent{Kind: KeyRune, Rune: rn}
		}
	}
}

func readEscape(br *bufio.Reader, out chan<- KeyEvent) {
	if br.Buffered() == 0 {
		out <- KeyEvent{Kind: KeyOther}
		return
	}
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case '[':
		readCSI(br, out)
	case 'O':
		readSS3(br, out)
	default:
		if b < utf8.RuneSelf {
			out <- KeyEvent{Kind: KeyRune, Rune: rune(b), Mods: ModAlt}
			return
		}
		_ = br.UnreadByte()
		rn, _, err := br.ReadRune()
		if err != nil {
			return
		}
		out <- KeyEvent{Kind: KeyRune, Rune: rn, Mods: ModAlt}
	}
}

func readCSI(br *bufio.Reader, out chan<- KeyEvent) {
	seq := []byte{}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return
		}
	}
	switch string(seq) {
	case "A":
		out <- KeyEvent{Kind: KeyUp}
	case "B":
		out <- KeyEvent{Kind: KeyDown}
	case "C":
		out <- KeyEvent{Kind: KeyRight}
	case "D":
		out <- KeyEvent{Kind: KeyLeft}
	case "1;5A":
		out <- KeyEvent{Kind: KeyUp, Mods: ModCtrl}
	case "1;3A":
		out <- KeyEvent{Kind: KeyUp, Mods: ModAlt}
	default:
		out <- KeyEvent{Kind: KeyOther}
	}
}

func readSS3(br *bufio.Reader, out chan<- KeyEvent) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case 'A':
		out <- KeyEvent{Kind: KeyUp}
	case 'B':
		out <- KeyEvent{Kind: KeyDown}
	case 'C':
		out <- KeyEvent{Kind: KeyRight}
	case 'D':
		out <- KeyEvent{Kind: KeyLeft}
	default:
		out <- KeyEvent{Kind: KeyOther}
	}
}
