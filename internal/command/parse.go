// Package command splits a submitted shell line into a command and its
// arguments.
package command

import (
	"strings"
	"unicode"
)

// Command represents a parsed shell line.
type Command struct {
	Name string
	Args []string
	// Raw is the trimmed line as typed, used for error echoes.
	Raw string
	// Remainder is everything after the name with inner spacing kept.
	Remainder string
}

// Parse lowercases the first word as the command name. It reports false
// for blank input.
func Parse(input string) (Command, bool) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, false
	}
	fields := strings.Fields(raw)
	cmd := Command{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
		Raw:  raw,
	}
	if cut := strings.IndexFunc(raw, unicode.IsSpace); cut >= 0 {
		cmd.Remainder = strings.TrimSpace(raw[cut:])
	}
	return cmd, true
}

// Arg returns the positional argument at index i or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}
