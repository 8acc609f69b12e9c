package shell

import (
	"sort"

	"pkt.systems/osiris/internal/command"
)

// Handler runs one command on the engine's loop.
type Handler func(e *Engine, cmd command.Command) Outcome

// Entry describes a registered command for help output.
type Entry struct {
	Name     string
	Usage    string
	Summary  string
	Category string
	Handler  Handler
}

// Dispatcher maps lowercased command names to handlers.
type Dispatcher struct {
	entries  map[string]Entry
	order    []string
	notFound Handler
}

// NewDispatcher returns an empty dispatcher whose fallback handler writes
// the command-not-found line.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		entries:  make(map[string]Entry),
		notFound: cmdNotFound,
	}
}

// Register adds or replaces a command.
func (d *Dispatcher) Register(entry Entry) {
	if _, ok := d.entries[entry.Name]; !ok {
		d.order = append(d.order, entry.Name)
	}
	d.entries[entry.Name] = entry
}

// Lookup returns the entry for name.
func (d *Dispatcher) Lookup(name string) (Entry, bool) {
	entry, ok := d.entries[name]
	return entry, ok
}

// Entries returns the registered commands in registration order.
func (d *Dispatcher) Entries() []Entry {
	out := make([]Entry, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.entries[name])
	}
	return out
}

// Names returns the registered command names sorted alphabetically.
func (d *Dispatcher) Names() []string {
	out := append([]string(nil), d.order...)
	sort.Strings(out)
	return out
}

// Dispatch parses line and runs the matching handler. Blank lines are the
// caller's responsibility; they dispatch to an immediate no-op.
func (d *Dispatcher) Dispatch(e *Engine, line string) Outcome {
	cmd, ok := command.Parse(line)
	if !ok {
		return Immediate()
	}
	entry, ok := d.entries[cmd.Name]
	if !ok || entry.Handler == nil {
		return d.notFound(e, cmd)
	}
	return entry.Handler(e, cmd)
}
