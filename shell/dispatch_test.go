package shell

import (
	"context"
	"strings"
	"testing"

	"pkt.systems/osiris/internal/command"
)

func TestDispatcherCustomCommand(t *testing.T) {
	d := DefaultDispatcher()
	var seen []string
	d.Register(Entry{Name: "echo", Summary: "Print arguments", Category: "System", Handler: func(e *Engine, cmd command.Command) Outcome {
		seen = cmd.Args
		e.display.WriteLine(cmd.Remainder)
		return Immediate()
	}})
	display := &recordingDisplay{}
	e, err := New(Config{Display: display, Dispatcher: d, Logger: testLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	te := &testEngine{Engine: e, display: display}
	te.enter("ECHO hello  world")
	if len(seen) != 2 || seen[0] != "hello" {
		t.Fatalf("expected args to reach handler, got %v", seen)
	}
	if !strings.Contains(display.Text(), "hello  world\n") {
		t.Fatalf("expected remainder echoed, got %q", display.Text())
	}
	if _, ok := d.Lookup("echo"); !ok {
		t.Fatalf("expected echo to be registered")
	}
	names := d.Names()
	if names[0] != "banner" {
		t.Fatalf("expected sorted names, got %v", names)
	}
}

func TestDispatcherReplaceKeepsOrder(t *testing.T) {
	d := DefaultDispatcher()
	before := len(d.Entries())
	d.Register(Entry{Name: "ls", Summary: "List everything", Category: "Navigation", Handler: cmdList})
	entries := d.Entries()
	if len(entries) != before {
		t.Fatalf("expected replacement not to add an entry, got %d want %d", len(entries), before)
	}
	if entries[1].Summary != "List everything" {
		t.Fatalf("expected ls replaced in place, got %+v", entries[1])
	}
}

func TestOutcomeVariants(t *testing.T) {
	if Immediate().IsDeferred() {
		t.Fatalf("expected immediate outcome")
	}
	if !Deferred(func(context.Context) Settle { return nil }).IsDeferred() {
		t.Fatalf("expected deferred outcome")
	}
	if Interactive().IsDeferred() {
		t.Fatalf("expected interactive outcome to have no task")
	}
}
