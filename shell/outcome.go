package shell

import "context"

// Task is a backend call run off the event loop. The returned Settle is
// applied back on the loop.
type Task func(ctx context.Context) Settle

// Settle is the continuation of a Task. It may write output and update the
// session; the engine draws the prompt after it returns.
type Settle func()

// Outcome tells the engine what to do with the prompt once a command
// handler returns.
type Outcome struct {
	task        Task
	interactive bool
}

// Immediate redraws the prompt as soon as the handler returns.
func Immediate() Outcome {
	return Outcome{}
}

// Deferred suppresses the prompt until task settles.
func Deferred(task Task) Outcome {
	return Outcome{task: task}
}

// Interactive suppresses the prompt because a credential capture flow now
// owns the line; the flow draws the prompt when it finishes or aborts.
func Interactive() Outcome {
	return Outcome{interactive: true}
}

// IsDeferred reports whether the prompt waits for a task.
func (o Outcome) IsDeferred() bool {
	return o.task != nil
}
