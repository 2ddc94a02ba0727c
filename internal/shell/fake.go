package shell

import (
	"context"
	"sync"
)

// FakeRunner records invocations and answers them through Handler.
type FakeRunner struct {
	// Handler decides the outcome of a call. Nil means success with no output.
	Handler func(cmd Command) (Result, error)

	mu    sync.Mutex
	calls []Command
}

func (f *FakeRunner) Run(_ context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.Handler == nil {
		return Result{}, nil
	}
	return f.Handler(cmd)
}

// Calls returns a copy of the recorded commands.
func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// CallsTo returns the recorded commands whose Name matches.
func (f *FakeRunner) CallsTo(name string) []Command {
	var out []Command
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
