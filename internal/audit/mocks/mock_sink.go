package mocks

import (
	"context"
	"sync"

	"casedocs/internal/audit"
)

// RecorderSink collects emitted events for assertions in tests.
type RecorderSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *RecorderSink) Emit(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything emitted so far.
func (r *RecorderSink) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByStage returns the events emitted for a given stage.
func (r *RecorderSink) ByStage(stage audit.Stage) []audit.Event {
	var out []audit.Event
	for _, e := range r.Events() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}
