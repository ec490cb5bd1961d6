// Package events delivers pipeline and supervisor messages to consumers.
package events

import (
	"sync"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// Sink receives events. Implementations must be safe for concurrent use;
// the supervisor emits from one goroutine per output stream.
type Sink interface {
	Emit(models.Event)
}

// Func adapts a plain function to Sink
type Func func(models.Event)

// Emit calls f
func (f Func) Emit(e models.Event) {
	if f != nil {
		f(e)
	}
}

// Discard drops every event
var Discard Sink = Func(func(models.Event) {})

// Multi fans an event out to several sinks in order
func Multi(sinks ...Sink) Sink {
	return Func(func(e models.Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}

// Channel forwards events to ch without blocking. Events that do not fit are
// dropped, so a slow watcher never stalls a worker.
type Channel chan models.Event

// Emit sends e if there is room
func (c Channel) Emit(e models.Event) {
	select {
	case c <- e:
	default:
	}
}

// OrDiscard returns s, or Discard when s is nil
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Recorder keeps every event it receives, in order. Tests in several
// packages use it to assert on emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

// Emit appends e
func (r *Recorder) Emit(e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns recorded events of the given kind
func (r *Recorder) Kinds(kind models.EventKind) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
