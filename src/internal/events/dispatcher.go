package events

import (
	"sync"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

const defaultBuffer = 256

// Dispatcher marshals events from any number of worker goroutines onto a
// single consumer goroutine, so the consumer (the UI-owning loop) never sees
// concurrent calls. Per-producer order is preserved.
type Dispatcher struct {
	ch       chan models.Event
	done     chan struct{}
	closeMu  sync.RWMutex
	closed   bool
	consumer Sink
}

// NewDispatcher starts the consumer goroutine. buffer <= 0 uses a default.
func NewDispatcher(consumer Sink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		ch:       make(chan models.Event, buffer),
		done:     make(chan struct{}),
		consumer: OrDiscard(consumer),
	}
	go d.loop()
	return d
}

// Emit queues e for the consumer. Events emitted after Close are dropped.
func (d *Dispatcher) Emit(e models.Event) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return
	}
	d.ch <- e
}

// Close stops accepting events and blocks until the consumer has drained
// everything already queued.
func (d *Dispatcher) Close() {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.ch)
	d.closeMu.Unlock()
	<-d.done
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for e := range d.ch {
		d.consumer.Emit(e)
	}
}
