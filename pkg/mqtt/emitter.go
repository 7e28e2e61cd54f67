package mqtt

import (
	"sync"
	"time"
)

// emitter delivers events to a listener until it is detached.
type emitter struct {
	mu sync.RWMutex
	l  Listener

	// up records whether the link has been up at least once, so drivers
	// can tell a first connect failure from a dropped link.
	up bool
}

func newEmitter(l Listener) *emitter {
	return &emitter{l: l}
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	l := e.l
	e.mu.RUnlock()
	if l != nil {
		l(ev)
	}
}

func (e *emitter) detach() {
	e.mu.Lock()
	e.l = nil
	e.mu.Unlock()
}

func (e *emitter) detached() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.l == nil
}

func (e *emitter) connected() {
	e.mu.Lock()
	e.up = true
	e.mu.Unlock()
	e.emit(Event{Type: EventConnected})
}

func (e *emitter) wasUp() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.up
}

func (e *emitter) reconnecting() {
	e.emit(Event{Type: EventReconnecting})
}

func (e *emitter) error(err error) {
	if err == nil {
		return
	}
	e.emit(Event{Type: EventError, Err: err})
}

func (e *emitter) closed(reason string) {
	e.emit(Event{Type: EventClosed, Reason: reason})
}

func (e *emitter) message(topic string, payload []byte) {
	e.emit(Event{
		Type:       EventMessage,
		Topic:      topic,
		Payload:    payload,
		ReceivedAt: time.Now(),
	})
}
