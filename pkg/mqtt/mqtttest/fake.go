// Package mqtttest provides an in-memory mqtt.Factory for tests.
//
// Handles never touch the network. Tests drive them by emitting events,
// and can keep emitting after Close to model a transport whose retry
// machinery does not stop instantly.
package mqtttest

import (
	"sync"
	"time"

	"github.com/autopeer-io/brokerlink/pkg/mqtt"
)

// Factory records every handle it creates.
type Factory struct {
	// Err, when set, is returned by NewHandle instead of creating a handle.
	Err error

	// SubscribeErr and PublishErr are copied into each new handle.
	SubscribeErr error
	PublishErr   error

	// Deferred makes new handles hold completions until CompleteAll.
	Deferred bool

	// OnNewHandle, when set, runs after the handle is created and before
	// NewHandle returns.
	OnNewHandle func(*Handle)

	mu      sync.Mutex
	handles []*Handle
}

var _ mqtt.Factory = (*Factory)(nil)

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) NewHandle(brokerURL string, opts mqtt.ConnectOptions, l mqtt.Listener) (mqtt.Handle, error) {
	f.mu.Lock()
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return nil, err
	}
	h := &Handle{
		URL:          brokerURL,
		Options:      opts,
		listener:     l,
		subscribeErr: f.SubscribeErr,
		publishErr:   f.PublishErr,
		deferred:     f.Deferred,
	}
	f.handles = append(f.handles, h)
	hook := f.OnNewHandle
	f.mu.Unlock()

	if hook != nil {
		hook(h)
	}
	return h, nil
}

// Handles returns every handle created so far, oldest first.
func (f *Factory) Handles() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Handle, len(f.handles))
	copy(out, f.handles)
	return out
}

// Last returns the most recent handle, or nil.
func (f *Factory) Last() *Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

// Live returns the handles that have not been closed.
func (f *Factory) Live() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Handle
	for _, h := range f.handles {
		if !h.Closed() {
			out = append(out, h)
		}
	}
	return out
}

// Call is one recorded subscribe or publish.
type Call struct {
	Topic   string
	Payload []byte
}

type pendingCall struct {
	Call
	done mqtt.CompletionFunc
}

// Handle is a scripted mqtt.Handle.
type Handle struct {
	URL     string
	Options mqtt.ConnectOptions

	listener mqtt.Listener

	mu           sync.Mutex
	subscribeErr error
	publishErr   error
	deferred     bool
	subscribes   []Call
	publishes    []Call
	pending      []pendingCall
	closed       bool
	forced       bool
}

var _ mqtt.Handle = (*Handle)(nil)

func (h *Handle) Subscribe(topic string, done mqtt.CompletionFunc) {
	h.mu.Lock()
	c := Call{Topic: topic}
	h.subscribes = append(h.subscribes, c)
	err := h.subscribeErr
	if h.deferred {
		h.pending = append(h.pending, pendingCall{Call: c, done: done})
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	if done != nil {
		done(err)
	}
}

func (h *Handle) Publish(topic string, payload []byte, done mqtt.CompletionFunc) {
	h.mu.Lock()
	c := Call{Topic: topic, Payload: payload}
	h.publishes = append(h.publishes, c)
	err := h.publishErr
	if h.deferred {
		h.pending = append(h.pending, pendingCall{Call: c, done: done})
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	if done != nil {
		done(err)
	}
}

func (h *Handle) Close(force bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.forced = force
}

// CompleteAll reports err to every held completion, in call order.
func (h *Handle) CompleteAll(err error) {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, c := range pending {
		if c.done != nil {
			c.done(err)
		}
	}
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Forced reports whether the handle was closed with force set.
func (h *Handle) Forced() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forced
}

// Subscribes returns the recorded subscribe calls.
func (h *Handle) Subscribes() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.subscribes...)
}

// Publishes returns the recorded publish calls.
func (h *Handle) Publishes() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.publishes...)
}

// Emit delivers ev to the listener, whether or not the handle is closed.
func (h *Handle) Emit(ev mqtt.Event) {
	if h.listener != nil {
		h.listener(ev)
	}
}

func (h *Handle) EmitConnected() {
	h.Emit(mqtt.Event{Type: mqtt.EventConnected})
}

func (h *Handle) EmitReconnecting() {
	h.Emit(mqtt.Event{Type: mqtt.EventReconnecting})
}

func (h *Handle) EmitError(err error) {
	h.Emit(mqtt.Event{Type: mqtt.EventError, Err: err})
}

func (h *Handle) EmitClosed(reason string) {
	h.Emit(mqtt.Event{Type: mqtt.EventClosed, Reason: reason})
}

func (h *Handle) EmitMessage(topic string, payload []byte) {
	h.Emit(mqtt.Event{Type: mqtt.EventMessage, Topic: topic, Payload: payload, ReceivedAt: time.Now()})
}
