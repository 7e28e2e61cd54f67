// Package supervisor owns a single broker connection and drives it through
// its lifecycle.
//
// A Supervisor holds at most one live transport handle. Every handle event,
// operation completion and timer callback carries the generation it was
// created for; anything from an older generation is ignored, so a handle
// that keeps talking after it was discarded cannot change the observable
// state. Handles are always closed outside the lock.
package supervisor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/brokerlink/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/brokerlink/internal/pkg/util/fsm"
	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/mqtt"
	"github.com/autopeer-io/brokerlink/pkg/mqtt/topic"
)

const defaultNotifyBuffer = 64

// Supervisor is the connection lifecycle manager. It is safe for concurrent use.
type Supervisor struct {
	factory      mqtt.Factory
	log          log.Logger
	clock        clock.WithDelayedExecution
	metrics      *metrics.Supervisor
	notifyBuffer int

	mu  sync.Mutex
	sm  *stateMachine
	gen uint64

	handle   mqtt.Handle
	creating bool
	timer    clock.Timer

	url      string
	clientID string
	since    time.Time
	lastMsg  *Message
	lastErr  *Error

	closed      bool
	watchers    map[int]*watcher
	nextWatcher int
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. The supervisor names it "supervisor".
func WithLogger(l log.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// WithClock replaces the clock that drives the connect timeout.
func WithClock(c clock.WithDelayedExecution) Option {
	return func(s *Supervisor) { s.clock = c }
}

// WithMetrics registers the supervisor collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Supervisor) { s.metrics = metrics.NewSupervisor(reg) }
}

// WithNotifyBuffer sets the per-watcher buffer size.
func WithNotifyBuffer(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.notifyBuffer = n
		}
	}
}

// New returns a Supervisor in the Disconnected state.
func New(factory mqtt.Factory, opts ...Option) *Supervisor {
	s := &Supervisor{
		factory:      factory,
		log:          log.Std(),
		clock:        clock.RealClock{},
		notifyBuffer: defaultNotifyBuffer,
		watchers:     make(map[int]*watcher),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.WithName("supervisor")
	s.sm = newStateMachine(s.log, s.metrics)
	s.since = s.clock.Now()
	return s
}

// Connect starts a connect attempt to brokerURL. opts is captured as it is
// now; later changes do not affect this attempt.
//
// A call while an attempt is already Connecting, or while its handle is
// still being created, is ignored and returns nil.
// A call while Connected or Reconnecting discards the live handle first.
// The returned error only reports synchronous rejection; the outcome of the
// attempt is observed through Status and Watch.
func (s *Supervisor) Connect(brokerURL string, opts mqtt.ConnectOptions) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if strings.TrimSpace(brokerURL) == "" {
		err := s.recordLocked(&Error{Kind: KindEmptyURL, Op: OpConnect})
		s.mu.Unlock()
		return err
	}
	// creating also covers a handle that reported connected before
	// NewHandle returned.
	if s.sm.state() == StateConnecting || s.creating {
		s.log.Debug("Connect ignored, an attempt is already in progress", "url", s.url)
		s.mu.Unlock()
		return nil
	}

	opts = opts.WithDefaults()
	old := s.detachLocked()
	gen := s.gen

	s.url = brokerURL
	s.clientID = opts.ClientID
	s.lastErr = nil
	s.transitionLocked(EventConnect)
	s.timer = s.clock.AfterFunc(opts.ConnectTimeout, func() {
		// The fake clock runs this while holding its own lock.
		go s.onTimeout(gen)
	})
	s.creating = true
	s.mu.Unlock()

	if old != nil {
		old.Close(true)
	}

	s.log.Info("Connecting to broker", "url", brokerURL, "clientID", opts.ClientID, "timeout", opts.ConnectTimeout)
	h, err := s.factory.NewHandle(brokerURL, opts, func(ev mqtt.Event) { s.onEvent(gen, ev) })

	s.mu.Lock()
	if gen != s.gen {
		// Disconnected, timed out or closed while the handle was being created.
		s.mu.Unlock()
		if h != nil {
			h.Close(true)
		}
		return nil
	}
	s.creating = false
	if err != nil {
		s.stopTimerLocked()
		s.transitionLocked(EventDown)
		rerr := s.recordLocked(&Error{Kind: KindTransport, Op: OpConnect, Err: err})
		s.mu.Unlock()
		return rerr
	}
	s.handle = h
	s.mu.Unlock()
	return nil
}

// Disconnect force-closes and discards the handle, cancels the connect
// timeout and moves to Disconnected. It is always safe to call.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	h := s.detachLocked()
	s.transitionLocked(EventDown)
	url := s.url
	s.mu.Unlock()

	if h != nil {
		s.log.Info("Disconnecting from broker", "url", url)
		h.Close(true)
	}
}

// Subscribe forwards a subscription to the live handle. It fails with
// ErrNotConnected unless the state is Connected. A failure reported later
// by the transport is recorded as the last error.
func (s *Supervisor) Subscribe(filter string) error {
	h, gen, err := s.prepareOp(OpSubscribe, filter, topic.ValidateFilter)
	if err != nil {
		return err
	}

	h.Subscribe(filter, func(err error) {
		s.onComplete(gen, OpSubscribe, filter, err)
	})
	return nil
}

// Publish forwards payload to the live handle, with the same rules as Subscribe.
func (s *Supervisor) Publish(name string, payload []byte) error {
	h, gen, err := s.prepareOp(OpPublish, name, topic.ValidateName)
	if err != nil {
		return err
	}

	h.Publish(name, payload, func(err error) {
		s.onComplete(gen, OpPublish, name, err)
	})
	return nil
}

func (s *Supervisor) prepareOp(op, t string, validate func(string) error) (mqtt.Handle, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, 0, ErrClosed
	}
	if s.sm.state() != StateConnected || s.handle == nil {
		return nil, 0, s.recordLocked(&Error{Kind: KindNotConnected, Op: op, Topic: t})
	}
	if err := validate(t); err != nil {
		return nil, 0, s.recordLocked(&Error{Kind: KindInvalidTopic, Op: op, Topic: t, Err: err})
	}
	return s.handle, s.gen, nil
}

// Status returns the current snapshot.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Close tears the supervisor down: the handle is closed, the timer is
// cancelled and watchers are released. Later calls to Connect, Subscribe
// and Publish return ErrClosed.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	h := s.detachLocked()
	s.transitionLocked(EventDown)
	s.closed = true
	s.closeWatchersLocked()
	s.mu.Unlock()

	if h != nil {
		h.Close(true)
	}
	s.log.Info("Supervisor closed")
}

// Run closes the supervisor when ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	<-ctx.Done()
	s.Close()
	return nil
}

func (s *Supervisor) onEvent(gen uint64, ev mqtt.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.closed {
		s.log.Debug("Ignoring event from a discarded handle", "event", ev.Type.String())
		return
	}

	switch ev.Type {
	case mqtt.EventConnected:
		cleared := s.lastErr != nil
		s.lastErr = nil
		if !s.transitionLocked(EventUp) && cleared {
			s.notifyStatusLocked()
		}
		s.log.Info("Connected to broker", "url", s.url)
	case mqtt.EventReconnecting:
		s.transitionLocked(EventReconnect, s.handle != nil || s.creating)
	case mqtt.EventError:
		s.recordLocked(&Error{Kind: KindTransport, Err: ev.Err})
	case mqtt.EventMessage:
		receivedAt := ev.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = s.clock.Now()
		}
		msg := &Message{
			Topic:      ev.Topic,
			Payload:    append([]byte(nil), ev.Payload...),
			ReceivedAt: receivedAt,
		}
		s.lastMsg = msg
		s.metrics.Message()
		s.notifyLocked(Notification{Kind: NotifyMessage, Status: s.statusLocked(), Message: msg})
	case mqtt.EventClosed:
		// The handle is kept: its retry loop may still bring the link back.
		s.log.Debug("Transport closed", "reason", ev.Reason)
		s.transitionLocked(EventDown)
	}
}

func (s *Supervisor) onTimeout(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.closed || s.sm.state() != StateConnecting {
		s.mu.Unlock()
		return
	}

	h := s.detachLocked()
	s.metrics.Timeout()
	s.log.Warn("Connect attempt timed out", "url", s.url)
	s.recordLocked(&Error{Kind: KindConnectTimeout, Op: OpConnect})
	s.transitionLocked(EventTimeout)
	s.mu.Unlock()

	if h != nil {
		h.Close(true)
	}
}

func (s *Supervisor) onComplete(gen uint64, op, t string, err error) {
	if err == nil {
		s.log.Debug("Operation acknowledged", "op", op, "topic", t)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		s.log.Debug("Ignoring completion from a discarded handle", "op", op, "topic", t, "error", err)
		return
	}

	kind := KindPublishFailed
	if op == OpSubscribe {
		kind = KindSubscribeFailed
	}
	s.recordLocked(&Error{Kind: kind, Op: op, Topic: t, Err: err})
}

// detachLocked starts a new generation and hands back the handle to close.
func (s *Supervisor) detachLocked() mqtt.Handle {
	s.gen++
	s.stopTimerLocked()
	h := s.handle
	s.handle = nil
	s.creating = false
	return h
}

func (s *Supervisor) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// transitionLocked applies event and reports whether the state changed.
func (s *Supervisor) transitionLocked(event string, args ...any) bool {
	from := s.sm.state()
	err := fsmutil.IgnoreNoTransition(s.sm.Event(context.Background(), event, args...))
	if err != nil {
		if fsmutil.Rejected(err) {
			s.log.Debug("Event not applicable", "event", event, "state", from, "reason", err)
		} else {
			s.log.Error(err, "State transition failed", "event", event, "state", from)
		}
		return false
	}

	to := s.sm.state()
	if to == from {
		return false
	}
	if from == StateConnecting {
		s.stopTimerLocked()
	}
	s.since = s.clock.Now()
	s.notifyStatusLocked()
	return true
}

func (s *Supervisor) recordLocked(e *Error) error {
	e.At = s.clock.Now()
	s.lastErr = e
	s.metrics.Error(string(e.Kind))

	switch e.Kind {
	case KindNotConnected, KindInvalidTopic, KindEmptyURL:
		s.log.Warn("Operation rejected", "kind", string(e.Kind), "op", e.Op, "topic", e.Topic)
	default:
		s.log.Error(e, "Connection error recorded", "kind", string(e.Kind))
	}

	s.notifyLocked(Notification{Kind: NotifyError, Status: s.statusLocked(), Err: e})
	return e
}

func (s *Supervisor) statusLocked() Status {
	return Status{
		State:       s.sm.state(),
		URL:         s.url,
		ClientID:    s.clientID,
		Since:       s.since,
		LastMessage: s.lastMsg,
		LastError:   s.lastErr,
	}
}
