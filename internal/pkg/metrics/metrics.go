package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "brokerlink"

// Supervisor holds the collectors describing one connection supervisor.
// A nil *Supervisor is valid and records nothing.
type Supervisor struct {
	// ConnectionState is 1 for the current state and 0 for the others.
	ConnectionState *prometheus.GaugeVec

	// Transitions counts applied state machine events.
	Transitions *prometheus.CounterVec

	// ConnectTimeouts counts connect attempts abandoned at the deadline.
	ConnectTimeouts prometheus.Counter

	// MessagesReceived counts inbound publishes from the current handle.
	MessagesReceived prometheus.Counter

	// Errors counts recorded errors by kind.
	Errors *prometheus.CounterVec

	// NotificationsDropped counts notifications a slow watcher missed.
	NotificationsDropped prometheus.Counter
}

// NewSupervisor creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests usually want.
func NewSupervisor(reg prometheus.Registerer) *Supervisor {
	m := &Supervisor{
		ConnectionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connection_state",
				Help:      "Current connection state (1 for the active state, 0 otherwise).",
			},
			[]string{"state"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_transitions_total",
				Help:      "Total number of connection state transitions by event.",
			},
			[]string{"event"}, // event: connect/up/reconnect/down/timeout
		),
		ConnectTimeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_timeouts_total",
				Help:      "Total number of connect attempts that hit the connect timeout.",
			},
		),
		MessagesReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_received_total",
				Help:      "Total number of inbound messages delivered by the broker.",
			},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of recorded errors by kind.",
			},
			[]string{"kind"},
		),
		NotificationsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Total number of status notifications dropped because a watcher was not keeping up.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ConnectionState,
			m.Transitions,
			m.ConnectTimeouts,
			m.MessagesReceived,
			m.Errors,
			m.NotificationsDropped,
		)
	}
	return m
}

// SetState marks state as the only active one among states.
func (m *Supervisor) SetState(state string, states []string) {
	if m == nil {
		return
	}
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		m.ConnectionState.WithLabelValues(s).Set(v)
	}
}

func (m *Supervisor) Transition(event string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(event).Inc()
}

func (m *Supervisor) Timeout() {
	if m == nil {
		return
	}
	m.ConnectTimeouts.Inc()
}

func (m *Supervisor) Message() {
	if m == nil {
		return
	}
	m.MessagesReceived.Inc()
}

func (m *Supervisor) Error(kind string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(kind).Inc()
}

func (m *Supervisor) Dropped() {
	if m == nil {
		return
	}
	m.NotificationsDropped.Inc()
}
