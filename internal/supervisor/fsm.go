package supervisor

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/brokerlink/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/brokerlink/internal/pkg/util/fsm"
	"github.com/autopeer-io/brokerlink/pkg/log"
)

const (
	// EventConnect starts a new connect attempt.
	EventConnect = "connect"
	// EventUp is the transport reporting a live link.
	EventUp = "up"
	// EventReconnect is the transport starting a retry cycle on its own.
	EventReconnect = "reconnect"
	// EventDown collapses close, offline, disconnect and teardown.
	EventDown = "down"
	// EventTimeout abandons a connect attempt at the deadline.
	EventTimeout = "timeout"
)

var errNoLiveHandle = errors.New("no live handle")

type stateMachine struct {
	*fsm.FSM

	log     log.Logger
	metrics *metrics.Supervisor
}

func newStateMachine(logger log.Logger, m *metrics.Supervisor) *stateMachine {
	sm := &stateMachine{log: logger, metrics: m}

	disconnected := string(StateDisconnected)
	connecting := string(StateConnecting)
	connected := string(StateConnected)
	reconnecting := string(StateReconnecting)

	events := fsm.Events{
		{Name: EventConnect, Src: []string{disconnected, connected, reconnecting}, Dst: connecting},
		{Name: EventUp, Src: []string{connecting, reconnecting, disconnected}, Dst: connected},
		{Name: EventReconnect, Src: []string{connecting, connected, disconnected}, Dst: reconnecting},
		{Name: EventDown, Src: []string{disconnected, connecting, connected, reconnecting}, Dst: disconnected},
		{Name: EventTimeout, Src: []string{connecting}, Dst: disconnected},
	}

	callbacks := fsm.Callbacks{
		// Guards (before_...): Decide if a transition is allowed
		"before_" + EventReconnect: fsmutil.Guard(sm.guardLiveHandle),

		// Side-Effects: observation only, never calls back into the supervisor.
		"enter_state": sm.enterState,
	}

	sm.FSM = fsm.NewFSM(disconnected, events, callbacks)
	sm.metrics.SetState(disconnected, stateNames())
	return sm
}

// guardLiveHandle only lets a retry cycle start while a handle is alive.
// The first argument of the event is whether one is.
func (sm *stateMachine) guardLiveHandle(_ context.Context, e *fsm.Event) error {
	if len(e.Args) == 0 {
		return errNoLiveHandle
	}
	if live, ok := e.Args[0].(bool); !ok || !live {
		return errNoLiveHandle
	}
	return nil
}

func (sm *stateMachine) enterState(_ context.Context, e *fsm.Event) {
	sm.log.Info("Connection state changed", "from", e.Src, "to", e.Dst, "event", e.Event)
	sm.metrics.Transition(e.Event)
	sm.metrics.SetState(e.Dst, stateNames())
}

func (sm *stateMachine) state() State {
	return State(sm.Current())
}

func stateNames() []string {
	names := make([]string, len(States))
	for i, s := range States {
		names[i] = string(s)
	}
	return names
}
