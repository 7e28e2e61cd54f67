package supervisor

import (
	"time"
)

// State is the single connection state. Exactly one holds at any time.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// States lists every state, initial state first.
var States = []State{StateDisconnected, StateConnecting, StateConnected, StateReconnecting}

func (s State) String() string { return string(s) }

// Message is one inbound publish.
type Message struct {
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State State

	// URL and ClientID of the current or most recent connect attempt.
	URL      string
	ClientID string

	// Since is when State was entered.
	Since time.Time

	LastMessage *Message
	LastError   *Error
}

func (s Status) IsConnected() bool    { return s.State == StateConnected }
func (s Status) IsConnecting() bool   { return s.State == StateConnecting }
func (s Status) IsReconnecting() bool { return s.State == StateReconnecting }

// View is the three-boolean status representation served to clients that
// predate the single State.
type View struct {
	Connected    bool         `json:"connected"`
	Connecting   bool         `json:"connecting"`
	Reconnecting bool         `json:"reconnecting"`
	LastMessage  *MessageView `json:"lastMessage"`
	LastError    *string      `json:"lastError"`
}

type MessageView struct {
	Topic     string    `json:"topic"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// View derives the boolean view from the snapshot.
func (s Status) View() View {
	v := View{
		Connected:    s.IsConnected(),
		Connecting:   s.IsConnecting(),
		Reconnecting: s.IsReconnecting(),
	}
	if s.LastMessage != nil {
		v.LastMessage = &MessageView{
			Topic:     s.LastMessage.Topic,
			Payload:   string(s.LastMessage.Payload),
			Timestamp: s.LastMessage.ReceivedAt,
		}
	}
	if s.LastError != nil {
		msg := s.LastError.Error()
		v.LastError = &msg
	}
	return v
}
