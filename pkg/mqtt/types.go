package mqtt

import (
	"time"
)

// EventType names a lifecycle or data event emitted by a Handle.
type EventType int

const (
	// EventConnected is emitted every time the transport link comes up,
	// including after an automatic reconnect.
	EventConnected EventType = iota
	// EventReconnecting is emitted when the transport starts a retry cycle
	// for a link that was up before.
	EventReconnecting
	// EventError carries a transport or protocol error. It does not imply
	// the link is down.
	EventError
	// EventMessage carries one inbound publish.
	EventMessage
	// EventClosed is emitted when the link goes away. Reason is one of
	// "close", "offline" or "disconnect".
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventReconnecting:
		return "reconnecting"
	case EventError:
		return "error"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reasons attached to EventClosed.
const (
	ReasonClose      = "close"
	ReasonOffline    = "offline"
	ReasonDisconnect = "disconnect"
)

// Event is a single notification from a Handle.
type Event struct {
	Type EventType

	// Err is set for EventError.
	Err error

	// Topic, Payload and ReceivedAt are set for EventMessage.
	Topic      string
	Payload    []byte
	ReceivedAt time.Time

	// Reason is set for EventClosed.
	Reason string
}

// Listener receives the events of one Handle. Drivers may call it from any
// goroutine; calls for a single handle are not guaranteed to be serialized.
type Listener func(Event)

// CompletionFunc reports the asynchronous outcome of a subscribe or publish.
// A nil error means the broker (or the local stack, for QoS 0) accepted it.
type CompletionFunc func(err error)

// Handle is one transport connection attempt together with its own
// automatic retry loop. A Handle is created by a Factory and is owned by
// exactly one caller.
type Handle interface {
	// Subscribe requests a subscription to topic. done is invoked exactly
	// once, from any goroutine, unless the handle is closed first.
	Subscribe(topic string, done CompletionFunc)

	// Publish sends payload to topic. done follows the same rules as for Subscribe.
	Publish(topic string, payload []byte, done CompletionFunc)

	// Close tears the connection down and stops retrying. With force set
	// the transport is dropped without a graceful DISCONNECT handshake.
	// The listener is detached before Close returns; a driver may still
	// have events in flight that are delivered concurrently with Close.
	Close(force bool)
}

// Factory creates handles. NewHandle must not block on the network: the
// connection is established in the background and reported through l.
type Factory interface {
	NewHandle(brokerURL string, opts ConnectOptions, l Listener) (Handle, error)
}

// FactoryFunc adapts an ordinary function to the Factory interface.
type FactoryFunc func(brokerURL string, opts ConnectOptions, l Listener) (Handle, error)

func (f FactoryFunc) NewHandle(brokerURL string, opts ConnectOptions, l Listener) (Handle, error) {
	return f(brokerURL, opts, l)
}
