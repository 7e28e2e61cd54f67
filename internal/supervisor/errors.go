package supervisor

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a recorded error.
type Kind string

const (
	KindConnectTimeout  Kind = "ConnectTimeout"
	KindTransport       Kind = "TransportError"
	KindNotConnected    Kind = "NotConnected"
	KindSubscribeFailed Kind = "SubscribeFailed"
	KindPublishFailed   Kind = "PublishFailed"
	KindInvalidTopic    Kind = "InvalidTopic"
	KindEmptyURL        Kind = "EmptyURL"
)

// Operations named in errors.
const (
	OpConnect   = "connect"
	OpSubscribe = "subscribe"
	OpPublish   = "publish"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrConnectTimeout  = errors.New("connect timeout")
	ErrTransport       = errors.New("transport error")
	ErrNotConnected    = errors.New("not connected")
	ErrSubscribeFailed = errors.New("subscribe failed")
	ErrPublishFailed   = errors.New("publish failed")
	ErrInvalidTopic    = errors.New("invalid topic")
	ErrEmptyURL        = errors.New("empty broker url")

	// ErrClosed is returned by operations on a closed Supervisor. It is
	// never recorded as the last error.
	ErrClosed = errors.New("supervisor closed")
)

var sentinels = map[Kind]error{
	KindConnectTimeout:  ErrConnectTimeout,
	KindTransport:       ErrTransport,
	KindNotConnected:    ErrNotConnected,
	KindSubscribeFailed: ErrSubscribeFailed,
	KindPublishFailed:   ErrPublishFailed,
	KindInvalidTopic:    ErrInvalidTopic,
	KindEmptyURL:        ErrEmptyURL,
}

// Error is the value kept as the supervisor's last error.
type Error struct {
	Kind  Kind
	Op    string
	Topic string
	Err   error
	At    time.Time
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConnectTimeout:
		return "Connection timeout: Could not connect to the broker"
	case KindNotConnected:
		return fmt.Sprintf("Cannot %s: Not connected to broker", e.Op)
	case KindSubscribeFailed:
		return fmt.Sprintf("Failed to subscribe to %s: %v", e.Topic, e.Err)
	case KindPublishFailed:
		return fmt.Sprintf("Failed to publish to %s: %v", e.Topic, e.Err)
	case KindInvalidTopic:
		return fmt.Sprintf("Cannot %s: invalid topic %q: %v", e.Op, e.Topic, e.Err)
	case KindEmptyURL:
		return "Cannot connect: broker URL is empty"
	case KindTransport:
		if e.Op == OpConnect {
			return fmt.Sprintf("Cannot connect: %v", e.Err)
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return "transport error"
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}
