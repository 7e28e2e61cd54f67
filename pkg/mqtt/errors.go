package mqtt

import "errors"

var (
	// ErrHandleClosed is reported for operations on a handle after Close.
	ErrHandleClosed = errors.New("mqtt handle closed")

	// ErrOperationTimeout is reported when the broker does not acknowledge in time.
	ErrOperationTimeout = errors.New("mqtt operation timed out")

	// ErrNotConnected is reported by drivers that cannot queue operations while offline.
	ErrNotConnected = errors.New("mqtt link is not up")
)
