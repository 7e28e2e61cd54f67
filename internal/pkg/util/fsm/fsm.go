package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// Guard turns an error-returning check into a before_<event> callback.
// A non-nil error cancels the transition and is carried by the resulting
// fsm.CanceledError.
func Guard(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Cancel(err)
		}
	}
}

// IgnoreNoTransition drops the error fsm returns when an event leaves the
// machine in the state it was already in.
func IgnoreNoTransition(err error) error {
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return err
}

// Rejected reports whether err means the event was not applicable: either
// the current state is not a source of the event or a guard cancelled it.
func Rejected(err error) bool {
	var (
		invalid  fsm.InvalidEventError
		canceled fsm.CanceledError
	)
	return errors.As(err, &invalid) || errors.As(err, &canceled)
}
