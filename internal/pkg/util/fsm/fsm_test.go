package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTurnstile(allow *bool) *fsm.FSM {
	return fsm.NewFSM(
		"locked",
		fsm.Events{
			{Name: "coin", Src: []string{"locked"}, Dst: "unlocked"},
			{Name: "push", Src: []string{"unlocked"}, Dst: "locked"},
			{Name: "reset", Src: []string{"locked", "unlocked"}, Dst: "locked"},
		},
		fsm.Callbacks{
			"before_coin": Guard(func(_ context.Context, _ *fsm.Event) error {
				if !*allow {
					return errors.New("coin slot jammed")
				}
				return nil
			}),
		},
	)
}

func TestGuard(t *testing.T) {
	allow := false
	f := newTurnstile(&allow)

	err := f.Event(context.Background(), "coin")
	require.Error(t, err)
	assert.True(t, Rejected(err))
	assert.Contains(t, err.Error(), "coin slot jammed")
	assert.Equal(t, "locked", f.Current())

	allow = true
	require.NoError(t, f.Event(context.Background(), "coin"))
	assert.Equal(t, "unlocked", f.Current())
}

func TestIgnoreNoTransition(t *testing.T) {
	allow := true
	f := newTurnstile(&allow)

	err := f.Event(context.Background(), "reset")
	require.Error(t, err)
	require.NoError(t, IgnoreNoTransition(err))
	assert.False(t, Rejected(err))

	other := errors.New("other")
	assert.Equal(t, other, IgnoreNoTransition(other))
	assert.Nil(t, IgnoreNoTransition(nil))
}

func TestRejectedInvalidEvent(t *testing.T) {
	allow := true
	f := newTurnstile(&allow)

	err := f.Event(context.Background(), "push")
	require.Error(t, err)
	assert.True(t, Rejected(err))
	assert.Equal(t, "locked", f.Current())
}
