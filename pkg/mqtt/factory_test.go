package mqtt

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactory(t *testing.T) {
	for _, name := range append([]string{""}, Drivers...) {
		f, err := NewFactory(name)
		require.NoError(t, err, name)
		require.NotNil(t, f)
	}

	_, err := NewFactory("carrier-pigeon")
	require.Error(t, err)
}

func TestFactoriesRejectBadURL(t *testing.T) {
	for _, name := range Drivers {
		f, err := NewFactory(name)
		require.NoError(t, err)

		h, err := f.NewHandle("not a url", ConnectOptions{}, func(Event) {})
		assert.Error(t, err, name)
		assert.Nil(t, h, name)

		h, err = f.NewHandle("tcp://localhost:1883", ConnectOptions{QoS: 7}, func(Event) {})
		assert.Error(t, err, name)
		assert.Nil(t, h, name)
	}
}

func TestFactoryFunc(t *testing.T) {
	called := false
	f := FactoryFunc(func(url string, _ ConnectOptions, _ Listener) (Handle, error) {
		called = true
		assert.Equal(t, "tcp://x:1", url)
		return nil, errors.New("nope")
	})

	_, err := f.NewHandle("tcp://x:1", ConnectOptions{}, nil)
	require.Error(t, err)
	assert.True(t, called)
}

func TestEmitterDetach(t *testing.T) {
	var (
		mu  sync.Mutex
		got []EventType
	)
	e := newEmitter(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})

	assert.False(t, e.wasUp())
	e.connected()
	assert.True(t, e.wasUp())
	e.error(nil) // ignored
	e.error(errors.New("boom"))
	e.message("a/b", []byte("hi"))
	e.detach()
	assert.True(t, e.detached())
	e.closed(ReasonClose)
	e.reconnecting()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventConnected, EventError, EventMessage}, got)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "connected", EventConnected.String())
	assert.Equal(t, "reconnecting", EventReconnecting.String())
	assert.Equal(t, "error", EventError.String())
	assert.Equal(t, "message", EventMessage.String())
	assert.Equal(t, "closed", EventClosed.String())
	assert.Equal(t, "unknown", EventType(42).String())
}
