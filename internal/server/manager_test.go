package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/brokerlink/internal/supervisor"
	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/mqtt/mqtttest"
	"github.com/autopeer-io/brokerlink/pkg/options"
)

func TestNewManagerRequiresSupervisor(t *testing.T) {
	_, err := NewManager(&Config{})
	assert.Error(t, err)
}

func TestManagerStopsOnContext(t *testing.T) {
	sup := supervisor.New(mqtttest.NewFactory(), supervisor.WithLogger(log.NewNopLogger()))
	httpOpts := options.NewHttpOptions()
	httpOpts.Addr = "127.0.0.1:0"

	m, err := NewManager(&Config{
		HttpOptions: httpOpts,
		Supervisor:  sup,
		Logger:      log.NewNopLogger(),
	})
	require.NoError(t, err)
	assert.Len(t, m.servers, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}

	// The supervisor is closed on the way out.
	assert.ErrorIs(t, sup.Subscribe("a"), supervisor.ErrClosed)
}

func TestManagerQuitAndFailure(t *testing.T) {
	boom := errors.New("boom")

	m := &Manager{log: log.NewNopLogger(), servers: []Server{
		ServerFunc(func(ctx context.Context) error { <-ctx.Done(); return nil }),
		ServerFunc(func(context.Context) error { return errQuit }),
	}}
	assert.NoError(t, m.Start(context.Background()))

	m.servers[1] = ServerFunc(func(context.Context) error { return boom })
	assert.ErrorIs(t, m.Start(context.Background()), boom)
}
