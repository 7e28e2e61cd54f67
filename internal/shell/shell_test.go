package shell

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/brokerlink/internal/supervisor"
	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/mqtt"
	"github.com/autopeer-io/brokerlink/pkg/mqtt/mqtttest"
)

const testURL = "wss://broker.example:8081"

func newTestShell(t *testing.T) (*Shell, *supervisor.Supervisor, *mqtttest.Factory, *bytes.Buffer) {
	t.Helper()

	f := mqtttest.NewFactory()
	fc := clocktesting.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	sup := supervisor.New(f, supervisor.WithClock(fc), supervisor.WithLogger(log.NewNopLogger()))
	t.Cleanup(sup.Close)

	out := &bytes.Buffer{}
	sh := New(sup, Config{
		BrokerURL:      testURL,
		ConnectOptions: mqtt.ConnectOptions{ClientID: "shell-test"},
	}, out, log.NewNopLogger())
	return sh, sup, f, out
}

func TestConnectAndToggle(t *testing.T) {
	sh, sup, f, out := newTestShell(t)

	assert.True(t, sh.Execute("toggle"))
	assert.Equal(t, supervisor.StateConnecting, sup.Status().State)
	assert.Contains(t, out.String(), "Connecting to "+testURL+"...")
	require.Len(t, f.Handles(), 1)
	assert.Equal(t, "shell-test", f.Last().Options.ClientID)

	// A second attempt while connecting does not reach the supervisor.
	sh.Execute("connect")
	assert.Len(t, f.Handles(), 1)
	assert.Equal(t, 1, sh.attempts)

	f.Last().EmitConnected()
	require.Equal(t, supervisor.StateConnected, sup.Status().State)

	sh.Execute("sub a/b")
	assert.Equal(t, []string{"a/b"}, sh.subs.List())

	out.Reset()
	sh.Execute("toggle")
	assert.Equal(t, supervisor.StateDisconnected, sup.Status().State)
	assert.Equal(t, 0, sh.subs.Len())
	assert.Contains(t, out.String(), "Disconnected")
}

func TestConnectWithURL(t *testing.T) {
	sh, sup, f, _ := newTestShell(t)

	sh.Execute("connect ws://other:8080")
	require.NotNil(t, f.Last())
	assert.Equal(t, "ws://other:8080", f.Last().URL)
	assert.Equal(t, "ws://other:8080", sup.Status().URL)
}

func TestConnectEmptyURL(t *testing.T) {
	sh, sup, f, out := newTestShell(t)

	sh.Execute("url")
	sh.url = ""
	sh.Execute("connect")

	assert.Empty(t, f.Handles())
	assert.Equal(t, 0, sh.attempts)
	assert.Contains(t, out.String(), "Error: Cannot connect: broker URL is empty")
	assert.NotNil(t, sup.Status().LastError)
}

func TestSubscribe(t *testing.T) {
	sh, _, f, out := newTestShell(t)

	sh.Execute("sub a/b")
	assert.Contains(t, out.String(), "Cannot subscribe: Not connected to broker")
	assert.Equal(t, 0, sh.subs.Len())

	sh.Execute("connect")
	h := f.Last()
	h.EmitConnected()

	sh.Execute("sub a/b")
	sh.Execute("sub a/b")
	sh.Execute("sub a/#")
	assert.Equal(t, []string{"a/b", "a/#"}, sh.subs.List())
	assert.Len(t, h.Subscribes(), 2)
	assert.Contains(t, out.String(), "Already subscribed to a/b")

	out.Reset()
	sh.Execute("sub")
	assert.Contains(t, out.String(), "Usage: sub <topic>")

	out.Reset()
	sh.Execute("subs")
	assert.Contains(t, out.String(), "a/#")
}

func TestPublish(t *testing.T) {
	sh, _, f, out := newTestShell(t)
	sh.Execute("connect")
	h := f.Last()
	h.EmitConnected()

	sh.Execute("pub room/1")
	assert.Contains(t, out.String(), "Usage: pub <topic> <message>")
	assert.Empty(t, h.Publishes())

	sh.Execute("pub room/1 hello   there")
	require.Len(t, h.Publishes(), 1)
	assert.Equal(t, mqtttest.Call{Topic: "room/1", Payload: []byte("hello   there")}, h.Publishes()[0])
	assert.Contains(t, out.String(), "Published to room/1")

	out.Reset()
	sh.Execute("pub room/+ x")
	assert.Contains(t, out.String(), "Error: Cannot publish: invalid topic")
}

func TestFormLockedWhileConnected(t *testing.T) {
	sh, _, f, out := newTestShell(t)

	sh.Execute("clientid other-id")
	assert.Equal(t, "other-id", sh.opts.ClientID)

	sh.Execute("connect")
	f.Last().EmitConnected()

	out.Reset()
	sh.Execute("url ws://elsewhere")
	sh.Execute("clientid again")
	assert.Equal(t, testURL, sh.url)
	assert.Equal(t, "other-id", sh.opts.ClientID)
	assert.Contains(t, out.String(), "Disconnect before changing the broker URL")
	assert.Contains(t, out.String(), "Disconnect before changing the client ID")
}

func TestHandleNotifications(t *testing.T) {
	sh, _, _, out := newTestShell(t)
	at := time.Date(2025, 1, 1, 9, 30, 0, 0, time.Local)

	sh.handle(supervisor.Notification{
		Kind:   supervisor.NotifyStatus,
		Status: supervisor.Status{State: supervisor.StateReconnecting, URL: testURL},
	})
	assert.Contains(t, out.String(), "* Reconnecting to "+testURL+"...")

	// The same state is not printed twice.
	out.Reset()
	sh.handle(supervisor.Notification{
		Kind:   supervisor.NotifyStatus,
		Status: supervisor.Status{State: supervisor.StateReconnecting, URL: testURL},
	})
	assert.Empty(t, out.String())

	sh.handle(supervisor.Notification{
		Kind:    supervisor.NotifyMessage,
		Message: &supervisor.Message{Topic: "a/b", Payload: []byte("hi"), ReceivedAt: at},
	})
	assert.Equal(t, "[09:30:00] a/b: hi\n", out.String())
	assert.Equal(t, 1, sh.history.Len())

	out.Reset()
	sh.handle(supervisor.Notification{
		Kind: supervisor.NotifyError,
		Err:  &supervisor.Error{Kind: supervisor.KindConnectTimeout, Op: supervisor.OpConnect},
	})
	assert.Equal(t, "Error: Connection timeout: Could not connect to the broker\n", out.String())
}

func TestObserve(t *testing.T) {
	sh, sup, f, _ := newTestShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sh.Observe(ctx)
		close(done)
	}()

	sh.Execute("connect")
	h := f.Last()
	h.EmitConnected()
	require.NoError(t, sup.Subscribe("a/#"))

	// Observe registers its watcher asynchronously, so keep emitting until
	// the first message lands.
	require.Eventually(t, func() bool {
		h.EmitMessage("a/b", []byte("ping"))
		sh.mu.Lock()
		defer sh.mu.Unlock()
		return sh.history.Len() > 0
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < 3; i++ {
		h.EmitMessage("a/b", []byte(fmt.Sprint(i)))
	}
	require.Eventually(t, func() bool {
		sh.mu.Lock()
		defer sh.mu.Unlock()
		msgs := sh.history.List()
		return string(msgs[len(msgs)-1].Payload) == "2"
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Observe did not return after cancel")
	}
}

func TestHistoryCommands(t *testing.T) {
	sh, _, _, out := newTestShell(t)

	sh.Execute("history")
	assert.Contains(t, out.String(), "No messages received yet")

	sh.history.Add(supervisor.Message{Topic: "a/b", Payload: []byte("one"), ReceivedAt: time.Now()})
	sh.history.Add(supervisor.Message{Topic: "c/d", Payload: []byte("two"), ReceivedAt: time.Now()})

	out.Reset()
	sh.Execute("history a/+")
	assert.Contains(t, out.String(), "one")
	assert.NotContains(t, out.String(), "two")

	sh.Execute("clear")
	assert.Equal(t, 0, sh.history.Len())
}

func TestMiscCommands(t *testing.T) {
	sh, _, _, out := newTestShell(t)

	assert.True(t, sh.Execute(""))
	assert.True(t, sh.Execute("help"))
	assert.Contains(t, out.String(), "MQTT Client Commands")

	out.Reset()
	assert.True(t, sh.Execute("bogus"))
	assert.Contains(t, out.String(), "Unknown command: bogus")

	out.Reset()
	sh.Execute("status")
	assert.Contains(t, out.String(), "Disconnected")
	assert.Contains(t, out.String(), "shell-test")

	assert.False(t, sh.Execute("quit"))
	assert.False(t, sh.Execute("EXIT"))
}

func TestIndicator(t *testing.T) {
	tests := []struct {
		state  supervisor.State
		text   string
		detail string
	}{
		{supervisor.StateConnected, "Connected", "Connected to u"},
		{supervisor.StateConnecting, "Connecting...", "Connecting to u..."},
		{supervisor.StateReconnecting, "Reconnecting...", "Reconnecting to u..."},
		{supervisor.StateDisconnected, "Disconnected", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.text, Indicator(tt.state))
		assert.Equal(t, tt.detail, Detail(tt.state, "u"))
	}
}
