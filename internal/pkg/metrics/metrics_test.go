package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := NewSupervisor(reg)

	states := []string{"disconnected", "connecting", "connected"}
	m.SetState("connecting", states)
	m.Transition("connect")
	m.Timeout()
	m.Message()
	m.Message()
	m.Error("ConnectTimeout")
	m.Dropped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionState.WithLabelValues("connecting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConnectionState.WithLabelValues("connected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("connect")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectTimeouts))

	expected := `
# HELP brokerlink_errors_total Total number of recorded errors by kind.
# TYPE brokerlink_errors_total counter
brokerlink_errors_total{kind="ConnectTimeout"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "brokerlink_errors_total"))
}

func TestNilSupervisorIsNoop(t *testing.T) {
	var m *Supervisor
	assert.NotPanics(t, func() {
		m.SetState("connected", []string{"connected"})
		m.Transition("up")
		m.Timeout()
		m.Message()
		m.Error("x")
		m.Dropped()
	})
}

func TestNewSupervisorWithoutRegistry(t *testing.T) {
	m := NewSupervisor(nil)
	m.Timeout()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectTimeouts))
}
