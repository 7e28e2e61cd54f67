package mqtt

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectOptionsWithDefaults(t *testing.T) {
	opts := ConnectOptions{}.WithDefaults()

	assert.Regexp(t, regexp.MustCompile(`^brokerlink_[0-9a-f]{6}$`), opts.ClientID)
	assert.Equal(t, DefaultReconnectPeriod, opts.ReconnectPeriod)
	assert.Equal(t, DefaultConnectTimeout, opts.ConnectTimeout)
	assert.Equal(t, DefaultKeepAlive, opts.KeepAlive)
	assert.Equal(t, uint16(60), opts.keepAliveSeconds())

	custom := ConnectOptions{ClientID: "me", ReconnectPeriod: time.Second, ConnectTimeout: 2 * time.Second}.WithDefaults()
	assert.Equal(t, "me", custom.ClientID)
	assert.Equal(t, time.Second, custom.ReconnectPeriod)
	assert.Equal(t, 2*time.Second, custom.ConnectTimeout)
}

func TestConnectOptionsWithDefaultsDoesNotMutate(t *testing.T) {
	orig := ConnectOptions{}
	_ = orig.WithDefaults()
	assert.Empty(t, orig.ClientID)
	assert.Zero(t, orig.ConnectTimeout)
}

func TestConnectOptionsValidate(t *testing.T) {
	require.NoError(t, ConnectOptions{QoS: 2}.WithDefaults().Validate())
	require.Error(t, ConnectOptions{QoS: 3}.Validate())
	require.Error(t, ConnectOptions{ConnectTimeout: -time.Second}.Validate())
	require.Error(t, ConnectOptions{KeepAlive: 100000 * time.Second}.Validate())
}

func TestGenerateClientID(t *testing.T) {
	a := GenerateClientID("x_")
	b := GenerateClientID("x_")
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}

func TestParseBrokerURL(t *testing.T) {
	u, err := ParseBrokerURL("wss://test.mosquitto.org:8081")
	require.NoError(t, err)
	assert.Equal(t, "wss", u.Scheme)

	for _, bad := range []string{"", "   ", "localhost", "://x", "tcp://"} {
		_, err := ParseBrokerURL(bad)
		assert.Error(t, err, bad)
	}
}
