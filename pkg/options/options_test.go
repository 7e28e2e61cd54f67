package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/brokerlink/pkg/mqtt"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("127.0.0.1:9090"))
	assert.NoError(t, ValidateAddress(":9090"))
	assert.Error(t, ValidateAddress("localhost"))
	assert.Error(t, ValidateAddress("localhost:http"))
	assert.Error(t, ValidateAddress("localhost:70000"))
}

func TestMqttOptionsDefaults(t *testing.T) {
	o := NewMqttOptions()
	assert.Empty(t, o.Validate())

	co := o.ToConnectOptions()
	assert.True(t, co.CleanSession)
	assert.Equal(t, 5*time.Second, co.ReconnectPeriod)
	assert.Equal(t, 10*time.Second, co.ConnectTimeout)

	o.Complete()
	assert.Regexp(t, `^brokerlink_[0-9a-f]{6}$`, o.ClientID)

	// An explicit ID is kept.
	o.ClientID = "fixed"
	o.Complete()
	assert.Equal(t, "fixed", o.ClientID)
}

func TestMqttOptionsValidate(t *testing.T) {
	o := NewMqttOptions()
	o.Broker = "not a url"
	o.Driver = "carrier-pigeon"
	o.QoS = 3
	assert.Len(t, o.Validate(), 4)

	o = NewMqttOptions()
	o.Broker = ""
	assert.Empty(t, o.Validate())
}

func TestMqttOptionsFlags(t *testing.T) {
	o := NewMqttOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--mqtt.broker=ws://localhost:8080",
		"--mqtt.client-id=cli",
		"--mqtt.clean-session=false",
		"--mqtt.connect-timeout=3s",
		"--mqtt.qos=1",
		"--mqtt.driver=" + mqtt.DriverPahoV3,
	}))

	co := o.ToConnectOptions()
	assert.Equal(t, "ws://localhost:8080", o.Broker)
	assert.Equal(t, mqtt.ConnectOptions{
		ClientID:        "cli",
		ReconnectPeriod: mqtt.DefaultReconnectPeriod,
		ConnectTimeout:  3 * time.Second,
		KeepAlive:       mqtt.DefaultKeepAlive,
		QoS:             1,
	}, co)
	assert.Empty(t, o.Validate())
}

func TestHttpOptions(t *testing.T) {
	o := NewHttpOptions()
	assert.Empty(t, o.Validate())

	o.Addr = "nope"
	assert.Len(t, o.Validate(), 1)

	o.Enabled = false
	assert.Empty(t, o.Validate())
}

func TestShellOptions(t *testing.T) {
	o := NewShellOptions()
	assert.Empty(t, o.Validate())

	o.HistorySize = 0
	assert.Len(t, o.Validate(), 1)
}
