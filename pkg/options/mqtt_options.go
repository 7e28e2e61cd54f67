package options

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/brokerlink/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions contains the broker connection settings.
type MqttOptions struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	// ClientID is used as is when set. Otherwise one is generated from
	// ClientIDPrefix for every process.
	ClientID       string `json:"client-id" mapstructure:"client-id"`
	ClientIDPrefix string `json:"client-id-prefix" mapstructure:"client-id-prefix"`

	// Client behavior
	CleanSession    bool          `json:"clean-session" mapstructure:"clean-session"`
	ReconnectPeriod time.Duration `json:"reconnect-period" mapstructure:"reconnect-period"`
	ConnectTimeout  time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	KeepAlive       time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	QoS             int           `json:"qos" mapstructure:"qos"`

	// InsecureSkipVerify controls whether a client verifies the server's certificate chain and host name.
	// If true, TLS accepts any certificate presented by the server and any host name in that certificate.
	// In this mode, TLS is susceptible to man-in-the-middle attacks. This should be used only for testing.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// Driver selects the client library.
	Driver string `json:"driver" mapstructure:"driver"`

	// Debug routes the client library's own logging into the logger.
	Debug bool `json:"debug" mapstructure:"debug"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Broker:          mqtt.DefaultBrokerURL,
		ClientIDPrefix:  mqtt.DefaultClientIDPrefix,
		CleanSession:    true,
		ReconnectPeriod: mqtt.DefaultReconnectPeriod,
		ConnectTimeout:  mqtt.DefaultConnectTimeout,
		KeepAlive:       mqtt.DefaultKeepAlive,
		Driver:          mqtt.DriverPahoV5,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	// An empty broker is allowed here; the shell lets the user fill it in.
	if o.Broker != "" {
		if _, err := mqtt.ParseBrokerURL(o.Broker); err != nil {
			errors = append(errors, err)
		}
	}
	if !slices.Contains(mqtt.Drivers, o.Driver) {
		errors = append(errors, fmt.Errorf("unknown mqtt driver %q, supported: %v", o.Driver, mqtt.Drivers))
	}
	if o.QoS < 0 || o.QoS > 2 {
		errors = append(errors, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", o.QoS))
	}
	if err := o.ToConnectOptions().Validate(); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "The URL of the MQTT broker (mqtt, mqtts, ws or wss).")
	fs.StringVar(&o.Username, "mqtt.username", o.Username, "The username for MQTT authentication.")
	fs.StringVar(&o.Password, "mqtt.password", o.Password, "The password for MQTT authentication.")
	fs.StringVar(&o.ClientID, "mqtt.client-id", o.ClientID, "Explicit Client ID (optional, usually generated).")
	fs.StringVar(&o.ClientIDPrefix, "mqtt.client-id-prefix", o.ClientIDPrefix, "Prefix for the generated Client ID.")

	fs.BoolVar(&o.CleanSession, "mqtt.clean-session", o.CleanSession, "Ask the broker to discard previous session state.")
	fs.DurationVar(&o.ReconnectPeriod, "mqtt.reconnect-period", o.ReconnectPeriod, "Delay between automatic reconnect attempts.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Deadline for reaching the connected state.")
	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "MQTT Keep Alive interval.")
	fs.IntVar(&o.QoS, "mqtt.qos", o.QoS, "QoS used for subscribe and publish.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")

	fs.StringVar(&o.Driver, "mqtt.driver", o.Driver, fmt.Sprintf("MQTT client library, one of %v.", mqtt.Drivers))
	fs.BoolVar(&o.Debug, "mqtt.debug", o.Debug, "Log the MQTT client library's protocol traffic at debug level.")
}

// Complete fills in the client ID from the prefix when none is set.
func (o *MqttOptions) Complete() {
	if o.ClientID == "" {
		o.ClientID = mqtt.GenerateClientID(o.ClientIDPrefix)
	}
}

// ToConnectOptions converts the options into a connect snapshot.
func (o *MqttOptions) ToConnectOptions() mqtt.ConnectOptions {
	return mqtt.ConnectOptions{
		ClientID:           o.ClientID,
		CleanSession:       o.CleanSession,
		ReconnectPeriod:    o.ReconnectPeriod,
		ConnectTimeout:     o.ConnectTimeout,
		KeepAlive:          o.KeepAlive,
		Username:           o.Username,
		Password:           o.Password,
		QoS:                byte(o.QoS),
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
}
