package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBrokerURL       = "wss://test.mosquitto.org:8081"
	DefaultClientIDPrefix  = "brokerlink_"
	DefaultReconnectPeriod = 5 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 60 * time.Second
)

// ConnectOptions is the configuration snapshot for one connect attempt.
// It is copied by value when a handle is created; later changes to the
// caller's copy do not affect a handle that already exists.
type ConnectOptions struct {
	// ClientID is sent in CONNECT. Empty means generate one with GenerateClientID.
	ClientID string

	// CleanSession asks the broker to discard any previous session state.
	CleanSession bool

	// ReconnectPeriod is the delay between automatic retries of the transport.
	ReconnectPeriod time.Duration

	// ConnectTimeout bounds a single attempt. The supervisor applies the
	// same value as the overall deadline for reaching Connected.
	ConnectTimeout time.Duration

	// KeepAlive is the MQTT keep-alive interval.
	KeepAlive time.Duration

	Username string
	Password string

	// QoS used for subscribe and publish. 0, 1 or 2.
	QoS byte

	// InsecureSkipVerify disables TLS certificate verification for ssl/wss URLs.
	InsecureSkipVerify bool
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o ConnectOptions) WithDefaults() ConnectOptions {
	if o.ClientID == "" {
		o.ClientID = GenerateClientID(DefaultClientIDPrefix)
	}
	if o.ReconnectPeriod <= 0 {
		o.ReconnectPeriod = DefaultReconnectPeriod
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = DefaultKeepAlive
	}
	return o
}

// Validate checks the fields that a driver cannot repair by defaulting.
func (o ConnectOptions) Validate() error {
	var errs []error
	if o.QoS > 2 {
		errs = append(errs, fmt.Errorf("qos must be 0, 1 or 2, got %d", o.QoS))
	}
	if o.ReconnectPeriod < 0 {
		errs = append(errs, errors.New("reconnect period must not be negative"))
	}
	if o.ConnectTimeout < 0 {
		errs = append(errs, errors.New("connect timeout must not be negative"))
	}
	if o.KeepAlive < 0 || o.KeepAlive/time.Second > 65535 {
		errs = append(errs, fmt.Errorf("keep-alive %s out of range", o.KeepAlive))
	}
	return errors.Join(errs...)
}

func (o ConnectOptions) keepAliveSeconds() uint16 {
	return uint16(o.KeepAlive / time.Second)
}

// GenerateClientID returns prefix followed by six random hex characters.
func GenerateClientID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + id[:6]
}

// ParseBrokerURL parses and sanity checks a broker URL.
func ParseBrokerURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("broker url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("broker url %q must have the form scheme://host[:port]", raw)
	}
	return u, nil
}
