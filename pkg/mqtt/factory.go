package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/autopeer-io/brokerlink/pkg/log"
)

// Driver names accepted by NewFactory.
const (
	DriverPahoV5 = "paho-v5"
	DriverPahoV3 = "paho-v3"
	DriverMQTTv5 = "mqttv5"
)

// Drivers lists the supported driver names, default first.
var Drivers = []string{DriverPahoV5, DriverPahoV3, DriverMQTTv5}

// operationTimeout bounds how long a subscribe or publish may wait for the broker.
const operationTimeout = 30 * time.Second

type factoryConfig struct {
	logger    log.Logger
	debug     bool
	opTimeout time.Duration
}

// FactoryOption customizes a Factory returned by NewFactory.
type FactoryOption func(*factoryConfig)

// WithLogger sets the logger handles write to.
func WithLogger(l log.Logger) FactoryOption {
	return func(c *factoryConfig) { c.logger = l }
}

// WithProtocolDebug routes the protocol library's own trace output into the logger at debug level.
func WithProtocolDebug(enabled bool) FactoryOption {
	return func(c *factoryConfig) { c.debug = enabled }
}

// WithOperationTimeout bounds subscribe and publish round trips.
func WithOperationTimeout(d time.Duration) FactoryOption {
	return func(c *factoryConfig) {
		if d > 0 {
			c.opTimeout = d
		}
	}
}

// NewFactory returns the Factory for the named driver. An empty name selects paho-v5.
func NewFactory(driver string, opts ...FactoryOption) (Factory, error) {
	cfg := &factoryConfig{
		logger:    log.Std(),
		opTimeout: operationTimeout,
	}
	for _, o := range opts {
		o(cfg)
	}

	switch driver {
	case "", DriverPahoV5:
		return &pahoFactory{cfg: cfg, log: cfg.logger.WithName("mqtt.paho-v5")}, nil
	case DriverPahoV3:
		return &paho3Factory{cfg: cfg, log: cfg.logger.WithName("mqtt.paho-v3")}, nil
	case DriverMQTTv5:
		return &mqttv5Factory{cfg: cfg, log: cfg.logger.WithName("mqtt.mqttv5")}, nil
	default:
		return nil, fmt.Errorf("unknown mqtt driver %q, supported: %v", driver, Drivers)
	}
}

// prepare applies defaults and validation shared by every driver.
func prepare(brokerURL string, opts ConnectOptions) (ConnectOptions, error) {
	if _, err := ParseBrokerURL(brokerURL); err != nil {
		return opts, fmt.Errorf("invalid broker url: %w", err)
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid connect options: %w", err)
	}
	return opts, nil
}

func tlsConfig(opts ConnectOptions) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // operator controlled
	}
}
