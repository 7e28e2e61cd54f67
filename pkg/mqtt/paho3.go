package mqtt

import (
	"sync"
	"time"

	paho3 "github.com/eclipse/paho.mqtt.golang"

	"github.com/autopeer-io/brokerlink/pkg/log"
)

// paho3Factory creates MQTT 3.1.1 handles on top of paho.mqtt.golang.
type paho3Factory struct {
	cfg *factoryConfig
	log log.Logger

	once sync.Once
}

type paho3Handle struct {
	log       log.Logger
	ev        *emitter
	opTimeout time.Duration
	qos       byte

	client paho3.Client

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
}

// The paho.mqtt.golang loggers are package globals, so they are installed
// once per process by the first factory that asks for them.
func (f *paho3Factory) installLoggers() {
	f.once.Do(func() {
		paho3.ERROR = log.NewPahoLogger(f.log, "paho3.error")
		paho3.CRITICAL = log.NewPahoLogger(f.log, "paho3.critical")
		paho3.WARN = log.NewPahoLogger(f.log, "paho3.warn")
		if f.cfg.debug {
			paho3.DEBUG = log.NewPahoLogger(f.log, "paho3.debug")
		}
	})
}

func (f *paho3Factory) NewHandle(brokerURL string, opts ConnectOptions, l Listener) (Handle, error) {
	opts, err := prepare(brokerURL, opts)
	if err != nil {
		return nil, err
	}
	f.installLoggers()

	h := &paho3Handle{
		log:       f.log.WithValues("broker", brokerURL, "clientID", opts.ClientID),
		ev:        newEmitter(l),
		opTimeout: f.cfg.opTimeout,
		qos:       opts.QoS,
		stop:      make(chan struct{}),
	}

	co := paho3.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(opts.ClientID).
		SetCleanSession(opts.CleanSession).
		SetKeepAlive(opts.KeepAlive).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(opts.ReconnectPeriod).
		SetMaxReconnectInterval(opts.ReconnectPeriod).
		SetTLSConfig(tlsConfig(opts)).
		SetOnConnectHandler(h.onConnect).
		SetConnectionLostHandler(h.onConnectionLost).
		SetReconnectingHandler(h.onReconnecting).
		SetDefaultPublishHandler(h.onMessage)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	h.client = paho3.NewClient(co)
	h.log.Info("Starting MQTT connection")

	// With ConnectRetry set the token only completes once connected or closed.
	token := h.client.Connect()
	go func() {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				h.ev.error(err)
			}
		case <-h.stop:
		}
	}()

	return h, nil
}

func (h *paho3Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// await waits for token and reports its outcome through done.
func (h *paho3Handle) await(token paho3.Token, op, topic string, done CompletionFunc) {
	go func() {
		var err error
		if !token.WaitTimeout(h.opTimeout) {
			err = ErrOperationTimeout
		} else {
			err = token.Error()
		}
		if err != nil {
			h.log.Warn(op+" failed", "topic", topic, "error", err)
		}
		complete(done, err)
	}()
}

func (h *paho3Handle) Subscribe(topic string, done CompletionFunc) {
	if h.isClosed() {
		complete(done, ErrHandleClosed)
		return
	}
	// A nil callback routes messages through the default publish handler.
	h.await(h.client.Subscribe(topic, h.qos, nil), "Subscribe", topic, done)
}

func (h *paho3Handle) Publish(topic string, payload []byte, done CompletionFunc) {
	if h.isClosed() {
		complete(done, ErrHandleClosed)
		return
	}
	h.await(h.client.Publish(topic, h.qos, false, payload), "Publish", topic, done)
}

func (h *paho3Handle) Close(force bool) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.stop)
	h.mu.Unlock()

	h.ev.detach()

	var quiesce uint = 250
	if force {
		quiesce = 0
	}
	h.client.Disconnect(quiesce)
	h.log.Info("MQTT connection closed", "force", force)
}

func (h *paho3Handle) onConnect(_ paho3.Client) {
	h.log.Info("MQTT connection established")
	h.ev.connected()
}

func (h *paho3Handle) onConnectionLost(_ paho3.Client, err error) {
	h.log.Warn("MQTT connection lost", "error", err)
	h.ev.error(err)
	h.ev.closed(ReasonOffline)
}

func (h *paho3Handle) onReconnecting(_ paho3.Client, _ *paho3.ClientOptions) {
	h.log.Debug("MQTT reconnecting")
	h.ev.reconnecting()
}

func (h *paho3Handle) onMessage(_ paho3.Client, msg paho3.Message) {
	h.ev.message(msg.Topic(), msg.Payload())
}
