package mqtt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vitalvas/mqttv5"

	"github.com/autopeer-io/brokerlink/pkg/log"
)

// mqttv5Factory creates MQTT v5 handles on top of github.com/vitalvas/mqttv5.
type mqttv5Factory struct {
	cfg *factoryConfig
	log log.Logger
}

type mqttv5Handle struct {
	log  log.Logger
	ev   *emitter
	opts ConnectOptions
	url  string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	client *mqttv5.Client
	closed bool
}

func (f *mqttv5Factory) NewHandle(brokerURL string, opts ConnectOptions, l Listener) (Handle, error) {
	opts, err := prepare(brokerURL, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &mqttv5Handle{
		log:    f.log.WithValues("broker", brokerURL, "clientID", opts.ClientID),
		ev:     newEmitter(l),
		opts:   opts,
		url:    brokerURL,
		ctx:    ctx,
		cancel: cancel,
	}

	h.log.Info("Starting MQTT connection")
	go h.dialLoop()

	return h, nil
}

// dialLoop retries the initial dial until it succeeds or the handle is closed.
// Once connected the library's own reconnect loop takes over.
func (h *mqttv5Handle) dialLoop() {
	dialOpts := []mqttv5.Option{
		mqttv5.WithServers(h.url),
		mqttv5.WithClientID(h.opts.ClientID),
		mqttv5.WithCleanStart(h.opts.CleanSession),
		mqttv5.WithKeepAlive(h.opts.keepAliveSeconds()),
		mqttv5.WithConnectTimeout(h.opts.ConnectTimeout),
		mqttv5.WithAutoReconnect(true),
		mqttv5.WithReconnectBackoff(h.opts.ReconnectPeriod),
		mqttv5.WithMaxBackoff(h.opts.ReconnectPeriod),
		mqttv5.WithTLS(tlsConfig(h.opts)),
		mqttv5.OnEvent(h.onEvent),
	}
	if h.opts.Username != "" {
		dialOpts = append(dialOpts, mqttv5.WithCredentials(h.opts.Username, h.opts.Password))
	}

	for {
		client, err := mqttv5.DialContext(h.ctx, dialOpts...)
		if err == nil {
			h.mu.Lock()
			if h.closed {
				h.mu.Unlock()
				_ = client.Close()
				return
			}
			h.client = client
			h.mu.Unlock()
			return
		}

		if h.ctx.Err() != nil {
			return
		}
		h.log.Debug("MQTT dial failed, retrying", "error", err, "retryIn", h.opts.ReconnectPeriod)
		h.ev.error(err)

		select {
		case <-h.ctx.Done():
			return
		case <-time.After(h.opts.ReconnectPeriod):
		}
	}
}

func (h *mqttv5Handle) onEvent(client *mqttv5.Client, event error) {
	switch {
	case errors.Is(event, mqttv5.ErrConnected):
		h.mu.Lock()
		if h.client == nil && !h.closed {
			h.client = client
		}
		h.mu.Unlock()
		h.log.Info("MQTT connection established")
		h.ev.connected()
	case errors.Is(event, mqttv5.ErrReconnecting):
		h.ev.reconnecting()
	case errors.Is(event, mqttv5.ErrConnectionLost):
		h.log.Warn("MQTT connection lost", "error", event)
		h.ev.error(event)
		h.ev.closed(ReasonOffline)
	case errors.Is(event, mqttv5.ErrDisconnected):
		h.ev.closed(ReasonDisconnect)
	case errors.Is(event, mqttv5.ErrReconnectFailed):
		h.ev.error(event)
		h.ev.closed(ReasonClose)
	default:
		h.ev.error(event)
	}
}

func (h *mqttv5Handle) current() (*mqttv5.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.client == nil {
		return nil, ErrNotConnected
	}
	return h.client, nil
}

func (h *mqttv5Handle) Subscribe(topic string, done CompletionFunc) {
	client, err := h.current()
	if err != nil {
		complete(done, err)
		return
	}

	go func() {
		err := client.Subscribe(topic, h.opts.QoS, func(msg *mqttv5.Message) {
			h.ev.message(msg.Topic, msg.Payload)
		})
		if err != nil {
			h.log.Warn("Subscribe failed", "topic", topic, "error", err)
		}
		complete(done, err)
	}()
}

func (h *mqttv5Handle) Publish(topic string, payload []byte, done CompletionFunc) {
	client, err := h.current()
	if err != nil {
		complete(done, err)
		return
	}

	go func() {
		err := client.Publish(&mqttv5.Message{
			Topic:   topic,
			Payload: payload,
			QoS:     h.opts.QoS,
		})
		if err != nil {
			h.log.Warn("Publish failed", "topic", topic, "error", err)
		}
		complete(done, err)
	}()
}

// Close cancels the dial context, which also stops the library's reconnect
// loop. The library always sends DISCONNECT on Close when the link is up,
// so force only skips waiting for it.
func (h *mqttv5Handle) Close(force bool) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	client := h.client
	h.mu.Unlock()

	h.ev.detach()
	h.cancel()

	if client != nil {
		if force {
			go func() { _ = client.Close() }()
		} else if err := client.Close(); err != nil {
			h.log.Debug("Graceful disconnect failed", "error", err)
		}
	}
	h.log.Info("MQTT connection closed", "force", force)
}
