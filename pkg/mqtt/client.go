package mqtt

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/brokerlink/pkg/log"
)

// sessionExpiry is requested when the caller asks to keep its session.
const sessionExpiry = uint32(time.Hour / time.Second)

// pahoFactory creates MQTT v5 handles on top of paho.golang's autopaho.
type pahoFactory struct {
	cfg *factoryConfig
	log log.Logger
}

type pahoHandle struct {
	log       log.Logger
	ev        *emitter
	opTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cm     *autopaho.ConnectionManager
	qos    byte
	closed bool
}

func (f *pahoFactory) NewHandle(brokerURL string, opts ConnectOptions, l Listener) (Handle, error) {
	opts, err := prepare(brokerURL, opts)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(brokerURL) // Already validated

	ctx, cancel := context.WithCancel(context.Background())
	h := &pahoHandle{
		log:       f.log.WithValues("broker", brokerURL, "clientID", opts.ClientID),
		ev:        newEmitter(l),
		opTimeout: f.cfg.opTimeout,
		ctx:       ctx,
		cancel:    cancel,
		qos:       opts.QoS,
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     opts.keepAliveSeconds(),
		CleanStartOnInitialConnection: opts.CleanSession,
		ReconnectBackoff:              autopaho.NewConstantBackoff(opts.ReconnectPeriod),
		ConnectTimeout:                opts.ConnectTimeout,
		ConnectUsername:               opts.Username,
		ConnectPassword:               []byte(opts.Password),
		TlsCfg:                        tlsConfig(opts),
		ClientConfig: paho.ClientConfig{
			ClientID:           opts.ClientID,
			OnClientError:      h.onClientError,
			OnServerDisconnect: h.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				h.router,
			},
		},
		OnConnectionUp: h.onConnectionUp,
		OnConnectError: h.onConnectError,
	}
	if !opts.CleanSession {
		pahoCfg.SessionExpiryInterval = sessionExpiry
	}
	if f.cfg.debug {
		pahoCfg.Debug = log.NewPahoLogger(f.log, "autopaho")
		pahoCfg.PahoDebug = log.NewPahoLogger(f.log, "paho")
	}

	h.log.Info("Starting MQTT connection")

	// NewConnection returns immediately, the connection manager dials in the background.
	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start connection manager: %w", err)
	}

	h.mu.Lock()
	h.cm = cm
	h.mu.Unlock()

	return h, nil
}

func (h *pahoHandle) manager() (*autopaho.ConnectionManager, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	return h.cm, nil
}

func (h *pahoHandle) Subscribe(topic string, done CompletionFunc) {
	cm, err := h.manager()
	if err != nil {
		complete(done, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(h.ctx, h.opTimeout)
		defer cancel()

		suback, err := cm.Subscribe(ctx, &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{
				{Topic: topic, QoS: h.qos},
			},
		})
		if err == nil && suback != nil {
			for _, code := range suback.Reasons {
				if code >= 0x80 {
					err = fmt.Errorf("subscription rejected with reason code 0x%02x", code)
					break
				}
			}
		}
		if err != nil {
			h.log.Warn("Subscribe failed", "topic", topic, "error", err)
		} else {
			h.log.Debug("Subscribed to topic", "topic", topic)
		}
		complete(done, err)
	}()
}

func (h *pahoHandle) Publish(topic string, payload []byte, done CompletionFunc) {
	cm, err := h.manager()
	if err != nil {
		complete(done, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(h.ctx, h.opTimeout)
		defer cancel()

		resp, err := cm.Publish(ctx, &paho.Publish{
			Topic:   topic,
			QoS:     h.qos,
			Payload: payload,
		})
		// 0x10 is "no matching subscribers", which is still a delivery.
		if err == nil && resp != nil && resp.ReasonCode != 0 && resp.ReasonCode != 0x10 {
			err = fmt.Errorf("publish rejected with reason code 0x%02x", resp.ReasonCode)
		}
		if err != nil {
			h.log.Warn("Publish failed", "topic", topic, "error", err)
		}
		complete(done, err)
	}()
}

func (h *pahoHandle) Close(force bool) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	cm := h.cm
	h.mu.Unlock()

	h.ev.detach()

	if !force && cm != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := cm.Disconnect(ctx); err != nil {
			h.log.Debug("Graceful disconnect failed", "error", err)
		}
		cancel()
	}
	h.cancel()
	h.log.Info("MQTT connection closed", "force", force)
}

// --- Internal Callbacks ---

// onConnectionUp is called when the connection is established or re-established.
func (h *pahoHandle) onConnectionUp(_ *autopaho.ConnectionManager, _ *paho.Connack) {
	h.log.Info("MQTT connection established")
	h.ev.connected()
}

func (h *pahoHandle) onConnectError(err error) {
	h.log.Debug("MQTT connection attempt failed, retrying", "error", err)
	h.ev.error(err)
	if h.ev.wasUp() {
		h.ev.reconnecting()
	}
}

// onClientError fires when an established link fails; autopaho reconnects on its own.
func (h *pahoHandle) onClientError(err error) {
	h.log.Warn("MQTT client error", "error", err)
	h.ev.error(err)
	h.ev.closed(ReasonOffline)
	h.ev.reconnecting()
}

func (h *pahoHandle) onServerDisconnect(d *paho.Disconnect) {
	reason := ""
	if d != nil && d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	h.log.Warn("MQTT server requested disconnect", "reason", reason)
	h.ev.closed(ReasonDisconnect)
	h.ev.reconnecting()
}

// router hands every inbound publish to the listener.
func (h *pahoHandle) router(p paho.PublishReceived) (bool, error) {
	h.ev.message(p.Packet.Topic, p.Packet.Payload)
	return true, nil // Always acknowledge reception
}

func complete(done CompletionFunc, err error) {
	if done != nil {
		done(err)
	}
}
