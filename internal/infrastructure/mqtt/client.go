package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
)

// Client publishes rendered line protocol to a broker and receives JSON
// point documents on the site's write topic.
//
// Subscriptions are remembered and restored after every reconnect, so the
// write topic keeps working across broker restarts.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	connected atomic.Bool

	// handlers tracks subscriptions for restoration on reconnect.
	handlers map[string]subscription
	subMu    sync.Mutex

	onDisconnect atomic.Pointer[func(error)]
	logger       atomic.Pointer[Logger]
}

// Logger is the subset of logging.Logger the client uses.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one message. A returned error is logged against
// the topic; the message is acknowledged either way.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and announces the writer on the status topic.
//
// A Last Will marks the writer offline if it vanishes without Close. The
// initial dial is bounded by defaultConnectTimeout; later drops reconnect
// with the configured backoff.
//
// Parameters:
//   - cfg: MQTT configuration from the config file
//   - siteID: Site identifier used as a topic level
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrDisabled when MQTT is off, ErrConnectionFailed otherwise
func Connect(cfg config.MQTTConfig, siteID string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	c := &Client{
		cfg:      cfg,
		topics:   Topics{Prefix: cfg.TopicPrefix, Site: siteID},
		handlers: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onConnected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.onConnectionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.logWarn("MQTT reconnecting", "broker", cfg.Broker.Host)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously and may not have fired yet.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) onConnected() {
	c.connected.Store(true)

	c.subMu.Lock()
	for topic, sub := range c.handlers {
		c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
	c.subMu.Unlock()

	c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, statusPayload(c.cfg.Broker.ClientID, c.topics, "online", ""))
}

func (c *Client) onConnectionLost(err error) {
	c.connected.Store(false)
	if cb := c.onDisconnect.Load(); cb != nil {
		(*cb)(err)
	}
}

// Close publishes a graceful offline status and disconnects. Safe on a nil
// or never-connected client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true,
			statusPayload(c.cfg.Broker.ClientID, c.topics, "offline", "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.connected.Load() && c.client.IsConnected()
}

// Topics returns the topic builder for this client's site.
func (c *Client) Topics() Topics {
	return c.topics
}

// SetOnDisconnect sets a callback invoked with the cause whenever the
// connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.onDisconnect.Store(&callback)
}

// SetLogger sets the logger for handler errors and reconnects. Without one
// they are not reported.
func (c *Client) SetLogger(logger Logger) {
	c.logger.Store(&logger)
}

func (c *Client) logWarn(msg string, args ...any) {
	if l := c.logger.Load(); l != nil {
		(*l).Warn(msg, args...)
	}
}

func (c *Client) logError(msg string, args ...any) {
	if l := c.logger.Load(); l != nil {
		(*l).Error(msg, args...)
	}
}

// wrapHandler adapts a MessageHandler to paho, recovering panics and logging
// returned errors.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logError("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logWarn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
