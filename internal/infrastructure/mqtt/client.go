package mqtt

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gridctl/internal/infrastructure/config"
)

// Logger receives connection events and route failures.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client is gridctl's broker session. It announces presence for its client
// ID, restores its routes after every reconnect and exposes the command,
// reading, snapshot and echo routes the host uses.
//
// All methods are safe for concurrent use.
type Client struct {
	paho     pahomqtt.Client
	clientID string
	qos      byte
	logger   Logger

	mu     sync.Mutex
	routes map[string]pahomqtt.MessageHandler // by topic filter
}

func newClient(p pahomqtt.Client, cfg config.MQTTConfig, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		paho:     p,
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS), //nolint:gosec // validated to 0..2
		logger:   logger,
		routes:   make(map[string]pahomqtt.MessageHandler),
	}
}

// Connect dials the broker and waits for the first session. Later drops are
// retried by paho in the background between the configured delays.
func Connect(cfg config.MQTTConfig, logger Logger) (*Client, error) {
	c := newClient(nil, cfg, logger)

	opts := clientOptions(cfg).
		SetOnConnectHandler(func(pahomqtt.Client) { c.onConnect() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			c.logger.Warn("MQTT connection lost", "error", err)
		}).
		SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
			c.logger.Info("MQTT reconnecting", "broker", cfg.Broker.Host)
		})
	c.paho = pahomqtt.NewClient(opts)

	if err := wait(c.paho.Connect(), connectTimeout); err != nil {
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

// onConnect runs on the first session and after every reconnect. The broker
// forgets subscriptions with a clean session, so every route is replayed.
func (c *Client) onConnect() {
	c.mu.Lock()
	routes := maps.Clone(c.routes)
	c.mu.Unlock()

	for topic, handler := range routes {
		c.paho.Subscribe(topic, c.qos, handler)
	}
	c.paho.Publish(PresenceTopic(c.clientID), c.qos, true, presencePayload(c.clientID, presenceOnline, ""))
	c.logger.Info("MQTT session established", "client_id", c.clientID, "routes", len(routes))
}

// Close publishes a graceful offline record and disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.paho.Publish(PresenceTopic(c.clientID), c.qos, true,
			presencePayload(c.clientID, presenceOffline, "shutdown"))
		if err := wait(token, ackTimeout); err != nil {
			c.logger.Warn("MQTT offline record not sent", "error", err)
		}
	}
	c.paho.Disconnect(disconnectQuiesce)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a session is open right now.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.paho.IsConnectionOpen()
}

func (c *Client) subscribe(topic string, handle func(topic string, payload []byte) error) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	handler := c.guard(handle)
	if err := wait(c.paho.Subscribe(topic, c.qos, handler), ackTimeout); err != nil {
		return fmt.Errorf("%w %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.mu.Lock()
	c.routes[topic] = handler
	c.mu.Unlock()
	return nil
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	if len(payload) > maxPayload {
		return fmt.Errorf("%w: %s is %d bytes", ErrPayloadTooLarge, topic, len(payload))
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := wait(c.paho.Publish(topic, c.qos, retained, payload), ackTimeout); err != nil {
		return fmt.Errorf("%w %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// guard adapts a route to paho. A failing or panicking route is logged; paho
// acknowledges the message either way.
func (c *Client) guard(handle func(topic string, payload []byte) error) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("MQTT route panicked", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handle(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT route failed", "topic", msg.Topic(), "error", err)
		}
	}
}

func wait(token pahomqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
	return token.Error()
}
