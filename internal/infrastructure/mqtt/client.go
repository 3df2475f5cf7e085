package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pagecraft/builder-core/internal/infrastructure/config"
)

// Client is the service's connection to the MQTT broker. It announces
// presence on the system status topic, re-establishes subscriptions
// after a reconnect, and recovers panicking message handlers. All
// methods are safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	// mu guards connected, the event callbacks, and the logger.
	mu           sync.RWMutex
	connected    bool
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	// subMu guards subs, the topics to restore after a reconnect.
	subMu sync.RWMutex
	subs  map[string]subscription
}

// Logger is the subset of logging.Logger the client needs for reporting
// handler failures.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one inbound message. The paho library invokes
// handlers on its own goroutines, so they must not block for long; a
// returned error is logged and the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker described by cfg and blocks until the
// connection is up or the connect timeout passes. The client registers
// a last-will message so the broker reports the service offline after a
// crash, and publishes an online status on every (re)connect.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := &Client{
		cfg:  cfg,
		subs: make(map[string]subscription),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.onConnected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.onLost(err) })

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously; mark the state here so
	// IsConnected is true as soon as Connect returns.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

func (c *Client) onConnected() {
	c.mu.Lock()
	c.connected = true
	callback := c.onConnect
	c.mu.Unlock()

	c.resubscribeAll()
	c.announcePresence(true)

	if callback != nil {
		callback()
	}
}

func (c *Client) onLost(err error) {
	c.mu.Lock()
	c.connected = false
	callback := c.onDisconnect
	c.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// resubscribeAll replays the tracked subscriptions after a reconnect.
// Failures are left to the next reconnect cycle.
func (c *Client) resubscribeAll() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subs {
		c.paho.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// announcePresence publishes a retained online/offline status so
// subscribers see the service state without waiting for a message.
func (c *Client) announcePresence(online bool) {
	payload := buildOfflinePayload(c.cfg.Broker.ClientID)
	if online {
		payload = buildOnlinePayload(c.cfg.Broker.ClientID)
	}
	c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close announces a graceful offline status, then disconnects with a
// short quiesce so in-flight publishes can finish. Closing an unopened
// client is a no-op.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		topic := Topics{}.SystemStatus()
		payload := buildOfflinePayload(c.cfg.Broker.ClientID)
		token := c.paho.Publish(topic, byte(c.cfg.QoS), true, payload)
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.paho.Disconnect(defaultDisconnectQuiesce)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the broker connection is currently up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.paho.IsConnected()
}

// SetOnConnect registers a callback run on the initial connect and on
// every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback run when the connection drops,
// with the error that caused the loss.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger attaches a logger for handler errors and recovered panics.
// Without one those failures are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho's signature, recovering
// panics so one bad handler cannot kill the paho read loop.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("mqtt handler panicked",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("mqtt handler failed",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
