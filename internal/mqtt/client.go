package mqtt

import (
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/hisense/internal/logging"
)

// CommandHandler receives a command payload addressed to one device.
// A returned error is logged and the message is dropped.
type CommandHandler func(deviceID string, payload []byte) error

// Client publishes device state and receives commands over MQTT.
//
// Safe for concurrent use. The command subscription is restored on reconnect.
type Client struct {
	client   pahomqtt.Client
	cfg      Config
	clientID string
	topics   Topics

	mu       sync.RWMutex
	onCmd    CommandHandler
	commands bool
}

// Connect establishes a connection to the broker and announces the bridge online.
func Connect(cfg Config) (*Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("%w: broker url is empty", ErrConnectionFailed)
	}
	if cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	c := &Client{
		cfg:      cfg,
		clientID: cfg.clientID(),
		topics:   Topics{Prefix: cfg.TopicPrefix},
	}

	opts := buildClientOptions(cfg, c.clientID)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logging.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	logging.Info("MQTT connected",
		zap.String("broker", cfg.Broker),
		zap.String("client_id", c.clientID),
		zap.String("status_topic", c.topics.BridgeStatus()),
	)
	return c, nil
}

// Topics returns the topic builder in use
func (c *Client) Topics() Topics {
	return c.topics
}

// handleConnect runs on the initial connect and on every reconnect.
func (c *Client) handleConnect() {
	c.client.Publish(c.topics.BridgeStatus(), c.cfg.QoS, true, buildOnlinePayload(c.clientID))

	c.mu.RLock()
	restore := c.commands
	c.mu.RUnlock()
	if restore {
		c.client.Subscribe(c.topics.AllCommands(), c.cfg.QoS, c.handleMessage)
	}
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Publish sends a payload to a topic and waits for the broker acknowledgment.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, c.cfg.QoS, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishState publishes a device's display state as a retained message.
func (c *Client) PublishState(deviceID string, payload []byte) error {
	return c.Publish(c.topics.State(deviceID), payload, true)
}

// SubscribeCommands routes messages on every device command topic to handler.
func (c *Client) SubscribeCommands(handler CommandHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.onCmd = handler
	c.commands = true
	c.mu.Unlock()

	token := c.client.Subscribe(c.topics.AllCommands(), c.cfg.QoS, c.handleMessage)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

func (c *Client) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.dispatch(msg.Topic(), msg.Payload())
}

// dispatch recovers handler panics so one bad message cannot stop the bridge.
func (c *Client) dispatch(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("MQTT handler panic recovered", zap.String("topic", topic), zap.Any("panic", r))
		}
	}()

	deviceID, ok := c.topics.ParseCommandTopic(topic)
	if !ok {
		logging.Debug("Ignoring message on unexpected topic", zap.String("topic", topic))
		return
	}

	c.mu.RLock()
	handler := c.onCmd
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	if err := handler(deviceID, payload); err != nil {
		logging.Warn("MQTT command failed",
			zap.String("topic", topic),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}

// Close announces a graceful shutdown and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.client.Publish(c.topics.BridgeStatus(), c.cfg.QoS, true, buildOfflinePayload(c.clientID))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}
