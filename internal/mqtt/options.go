package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	defaultKeepAlive         = 60 * time.Second
	defaultReconnectInterval = 2 * time.Second
	defaultMaxReconnect      = 60 * time.Second

	maxQoS = 2

	// maxPayloadSize caps outgoing payloads (1MB).
	maxPayloadSize = 1 << 20
)

// Config holds broker connection settings.
type Config struct {
	Broker      string // e.g. tcp://localhost:1883 or ssl://broker:8883
	ClientID    string // Generated when empty
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// clientID returns the configured id or a generated hisense-bridge-<uuid> one.
func (c Config) clientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return "hisense-bridge-" + uuid.NewString()[:8]
}

// buildClientOptions creates paho MQTT options from the bridge config.
func buildClientOptions(cfg Config, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(defaultReconnectInterval)
	opts.SetMaxReconnectInterval(defaultMaxReconnect)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	configureLWT(opts, Topics{Prefix: cfg.TopicPrefix}, clientID)
	return opts
}

// configureLWT publishes a retained offline status if the bridge disappears.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics, clientID string) {
	willPayload := fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"unexpected_disconnect","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
	opts.SetWill(topics.BridgeStatus(), willPayload, 1, true)
}

func buildOnlinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"online","client_id":"%s","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}

func buildOfflinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"graceful_shutdown","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}
