// Hisense-bridge polls Hisense air conditioners through the vendor cloud and
// exposes them on the local network.
//
// It serves a JSON API, a WebSocket event stream and Prometheus metrics, and
// can mirror every device to an MQTT broker for home automation systems.
// Devices are taken from the registry managed by hisense-ctl.
//
// Usage:
//
//	hisense-bridge serve [flags]
//
// See 'hisense-bridge serve --help' for available options.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/config"
	"github.com/muurk/hisense/internal/deviceclient"
	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/mqtt"
	"github.com/muurk/hisense/internal/server"
	"github.com/muurk/hisense/internal/session"
	"github.com/muurk/hisense/internal/version"
)

// MQTTPasswordEnvVar holds the broker password, which is never stored in the registry
const MQTTPasswordEnvVar = "HISENSE_MQTT_PASSWORD"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hisense-bridge",
	Short: "Hisense Air Conditioner Bridge",
	Long: `A long running bridge between the Hisense cloud and the local network.

Every registered device is polled on an interval. The latest state is served
over HTTP and pushed to WebSocket clients and, when enabled, to an MQTT
broker. Commands arrive through the HTTP API or the MQTT command topics.

Register devices first with 'hisense-ctl devices add'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	certPath     string
	keyPath      string
	host         string
	port         int
	pollInterval time.Duration
	mqttBroker   string
	logLevel     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge",
	Long: `Start polling the registered devices and serve them over HTTP.

Flags override the bridge and mqtt sections of the registry. The refresh
token of each device comes from its token_file or HISENSE_REFRESH_TOKEN;
devices sharing a token share one session.`,
	Example: `  # Serve every registered device on :8080
  hisense-bridge serve

  # Poll every 30 seconds and publish to a local broker
  hisense-bridge serve --interval 30s --mqtt-broker tcp://localhost:1883

  # Serve HTTPS
  hisense-bridge serve --cert fullchain.pem --key privkey.pem --port 8443`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (enables HTTPS with --key)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (default from config, 0.0.0.0)")
	serveCmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config, 8080)")
	serveCmd.Flags().DurationVar(&pollInterval, "interval", 0, "Poll interval (default from config, 60s)")
	serveCmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL, enables MQTT (e.g. tcp://localhost:1883)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	defer logging.Sync()

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := registry.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cfg := bridgeConfig(registry)
	if (cfg.CertPath == "") != (cfg.KeyPath == "") {
		return fmt.Errorf("both --cert and --key must be provided together")
	}

	devices, err := buildDevices(registry)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, devices)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	mqttCfg := registry.MQTT
	if mqttBroker != "" {
		mqttCfg.Broker = mqttBroker
		mqttCfg.Enabled = true
	}
	if mqttCfg.Enabled {
		client, err := mqtt.Connect(mqtt.Config{
			Broker:      mqttCfg.Broker,
			ClientID:    mqttCfg.ClientID,
			Username:    mqttCfg.Username,
			Password:    os.Getenv(MQTTPasswordEnvVar),
			TopicPrefix: mqttCfg.TopicPrefix,
			QoS:         mqttCfg.QoS,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer client.Close()
		srv.SetBroker(client)
	}

	logging.Info("Starting hisense-bridge",
		zap.String("version", version.Full()),
		zap.String("addr", cfg.Addr()),
		zap.Int("devices", len(devices)),
		zap.Bool("tls", cfg.CertPath != ""),
		zap.Bool("mqtt", mqttCfg.Enabled),
	)

	// Start blocks until SIGINT or SIGTERM
	return srv.Start()
}

// bridgeConfig merges flags over the registry's bridge section
func bridgeConfig(registry *config.Registry) *server.Config {
	b := registry.Bridge
	cfg := &server.Config{
		Host:         b.Host,
		Port:         b.Port,
		CertPath:     b.CertFile,
		KeyPath:      b.KeyFile,
		PollInterval: time.Duration(b.PollInterval) * time.Second,
		Version:      version.Version,
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if pollInterval > 0 {
		cfg.PollInterval = pollInterval
	}
	if certPath != "" || keyPath != "" {
		cfg.CertPath = certPath
		cfg.KeyPath = keyPath
	}
	return cfg
}

// buildDevices creates a controller per registered device. Devices whose
// refresh token resolves to the same value share a session so a token
// refresh by one is seen by all.
func buildDevices(registry *config.Registry) ([]*server.Device, error) {
	aliases := registry.Aliases()
	if len(aliases) == 0 {
		return nil, fmt.Errorf("no devices registered, use 'hisense-ctl devices add' first")
	}

	timeout := time.Duration(registry.Preferences.TimeoutSeconds) * time.Second
	sessions := make(map[string]*session.Session)

	devices := make([]*server.Device, 0, len(aliases))
	for _, alias := range aliases {
		d := registry.Devices[alias]

		token, err := config.ResolveRefreshToken(config.TokenSource{Device: d})
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", alias, err)
		}
		sess, ok := sessions[token]
		if !ok {
			sess = session.New(token)
			sess.HTTPClient.Timeout = timeout
			sessions[token] = sess
		}

		client := deviceclient.New(deviceclient.Identity{WifiID: d.WifiID, DeviceID: d.DeviceID}, sess)
		client.SetTimeout(timeout)

		unit := registry.Preferences.TemperatureUnit
		if d.TemperatureUnit != "" {
			unit = d.TemperatureUnit
		}
		ctrl := climate.NewController(client, sess)
		if ctrl.Unit, err = climate.ParseUnit(unit); err != nil {
			return nil, fmt.Errorf("device %q: %w", alias, err)
		}

		devices = append(devices, &server.Device{
			ID:         alias,
			Name:       d.DisplayName(alias),
			Controller: ctrl,
		})
		logging.Debug("Registered device",
			zap.String("alias", alias),
			zap.String("device_id", d.DeviceID),
			zap.String("token", logging.RedactToken(token)),
		)
	}
	return devices, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hisense-bridge %s\n", version.Full())
	},
}
