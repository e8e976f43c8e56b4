package main

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/config"
	"github.com/muurk/hisense/internal/deviceclient"
	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/session"
)

// Persistent flags shared by every device command
var (
	deviceAlias string
	wifiID      string
	deviceID    string
	tokenFile   string
	timeoutSecs int
	logLevel    string
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceAlias, "device", "d", "", "Registered device alias (default: the default or only device)")
	rootCmd.PersistentFlags().StringVar(&wifiID, "wifi-id", "", "Wifi module id (skips the registry, needs --device-id)")
	rootCmd.PersistentFlags().StringVar(&deviceID, "device-id", "", "Appliance id (skips the registry, needs --wifi-id)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "File holding the refresh token")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 0, "Request timeout in seconds (default from preferences, 10)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show the request trace")
}

// target is one resolved appliance with its client stack
type target struct {
	alias    string
	name     string
	registry *config.Registry
	device   *config.Device
	adHoc    bool

	session *session.Session
	client  *deviceclient.Client
	ctrl    *climate.Controller
}

// openTarget resolves the device, its refresh token and builds the client stack
func openTarget() (*target, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	t := &target{registry: registry}
	if wifiID != "" || deviceID != "" {
		if wifiID == "" || deviceID == "" {
			return nil, fmt.Errorf("--wifi-id and --device-id must be given together")
		}
		t.adHoc = true
		t.alias = deviceAlias
		if t.alias == "" {
			t.alias = deviceID
		}
		t.device = &config.Device{WifiID: wifiID, DeviceID: deviceID}
	} else {
		t.alias, t.device, err = registry.ResolveDevice(deviceAlias)
		if err != nil {
			return nil, err
		}
	}
	t.name = t.device.DisplayName(t.alias)

	token, err := config.ResolveRefreshToken(config.TokenSource{
		FlagFile: tokenFile,
		Device:   t.device,
		Prompt:   true,
	})
	if err != nil {
		return nil, err
	}

	unit, err := resolveUnit(registry, t.device)
	if err != nil {
		return nil, err
	}

	timeout := resolveTimeout(registry)
	t.session = session.New(token)
	t.session.HTTPClient.Timeout = timeout
	t.client = deviceclient.New(deviceclient.Identity{
		WifiID:   t.device.WifiID,
		DeviceID: t.device.DeviceID,
	}, t.session)
	t.client.SetTimeout(timeout)

	t.ctrl = climate.NewController(t.client, t.session)
	t.ctrl.Unit = unit

	logging.Debug("Resolved device",
		zap.String("alias", t.alias),
		zap.String("device_id", t.device.DeviceID),
		zap.String("unit", string(unit)),
		zap.Duration("timeout", timeout),
	)
	return t, nil
}

// touch records a successful poll in the registry. Failures only log.
func (t *target) touch() {
	if t.adHoc {
		return
	}
	t.registry.UpdateDeviceLastSeen(t.alias, time.Now().UTC())
	if err := t.registry.Save(); err != nil {
		logging.Debug("Failed to save last seen time", zap.Error(err))
	}
}

// resolveUnit picks the device unit, then the preference, then Celsius
func resolveUnit(registry *config.Registry, device *config.Device) (climate.Unit, error) {
	if device != nil && device.TemperatureUnit != "" {
		return climate.ParseUnit(device.TemperatureUnit)
	}
	if registry.Preferences != nil {
		return climate.ParseUnit(registry.Preferences.TemperatureUnit)
	}
	return climate.Celsius, nil
}

func resolveTimeout(registry *config.Registry) time.Duration {
	if timeoutSecs > 0 {
		return time.Duration(timeoutSecs) * time.Second
	}
	if registry.Preferences != nil && registry.Preferences.TimeoutSeconds > 0 {
		return time.Duration(registry.Preferences.TimeoutSeconds) * time.Second
	}
	return deviceclient.DefaultTimeout
}

// parseOnOff accepts on/off, true/false, yes/no and 1/0
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func ptr[T any](v T) *T {
	return &v
}
