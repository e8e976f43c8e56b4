package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Defaults applied by NewRegistry and when loading older files
const (
	DefaultTimeoutSeconds = 10
	DefaultBridgeHost     = "0.0.0.0"
	DefaultBridgePort     = 8080
	DefaultPollInterval   = 60
	DefaultTopicPrefix    = "hisense"
	DefaultMQTTQoS        = 1
)

// Registry represents the entire user configuration file.
// It stores device identities and application preferences, never tokens.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by alias
	Preferences *Preferences       `yaml:"preferences,omitempty"`
	Bridge      *BridgeConfig      `yaml:"bridge,omitempty"`
	MQTT        *MQTTConfig        `yaml:"mqtt,omitempty"`
}

// Device represents one air conditioner registered with the vendor cloud.
type Device struct {
	Nickname        string    `yaml:"nickname,omitempty"`         // User-friendly name
	WifiID          string    `yaml:"wifi_id"`                    // Wifi module id from the mobile app
	DeviceID        string    `yaml:"device_id"`                  // Appliance id from the mobile app
	TokenFile       string    `yaml:"token_file,omitempty"`       // File holding the refresh token
	TemperatureUnit string    `yaml:"temperature_unit,omitempty"` // C or F, overrides the preference
	LastSeen        time.Time `yaml:"last_seen,omitempty"`        // Last successful status poll
}

// DisplayName returns the nickname, or the alias when none is set
func (d *Device) DisplayName(alias string) string {
	if d.Nickname != "" {
		return d.Nickname
	}
	return alias
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultDevice   string `yaml:"default_device,omitempty"`   // Alias used when --device is omitted
	TimeoutSeconds  int    `yaml:"timeout_seconds"`            // Per-request timeout
	TemperatureUnit string `yaml:"temperature_unit,omitempty"` // C or F
	Verify          bool   `yaml:"verify"`                     // Poll after every change
}

// BridgeConfig configures hisense-bridge
type BridgeConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	PollInterval int    `yaml:"poll_interval_seconds"`
	CertFile     string `yaml:"cert_file,omitempty"`
	KeyFile      string `yaml:"key_file,omitempty"`
}

// MQTTConfig configures the bridge's MQTT publisher.
// The password is read from HISENSE_MQTT_PASSWORD and never stored.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker,omitempty"` // e.g. tcp://localhost:1883
	ClientID    string `yaml:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	QoS         byte   `yaml:"qos"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	r := &Registry{
		Version: CurrentVersion,
		Devices: make(map[string]*Device),
	}
	r.applyDefaults()
	return r
}

func (r *Registry) applyDefaults() {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if r.Preferences == nil {
		r.Preferences = &Preferences{}
	}
	if r.Preferences.TimeoutSeconds == 0 {
		r.Preferences.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if r.Bridge == nil {
		r.Bridge = &BridgeConfig{}
	}
	if r.Bridge.Host == "" {
		r.Bridge.Host = DefaultBridgeHost
	}
	if r.Bridge.Port == 0 {
		r.Bridge.Port = DefaultBridgePort
	}
	if r.Bridge.PollInterval == 0 {
		r.Bridge.PollInterval = DefaultPollInterval
	}
	if r.MQTT == nil {
		r.MQTT = &MQTTConfig{QoS: DefaultMQTTQoS}
	}
	if r.MQTT.TopicPrefix == "" {
		r.MQTT.TopicPrefix = DefaultTopicPrefix
	}
}

// GetDevice retrieves a device by alias.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(alias string) *Device {
	return r.Devices[alias]
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates an empty entry.
func (r *Registry) EnsureDevice(alias string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[alias]; exists {
		return device
	}

	device := &Device{}
	r.Devices[alias] = device
	return device
}

// AddDevice registers or replaces a device. The first device added becomes
// the default.
func (r *Registry) AddDevice(alias, wifiID, deviceID string) (*Device, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, fmt.Errorf("device alias cannot be empty")
	}
	device := r.EnsureDevice(alias)
	device.WifiID = strings.TrimSpace(wifiID)
	device.DeviceID = strings.TrimSpace(deviceID)
	if err := device.Validate(); err != nil {
		delete(r.Devices, alias)
		return nil, fmt.Errorf("device %q: %w", alias, err)
	}
	if r.Preferences != nil && r.Preferences.DefaultDevice == "" {
		r.Preferences.DefaultDevice = alias
	}
	return device, nil
}

// RemoveDevice deletes a device and clears it as the default
func (r *Registry) RemoveDevice(alias string) bool {
	if _, ok := r.Devices[alias]; !ok {
		return false
	}
	delete(r.Devices, alias)
	if r.Preferences != nil && r.Preferences.DefaultDevice == alias {
		r.Preferences.DefaultDevice = ""
	}
	return true
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(alias, nickname string) {
	device := r.EnsureDevice(alias)
	device.Nickname = nickname
}

// UpdateDeviceLastSeen records a successful poll
func (r *Registry) UpdateDeviceLastSeen(alias string, at time.Time) {
	device := r.EnsureDevice(alias)
	device.LastSeen = at
}

// Aliases returns the device aliases in sorted order
func (r *Registry) Aliases() []string {
	aliases := make([]string, 0, len(r.Devices))
	for alias := range r.Devices {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// ResolveDevice picks the device for a command.
// An empty alias selects the default device, or the only device when there is one.
func (r *Registry) ResolveDevice(alias string) (string, *Device, error) {
	if alias != "" {
		device := r.GetDevice(alias)
		if device == nil {
			return "", nil, fmt.Errorf("unknown device %q (registered: %s)", alias, strings.Join(r.Aliases(), ", "))
		}
		return alias, device, nil
	}

	if r.Preferences != nil && r.Preferences.DefaultDevice != "" {
		if device := r.GetDevice(r.Preferences.DefaultDevice); device != nil {
			return r.Preferences.DefaultDevice, device, nil
		}
	}

	switch len(r.Devices) {
	case 0:
		return "", nil, fmt.Errorf("no devices registered (use 'devices add' or --wifi-id/--device-id)")
	case 1:
		alias := r.Aliases()[0]
		return alias, r.Devices[alias], nil
	default:
		return "", nil, fmt.Errorf("several devices registered, choose one with --device (%s)", strings.Join(r.Aliases(), ", "))
	}
}

// Validate checks a device entry
func (d *Device) Validate() error {
	if d.WifiID == "" {
		return fmt.Errorf("wifi_id is required")
	}
	if d.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	switch strings.ToUpper(d.TemperatureUnit) {
	case "", "C", "F":
	default:
		return fmt.Errorf("temperature_unit must be C or F, got %q", d.TemperatureUnit)
	}
	return nil
}

// Validate checks the whole registry
func (r *Registry) Validate() error {
	if r.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", r.Version, CurrentVersion)
	}
	for _, alias := range r.Aliases() {
		if err := r.Devices[alias].Validate(); err != nil {
			return fmt.Errorf("device %q: %w", alias, err)
		}
	}
	if r.Preferences != nil && r.Preferences.TimeoutSeconds < 0 {
		return fmt.Errorf("preferences.timeout_seconds must not be negative")
	}
	if r.Bridge != nil {
		if r.Bridge.PollInterval < 5 {
			return fmt.Errorf("bridge.poll_interval_seconds must be at least 5, got %d", r.Bridge.PollInterval)
		}
		if r.Bridge.Port < 1 || r.Bridge.Port > 65535 {
			return fmt.Errorf("bridge.port out of range: %d", r.Bridge.Port)
		}
		if (r.Bridge.CertFile == "") != (r.Bridge.KeyFile == "") {
			return fmt.Errorf("bridge.cert_file and bridge.key_file must be set together")
		}
	}
	if r.MQTT != nil && r.MQTT.Enabled {
		if r.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if r.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", r.MQTT.QoS)
		}
	}
	return nil
}
