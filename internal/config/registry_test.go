package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG lookup only applies on linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "hisense") {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/hisense", dir)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "/etc/hisense/custom.yaml")

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if path != "/etc/hisense/custom.yaml" {
		t.Errorf("GetConfigPath() = %v, want override", path)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", reg.Version, CurrentVersion)
	}
	if reg.Devices == nil {
		t.Error("Devices map should be initialized")
	}
	if reg.Preferences.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("TimeoutSeconds = %d, want %d", reg.Preferences.TimeoutSeconds, DefaultTimeoutSeconds)
	}
	if reg.Bridge.Port != DefaultBridgePort || reg.Bridge.PollInterval != DefaultPollInterval {
		t.Errorf("Bridge = %+v, want defaults", reg.Bridge)
	}
	if reg.MQTT.TopicPrefix != "hisense" || reg.MQTT.QoS != 1 || reg.MQTT.Enabled {
		t.Errorf("MQTT = %+v, want disabled defaults", reg.MQTT)
	}
	if err := reg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestRegistryEnsureDevice(t *testing.T) {
	reg := NewRegistry()

	device1 := reg.EnsureDevice("lounge")
	if device1 == nil {
		t.Fatal("EnsureDevice() returned nil")
	}

	device2 := reg.EnsureDevice("lounge")
	if device1 != device2 {
		t.Error("EnsureDevice() should return same instance for same alias")
	}

	device3 := reg.EnsureDevice("bedroom")
	if device1 == device3 {
		t.Error("EnsureDevice() should create new instance for different alias")
	}
}

func TestRegistryAddRemoveDevice(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.AddDevice("lounge", " W1 ", "D1"); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}
	if got := reg.GetDevice("lounge").WifiID; got != "W1" {
		t.Errorf("WifiID = %q, want trimmed W1", got)
	}
	if reg.Preferences.DefaultDevice != "lounge" {
		t.Errorf("DefaultDevice = %q, want first device", reg.Preferences.DefaultDevice)
	}

	if _, err := reg.AddDevice("bedroom", "W2", "D2"); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}
	if reg.Preferences.DefaultDevice != "lounge" {
		t.Error("second device should not replace the default")
	}

	if _, err := reg.AddDevice("broken", "W3", ""); err == nil {
		t.Error("AddDevice() without device id should fail")
	}
	if reg.GetDevice("broken") != nil {
		t.Error("invalid device should not be left in the registry")
	}
	if _, err := reg.AddDevice("  ", "W", "D"); err == nil {
		t.Error("AddDevice() with blank alias should fail")
	}

	if !reg.RemoveDevice("lounge") {
		t.Error("RemoveDevice() = false, want true")
	}
	if reg.Preferences.DefaultDevice != "" {
		t.Error("removing the default should clear it")
	}
	if reg.RemoveDevice("lounge") {
		t.Error("RemoveDevice() of missing device = true")
	}
}

func TestRegistryResolveDevice(t *testing.T) {
	tests := []struct {
		name      string
		devices   []string
		def       string
		alias     string
		wantAlias string
		wantErr   string
	}{
		{name: "explicit", devices: []string{"a", "b"}, alias: "b", wantAlias: "b"},
		{name: "unknown", devices: []string{"a"}, alias: "z", wantErr: "unknown device"},
		{name: "default", devices: []string{"a", "b"}, def: "b", wantAlias: "b"},
		{name: "single", devices: []string{"a"}, wantAlias: "a"},
		{name: "none", wantErr: "no devices registered"},
		{name: "ambiguous", devices: []string{"a", "b"}, wantErr: "--device"},
		{name: "stale default", devices: []string{"a"}, def: "gone", wantAlias: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			for _, alias := range tt.devices {
				reg.Devices[alias] = &Device{WifiID: "w-" + alias, DeviceID: "d-" + alias}
			}
			reg.Preferences.DefaultDevice = tt.def

			alias, device, err := reg.ResolveDevice(tt.alias)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ResolveDevice() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveDevice() error = %v", err)
			}
			if alias != tt.wantAlias || device.WifiID != "w-"+tt.wantAlias {
				t.Errorf("ResolveDevice() = %s/%+v, want %s", alias, device, tt.wantAlias)
			}
		})
	}
}

func TestRegistryValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Registry)
		wantErr string
	}{
		{name: "version", mutate: func(r *Registry) { r.Version = 2 }, wantErr: "unsupported config version"},
		{name: "unit", mutate: func(r *Registry) {
			r.Devices["a"] = &Device{WifiID: "w", DeviceID: "d", TemperatureUnit: "K"}
		}, wantErr: "temperature_unit"},
		{name: "poll interval", mutate: func(r *Registry) { r.Bridge.PollInterval = 1 }, wantErr: "poll_interval"},
		{name: "port", mutate: func(r *Registry) { r.Bridge.Port = 70000 }, wantErr: "port"},
		{name: "tls pair", mutate: func(r *Registry) { r.Bridge.CertFile = "c.pem" }, wantErr: "together"},
		{name: "mqtt broker", mutate: func(r *Registry) { r.MQTT.Enabled = true }, wantErr: "mqtt.broker"},
		{name: "mqtt qos", mutate: func(r *Registry) {
			r.MQTT.Enabled = true
			r.MQTT.Broker = "tcp://localhost:1883"
			r.MQTT.QoS = 3
		}, wantErr: "qos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			tt.mutate(reg)
			err := reg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	if _, err := reg.AddDevice("lounge", "WIFI123", "DEV456"); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}
	reg.SetDeviceNickname("lounge", "Living Room")
	seen := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	reg.UpdateDeviceLastSeen("lounge", seen)
	reg.Devices["lounge"].TokenFile = "~/.hisense-token"
	reg.MQTT.Enabled = true
	reg.MQTT.Broker = "tcp://broker:1883"

	if err := reg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# Hisense AC Configuration File") {
		t.Error("saved file should start with the header comment")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	device := loaded.GetDevice("lounge")
	if device == nil {
		t.Fatal("device should exist in loaded registry")
	}
	if device.Nickname != "Living Room" || device.WifiID != "WIFI123" || device.DeviceID != "DEV456" {
		t.Errorf("loaded device = %+v", device)
	}
	if !device.LastSeen.Equal(seen) {
		t.Errorf("LastSeen = %v, want %v", device.LastSeen, seen)
	}
	if device.DisplayName("lounge") != "Living Room" {
		t.Errorf("DisplayName() = %q", device.DisplayName("lounge"))
	}
	if loaded.Preferences.DefaultDevice != "lounge" {
		t.Errorf("DefaultDevice = %q", loaded.Preferences.DefaultDevice)
	}
	if !loaded.MQTT.Enabled || loaded.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT = %+v", loaded.MQTT)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file yields defaults", func(t *testing.T) {
		reg, err := LoadFile(filepath.Join(dir, "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if len(reg.Devices) != 0 || reg.Version != CurrentVersion {
			t.Errorf("LoadFile() = %+v, want empty default registry", reg)
		}
	})

	t.Run("partial file gets defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		content := "version: 1\ndevices:\n  ac:\n    wifi_id: W\n    device_id: D\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		reg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if reg.Bridge.PollInterval != DefaultPollInterval || reg.Preferences.TimeoutSeconds != DefaultTimeoutSeconds {
			t.Errorf("defaults not applied: %+v %+v", reg.Bridge, reg.Preferences)
		}
	})

	t.Run("wrong version", func(t *testing.T) {
		path := filepath.Join(dir, "v9.yaml")
		if err := os.WriteFile(path, []byte("version: 9\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "unsupported config version") {
			t.Errorf("LoadFile() error = %v, want version error", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("devices: [\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Error("LoadFile() should fail on invalid yaml")
		}
	})
}

func TestResolveRefreshToken(t *testing.T) {
	dir := t.TempDir()
	flagFile := filepath.Join(dir, "flag-token")
	deviceFile := filepath.Join(dir, "device-token")
	if err := os.WriteFile(flagFile, []byte("# comment\n\n  flag-token-value  \n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(deviceFile, []byte("device-token-value\n"), 0600); err != nil {
		t.Fatal(err)
	}
	device := &Device{WifiID: "W", DeviceID: "D", TokenFile: deviceFile}

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(RefreshTokenEnvVar, "env-token")
		got, err := ResolveRefreshToken(TokenSource{FlagFile: flagFile, Device: device})
		if err != nil || got != "flag-token-value" {
			t.Errorf("ResolveRefreshToken() = %q, %v, want flag-token-value", got, err)
		}
	})

	t.Run("env before device file", func(t *testing.T) {
		t.Setenv(RefreshTokenEnvVar, " env-token ")
		got, err := ResolveRefreshToken(TokenSource{Device: device})
		if err != nil || got != "env-token" {
			t.Errorf("ResolveRefreshToken() = %q, %v, want env-token", got, err)
		}
	})

	t.Run("device file", func(t *testing.T) {
		t.Setenv(RefreshTokenEnvVar, "")
		got, err := ResolveRefreshToken(TokenSource{Device: device})
		if err != nil || got != "device-token-value" {
			t.Errorf("ResolveRefreshToken() = %q, %v, want device-token-value", got, err)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Setenv(RefreshTokenEnvVar, "")
		_, err := ResolveRefreshToken(TokenSource{})
		if !errors.Is(err, ErrNoRefreshToken) {
			t.Errorf("ResolveRefreshToken() error = %v, want ErrNoRefreshToken", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		empty := filepath.Join(dir, "empty")
		if err := os.WriteFile(empty, []byte("# only a comment\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadTokenFile(empty); err == nil {
			t.Error("ReadTokenFile() should fail when no token line exists")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ReadTokenFile(filepath.Join(dir, "nope")); err == nil {
			t.Error("ReadTokenFile() should fail for a missing file")
		}
	})
}

func BenchmarkEnsureDevice(b *testing.B) {
	reg := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.EnsureDevice("lounge")
	}
}
