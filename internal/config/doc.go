// Package config provides user configuration management for the Hisense tools.
//
// This package manages a YAML-based configuration file that stores device
// identities (wifi id and device id as shown by the mobile app), nicknames,
// CLI preferences and the bridge and MQTT settings. The configuration follows
// OS-specific conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/hisense/config.yaml or $HOME/.config/hisense/config.yaml
//   - macOS: $HOME/.config/hisense/config.yaml
//   - Windows: %LOCALAPPDATA%\hisense\config.yaml
//
// HISENSE_CONFIG overrides the location.
//
// # Security
//
// This package NEVER writes refresh or access tokens. ResolveRefreshToken reads
// the refresh token from --token-file, HISENSE_REFRESH_TOKEN, the device's
// token_file, or an interactive prompt, in that order.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := registry.AddDevice("living-room", wifiID, deviceID); err != nil {
//	    log.Fatal(err)
//	}
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
