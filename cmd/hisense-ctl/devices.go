package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/hisense/internal/config"
	"github.com/muurk/hisense/internal/tui"
	"github.com/muurk/hisense/internal/ui"
)

// Device management flags
var (
	addNickname  string
	addUnit      string
	addDefault   bool
	removeYes    bool
	dashInterval time.Duration
)

func init() {
	devicesAddCmd.Flags().StringVar(&addNickname, "nickname", "", "Friendly name shown in output")
	devicesAddCmd.Flags().StringVar(&addUnit, "unit", "", "Temperature unit for this device (C or F)")
	devicesAddCmd.Flags().BoolVar(&addDefault, "default", false, "Make this the default device")
	devicesRemoveCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Do not ask for confirmation")

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
	devicesCmd.AddCommand(devicesDefaultCmd)
	rootCmd.AddCommand(devicesCmd)

	dashboardCmd.Flags().DurationVar(&dashInterval, "interval", tui.DefaultRefreshInterval, "Status poll interval")
	rootCmd.AddCommand(dashboardCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage registered devices",
	Long: `Manage the device registry stored in ~/.config/hisense/config.yaml.

A device is registered under an alias with its wifi id and device id, both
shown by the vendor mobile app. Refresh tokens are never stored in the
registry, only the path of a file holding one.`,
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Print(renderDeviceList(registry))
		return nil
	},
}

var devicesAddCmd = &cobra.Command{
	Use:   "add <alias>",
	Short: "Register a device",
	Example: `  hisense-ctl devices add lounge --wifi-id 1A2B3C --device-id 4D5E6F \
      --token-file ~/.config/hisense/lounge.token --nickname "Lounge AC"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		alias := args[0]
		device, err := registry.AddDevice(alias, wifiID, deviceID)
		if err != nil {
			return fmt.Errorf("%w (pass --wifi-id and --device-id)", err)
		}
		device.TokenFile = tokenFile
		if addUnit != "" {
			unit := strings.ToUpper(addUnit)
			if unit != "C" && unit != "F" {
				return fmt.Errorf("--unit must be C or F, got %q", addUnit)
			}
			device.TemperatureUnit = unit
		}
		if addNickname != "" {
			registry.SetDeviceNickname(alias, addNickname)
		}
		if addDefault && registry.Preferences != nil {
			registry.Preferences.DefaultDevice = alias
		}
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		details := map[string]string{
			"Alias":     alias,
			"Wifi ID":   device.WifiID,
			"Device ID": device.DeviceID,
		}
		if device.TokenFile != "" {
			details["Token file"] = device.TokenFile
		}
		ui.PrintSuccess(os.Stdout, "Device registered", details)

		if device.TokenFile == "" && os.Getenv(config.RefreshTokenEnvVar) == "" {
			ui.PrintWarning(os.Stdout, "No refresh token source", map[string]string{
				"Hint": fmt.Sprintf("pass --token-file or set %s, otherwise commands prompt for it", config.RefreshTokenEnvVar),
			})
		}
		return nil
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <alias>",
	Short: "Remove a registered device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		alias := args[0]
		device := registry.GetDevice(alias)
		if device == nil {
			return fmt.Errorf("unknown device %q", alias)
		}

		if !removeYes {
			warnings := []string{
				fmt.Sprintf("%s (%s) will be removed from the registry", device.DisplayName(alias), device.DeviceID),
			}
			if registry.Preferences != nil && registry.Preferences.DefaultDevice == alias {
				warnings = append(warnings, "It is the default device, commands will need --device afterwards")
			}
			if !ui.Confirm(os.Stdin, os.Stdout, "Remove device", warnings) {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		registry.RemoveDevice(alias)
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		ui.PrintSuccess(os.Stdout, "Device removed", map[string]string{"Alias": alias})
		return nil
	},
}

var devicesDefaultCmd = &cobra.Command{
	Use:   "default <alias>",
	Short: "Set the device used when --device is omitted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if registry.GetDevice(args[0]) == nil {
			return fmt.Errorf("unknown device %q (registered: %s)", args[0], strings.Join(registry.Aliases(), ", "))
		}
		if registry.Preferences == nil {
			registry.Preferences = &config.Preferences{TimeoutSeconds: config.DefaultTimeoutSeconds}
		}
		registry.Preferences.DefaultDevice = args[0]
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Default device set to %s\n", args[0])
		return nil
	},
}

// renderDeviceList formats the registry as an aligned listing
func renderDeviceList(registry *config.Registry) string {
	aliases := registry.Aliases()
	if len(aliases) == 0 {
		return "No devices registered. Use 'hisense-ctl devices add <alias>' to add one.\n"
	}

	defaultAlias := ""
	if registry.Preferences != nil {
		defaultAlias = registry.Preferences.DefaultDevice
	}

	width := 0
	for _, alias := range aliases {
		width = max(width, len(alias))
	}

	var b strings.Builder
	for _, alias := range aliases {
		device := registry.Devices[alias]
		marker := " "
		if alias == defaultAlias {
			marker = "*"
		}
		lastSeen := "never"
		if !device.LastSeen.IsZero() {
			lastSeen = device.LastSeen.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&b, "%s %-*s  %-20s  wifi=%s device=%s  last seen %s\n",
			marker, width, alias, device.DisplayName(alias), device.WifiID, device.DeviceID, lastSeen)
	}
	return b.String()
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live dashboard with keyboard control",
	Long: `Open a full-screen dashboard that polls the device and changes its
settings with single keys. Press ? for the key list and q to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsInteractive() {
			return fmt.Errorf("dashboard needs an interactive terminal, use 'status' instead")
		}
		t, err := openTarget()
		if err != nil {
			return err
		}
		err = tui.Run(cmd.Context(), tui.Options{
			Title:           t.name,
			Controller:      t.ctrl,
			RefreshInterval: dashInterval,
		})
		if err == nil {
			t.touch()
		}
		return err
	},
}
