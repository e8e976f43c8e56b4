package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/protocol"
	"github.com/muurk/hisense/internal/ui"
)

// Control command flags
var (
	outputFormat string
	forceRefresh bool
	verifyChange bool
	noVerify     bool
)

func init() {
	statusCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, summary, json)")
	statusCmd.Flags().BoolVar(&forceRefresh, "refresh", false, "Renew the access token before polling")

	for _, c := range []*cobra.Command{onCmd, offCmd, setTempCmd, setModeCmd, setFanCmd, setSwingCmd, screenCmd, auxHeatCmd} {
		c.Flags().BoolVar(&verifyChange, "verify", false, "Poll until the unit reports the change")
		c.Flags().BoolVar(&noVerify, "no-verify", false, "Skip verification even when enabled in preferences")
	}

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(setTempCmd)
	rootCmd.AddCommand(setModeCmd)
	rootCmd.AddCommand(setFanCmd)
	rootCmd.AddCommand(setSwingCmd)
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(auxHeatCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(refreshTokenCmd)
}

// statusCmd polls and prints the device status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the device status",
	Long: `Poll the appliance status from the cloud and display it.

The detailed format draws a status card on terminals and falls back to a
plain listing when the output is redirected.`,
	Example: `  # Status of the default device
  hisense-ctl status

  # One line per device, for scripts
  hisense-ctl status --device bedroom --format summary

  # JSON for scripting
  hisense-ctl status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	t, err := openTarget()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if forceRefresh {
		if err := t.ctrl.RefreshToken(ctx); err != nil {
			return fmt.Errorf("token refresh failed: %w", err)
		}
	}
	if err := t.ctrl.ForceUpdate(ctx); err != nil {
		ui.PrintFailure(os.Stdout, "Status poll failed", err)
		return errReported
	}
	t.touch()

	view := t.ctrl.View()
	switch outputFormat {
	case "compact":
		fmt.Print(view.FormatCompact())
	case "summary":
		fmt.Printf("%s: %s\n", t.name, view.Summary())
	case "json":
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	case "detailed":
		if !ui.IsInteractive() {
			fmt.Print(view.FormatDetailed())
			return nil
		}
		fmt.Println(ui.RenderStatusCard(t.name, view, ui.GetTerminalWidth()))
	default:
		return fmt.Errorf("unknown format %q (valid: detailed, compact, summary, json)", outputFormat)
	}
	return nil
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn the air conditioner on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChange(cmd, change{
			title:  "Power On",
			apply:  func(ctx context.Context, c *climate.Controller) error { return c.TurnOn(ctx) },
			expect: climate.Expectation{PowerOn: ptr(true)},
		})
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn the air conditioner off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChange(cmd, change{
			title:  "Power Off",
			apply:  func(ctx context.Context, c *climate.Controller) error { return c.TurnOff(ctx) },
			expect: climate.Expectation{PowerOn: ptr(false)},
		})
	},
}

var setTempCmd = &cobra.Command{
	Use:   "set-temp <temperature>",
	Short: "Set the target temperature",
	Long: `Set the target temperature in the device's unit (Celsius unless
temperature_unit is F). The unit must be on and not in FAN_ONLY mode.
Accepted range is 16-32°C.`,
	Example: `  hisense-ctl set-temp 22
  hisense-ctl set-temp 21.5 --verify
  hisense-ctl set-temp 72 --device upstairs   # device configured for °F`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q", args[0])
		}
		return runChange(cmd, change{
			title:       "Set Temperature",
			params:      map[string]string{"Temperature": args[0]},
			needsStatus: true,
			apply: func(ctx context.Context, c *climate.Controller) error {
				return c.SetTemperature(ctx, value)
			},
			expectFn: func(c *climate.Controller) climate.Expectation {
				celsius, err := c.ToCelsius(value)
				if err != nil {
					return climate.Expectation{}
				}
				return climate.Expectation{Temperature: &celsius}
			},
		})
	},
}

var setModeCmd = &cobra.Command{
	Use:   "set-mode <mode>",
	Short: "Set the HVAC mode",
	Long: `Set the operating mode: auto, cool, heat, dry, fan_only, or off.

When the unit is off it is powered on first. If the requested mode differs
from the last reported one, the mode command follows after a short delay.`,
	Example: `  hisense-ctl set-mode cool
  hisense-ctl set-mode off`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := strings.TrimSpace(args[0])
		c := change{
			title:       "Set Mode",
			params:      map[string]string{"Mode": strings.ToUpper(mode)},
			needsStatus: true,
			apply: func(ctx context.Context, c *climate.Controller) error {
				return c.SetHVACMode(ctx, mode)
			},
		}
		if strings.EqualFold(mode, climate.ModeOff) {
			c.expect = climate.Expectation{PowerOn: ptr(false)}
		} else {
			target, err := protocol.ParseHVACMode(mode)
			if err != nil {
				return err
			}
			c.expect = climate.Expectation{PowerOn: ptr(true), HVACMode: &target}
			c.slow = true
		}
		return runChange(cmd, c)
	},
}

var setFanCmd = &cobra.Command{
	Use:   "set-fan <mode>",
	Short: "Set the fan speed",
	Long:  `Set the fan speed: auto, diffuse, low, medium, or high. The unit must be on.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := protocol.ParseFanMode(args[0])
		if err != nil {
			return err
		}
		return runChange(cmd, change{
			title:       "Set Fan",
			params:      map[string]string{"Fan": mode.String()},
			needsStatus: true,
			apply: func(ctx context.Context, c *climate.Controller) error {
				return c.SetFanMode(ctx, mode)
			},
			expect: climate.Expectation{FanMode: &mode},
		})
	},
}

var setSwingCmd = &cobra.Command{
	Use:   "set-swing <mode>",
	Short: "Set the louvre swing",
	Long:  `Set the louvre swing: off, on, horizontal, or vertical. The unit must be on.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := protocol.ParseSwingMode(args[0])
		if err != nil {
			return err
		}
		return runChange(cmd, change{
			title:       "Set Swing",
			params:      map[string]string{"Swing": mode.String()},
			needsStatus: true,
			apply: func(ctx context.Context, c *climate.Controller) error {
				return c.SetSwingMode(ctx, mode)
			},
			expect: climate.Expectation{SwingMode: &mode},
		})
	},
}

var screenCmd = &cobra.Command{
	Use:   "screen on|off",
	Short: "Turn the front panel display on or off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		return runChange(cmd, change{
			title:  "Set Screen",
			params: map[string]string{"Screen": args[0]},
			apply: func(ctx context.Context, c *climate.Controller) error {
				return c.SetScreen(ctx, on)
			},
			expect: climate.Expectation{ScreenOn: &on},
		})
	},
}

var auxHeatCmd = &cobra.Command{
	Use:   "aux-heat on|off",
	Short: "Turn the auxiliary electric heater on or off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		return runChange(cmd, change{
			title:  "Set Aux Heat",
			params: map[string]string{"Aux heat": args[0]},
			apply: func(ctx context.Context, c *climate.Controller) error {
				return c.SetAuxHeat(ctx, on)
			},
			expect: climate.Expectation{AuxHeat: &on},
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <cmd-id> <param>",
	Short: "Send a raw logic command",
	Long: `Send a logic command by numeric id. Known ids are range checked:

  1   fan mode (0-4)
  3   hvac mode (0-4)
  6   target temperature (°C)
  28  aux heat (0/1)
  41  screen (0/1)
  62  swing mode (0-3)

Unknown ids are sent unchecked.`,
	Example: `  # Turn the display off
  hisense-ctl send 41 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmdID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid command id %q", args[0])
		}
		param, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid parameter %q", args[1])
		}
		if err := protocol.ValidateLogicCommand(cmdID, param); err != nil {
			return err
		}
		return runChange(cmd, change{
			title:  "Send Command",
			params: map[string]string{"Command": protocol.CommandName(cmdID), "Param": args[1]},
			apply: func(ctx context.Context, c *climate.Controller) error {
				return c.Device.SendLogicCommand(ctx, cmdID, param)
			},
		})
	},
}

var refreshTokenCmd = &cobra.Command{
	Use:   "refresh-token",
	Short: "Exchange the refresh token for a new access token",
	Long: `Exchange the refresh token for a new access token and report the result.
Useful to check that a token file is still valid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTarget()
		if err != nil {
			return err
		}
		runner := ui.NewRunner(ui.RunnerConfig{
			Title:     "Refresh Token",
			Command:   "hisense-ctl " + strings.Join(os.Args[1:], " "),
			StepNames: []string{"Exchange refresh token"},
			Verbose:   verbose,
		})
		err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
			onStep(1, ui.StepRunning, "")
			if err := t.ctrl.RefreshToken(ctx); err != nil {
				onStep(1, ui.StepFailed, "")
				return nil, err
			}
			onStep(1, ui.StepComplete, "")
			return map[string]string{
				"Device":       t.name,
				"Access token": logging.RedactToken(t.session.AccessToken()),
			}, nil
		})
		if err != nil {
			return errReported
		}
		return nil
	},
}
