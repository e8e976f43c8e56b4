// Hisense-ctl controls Hisense air conditioners through the vendor cloud.
//
// It reads the current status, switches power, mode, fan, swing and
// temperature, sends raw logic commands and shows a live dashboard.
// Devices are registered once with 'hisense-ctl devices add' and then
// addressed by alias.
//
// Usage:
//
//	hisense-ctl [command] [flags]
//
// See 'hisense-ctl --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/version"
)

// errReported marks failures whose result box has already been printed
var errReported = errors.New("operation failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hisense-ctl",
	Short: "Hisense Air Conditioner Control Utility",
	Long: `A command line client for Hisense air conditioners connected to the
Hisense cloud (the one used by the vendor mobile app).

Each command identifies the appliance by its wifi id and device id, taken
from the device registry (see 'hisense-ctl devices') or from --wifi-id and
--device-id. The refresh token is read from --token-file, the
HISENSE_REFRESH_TOKEN environment variable, the device's token_file or an
interactive prompt, in that order.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless --log-level or HISENSE_LOG_LEVEL is set
		if err := logging.Initialize(logLevel); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		return nil
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hisense-ctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
