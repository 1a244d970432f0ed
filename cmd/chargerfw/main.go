// Chargerfw updates the firmware of a charger over its local HTTP API.
//
// It picks the newest main and rear board images from the firmware
// directory, confirms the target is a supported charger, then uploads and
// reboots both boards in a fixed order.
//
// Usage:
//
//	chargerfw [ip] [flags]
//	chargerfw [command]
//
// When no IP is given, DefaultDeviceIP is used.
// See 'chargerfw --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voltra/chargerfw/internal/config"
	"github.com/voltra/chargerfw/internal/logging"
	"github.com/voltra/chargerfw/internal/version"
)

// DefaultDeviceIP is the charger address used when none is given.
const DefaultDeviceIP = "192.168.1.100"

// Loaded once per process by setup
var (
	settings  *config.Settings
	updateCfg config.UpdateConfig
	logger    *zap.Logger
)

// reportedError marks a failure already shown to the user in a result box.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chargerfw [ip]",
	Short: "Charger firmware update utility",
	Long: `Updates the main and rear board firmware of a charger over its local
HTTP API.

The newest main_*.signed.bin and rear_*.signed.bin images are taken from the
firmware directory next to the executable (override with
CHARGERFW_FIRMWARE_DIR). The target is probed first; the update only starts
when it identifies as a supported charger.

The update takes a little under a minute and must not be interrupted.`,
	Example: `  # Update the charger at the default address
  chargerfw

  # Update a specific charger
  chargerfw 192.168.4.16

  # Find chargers first
  chargerfw scan`,
	Args:              cobra.MaximumNArgs(1),
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runUpdate,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

// setup loads settings, logging and the device profile.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	settings, err = config.LoadSettings()
	if err != nil {
		return err
	}

	if err := logging.Initialize(settings.LogLevel); err != nil {
		return err
	}
	logger = logging.GetLogger()

	updateCfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load device profile: %w", err)
	}

	logger.Debug("Configuration loaded",
		zap.String("version", version.Full()),
		zap.String("firmware_dir", settings.FirmwareDir),
		zap.Int("port", updateCfg.Port),
	)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chargerfw %s\n", version.Full())
	},
}

func deviceIPFromArgs(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return DefaultDeviceIP
}
