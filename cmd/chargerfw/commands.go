package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voltra/chargerfw/internal/config"
	"github.com/voltra/chargerfw/internal/device"
	"github.com/voltra/chargerfw/internal/devicesim"
	"github.com/voltra/chargerfw/internal/discovery"
	"github.com/voltra/chargerfw/internal/firmware"
	"github.com/voltra/chargerfw/internal/ui"
	"github.com/voltra/chargerfw/internal/updater"
)

// Command flags
var (
	outputFormat string
	scanTimeout  int
	simName      string
	simVersion   string
	simFailures  []string
)

func init() {
	rootCmd.Long += "\n\n" + config.SettingsHelp()

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(firmwareCmd)
	rootCmd.AddCommand(simCmd)
}

// runUpdate locates the firmware, probes the charger and runs the update.
func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ip := deviceIPFromArgs(args)
	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)

	bundle, err := firmware.Locate(settings.FirmwareDir, logger)
	if err != nil {
		printer.PrintError("Firmware not found", err, firmwareHints(err))
		return &reportedError{err}
	}

	client := device.NewClient(ip, updateCfg, logger)
	identity := client.Probe(ctx)
	if identity == nil {
		err := fmt.Errorf("no supported charger answered at %s:%d", ip, updateCfg.Port)
		printer.PrintError("Device not found", err, notFoundHints(ip))
		return &reportedError{err}
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Firmware Update",
		Command: "chargerfw " + ip,
		Params: []ui.Detail{
			{Key: "Device", Value: identity.Summary()},
			{Key: "Main firmware", Value: filepath.Base(bundle.MainPath)},
			{Key: "Rear firmware", Value: filepath.Base(bundle.RearPath)},
		},
		StepNames: updater.StepNames,
		Hints:     device.TroubleshootingHints,
		Output:    out,
		Live:      out == os.Stdout && ui.IsTerminal(),
	})

	err = runner.Run(func(onStep ui.StepCallback) ([]ui.Detail, error) {
		u := updater.New(client, updateCfg, logger)
		u.OnStep = func(s updater.Step) {
			onStep(s.Index, s.Name, uiStatus(s.Status), s.Note)
		}

		report, err := u.Run(ctx, bundle)
		if err != nil {
			return nil, err
		}

		after := "not reported yet (device still restarting)"
		if report.After != nil {
			after = report.After.FirmwareVersion
		}
		return []ui.Detail{
			{Key: "Device", Value: report.Before.DeviceName},
			{Key: "Serial", Value: report.Before.SerialNumber},
			{Key: "Firmware before", Value: report.Before.FirmwareVersion},
			{Key: "Firmware after", Value: after},
			{Key: "Run ID", Value: report.RunID},
		}, nil
	})
	if err != nil {
		return &reportedError{err}
	}
	return nil
}

func uiStatus(s updater.StepStatus) ui.StepStatus {
	switch s {
	case updater.StepRunning:
		return ui.StepRunning
	case updater.StepComplete:
		return ui.StepComplete
	case updater.StepFailed:
		return ui.StepFailed
	case updater.StepSkipped:
		return ui.StepSkipped
	default:
		return ui.StepPending
	}
}

func firmwareHints(err error) []string {
	if errors.Is(err, firmware.ErrFirmwareAccess) {
		return []string{
			"Check the permissions of the firmware files",
			"Run 'chargerfw firmware' to see which files were selected",
		}
	}
	return []string{
		fmt.Sprintf("Place %s*%s and %s*%s in %s",
			firmware.MainPrefix, firmware.Suffix, firmware.RearPrefix, firmware.Suffix, settings.FirmwareDir),
		"Or point CHARGERFW_FIRMWARE_DIR at the directory holding the images",
	}
}

func notFoundHints(ip string) []string {
	return []string{
		"Check that the charger is powered on and connected",
		"Verify " + ip + " is the charger's address",
		"Run 'chargerfw scan' to find chargers on the network",
		"Set CHARGERFW_LOG_LEVEL=debug to see why the probe failed",
	}
}

// infoCmd shows the identity of one charger
var infoCmd = &cobra.Command{
	Use:   "info [ip]",
	Short: "Show charger information",
	Long: `Probe a charger and display its name, firmware version and serial number.

Exits with an error when the address does not answer as a supported charger.`,
	Example: `  # Default address
  chargerfw info

  # JSON output for scripting
  chargerfw info 192.168.4.16 --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "detailed", "compact", "json":
	default:
		return fmt.Errorf("unknown format %q (expected detailed, compact or json)", outputFormat)
	}

	ip := deviceIPFromArgs(args)
	client := device.NewClient(ip, updateCfg, logger)

	if client.Probe(cmd.Context()) == nil {
		return fmt.Errorf("no supported charger answered at %s:%d", ip, updateCfg.Port)
	}

	identity, err := client.FetchInfo(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(identity, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode device info: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
	case "compact":
		_, _ = fmt.Fprint(out, identity.FormatCompact())
	default:
		_, _ = fmt.Fprint(out, identity.FormatDetailed())
	}
	return nil
}

// scanCmd discovers chargers on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for chargers on the network",
	Long: `Scan for chargers using mDNS/DNS-SD discovery.

Every host advertising an HTTP service is probed in turn; only hosts that
identify as a supported charger are listed.`,
	Example: `  # Scan for 5 seconds (default)
  chargerfw scan

  # Longer scan for slow networks
  chargerfw scan --timeout 15`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "mDNS browse time in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)

	scanner := discovery.NewScanner(updateCfg, logger)
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	printer.PrintHeader("Charger Scan", "chargerfw scan", []ui.Detail{
		{Key: "Service", Value: discovery.ServiceType},
		{Key: "Timeout", Value: scanner.Timeout.String()},
	})

	var chargers []*discovery.Charger
	err := ui.Spin(cmd.Context(), out, "Scanning for chargers", func(ctx context.Context, setStatus func(string)) error {
		scanner.OnProbe = func(c *discovery.Candidate) {
			setStatus("probing " + c.IP)
		}
		var err error
		chargers, err = scanner.Scan(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(chargers) == 0 {
		printer.PrintWarning("No chargers found", []ui.Detail{
			{Key: "Hint", Value: "Check that the charger is on this network"},
			{Key: "Hint", Value: "Try a longer --timeout"},
			{Key: "Hint", Value: "Pass the IP directly: chargerfw info <ip>"},
		})
		return nil
	}

	details := make([]ui.Detail, 0, len(chargers))
	for _, c := range chargers {
		value := fmt.Sprintf("%s (FW %s, S/N %s)", c.DeviceName, c.FirmwareVersion, c.SerialNumber)
		if model := c.Model(); model != "" {
			value += ", model " + model
		}
		details = append(details, ui.Detail{Key: c.IP, Value: value})
	}
	printer.PrintSuccess(fmt.Sprintf("Found %d charger(s)", len(chargers)), details)
	printer.Println("Run 'chargerfw <ip>' to update a charger")
	return nil
}

// firmwareCmd shows the images an update would use
var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Show the firmware images that would be installed",
	Long: `List the newest main and rear board images in the firmware directory
without contacting any device.`,
	Args: cobra.NoArgs,
	RunE: runFirmware,
}

func runFirmware(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())

	bundle, err := firmware.Locate(settings.FirmwareDir, logger)
	if err != nil {
		printer.PrintError("Firmware not found", err, firmwareHints(err))
		return &reportedError{err}
	}

	details := []ui.Detail{{Key: "Directory", Value: filepath.Dir(bundle.MainPath)}}
	for _, board := range []string{"main", "rear"} {
		path, _ := bundle.Path(board)
		size := "unknown size"
		if info, err := os.Stat(path); err == nil {
			size = strconv.FormatInt(info.Size(), 10) + " bytes"
		}
		details = append(details, ui.Detail{
			Key:   strings.ToUpper(board[:1]) + board[1:] + " board",
			Value: fmt.Sprintf("%s (%s)", filepath.Base(path), size),
		})
	}

	printer.PrintSuccess("Firmware images ready", details)
	return nil
}

// simCmd runs a simulated charger for rehearsing updates
var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run a simulated charger",
	Long: `Serve the charger's local HTTP API from this machine so an update can
be rehearsed without hardware.

The listen address comes from CHARGERFW_SIM_ADDR (default :8000). Use
--fail to make an endpoint answer with an error status.`,
	Example: `  # Simulate a charger, then update it from another terminal
  chargerfw sim
  chargerfw 127.0.0.1

  # Rehearse a rejected main board image
  chargerfw sim --fail main_upload=500`,
	Args: cobra.NoArgs,
	RunE: runSim,
}

func init() {
	simCmd.Flags().StringVar(&simName, "name", "", "Reported device name (default: vendor + \" Simulator\")")
	simCmd.Flags().StringVar(&simVersion, "firmware-version", "", "Reported firmware version")
	simCmd.Flags().StringSliceVar(&simFailures, "fail", nil,
		"Inject a failure as route=status (routes: info, main_upload, rear_upload, reboot_main, reboot_rear)")
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg := devicesim.DefaultConfig(updateCfg)
	if simName != "" {
		cfg.DeviceName = simName
	}
	if simVersion != "" {
		cfg.FirmwareVersion = simVersion
	}

	sim := devicesim.New(cfg, logger)
	for _, failure := range simFailures {
		route, status, err := parseFailure(failure)
		if err != nil {
			return err
		}
		sim.Fail(route, status)
		logger.Info("Failure injected", zap.String("route", string(route)), zap.Int("status", status))
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintHeader("Simulated Charger", "chargerfw sim", []ui.Detail{
		{Key: "Listen", Value: settings.SimAddr},
		{Key: "Device", Value: cfg.DeviceName},
		{Key: "Firmware", Value: cfg.FirmwareVersion},
		{Key: "Serial", Value: cfg.SerialNumber},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return sim.ListenAndServe(ctx, settings.SimAddr)
}

func parseFailure(value string) (devicesim.Route, int, error) {
	name, code, ok := strings.Cut(value, "=")
	if !ok {
		return "", 0, fmt.Errorf("invalid --fail %q (expected route=status)", value)
	}

	route := devicesim.Route(name)
	switch route {
	case devicesim.RouteInfo, devicesim.RouteMainUpload, devicesim.RouteRearUpload,
		devicesim.RouteRebootMain, devicesim.RouteRebootRear:
	default:
		return "", 0, fmt.Errorf("unknown route %q", name)
	}

	status, err := strconv.Atoi(code)
	if err != nil || status < 100 || status > 599 {
		return "", 0, fmt.Errorf("invalid status %q for route %s", code, name)
	}
	return route, status, nil
}
