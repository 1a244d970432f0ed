// Package ui renders the chargerfw terminal output.
//
// Output follows a "run once and exit" pattern built on Lipgloss:
//
//   - Header: command banner showing the operation and its parameters
//   - Progress: step list with a completion bar
//   - Result: success, warning or failure box with troubleshooting tips
//
// A Runner ties these together for multi-step commands. The operation
// reports progress through a StepCallback and the Runner prints one line
// per finished step followed by the result box.
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Firmware Update",
//	    Command:   "chargerfw 192.168.1.100",
//	    StepNames: names,
//	    Hints:     device.TroubleshootingHints,
//	})
//	err := runner.Run(func(onStep ui.StepCallback) ([]ui.Detail, error) {
//	    onStep(1, "", ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, "", ui.StepComplete, "")
//	    return nil, nil
//	})
//
// Spin shows a Bubble Tea spinner behind long-running work such as an mDNS
// scan, and degrades to plain execution when stdout is not a terminal.
//
// Logging goes to stderr (see CHARGERFW_LOG_LEVEL) so it never interleaves
// with the styled output on stdout.
package ui
