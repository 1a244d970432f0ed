package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig describes a multi-step command
type RunnerConfig struct {
	Title     string   // e.g., "Firmware Update"
	Command   string   // e.g., "chargerfw 192.168.1.100"
	Params    []Detail // Shown in the header
	StepNames []string

	// Hints maps a failure to troubleshooting tips
	Hints func(err error) []string

	Output io.Writer // default: os.Stdout

	// Live rewrites the running step in place; only useful on a terminal
	Live bool
}

// Runner prints a header, one line per step as it progresses, and a
// final result box.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()
	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		progress: NewProgress(config.StepNames).SetWidth(width),
		output:   config.Output,
		width:    width,
	}
}

// Operation is the work driven by a Runner. It returns the details shown
// in the success box.
type Operation func(onStep StepCallback) ([]Detail, error)

// Run prints the header, executes operation and prints the result
func (r *Runner) Run(operation Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(r.onStep)
	duration := time.Since(start).Round(time.Millisecond)

	_, _ = fmt.Fprintln(r.output)
	if err != nil {
		var hints []string
		if r.config.Hints != nil {
			hints = r.config.Hints(err)
		}
		result := NewFailureResult(r.config.Title+" failed", err, hints).SetWidth(r.width)
		_, _ = fmt.Fprintln(r.output, result.Render())
		return err
	}

	details = append(details, Detail{Key: "Duration", Value: duration.String()})
	result := NewSuccessResult(r.config.Title+" complete", details).SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
	return nil
}

// Progress returns the step tracker
func (r *Runner) Progress() *Progress {
	return r.progress
}

func (r *Runner) onStep(number int, name string, status StepStatus, message string) {
	if number < 1 || number > len(r.progress.Steps) {
		return
	}
	if name != "" {
		r.progress.Steps[number-1].Name = name
	}
	r.progress.UpdateStep(number, status, message)

	line := r.progress.RenderStepLine(r.progress.Steps[number-1])
	switch status {
	case StepRunning:
		if r.config.Live {
			// Overwritten when the step finishes
			_, _ = fmt.Fprint(r.output, line+"\r")
		}
	default:
		if r.config.Live {
			_, _ = fmt.Fprint(r.output, "\x1b[2K")
		}
		_, _ = fmt.Fprintln(r.output, line)
	}
}
