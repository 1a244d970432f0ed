package ui

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type statusMsg string

type doneMsg struct{ err error }

// spinnerModel shows a spinner and a status line until the work finishes.
type spinnerModel struct {
	spinner spinner.Model
	label   string
	status  string
	done    bool
	aborted bool
}

func newSpinnerModel(label string) spinnerModel {
	return spinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
		label:   label,
	}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.aborted = true
			return m, tea.Quit
		}
	case statusMsg:
		m.status = string(msg)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	line := "  " + m.spinner.View() + " " + m.label
	if m.status != "" {
		line += " " + StepNoteStyle.Render(m.status)
	}
	return line + "\n"
}

// Work is a long-running task shown behind a spinner. It reports progress
// through setStatus.
type Work func(ctx context.Context, setStatus func(string)) error

// Spin runs work while a spinner is shown on out. Ctrl+C cancels the
// context passed to work. When out is not a terminal, work runs without
// any animation.
func Spin(ctx context.Context, out io.Writer, label string, work Work) error {
	if out == nil {
		out = os.Stdout
	}
	if out != os.Stdout || !IsTerminal() {
		return work(ctx, func(string) {})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newSpinnerModel(label), tea.WithOutput(out), tea.WithContext(ctx))

	result := make(chan error, 1)
	go func() {
		err := work(ctx, func(s string) { program.Send(statusMsg(s)) })
		result <- err
		program.Send(doneMsg{err: err})
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-result
		return err
	}

	// Either the work finished or the user aborted
	cancel()
	return <-result
}
