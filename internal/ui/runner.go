package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/hisense/internal/protocol"
)

// RunnerConfig holds configuration for one CLI operation against the cloud
type RunnerConfig struct {
	Title     string            // e.g., "Set Temperature"
	Command   string            // e.g., "hisense-ctl set temp 22"
	Params    map[string]string // Parameters to display in header
	StepNames []string          // Names for each step
	Verbose   bool              // Show the request trace after the result
	Quiet     bool              // Suppress header and steps, print only the result
	Output    io.Writer         // Output writer (default: os.Stdout)
}

// Runner orchestrates header, step list and result box for a CLI operation.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	trace    []string
	width    int
}

// NewRunner creates a runner for an operation
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := GetTerminalWidth()

	var prog *Progress
	if len(config.StepNames) > 0 {
		prog = NewProgress(config.StepNames...)
		prog.SetWidth(width)
	}

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		progress: prog,
		output:   config.Output,
		width:    width,
	}
}

// SetWidth overrides the detected terminal width
func (r *Runner) SetWidth(width int) *Runner {
	r.width = width
	r.header.SetWidth(width)
	if r.progress != nil {
		r.progress.SetWidth(width)
	}
	return r
}

// Operation performs the work and returns result details
type Operation func(ctx context.Context, onStep StepCallback) (map[string]string, error)

// Run executes the operation with UI updates.
func (r *Runner) Run(ctx context.Context, operation Operation) error {
	start := time.Now()

	if !r.config.Quiet {
		_, _ = fmt.Fprintln(r.output, r.header.Render())
		_, _ = fmt.Fprintln(r.output)
	}

	details, err := operation(ctx, r.stepCallback())
	duration := time.Since(start)

	if details == nil {
		details = make(map[string]string)
	}
	details["Duration"] = duration.Round(time.Millisecond).String()

	_, _ = fmt.Fprintln(r.output)
	if err != nil {
		result := NewFailureResult(r.config.Title+" failed", err, protocol.TroubleshootingHints(err)).
			AddDetail("Duration", details["Duration"])
		_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())
	} else {
		result := NewSuccessResult(r.config.Title+" complete", details)
		_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())
	}

	if r.config.Verbose && len(r.trace) > 0 {
		_, _ = fmt.Fprintln(r.output)
		_, _ = fmt.Fprintln(r.output, RenderTraceBox(r.trace, r.width))
	}

	return err
}

// Trace appends a line to the verbose request trace
func (r *Runner) Trace(format string, args ...any) {
	r.trace = append(r.trace, fmt.Sprintf(format, args...))
}

func (r *Runner) stepCallback() StepCallback {
	return func(stepNumber int, status StepStatus, message string) {
		if r.progress == nil || r.config.Quiet {
			return
		}
		r.progress.UpdateStep(stepNumber, status, message)
		if stepNumber < 1 || stepNumber > len(r.progress.Steps) {
			return
		}
		line := r.progress.RenderStep(r.progress.Steps[stepNumber-1])
		if status == StepRunning {
			_, _ = fmt.Fprint(r.output, line+"\r")
			return
		}
		_, _ = fmt.Fprintln(r.output, line)
	}
}

// RenderTraceBox renders the request trace for verbose mode
func RenderTraceBox(lines []string, width int) string {
	content := TraceTitleStyle.Render("Request Trace") + "\n" +
		lipgloss.NewStyle().Foreground(TextColor).Render(strings.Join(lines, "\n"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width-4).
		Padding(0, 1).
		Render(content)
}

// PrintSuccess prints a styled success result
func PrintSuccess(w io.Writer, title string, details map[string]string) {
	_, _ = fmt.Fprintln(w, NewSuccessResult(title, details).Render())
}

// PrintFailure prints a styled failure result with troubleshooting derived from err
func PrintFailure(w io.Writer, title string, err error) {
	_, _ = fmt.Fprintln(w, NewFailureResult(title, err, protocol.TroubleshootingHints(err)).Render())
}

// PrintWarning prints a styled warning result
func PrintWarning(w io.Writer, title string, details map[string]string) {
	_, _ = fmt.Fprintln(w, NewWarningResult(title, details).Render())
}

// PrintPleaseWait prints a styled "please wait" message for the turn-on delay.
func PrintPleaseWait(w io.Writer, message string, durationHint string) {
	style := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		PaddingLeft(2)

	hintStyle := lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	line := style.Render("⏳ " + message)
	if durationHint != "" {
		line += " " + hintStyle.Render("("+durationHint+")")
	}
	line += style.Render("...")

	_, _ = fmt.Fprintln(w, line)
}
