// Package ui provides terminal UI components for the hisense-ctl CLI.
//
// This package uses Lipgloss and the Bubbles progress bar to render polished
// terminal output for one-shot commands. Unlike the interactive dashboard in
// internal/tui, these components follow a "run once and exit" pattern.
//
// # Components
//
//   - Header: command banner showing operation name and parameters
//   - Progress: step list with a progress bar
//   - Result: success/failure/warning boxes, failure boxes carry
//     troubleshooting tips derived from protocol errors
//   - Status card: a rendered climate.DisplayState
//   - Trace box: retry state trail and request details for --verbose
//
// # Usage Pattern
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Set Temperature",
//	    Command:   "hisense-ctl set temp 22",
//	    Params:    map[string]string{"Device": "lounge"},
//	    StepNames: []string{"Resolve credentials", "Send command"},
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, ui.StepComplete, "")
//	    return map[string]string{"Target": "22°C"}, nil
//	})
//
// # Logging Integration
//
// Logging is controlled by HISENSE_LOG_LEVEL. When unset, zap logging is
// silent so the curated output is displayed cleanly.
package ui
