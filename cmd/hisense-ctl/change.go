package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/ui"
)

// change describes one state change command
type change struct {
	title  string
	params map[string]string

	// needsStatus polls before applying, for changes that depend on the
	// reported power or mode
	needsStatus bool

	// slow changes wait out the turn-on delay
	slow bool

	apply    func(ctx context.Context, c *climate.Controller) error
	expect   climate.Expectation
	expectFn func(c *climate.Controller) climate.Expectation
}

// Step numbers of a change
const (
	stepReadStatus = 1
	stepSend       = 2
	stepVerify     = 3
)

// wantVerify combines the flags with the preference
func wantVerify(t *target) bool {
	if noVerify {
		return false
	}
	if verifyChange {
		return true
	}
	return t.registry.Preferences != nil && t.registry.Preferences.Verify
}

// runChange applies a change inside the step runner and optionally verifies it
func runChange(cmd *cobra.Command, c change) error {
	t, err := openTarget()
	if err != nil {
		return err
	}

	params := map[string]string{"Device": t.name}
	for k, v := range c.params {
		params[k] = v
	}

	verify := wantVerify(t)
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:     c.title,
		Command:   "hisense-ctl " + strings.Join(os.Args[1:], " "),
		Params:    params,
		StepNames: []string{"Read status", "Send command", "Verify"},
		Verbose:   verbose,
	})

	if c.slow && ui.IsInteractive() {
		ui.PrintPleaseWait(os.Stdout, "Mode changes can power the unit on first.",
			fmt.Sprintf("up to %s", climate.DefaultTurnOnDelay+resolveTimeout(t.registry)))
	}

	err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
		if c.needsStatus {
			onStep(stepReadStatus, ui.StepRunning, "")
			if err := t.ctrl.ForceUpdate(ctx); err != nil {
				onStep(stepReadStatus, ui.StepFailed, "")
				return nil, err
			}
			t.touch()
			onStep(stepReadStatus, ui.StepComplete, t.ctrl.View().Summary())
		} else {
			onStep(stepReadStatus, ui.StepSkipped, "not needed")
		}

		onStep(stepSend, ui.StepRunning, "")
		if err := c.apply(ctx, t.ctrl); err != nil {
			onStep(stepSend, ui.StepFailed, "")
			return nil, err
		}
		outcome := ""
		if o, ok := t.client.LastOutcome(); ok {
			outcome = o.String()
			runner.Trace("outcome %s", outcome)
		}
		onStep(stepSend, ui.StepComplete, outcome)

		details := map[string]string{"Device": t.name}
		if outcome != "" {
			details["Outcome"] = outcome
		}

		if !verify {
			onStep(stepVerify, ui.StepSkipped, "use --verify to confirm")
			return details, nil
		}

		expect := c.expect
		if c.expectFn != nil {
			expect = c.expectFn(t.ctrl)
		}
		onStep(stepVerify, ui.StepRunning, "")
		result := climate.Verify(ctx, t.client, expect, climate.DefaultVerificationOptions())
		runner.Trace("verify attempts=%d success=%t", result.Attempts, result.Success)
		if !result.Success {
			onStep(stepVerify, ui.StepFailed, "")
			return nil, result.Error
		}
		t.touch()
		onStep(stepVerify, ui.StepComplete, fmt.Sprintf("%d poll(s)", result.Attempts))
		details["State"] = t.ctrl.View().Summary()
		return details, nil
	})
	if err != nil {
		logging.Debug("Change failed", zap.String("change", c.title), zap.Error(err))
		return errReported
	}
	return nil
}
