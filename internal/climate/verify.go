package climate

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/hisense/internal/protocol"
)

// VerificationOptions configures how change verification behaves
type VerificationOptions struct {
	// MaxRetries is the maximum number of additional polls
	// Default: 3
	MaxRetries int

	// InitialDelay is the delay before the first poll.
	// The cloud takes a moment to relay a command to the unit.
	// Default: 2s
	InitialDelay time.Duration

	// RetryDelay is the delay between polls
	// Default: 2s
	RetryDelay time.Duration

	// UseExponentialBackoff doubles each retry delay up to MaxRetryDelay
	// Default: true
	UseExponentialBackoff bool

	// MaxRetryDelay is the maximum delay between polls
	// Default: 10s
	MaxRetryDelay time.Duration
}

// DefaultVerificationOptions returns the defaults used by --verify
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:            3,
		InitialDelay:          2 * time.Second,
		RetryDelay:            2 * time.Second,
		UseExponentialBackoff: true,
		MaxRetryDelay:         10 * time.Second,
	}
}

// Expectation lists the fields a change should produce. Nil fields are not checked.
type Expectation struct {
	PowerOn     *bool
	HVACMode    *protocol.HVACMode
	FanMode     *protocol.FanMode
	SwingMode   *protocol.SwingMode
	Temperature *int
	ScreenOn    *bool
	AuxHeat     *bool
}

// VerificationResult contains the results of a change verification
type VerificationResult struct {
	Success    bool
	Attempts   int
	Actual     protocol.Status
	Mismatches []string
	Error      error
}

// Verify polls the device until its snapshot matches expect or the retries
// run out. Poll errors are retried like mismatches.
func Verify(ctx context.Context, device Device, expect Expectation, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}

	result := &VerificationResult{Mismatches: []string{}}

	if err := sleep(ctx, opts.InitialDelay); err != nil {
		result.Error = err
		return result
	}

	currentDelay := opts.RetryDelay

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result.Attempts++

		if attempt > 0 {
			if err := sleep(ctx, currentDelay); err != nil {
				result.Error = err
				return result
			}
			if opts.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > opts.MaxRetryDelay {
					currentDelay = opts.MaxRetryDelay
				}
			}
		}

		if err := device.CheckStatus(ctx); err != nil {
			result.Error = fmt.Errorf("attempt %d: failed to poll status: %w", attempt+1, err)
			continue
		}

		result.Actual = device.Status()
		result.Mismatches = expect.Mismatches(result.Actual)

		if len(result.Mismatches) == 0 {
			result.Success = true
			result.Error = nil
			return result
		}

		if attempt < opts.MaxRetries {
			result.Error = fmt.Errorf("attempt %d: status mismatch (will retry)", attempt+1)
		} else {
			result.Error = fmt.Errorf("verification failed after %d attempts: %s", result.Attempts, formatMismatches(result.Mismatches))
		}
	}

	return result
}

// Mismatches compares the expectation with a snapshot
func (e Expectation) Mismatches(actual protocol.Status) []string {
	var mismatches []string

	if e.PowerOn != nil && actual.PowerOn != *e.PowerOn {
		mismatches = append(mismatches, fmt.Sprintf("power: expected %s, got %s", onOff(*e.PowerOn), onOff(actual.PowerOn)))
	}
	if e.HVACMode != nil && actual.HVACModeID != *e.HVACMode {
		mismatches = append(mismatches, fmt.Sprintf("hvac mode: expected %s, got %s", e.HVACMode, actual.HVACModeID))
	}
	if e.FanMode != nil && actual.FanModeID != *e.FanMode {
		mismatches = append(mismatches, fmt.Sprintf("fan mode: expected %s, got %s", e.FanMode, actual.FanModeID))
	}
	if e.SwingMode != nil && actual.SwingModeID != *e.SwingMode {
		mismatches = append(mismatches, fmt.Sprintf("swing mode: expected %s, got %s", e.SwingMode, actual.SwingModeID))
	}
	if e.Temperature != nil && actual.DesiredTemperature != *e.Temperature {
		mismatches = append(mismatches, fmt.Sprintf("temperature: expected %d, got %d", *e.Temperature, actual.DesiredTemperature))
	}
	if e.ScreenOn != nil && actual.ScreenOn != *e.ScreenOn {
		mismatches = append(mismatches, fmt.Sprintf("screen: expected %s, got %s", onOff(*e.ScreenOn), onOff(actual.ScreenOn)))
	}
	if e.AuxHeat != nil && actual.AuxHeat != *e.AuxHeat {
		mismatches = append(mismatches, fmt.Sprintf("aux heat: expected %s, got %s", onOff(*e.AuxHeat), onOff(actual.AuxHeat)))
	}

	return mismatches
}

// formatMismatches creates a human-readable summary of mismatches
func formatMismatches(mismatches []string) string {
	if len(mismatches) == 0 {
		return "none"
	}
	if len(mismatches) == 1 {
		return mismatches[0]
	}
	result := fmt.Sprintf("%d mismatches: ", len(mismatches))
	for i, m := range mismatches {
		if i > 0 {
			result += "; "
		}
		result += m
	}
	return result
}
