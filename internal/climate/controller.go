package climate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/protocol"
)

const (
	// MinTemperature is the lowest accepted target, in Celsius
	MinTemperature = 16
	// MaxTemperature is the highest accepted target, in Celsius
	MaxTemperature = 32

	// DefaultTurnOnDelay is how long SetHVACMode waits between powering on and
	// changing the mode
	DefaultTurnOnDelay = 4 * time.Second

	// ModeOff is the pseudo HVAC mode that powers the appliance down
	ModeOff = "OFF"
)

// Unit is a temperature unit for user input and display
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

// ParseUnit accepts C, F, celsius or fahrenheit in any case. Empty means Celsius.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "C", "CELSIUS":
		return Celsius, nil
	case "F", "FAHRENHEIT":
		return Fahrenheit, nil
	}
	return "", protocol.NewValidationError(fmt.Sprintf("unknown temperature unit %q (valid: C, F)", s))
}

var (
	// ErrPoweredOff is returned for changes that need the appliance running
	ErrPoweredOff = errors.New("appliance is powered off")
	// ErrFanOnlyMode is returned when setting a temperature in FAN_ONLY mode
	ErrFanOnlyMode = errors.New("temperature cannot be set in FAN_ONLY mode")
)

// Device is the subset of *deviceclient.Client the controller drives
type Device interface {
	PowerOn(ctx context.Context) error
	PowerOff(ctx context.Context) error
	SendLogicCommand(ctx context.Context, cmdID, param int) error
	CheckStatus(ctx context.Context) error
	Status() protocol.Status
}

// Refresher renews the access token on request
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Controller applies the air conditioner rules on top of a device client
type Controller struct {
	Device Device
	Auth   Refresher

	// Unit is the unit of SetTemperature input and View output
	Unit Unit

	// TurnOnDelay separates power on from a mode change on a stopped unit
	TurnOnDelay time.Duration
}

// NewController creates a Celsius controller with the default turn on delay
func NewController(device Device, auth Refresher) *Controller {
	return &Controller{
		Device:      device,
		Auth:        auth,
		Unit:        Celsius,
		TurnOnDelay: DefaultTurnOnDelay,
	}
}

// TurnOn powers the appliance on
func (c *Controller) TurnOn(ctx context.Context) error {
	return c.Device.PowerOn(ctx)
}

// TurnOff powers the appliance off
func (c *Controller) TurnOff(ctx context.Context) error {
	return c.Device.PowerOff(ctx)
}

// SetTemperature sets the target temperature, given in the controller's unit
func (c *Controller) SetTemperature(ctx context.Context, value float64) error {
	status := c.Device.Status()
	if !status.PowerOn {
		return ErrPoweredOff
	}
	if status.Reported && status.HVACModeID == protocol.HVACFanOnly {
		return ErrFanOnlyMode
	}

	celsius, err := c.ToCelsius(value)
	if err != nil {
		return err
	}
	return c.Device.SendLogicCommand(ctx, protocol.CmdTargetTemperature, celsius)
}

// ToCelsius converts user input in the controller's unit to a whole Celsius
// target and checks it against the supported range
func (c *Controller) ToCelsius(value float64) (int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, protocol.NewValidationError("temperature must be a number")
	}
	if c.Unit == Fahrenheit {
		value = (value - 32) * 5 / 9
	}
	celsius := int(math.Round(value))
	if celsius < MinTemperature || celsius > MaxTemperature {
		return 0, protocol.NewValidationError(fmt.Sprintf("temperature must be %d-%d°C, got %d°C", MinTemperature, MaxTemperature, celsius))
	}
	return celsius, nil
}

// SetHVACMode switches the operating mode. ModeOff powers the unit down.
//
// A running unit just receives the mode command. A stopped unit whose reported
// mode already matches is only powered on. A stopped unit with a different mode
// is powered on and, after TurnOnDelay, receives the mode command.
func (c *Controller) SetHVACMode(ctx context.Context, mode string) error {
	if strings.EqualFold(strings.TrimSpace(mode), ModeOff) {
		return c.TurnOff(ctx)
	}
	target, err := protocol.ParseHVACMode(mode)
	if err != nil {
		return err
	}

	status := c.Device.Status()
	switch {
	case status.PowerOn:
		return c.Device.SendLogicCommand(ctx, protocol.CmdHVACMode, int(target))
	case status.Reported && status.HVACModeID == target:
		return c.TurnOn(ctx)
	default:
		// An undecodable reply still means the cloud accepted the power command
		if err := c.TurnOn(ctx); err != nil {
			if !protocol.IsDecodeError(err) {
				return fmt.Errorf("power on before mode change: %w", err)
			}
			logging.Warn("Power on reply not decoded, continuing with mode change", zap.Error(err))
		}
		logging.Debug("Waiting before mode change",
			zap.Duration("delay", c.TurnOnDelay),
			zap.String("mode", target.String()),
		)
		if err := sleep(ctx, c.TurnOnDelay); err != nil {
			return err
		}
		return c.Device.SendLogicCommand(ctx, protocol.CmdHVACMode, int(target))
	}
}

// SetFanMode sets the fan speed. The unit must be running.
func (c *Controller) SetFanMode(ctx context.Context, mode protocol.FanMode) error {
	if !mode.Valid() {
		return protocol.NewValidationError(fmt.Sprintf("unknown fan mode %d", mode))
	}
	if !c.Device.Status().PowerOn {
		return ErrPoweredOff
	}
	return c.Device.SendLogicCommand(ctx, protocol.CmdFanMode, int(mode))
}

// SetSwingMode sets the louvre swing. The unit must be running.
func (c *Controller) SetSwingMode(ctx context.Context, mode protocol.SwingMode) error {
	if !mode.Valid() {
		return protocol.NewValidationError(fmt.Sprintf("unknown swing mode %d", mode))
	}
	if !c.Device.Status().PowerOn {
		return ErrPoweredOff
	}
	return c.Device.SendLogicCommand(ctx, protocol.CmdSwingMode, int(mode))
}

// SetScreen turns the front panel display on or off
func (c *Controller) SetScreen(ctx context.Context, on bool) error {
	return c.Device.SendLogicCommand(ctx, protocol.CmdScreen, boolParam(on))
}

// SetAuxHeat toggles the auxiliary electric heater
func (c *Controller) SetAuxHeat(ctx context.Context, on bool) error {
	return c.Device.SendLogicCommand(ctx, protocol.CmdAuxHeat, boolParam(on))
}

// RefreshToken forces an access token refresh
func (c *Controller) RefreshToken(ctx context.Context) error {
	if c.Auth == nil {
		return protocol.NewAuthError("no session attached", nil)
	}
	return c.Auth.Refresh(ctx)
}

// ForceUpdate polls the appliance now
func (c *Controller) ForceUpdate(ctx context.Context) error {
	return c.Device.CheckStatus(ctx)
}

// View returns the display state of the current snapshot in the controller's unit
func (c *Controller) View() DisplayState {
	return ViewIn(c.Device.Status(), c.Unit)
}

func boolParam(on bool) int {
	if on {
		return 1
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
