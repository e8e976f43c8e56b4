package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/protocol"
)

// Command actions accepted by the HTTP API and the MQTT command topics
const (
	ActionPower        = "power"
	ActionMode         = "mode"
	ActionFan          = "fan"
	ActionSwing        = "swing"
	ActionTemperature  = "temperature"
	ActionScreen       = "screen"
	ActionAuxHeat      = "aux_heat"
	ActionRaw          = "raw"
	ActionRefresh      = "refresh"
	ActionRefreshToken = "refresh_token"
)

// Command is one control request for a device.
//
//	{"action":"power","on":true}
//	{"action":"mode","mode":"cool"}
//	{"action":"temperature","value":22}
//	{"action":"raw","cmd_id":41,"param":0}
type Command struct {
	Action string   `json:"action"`
	On     *bool    `json:"on,omitempty"`
	Mode   string   `json:"mode,omitempty"`
	Value  *float64 `json:"value,omitempty"`
	CmdID  *int     `json:"cmd_id,omitempty"`
	Param  *int     `json:"param,omitempty"`
}

// DecodeCommand parses and validates a command payload
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return Command{}, protocol.NewValidationError(fmt.Sprintf("invalid command JSON: %v", err))
	}
	cmd.Action = strings.ToLower(strings.TrimSpace(cmd.Action))
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Validate checks that the fields an action needs are present
func (c Command) Validate() error {
	switch c.Action {
	case ActionPower, ActionScreen, ActionAuxHeat:
		if c.On == nil {
			return protocol.NewValidationError(fmt.Sprintf("action %q requires \"on\"", c.Action))
		}
	case ActionMode:
		if c.Mode == "" {
			return protocol.NewValidationError("action \"mode\" requires \"mode\"")
		}
		if !strings.EqualFold(strings.TrimSpace(c.Mode), climate.ModeOff) {
			if _, err := protocol.ParseHVACMode(c.Mode); err != nil {
				return err
			}
		}
	case ActionFan:
		if _, err := protocol.ParseFanMode(c.Mode); err != nil {
			return err
		}
	case ActionSwing:
		if _, err := protocol.ParseSwingMode(c.Mode); err != nil {
			return err
		}
	case ActionTemperature:
		if c.Value == nil {
			return protocol.NewValidationError("action \"temperature\" requires \"value\"")
		}
	case ActionRaw:
		if c.CmdID == nil || c.Param == nil {
			return protocol.NewValidationError("action \"raw\" requires \"cmd_id\" and \"param\"")
		}
		return protocol.ValidateLogicCommand(*c.CmdID, *c.Param)
	case ActionRefresh, ActionRefreshToken:
	case "":
		return protocol.NewValidationError("missing \"action\"")
	default:
		return protocol.NewValidationError(fmt.Sprintf("unknown action %q", c.Action))
	}
	return nil
}

// Apply runs the command through the controller
func (c Command) Apply(ctx context.Context, ctrl *climate.Controller) error {
	switch c.Action {
	case ActionPower:
		if *c.On {
			return ctrl.TurnOn(ctx)
		}
		return ctrl.TurnOff(ctx)
	case ActionMode:
		return ctrl.SetHVACMode(ctx, c.Mode)
	case ActionFan:
		mode, _ := protocol.ParseFanMode(c.Mode)
		return ctrl.SetFanMode(ctx, mode)
	case ActionSwing:
		mode, _ := protocol.ParseSwingMode(c.Mode)
		return ctrl.SetSwingMode(ctx, mode)
	case ActionTemperature:
		return ctrl.SetTemperature(ctx, *c.Value)
	case ActionScreen:
		return ctrl.SetScreen(ctx, *c.On)
	case ActionAuxHeat:
		return ctrl.SetAuxHeat(ctx, *c.On)
	case ActionRaw:
		return ctrl.Device.SendLogicCommand(ctx, *c.CmdID, *c.Param)
	case ActionRefresh:
		return ctrl.ForceUpdate(ctx)
	case ActionRefreshToken:
		return ctrl.RefreshToken(ctx)
	default:
		return protocol.NewValidationError(fmt.Sprintf("unknown action %q", c.Action))
	}
}
