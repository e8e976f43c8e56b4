package climate

import (
	"math"
	"time"

	"github.com/muurk/hisense/internal/protocol"
)

// Display fallbacks used when the snapshot carries no usable value
var (
	DefaultHVACMode  = protocol.HVACAuto
	DefaultFanMode   = protocol.FanAuto
	DefaultSwingMode = protocol.SwingOff
)

// DefaultScreenOn is shown for the display panel before any status is reported
const DefaultScreenOn = true

// DisplayState is a snapshot rendered for people: labels instead of ids,
// temperatures in the chosen unit.
type DisplayState struct {
	Reported   bool   `json:"reported"`
	PowerOn    bool   `json:"power_on"`
	HVACMode   string `json:"hvac_mode"`
	FanMode    string `json:"fan_mode"`
	SwingMode  string `json:"swing_mode"`
	ScreenOn   bool   `json:"screen_on"`
	AuxHeat    bool   `json:"aux_heat"`
	NatureWind bool   `json:"nature_wind"`
	Unit       Unit   `json:"unit"`

	// Temperatures are nil until reported
	TargetTemperature  *int `json:"target_temperature,omitempty"`
	CurrentTemperature *int `json:"current_temperature,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// View renders a snapshot in Celsius
func View(s protocol.Status) DisplayState {
	return ViewIn(s, Celsius)
}

// ViewIn renders a snapshot in the given unit.
// A unit that is off shows HVAC mode OFF.
func ViewIn(s protocol.Status, unit Unit) DisplayState {
	if unit == "" {
		unit = Celsius
	}
	d := DisplayState{
		Reported:   s.Reported,
		PowerOn:    s.PowerOn,
		HVACMode:   DefaultHVACMode.String(),
		FanMode:    DefaultFanMode.String(),
		SwingMode:  DefaultSwingMode.String(),
		ScreenOn:   DefaultScreenOn,
		AuxHeat:    s.AuxHeat,
		NatureWind: s.NatureWind,
		Unit:       unit,
		UpdatedAt:  s.UpdatedAt,
	}

	if s.Reported {
		if s.HVACModeID.Valid() {
			d.HVACMode = s.HVACModeID.String()
		}
		if s.FanModeID.Valid() {
			d.FanMode = s.FanModeID.String()
		}
		if s.SwingModeID.Valid() {
			d.SwingMode = s.SwingModeID.String()
		}
		d.ScreenOn = s.ScreenOn
		target := convert(s.DesiredTemperature, unit)
		current := convert(s.IndoorTemperature, unit)
		d.TargetTemperature = &target
		d.CurrentTemperature = &current
	}

	if !s.PowerOn {
		d.HVACMode = ModeOff
	}
	return d
}

// HVACModeID returns the device mode behind the display label, if any
func (d DisplayState) HVACModeID() (protocol.HVACMode, bool) {
	m, err := protocol.ParseHVACMode(d.HVACMode)
	return m, err == nil
}

// Symbol returns the unit suffix
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

func convert(celsius int, unit Unit) int {
	if unit == Fahrenheit {
		return int(math.Round(float64(celsius)*9/5 + 32))
	}
	return celsius
}
