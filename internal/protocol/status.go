package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Status array positions understood by the decoder
const (
	IndexFanMode            = 0
	IndexHVACMode           = 4
	IndexPower              = 5
	IndexDesiredTemperature = 9
	IndexIndoorTemperature  = 10
	IndexNatureWind         = 44
	IndexAuxHeat            = 45
	IndexScreen             = 58
	IndexSwingMode          = 209

	// MinStatusLength is the shortest status array that covers every decoded index
	MinStatusLength = IndexSwingMode + 1
)

// HVACMode is the operating mode reported at IndexHVACMode
type HVACMode int

const (
	HVACFanOnly HVACMode = iota
	HVACHeat
	HVACCool
	HVACDry
	HVACAuto
)

var hvacModeNames = [...]string{"FAN_ONLY", "HEAT", "COOL", "DRY", "AUTO"}

// Valid reports whether m is a known mode id
func (m HVACMode) Valid() bool { return m >= 0 && int(m) < len(hvacModeNames) }

func (m HVACMode) String() string {
	if m.Valid() {
		return hvacModeNames[m]
	}
	return fmt.Sprintf("HVACMode(%d)", int(m))
}

// HVACModes returns every known mode in id order
func HVACModes() []HVACMode {
	return []HVACMode{HVACFanOnly, HVACHeat, HVACCool, HVACDry, HVACAuto}
}

// ParseHVACMode parses a mode label such as "cool" or "fan_only"
func ParseHVACMode(s string) (HVACMode, error) {
	i, ok := lookupLabel(hvacModeNames[:], s)
	if !ok {
		return 0, NewValidationError(fmt.Sprintf("unknown hvac mode %q (valid: %s)", s, strings.Join(hvacModeNames[:], ", ")))
	}
	return HVACMode(i), nil
}

// FanMode is the fan speed reported at IndexFanMode
type FanMode int

const (
	FanAuto FanMode = iota
	FanDiffuse
	FanLow
	FanMedium
	FanHigh
)

var fanModeNames = [...]string{"AUTO", "DIFFUSE", "LOW", "MEDIUM", "HIGH"}

// Valid reports whether m is a known fan mode id
func (m FanMode) Valid() bool { return m >= 0 && int(m) < len(fanModeNames) }

func (m FanMode) String() string {
	if m.Valid() {
		return fanModeNames[m]
	}
	return fmt.Sprintf("FanMode(%d)", int(m))
}

// FanModes returns every known fan mode in id order
func FanModes() []FanMode {
	return []FanMode{FanAuto, FanDiffuse, FanLow, FanMedium, FanHigh}
}

// ParseFanMode parses a fan label such as "high"
func ParseFanMode(s string) (FanMode, error) {
	i, ok := lookupLabel(fanModeNames[:], s)
	if !ok {
		return 0, NewValidationError(fmt.Sprintf("unknown fan mode %q (valid: %s)", s, strings.Join(fanModeNames[:], ", ")))
	}
	return FanMode(i), nil
}

// SwingMode is the louver setting reported at IndexSwingMode
type SwingMode int

const (
	SwingOff SwingMode = iota
	SwingOn
	SwingHorizontal
	SwingVertical
)

var swingModeNames = [...]string{"OFF", "ON", "HORIZONTAL", "VERTICAL"}

// Valid reports whether m is a known swing mode id
func (m SwingMode) Valid() bool { return m >= 0 && int(m) < len(swingModeNames) }

func (m SwingMode) String() string {
	if m.Valid() {
		return swingModeNames[m]
	}
	return fmt.Sprintf("SwingMode(%d)", int(m))
}

// SwingModes returns every known swing mode in id order
func SwingModes() []SwingMode {
	return []SwingMode{SwingOff, SwingOn, SwingHorizontal, SwingVertical}
}

// ParseSwingMode parses a swing label such as "vertical"
func ParseSwingMode(s string) (SwingMode, error) {
	i, ok := lookupLabel(swingModeNames[:], s)
	if !ok {
		return 0, NewValidationError(fmt.Sprintf("unknown swing mode %q (valid: %s)", s, strings.Join(swingModeNames[:], ", ")))
	}
	return SwingMode(i), nil
}

func lookupLabel(names []string, s string) (int, bool) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for i, n := range names {
		if n == norm {
			return i, true
		}
	}
	return 0, false
}

// Status is a decoded snapshot of an air conditioner.
//
// Values are immutable once published: holders replace the whole value rather
// than editing fields. Reported is false for the default snapshot, in which
// only PowerOn is meaningful.
type Status struct {
	Reported           bool      `json:"reported"`
	PowerOn            bool      `json:"power_on"`
	FanModeID          FanMode   `json:"fan_mode_id"`
	HVACModeID         HVACMode  `json:"hvac_mode_id"`
	DesiredTemperature int       `json:"desired_temperature"`
	IndoorTemperature  int       `json:"indoor_temperature"`
	NatureWind         bool      `json:"nature_wind"`
	AuxHeat            bool      `json:"aux_heat"`
	ScreenOn           bool      `json:"screen_on"`
	SwingModeID        SwingMode `json:"swing_mode_id"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultStatus returns the snapshot held before any successful decode
func DefaultStatus() Status {
	return Status{PowerOn: false}
}

// WithPower returns a copy of s with PowerOn set to on
func (s Status) WithPower(on bool) Status {
	s.PowerOn = on
	return s
}
