package climate

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the display state
func (d DisplayState) Summary() string {
	if !d.PowerOn {
		return fmt.Sprintf("Off (room %s)", d.temperature(d.CurrentTemperature))
	}
	return fmt.Sprintf("%s %s, fan %s (room %s)",
		d.HVACMode, d.temperature(d.TargetTemperature), d.FanMode, d.temperature(d.CurrentTemperature))
}

// FormatCompact returns a compact multi-line format suitable for terminal display
func (d DisplayState) FormatCompact() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Power:  %s\n", onOff(d.PowerOn)))
	b.WriteString(fmt.Sprintf("Mode:   %s  Fan: %s  Swing: %s\n", d.HVACMode, d.FanMode, d.SwingMode))
	b.WriteString(fmt.Sprintf("Temp:   target %s  room %s\n", d.temperature(d.TargetTemperature), d.temperature(d.CurrentTemperature)))

	return b.String()
}

// FormatDetailed returns every field grouped into sections
func (d DisplayState) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("=== Operation ===\n")
	b.WriteString(fmt.Sprintf("Power:        %s\n", onOff(d.PowerOn)))
	b.WriteString(fmt.Sprintf("HVAC Mode:    %s\n", d.HVACMode))
	b.WriteString(fmt.Sprintf("Fan Mode:     %s\n", d.FanMode))
	b.WriteString(fmt.Sprintf("Swing Mode:   %s\n", d.SwingMode))
	b.WriteString("\n")

	b.WriteString("=== Temperature ===\n")
	b.WriteString(fmt.Sprintf("Target:       %s\n", d.temperature(d.TargetTemperature)))
	b.WriteString(fmt.Sprintf("Room:         %s\n", d.temperature(d.CurrentTemperature)))
	b.WriteString("\n")

	b.WriteString("=== Features ===\n")
	b.WriteString(fmt.Sprintf("Screen Panel: %s\n", onOff(d.ScreenOn)))
	b.WriteString(fmt.Sprintf("Aux Heat:     %s\n", onOff(d.AuxHeat)))
	b.WriteString(fmt.Sprintf("Nature Wind:  %s\n", onOff(d.NatureWind)))

	if !d.Reported {
		b.WriteString("\n(no status reported yet, showing defaults)\n")
	} else if !d.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("\nUpdated:      %s\n", d.UpdatedAt.Format("2006-01-02 15:04:05")))
	}

	return b.String()
}

func (d DisplayState) temperature(v *int) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf("%d%s", *v, d.Unit.Symbol())
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
