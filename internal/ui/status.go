package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/hisense/internal/climate"
)

// RenderStatusCard renders a device snapshot as a bordered card
func RenderStatusCard(title string, d climate.DisplayState, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	accent := ModeColor(d.HVACMode)

	big := lipgloss.NewStyle().Foreground(accent).Bold(true)
	power := big.Render("OFF")
	if d.PowerOn {
		power = big.Render(d.HVACMode)
	}

	temps := fmt.Sprintf("target %s   room %s",
		formatTemp(d.TargetTemperature, d.Unit), formatTemp(d.CurrentTemperature, d.Unit))

	details := map[string]string{
		"Fan":         d.FanMode,
		"Swing":       d.SwingMode,
		"Screen":      onOff(d.ScreenOn),
		"Aux heat":    onOff(d.AuxHeat),
		"Nature wind": onOff(d.NatureWind),
	}
	if !d.UpdatedAt.IsZero() {
		details["Updated"] = d.UpdatedAt.Local().Format("2006-01-02 15:04:05")
	}

	lines := []string{
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		"",
		"  " + power + "   " + ResultValueStyle.Render(temps),
		"",
	}
	lines = append(lines, renderDetails(details)...)
	if !d.Reported {
		lines = append(lines, "", StepNoteStyle.Render("   no status reported yet, showing defaults"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Width(width-2).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func formatTemp(v *int, unit climate.Unit) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf("%d%s", *v, unit.Symbol())
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
