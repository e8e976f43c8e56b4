package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/protocol"
	"github.com/muurk/hisense/internal/ui"
	"github.com/muurk/hisense/internal/version"
)

// Defaults for Options
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultActionTimeout   = 30 * time.Second
)

// refreshAction is the name of the status poll action
const refreshAction = "refresh"

// modeCycle is the order the mode key steps through
var modeCycle = []protocol.HVACMode{
	protocol.HVACAuto,
	protocol.HVACCool,
	protocol.HVACHeat,
	protocol.HVACDry,
	protocol.HVACFanOnly,
}

// Options configures the dashboard
type Options struct {
	Title           string
	Controller      *climate.Controller
	RefreshInterval time.Duration
	ActionTimeout   time.Duration // Per action, covers the turn-on delay of mode changes
}

// Message types for async operations
type tickMsg time.Time

type actionDoneMsg struct {
	action string
	err    error
}

// Model is the bubbletea model of the live device dashboard
type Model struct {
	title    string
	ctrl     *climate.Controller
	ctx      context.Context
	interval time.Duration
	timeout  time.Duration

	state      climate.DisplayState
	busy       string // Name of the action in flight, empty when idle
	lastAction string
	lastErr    error
	notice     string

	Width  int
	Height int

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a dashboard for one controller
func NewModel(ctx context.Context, opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}
	if opts.Title == "" {
		opts.Title = "Air conditioner"
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.PrimaryColor)

	return Model{
		busy:     refreshAction,
		title:    opts.Title,
		ctrl:     opts.Controller,
		ctx:      ctx,
		interval: opts.RefreshInterval,
		timeout:  opts.ActionTimeout,
		state:    opts.Controller.View(),
		Width:    ui.MaxContentWidth,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Run shows the dashboard until the user quits or ctx is canceled
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the first poll and the refresh timer
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run(refreshAction, m.ctrl.ForceUpdate), m.tick())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.busy != "" {
			return m, m.tick()
		}
		next, cmd := m.start(refreshAction, m.ctrl.ForceUpdate)
		return next, tea.Batch(cmd, next.tick())

	case actionDoneMsg:
		return m.finish(msg)

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.busy != "" {
		m.notice = fmt.Sprintf("waiting for %s to finish", m.busy)
		return m, nil
	}
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Power):
		if m.state.PowerOn {
			return m.start("power off", m.ctrl.TurnOff)
		}
		return m.start("power on", m.ctrl.TurnOn)

	case key.Matches(msg, m.keys.TempUp):
		return m.stepTemperature(1)
	case key.Matches(msg, m.keys.TempDown):
		return m.stepTemperature(-1)

	case key.Matches(msg, m.keys.Mode):
		mode := nextMode(m.state.HVACMode)
		return m.start("mode "+mode.String(), func(ctx context.Context) error {
			return m.ctrl.SetHVACMode(ctx, mode.String())
		})

	case key.Matches(msg, m.keys.Fan):
		mode := nextFanMode(m.state.FanMode)
		return m.start("fan "+mode.String(), func(ctx context.Context) error {
			return m.ctrl.SetFanMode(ctx, mode)
		})

	case key.Matches(msg, m.keys.Swing):
		mode := nextSwingMode(m.state.SwingMode)
		return m.start("swing "+mode.String(), func(ctx context.Context) error {
			return m.ctrl.SetSwingMode(ctx, mode)
		})

	case key.Matches(msg, m.keys.Screen):
		on := !m.state.ScreenOn
		return m.start("display "+onOff(on), func(ctx context.Context) error {
			return m.ctrl.SetScreen(ctx, on)
		})

	case key.Matches(msg, m.keys.AuxHeat):
		on := !m.state.AuxHeat
		return m.start("aux heat "+onOff(on), func(ctx context.Context) error {
			return m.ctrl.SetAuxHeat(ctx, on)
		})

	case key.Matches(msg, m.keys.Refresh):
		return m.start(refreshAction, m.ctrl.ForceUpdate)

	case key.Matches(msg, m.keys.RefreshToken):
		return m.start("token refresh", m.ctrl.RefreshToken)
	}
	return m, nil
}

// stepTemperature moves the target by one unit step. Fahrenheit steps by 2 so
// that every press changes the whole Celsius value sent to the unit.
func (m Model) stepTemperature(direction int) (tea.Model, tea.Cmd) {
	if m.state.TargetTemperature == nil {
		m.notice = "target temperature not reported yet, press r to refresh"
		return m, nil
	}
	step := 1
	if m.state.Unit == climate.Fahrenheit {
		step = 2
	}
	target := float64(*m.state.TargetTemperature + direction*step)
	name := fmt.Sprintf("temperature %.0f%s", target, m.state.Unit.Symbol())
	return m.start(name, func(ctx context.Context) error {
		return m.ctrl.SetTemperature(ctx, target)
	})
}

// start marks an action in flight and runs it in the background
func (m Model) start(name string, fn func(context.Context) error) (Model, tea.Cmd) {
	m.busy = name
	return m, tea.Batch(m.spinner.Tick, m.run(name, fn))
}

func (m Model) run(name string, fn func(context.Context) error) tea.Cmd {
	ctx, timeout := m.ctx, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return actionDoneMsg{action: name, err: fn(ctx)}
	}
}

// finish records an action result. A successful change is followed by a poll
// so the card shows what the unit reports.
func (m Model) finish(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	m.lastAction = msg.action
	m.lastErr = msg.err
	m.state = m.ctrl.View()

	if msg.err != nil {
		logging.Debug("Dashboard action failed", zap.String("action", msg.action), zap.Error(msg.err))
		return m, nil
	}
	if msg.action != refreshAction {
		return m.start(refreshAction, m.ctrl.ForceUpdate)
	}
	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// View renders the dashboard
func (m Model) View() string {
	width := m.Width
	if width > ui.MaxContentWidth {
		width = ui.MaxContentWidth
	}

	var b strings.Builder
	b.WriteString(ui.RenderStatusCard(m.title, m.state, width))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	b.WriteString(ui.StepNoteStyle.Render("  hisense-ctl " + version.Version))
	return b.String()
}

func (m Model) renderStatusLine() string {
	var line string
	switch {
	case m.busy != "":
		line = m.spinner.View() + " " + m.busy + "..."
	case m.lastErr != nil:
		line = ui.ErrorMessageStyle.Render(fmt.Sprintf("%s %s failed: %s",
			ui.FailureMarker, m.lastAction, protocol.ShortMessage(m.lastErr)))
	case m.lastAction != "":
		line = ui.StepCompleteStyle.Render(ui.SuccessMarker+" "+m.lastAction) +
			ui.StepNoteStyle.Render(fmt.Sprintf("  (next refresh in %s)", m.interval))
	}
	if m.notice != "" {
		line += "\n" + ui.StepNoteStyle.Render("  "+m.notice)
	}
	return "  " + line
}

// State returns the display state currently shown
func (m Model) State() climate.DisplayState {
	return m.state
}

// Busy returns the name of the action in flight
func (m Model) Busy() string {
	return m.busy
}

// Err returns the error of the last action
func (m Model) Err() error {
	return m.lastErr
}

func nextMode(current string) protocol.HVACMode {
	for i, mode := range modeCycle {
		if strings.EqualFold(mode.String(), current) {
			return modeCycle[(i+1)%len(modeCycle)]
		}
	}
	return climate.DefaultHVACMode
}

func nextFanMode(current string) protocol.FanMode {
	modes := protocol.FanModes()
	for i, mode := range modes {
		if strings.EqualFold(mode.String(), current) {
			return modes[(i+1)%len(modes)]
		}
	}
	return climate.DefaultFanMode
}

func nextSwingMode(current string) protocol.SwingMode {
	modes := protocol.SwingModes()
	for i, mode := range modes {
		if strings.EqualFold(mode.String(), current) {
			return modes[(i+1)%len(modes)]
		}
	}
	return climate.DefaultSwingMode
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
