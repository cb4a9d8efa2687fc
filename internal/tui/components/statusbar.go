package components

import (
	"fmt"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// LineSettings formats config in the usual "9600 8N1" notation
func LineSettings(config boardlink.Config) string {
	s := fmt.Sprintf("%d %d%s%d", config.BaudRate, config.DataBits, config.Parity, config.StopBits)
	if config.FlowControl != boardlink.FlowControlNone {
		s += " " + config.FlowControl.String()
	}
	return s
}

// StatusBar is the single bottom line of the TUI
type StatusBar struct {
	state   boardlink.ConnectionState
	err     error
	device  string
	path    string
	session string
	config  boardlink.Config
	width   int
}

func NewStatusBar(config boardlink.Config) *StatusBar {
	return &StatusBar{config: config}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

// SetState records the connection state and the error that caused it, if any
func (sb *StatusBar) SetState(state boardlink.ConnectionState, err error) {
	sb.state = state
	sb.err = err
	if state == boardlink.StateDisconnected {
		sb.device, sb.path, sb.session = "", "", ""
	}
}

// SetDevice shows the board the session is attached to
func (sb *StatusBar) SetDevice(d boardlink.DeviceDescriptor, session string) {
	sb.device = d.DisplayName
	sb.path = d.Path
	sb.session = session
}

func (sb *StatusBar) State() boardlink.ConnectionState {
	return sb.state
}

func (sb *StatusBar) indicator() string {
	symbol := "○"
	switch {
	case sb.state == boardlink.StateError:
		symbol = "✗"
	case sb.state == boardlink.StateConnected, sb.state == boardlink.StateReading:
		symbol = "●"
	}
	return lipgloss.NewStyle().Foreground(styles.StateColor(sb.state)).Render(symbol)
}

// View renders mode, device, state, line settings and time
func (sb *StatusBar) View(inputMode, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeBg := styles.Blue
	if inputMode == "INSERT" {
		modeBg = styles.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(styles.Base).
		Background(modeBg).
		Bold(true).
		Padding(0, 1).
		Render(inputMode)

	name := sb.device
	if name == "" {
		name = "no device"
	}
	device := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(name)

	stateText := sb.state.String()
	if sb.err != nil {
		stateText = fmt.Sprintf("%s: %v", stateText, sb.err)
	}
	state := styles.StateStyle(sb.state).Padding(0, 1).Render(stateText)

	divider := lipgloss.NewStyle().
		Foreground(styles.Surface2).
		Padding(0, 1).
		Render("│")

	details := "⚡ " + LineSettings(sb.config)
	if sb.path != "" {
		details = sb.path + "  " + details
	}
	if len(sb.session) >= 8 {
		details += " #" + sb.session[:8]
	}
	detailView := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Padding(0, 1).
		Render(details)
	timeView := lipgloss.NewStyle().
		Foreground(styles.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	left := lipgloss.JoinHorizontal(lipgloss.Left, mode, device, sb.indicator(), state, divider)
	right := lipgloss.JoinHorizontal(lipgloss.Left, detailView, divider, timeView)

	spacerWidth := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, left, spacer, right))
}
