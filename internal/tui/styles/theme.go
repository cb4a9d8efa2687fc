package styles

import (
	"github.com/allbin/go-boardlink"
	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha palette
var (
	Base     = lipgloss.Color("#1e1e2e")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Surface2 = lipgloss.Color("#585b70")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4")

	Blue   = lipgloss.Color("#89b4fa")
	Sky    = lipgloss.Color("#89dceb")
	Teal   = lipgloss.Color("#94e2d5")
	Green  = lipgloss.Color("#a6e3a1")
	Yellow = lipgloss.Color("#f9e2af")
	Peach  = lipgloss.Color("#fab387")
	Red    = lipgloss.Color("#f38ba8")
	Mauve  = lipgloss.Color("#cba6f7")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(1, 2)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Red)

	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Green)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Overlay0)
)

// StateColor is the indicator colour for a connection state
func StateColor(state boardlink.ConnectionState) lipgloss.Color {
	switch state {
	case boardlink.StateConnected, boardlink.StateReading:
		return Green
	case boardlink.StateConnecting:
		return Yellow
	default:
		return Red
	}
}

// StateStyle renders a connection state label
func StateStyle(state boardlink.ConnectionState) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StateColor(state)).Bold(true)
}

// KindColor is the colour used for log entries of kind
func KindColor(kind boardlink.LogKind) lipgloss.Color {
	switch kind {
	case boardlink.LogSuccess:
		return Green
	case boardlink.LogWarning:
		return Yellow
	case boardlink.LogError:
		return Red
	case boardlink.LogCommand:
		return Peach
	case boardlink.LogData:
		return Sky
	default:
		return Blue
	}
}
