package components

import (
	"fmt"
	"strings"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// DisplayMode selects how log entries are rendered
type DisplayMode struct {
	ShowHex  bool // data and command entries as hex bytes
	ShowTime bool
}

// LogFormatter renders log entries with a coloured kind indicator
type LogFormatter struct {
	mode DisplayMode
}

func NewLogFormatter(mode DisplayMode) *LogFormatter {
	return &LogFormatter{mode: mode}
}

func (f *LogFormatter) Mode() DisplayMode {
	return f.mode
}

func (f *LogFormatter) ToggleHex() {
	f.mode.ShowHex = !f.mode.ShowHex
}

func (f *LogFormatter) ToggleTime() {
	f.mode.ShowTime = !f.mode.ShowTime
}

func indicator(kind boardlink.LogKind) string {
	switch kind {
	case boardlink.LogData:
		return "↙ RX"
	case boardlink.LogCommand:
		return "↗ TX"
	case boardlink.LogSuccess:
		return "✓"
	case boardlink.LogWarning:
		return "!"
	case boardlink.LogError:
		return "✗"
	default:
		return "·"
	}
}

// Format renders a single entry
func (f *LogFormatter) Format(e boardlink.LogEntry) string {
	ind := lipgloss.NewStyle().
		Foreground(styles.KindColor(e.Kind)).
		Bold(true).
		Width(4).
		Render(indicator(e.Kind))

	msg := e.Message
	switch e.Kind {
	case boardlink.LogData, boardlink.LogCommand:
		if f.mode.ShowHex {
			msg = fmt.Sprintf("% X", []byte(e.Message))
		} else {
			msg = printable(e.Message)
		}
	default:
		msg = lipgloss.NewStyle().Foreground(styles.KindColor(e.Kind)).Render(msg)
	}

	if !f.mode.ShowTime {
		return ind + " " + msg
	}
	ts := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Render("[" + e.Time.Format("15:04:05.000") + "]")
	return ts + " " + ind + " " + msg
}

// FormatAll renders entries in order
func (f *LogFormatter) FormatAll(entries []boardlink.LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = f.Format(e)
	}
	return out
}

// printable replaces control characters so device output cannot drive the terminal
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return '·'
		}
		return r
	}, s)
}
