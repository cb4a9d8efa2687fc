package components

import (
	"strings"

	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxInputHistory = 100

// Input is the command line. Enter sends its value as a single command.
type Input struct {
	textInput     textinput.Model
	history       []string
	historyIndex  int
	currentInput  string // input being edited before history navigation started
	terminalWidth int
}

func NewInput(placeholder string) *Input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Prompt = ""

	return &Input{
		textInput:    ti,
		historyIndex: -1,
	}
}

func (i *Input) SetWidth(width int) {
	i.terminalWidth = width
	// border(2) + padding(2) + prompt(1) + space(1)
	usableWidth := width - 6
	if usableWidth < 20 {
		usableWidth = 20
	}
	i.textInput.Width = usableWidth
}

func (i *Input) Focus() tea.Cmd {
	return i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

// Take returns the trimmed value, records it in history and clears the line
func (i *Input) Take() string {
	value := strings.TrimSpace(i.textInput.Value())
	i.AddToHistory(value)
	i.textInput.SetValue("")
	return value
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

func (i *Input) ViewWithMode(isInsertMode, connected bool) string {
	promptColor := styles.Overlay0
	if connected {
		promptColor = styles.Green
	}
	prompt := lipgloss.NewStyle().Foreground(promptColor).Bold(true).Render(">")

	var content string
	switch {
	case isInsertMode:
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", i.textInput.View())
	case connected:
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ",
			styles.MutedStyle.Render("Press 'i' to type a command"))
	default:
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ",
			styles.MutedStyle.Render("Not connected, press 'r' to connect"))
	}

	// rounded border and padding take 4 columns
	width := i.terminalWidth - 4
	if width < 10 {
		width = 10
	}
	style := styles.InputStyle.
		Width(width).
		AlignHorizontal(lipgloss.Left)
	if isInsertMode {
		style = style.BorderForeground(styles.Green)
	}
	return style.Render(content)
}

// History returns the remembered commands, oldest first
func (i *Input) History() []string {
	out := make([]string, len(i.history))
	copy(out, i.history)
	return out
}

// AddToHistory records command unless it is empty or repeats the last one
func (i *Input) AddToHistory(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	if len(i.history) > 0 && i.history[len(i.history)-1] == command {
		i.resetNavigation()
		return
	}

	i.history = append(i.history, command)
	if len(i.history) > maxInputHistory {
		i.history = i.history[1:]
	}
	i.resetNavigation()
}

func (i *Input) resetNavigation() {
	i.historyIndex = -1
	i.currentInput = ""
}

// NavigateHistoryUp moves up in command history
func (i *Input) NavigateHistoryUp() {
	if len(i.history) == 0 {
		return
	}

	if i.historyIndex == -1 {
		i.currentInput = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

// NavigateHistoryDown moves down in command history, ending at the line
// that was being edited
func (i *Input) NavigateHistoryDown() {
	if len(i.history) == 0 || i.historyIndex == -1 {
		return
	}

	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.textInput.SetValue(i.currentInput)
	i.resetNavigation()
}
