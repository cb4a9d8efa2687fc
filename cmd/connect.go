/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/tui/components"
	"github.com/allbin/go-boardlink/internal/tui/keys"
	"github.com/allbin/go-boardlink/internal/tui/models"
	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect [port]",
	Short: "Open an interactive terminal to a board",
	Long: `Open an interactive terminal to a board with a live telemetry table.

Without a port argument the board is chosen from the attached USB serial
ports, optionally narrowed with --vid and --pid. When several ports match a
picker is shown; cancelling it leaves the terminal in the error state.

Keys:
  i        type a command, enter sends it, esc returns to normal mode
  r / d    connect / disconnect
  T        toggle the telemetry table
  h / t    toggle hex view / timestamps
  ?        full help

Example usage:
  boardlink connect /dev/ttyACM0
  boardlink connect --vid 2341 --baud 115200
  boardlink connect --simulate`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := portRequest(cmd, optionalArg(args, 0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		logger := zap.NewNop()
		if path, _ := cmd.Flags().GetString("log-file"); path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			if logger, err = newLogger(f); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		defer func() { _ = logger.Sync() }()

		if err := runConnectTUI(req, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	addRequestFlags(connectCmd)
	connectCmd.Flags().String("log-file", "", "Write operational logs to this file while the TUI runs")
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.BoardModel
	prompt     *models.PortPrompt
	logView    *components.LogView
	telemetry  *components.TelemetryTable
	statusBar  *components.StatusBar
	input      *components.Input
	help       help.Model
	keys       keys.ConnectKeys
	pickerKeys keys.PickerKeys

	picker    *components.PortPicker
	pick      *models.PickRequestMsg
	showTable bool
	width     int
	height    int
}

func newConnectModel(ctrl *boardlink.Controller, req boardlink.PortRequest, prompt *models.PortPrompt) *connectModel {
	config := ctrl.Config()
	m := &connectModel{
		BoardModel: models.NewBoardModel(ctrl, req, 256),
		prompt:     prompt,
		logView:    components.NewLogView(80, 20, config.LogCapacity),
		telemetry:  components.NewTelemetryTable(),
		statusBar:  components.NewStatusBar(config),
		input:      components.NewInput("Type a command and press Enter to send..."),
		help:       help.New(),
		keys:       keys.NewConnectKeys(),
		pickerKeys: keys.NewPickerKeys(),
		showTable:  true,
		width:      80,
		height:     24,
	}
	m.logView.SetEntries(ctrl.Logs())
	m.statusBar.SetState(ctrl.State(), ctrl.Err())
	return m
}

func runConnectTUI(req boardlink.PortRequest, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prompt := models.NewPortPrompt()
	b, err := newBoard(ctx, logger, prompt.Select)
	if err != nil {
		return err
	}

	m := newConnectModel(b.ctrl, req, prompt)
	defer m.Cleanup()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}

func (m *connectModel) Init() tea.Cmd {
	return tea.Batch(m.WaitForEvent(), m.prompt.Wait(), m.ConnectCmd())
}

func (m *connectModel) handleEvent(e boardlink.Event) {
	switch e.Kind {
	case boardlink.EventLog:
		m.logView.Add(e.Log)
	case boardlink.EventTelemetry:
		m.telemetry.Observe(e.Line.Frame, e.Time)
	case boardlink.EventState:
		m.statusBar.SetState(e.State, e.Err)
		switch e.State {
		case boardlink.StateConnecting:
			m.telemetry.Reset()
		case boardlink.StateConnected:
			if d, ok := m.Controller().Device(); ok {
				m.statusBar.SetDevice(d, e.Session)
			}
		case boardlink.StateDisconnected, boardlink.StateError:
			m.leaveInsertMode()
		}
	}
}

func (m *connectModel) leaveInsertMode() {
	m.SetInputMode(models.InputModeNormal)
	m.input.Blur()
}

func (m *connectModel) updatePicker(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.pickerKeys.Up):
		m.picker.Up()
	case key.Matches(msg, m.pickerKeys.Down):
		m.picker.Down()
	case key.Matches(msg, m.pickerKeys.Select):
		if port, ok := m.picker.Selected(); ok {
			m.pick.Choose(port)
		} else {
			m.pick.Cancel()
		}
		m.pick, m.picker = nil, nil
		return m.prompt.Wait()
	case key.Matches(msg, m.pickerKeys.Cancel):
		m.pick.Cancel()
		m.pick, m.picker = nil, nil
		return m.prompt.Wait()
	}
	return nil
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)

	case models.EventMsg:
		m.handleEvent(msg.Event)
		cmds = append(cmds, m.WaitForEvent())

	case models.PickRequestMsg:
		m.pick = &msg
		m.picker = components.NewPortPicker(msg.Candidates, m.Controller().Config().Resolver)

	case tea.MouseMsg:
		cmds = append(cmds, m.logView.Update(msg))

	case tea.KeyMsg:
		if m.pick != nil {
			cmds = append(cmds, m.updatePicker(msg))
			break
		}

		if m.IsInInsertMode() {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.leaveInsertMode()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.Enter):
				if payload := m.input.Take(); payload != "" {
					cmds = append(cmds, m.SendCmd(payload))
				}
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.HistoryUp):
				m.input.NavigateHistoryUp()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.HistoryDown):
				m.input.NavigateHistoryDown()
				return m, tea.Batch(cmds...)
			}
		} else {
			switch {
			case key.Matches(msg, m.keys.Quit):
				m.Cleanup()
				return m, tea.Quit

			case key.Matches(msg, m.keys.InsertMode):
				if m.IsConnected() {
					m.SetInputMode(models.InputModeInsert)
					cmds = append(cmds, m.input.Focus())
				}
				return m, tea.Batch(cmds...)

			case key.Matches(msg, m.keys.Connect):
				switch m.Controller().State() {
				case boardlink.StateDisconnected, boardlink.StateError:
					cmds = append(cmds, m.ConnectCmd())
				}

			case key.Matches(msg, m.keys.Disconnect):
				cmds = append(cmds, m.DisconnectCmd())

			case key.Matches(msg, m.keys.Clear):
				m.logView.Clear()

			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll

			case key.Matches(msg, m.keys.ToggleHex):
				m.logView.ToggleHex()

			case key.Matches(msg, m.keys.ToggleTime):
				m.logView.ToggleTime()

			case key.Matches(msg, m.keys.ToggleTable):
				m.showTable = !m.showTable

			case key.Matches(msg, m.keys.Up):
				m.logView.ScrollUp()

			case key.Matches(msg, m.keys.Down):
				m.logView.ScrollDown()

			case key.Matches(msg, m.keys.GotoTop):
				m.logView.GotoTop()

			case key.Matches(msg, m.keys.GotoBottom):
				m.logView.GotoBottom()
			}
		}
	}

	// Only the input consumes keys, and only in insert mode
	if m.IsInInsertMode() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.layout()
	return m, tea.Batch(cmds...)
}

func (m *connectModel) helpView() string {
	if !m.help.ShowAll {
		return ""
	}
	return styles.HelpStyle.Render(m.help.View(m.keys))
}

// layout sizes the log view to whatever the other sections leave over
func (m *connectModel) layout() {
	// input (3 with border), status bar (1), content border (1)
	used := 5
	if m.showTable {
		m.telemetry.SetSize(m.width, m.height/2)
		used += m.telemetry.Height()
	}
	if h := m.helpView(); h != "" {
		used += lipgloss.Height(h)
	}

	height := m.height - used
	if height < 3 {
		height = 3
	}
	m.logView.SetSize(m.width, height)
}

func (m *connectModel) View() string {
	timestamp := time.Now().Format("15:04:05")
	statusBar := m.statusBar.View(m.GetInputMode().String(), timestamp)

	if m.pick != nil {
		picker := lipgloss.NewStyle().Padding(1, 2).Render(m.picker.View())
		pickerHelp := lipgloss.NewStyle().Padding(0, 2).Render(m.help.View(m.pickerKeys))
		body := lipgloss.NewStyle().
			Height(m.height - 1).
			Render(lipgloss.JoinVertical(lipgloss.Left, picker, pickerHelp))
		return lipgloss.JoinVertical(lipgloss.Left, body, statusBar)
	}

	var sections []string
	if m.showTable && m.telemetry.Len() > 0 {
		sections = append(sections, m.telemetry.View())
	}

	content := "Initializing..."
	if m.IsReady() {
		content = m.logView.View()
	}
	sections = append(sections, styles.ContentBorderStyle.Render(content))

	if h := m.helpView(); h != "" {
		sections = append(sections, h)
	}
	sections = append(sections,
		m.input.ViewWithMode(m.IsInInsertMode(), m.IsConnected()),
		statusBar,
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
