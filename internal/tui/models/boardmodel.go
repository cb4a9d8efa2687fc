package models

import (
	"context"
	"sync"
	"time"

	"github.com/allbin/go-boardlink"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// SendTimeout bounds how long a command typed in the TUI may wait to be written
const SendTimeout = 5 * time.Second

// EventMsg carries a controller event into the Bubble Tea loop
type EventMsg struct {
	Event boardlink.Event
}

// EventsClosedMsg reports that the event subscription has ended
type EventsClosedMsg struct{}

// ConnectResultMsg is the outcome of a Connect started by ConnectCmd
type ConnectResultMsg struct {
	Err error
}

// SendResultMsg is the outcome of a command written by SendCmd
type SendResultMsg struct {
	Payload string
	Err     error
}

// BoardModel is the state shared by TUI commands that drive a Controller
type BoardModel struct {
	ctrl        *boardlink.Controller
	request     boardlink.PortRequest
	events      <-chan boardlink.Event
	unsubscribe func()

	ready     bool
	inputMode InputMode

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewBoardModel subscribes to ctrl with a buffer of bufferSize events
func NewBoardModel(ctrl *boardlink.Controller, req boardlink.PortRequest, bufferSize int) *BoardModel {
	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := ctrl.Subscribe(bufferSize)

	return &BoardModel{
		ctrl:        ctrl,
		request:     req,
		events:      events,
		unsubscribe: unsubscribe,
		inputMode:   InputModeNormal,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (m *BoardModel) Controller() *boardlink.Controller {
	return m.ctrl
}

func (m *BoardModel) Request() boardlink.PortRequest {
	return m.request
}

// WaitForEvent returns a command delivering the next controller event.
// It must be reissued after every EventMsg.
func (m *BoardModel) WaitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return EventsClosedMsg{}
		}
		return EventMsg{Event: e}
	}
}

// ConnectCmd connects the controller in the background
func (m *BoardModel) ConnectCmd() tea.Cmd {
	ctx, ctrl, req := m.ctx, m.ctrl, m.request
	return func() tea.Msg {
		return ConnectResultMsg{Err: ctrl.Connect(ctx, req)}
	}
}

// SendCmd writes payload as a command in the background
func (m *BoardModel) SendCmd(payload string) tea.Cmd {
	parent, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, SendTimeout)
		defer cancel()
		return SendResultMsg{Payload: payload, Err: ctrl.SendCommand(ctx, payload)}
	}
}

// DisconnectCmd disconnects the controller in the background
func (m *BoardModel) DisconnectCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		_ = ctrl.Disconnect()
		return nil
	}
}

func (m *BoardModel) IsReady() bool {
	return m.ready
}

func (m *BoardModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *BoardModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *BoardModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *BoardModel) IsInInsertMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode == InputModeInsert
}

// IsConnected reports whether commands can be sent
func (m *BoardModel) IsConnected() bool {
	switch m.ctrl.State() {
	case boardlink.StateConnected, boardlink.StateReading:
		return true
	}
	return false
}

// Cleanup cancels pending work, disconnects and ends the subscription
func (m *BoardModel) Cleanup() {
	m.cancel()
	_ = m.ctrl.Disconnect()
	m.unsubscribe()
}
