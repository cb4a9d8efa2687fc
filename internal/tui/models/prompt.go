package models

import (
	"context"
	"fmt"

	"github.com/allbin/go-boardlink"
	tea "github.com/charmbracelet/bubbletea"
)

type pickReply struct {
	port boardlink.PortInfo
	err  error
}

// PickRequestMsg asks the TUI to choose among candidate ports. Exactly one
// of Choose or Cancel must be called.
type PickRequestMsg struct {
	Candidates []boardlink.PortInfo
	reply      chan pickReply
}

// Choose answers the request with port
func (r PickRequestMsg) Choose(port boardlink.PortInfo) {
	r.reply <- pickReply{port: port}
}

// Cancel declines the request
func (r PickRequestMsg) Cancel() {
	r.reply <- pickReply{err: fmt.Errorf("%w: no port chosen", boardlink.ErrSelectionCancelled)}
}

// PortPrompt lets a running Bubble Tea program act as the port Selector of
// a NativeBackend
type PortPrompt struct {
	requests chan PickRequestMsg
}

func NewPortPrompt() *PortPrompt {
	return &PortPrompt{requests: make(chan PickRequestMsg)}
}

// Select implements boardlink.Selector. A single candidate is chosen
// without asking.
func (p *PortPrompt) Select(ctx context.Context, candidates []boardlink.PortInfo) (boardlink.PortInfo, error) {
	if len(candidates) <= 1 {
		return boardlink.FirstPort(ctx, candidates)
	}

	req := PickRequestMsg{Candidates: candidates, reply: make(chan pickReply, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return boardlink.PortInfo{}, fmt.Errorf("%w: %w", boardlink.ErrSelectionCancelled, ctx.Err())
	}

	select {
	case r := <-req.reply:
		return r.port, r.err
	case <-ctx.Done():
		return boardlink.PortInfo{}, fmt.Errorf("%w: %w", boardlink.ErrSelectionCancelled, ctx.Err())
	}
}

// Wait returns a command delivering the next PickRequestMsg
func (p *PortPrompt) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-p.requests
	}
}
