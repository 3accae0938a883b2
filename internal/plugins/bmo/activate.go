package bmo

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/plugins/bmo/chat"
	"github.com/marcus/bmo/internal/workspace"
)

// ActivateView opens the chat panel in the right sidebar, replacing any
// panel already open, and focuses its input. Calling it repeatedly leaves
// exactly one panel.
func (p *Plugin) ActivateView(ctx context.Context) error {
	_, err := p.activate(ctx)
	return err
}

func (p *Plugin) activateCmd() tea.Cmd {
	cmd, err := p.activate(context.Background())
	if err != nil {
		p.logger.Error("bmo: activate view", "err", err)
		return msg.ShowError("Could not open the chatbot: " + err.Error())
	}
	return cmd
}

func (p *Plugin) activate(ctx context.Context) (tea.Cmd, error) {
	ws := p.ctx.Workspace

	ws.DetachLeavesOfType(chat.ViewType)
	p.liveViews()

	leaf := ws.GetRightLeaf(false)
	if err := ws.SetViewState(leaf, workspace.ViewState{Type: chat.ViewType, Active: true}); err != nil {
		return nil, fmt.Errorf("open chat view: %w", err)
	}

	view, first := p.firstView()
	if first == nil {
		return nil, fmt.Errorf("chat view did not open")
	}
	ws.RevealLeaf(first)

	if !p.awaitMounted(ctx, view) {
		return nil, nil
	}
	focus := view.FocusInput()

	ws.RevealLeaf(first)
	view.ScrollToBottom()
	return focus, nil
}

// firstView returns the first attached chat leaf and its panel.
func (p *Plugin) firstView() (chatView, *workspace.Leaf) {
	leaves := p.ctx.Workspace.GetLeavesOfType(chat.ViewType)
	if len(leaves) == 0 {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.views[leaves[0].ID()], leaves[0]
}

// awaitMounted waits until the panel has been laid out. On timeout or
// cancellation the focus steps are skipped.
func (p *Plugin) awaitMounted(ctx context.Context, v chatView) bool {
	if v == nil {
		return false
	}
	timer := time.NewTimer(p.mountTimeout)
	defer timer.Stop()
	select {
	case <-v.Mounted():
		return true
	case <-timer.C:
		p.logger.Warn("bmo: chat view not mounted, skipping focus", "timeout", p.mountTimeout)
	case <-ctx.Done():
		p.logger.Warn("bmo: activate view cancelled", "err", ctx.Err())
	}
	return false
}
