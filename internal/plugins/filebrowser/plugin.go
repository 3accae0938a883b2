// Package filebrowser is the file explorer shown in the left sidebar.
package filebrowser

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/workspace"
)

const (
	pluginID   = "explorer"
	pluginName = "File explorer"

	CmdFocusExplorer = "focus-file-explorer"
)

// Plugin registers the explorer view and opens it in the left sidebar.
type Plugin struct {
	ctx    *plugin.Context
	logger *slog.Logger
}

// New returns the explorer plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) ID() string   { return pluginID }
func (p *Plugin) Name() string { return pluginName }

func (p *Plugin) OnLoad(ctx *plugin.Context) error {
	p.ctx = ctx
	p.logger = ctx.Logger

	if err := ctx.RegisterView(ViewType, func(*workspace.Leaf) workspace.View {
		return NewView(ctx.Vault, p.logger)
	}); err != nil {
		return err
	}
	if err := ctx.AddCommand(plugin.Command{
		ID:       CmdFocusExplorer,
		Name:     "Show file explorer",
		Hotkeys:  []keymap.Hotkey{{Modifiers: []string{keymap.ModKey}, Key: "e"}},
		Callback: p.focusCmd,
	}); err != nil {
		return err
	}

	_, err := p.ensureLeaf()
	return err
}

func (p *Plugin) OnUnload() {}

// ensureLeaf returns the explorer leaf, creating it in the left sidebar
// when missing.
func (p *Plugin) ensureLeaf() (*workspace.Leaf, error) {
	ws := p.ctx.Workspace
	if leaves := ws.GetLeavesOfType(ViewType); len(leaves) > 0 {
		return leaves[0], nil
	}
	leaf := ws.GetLeftLeaf(false)
	if err := ws.SetViewState(leaf, workspace.ViewState{Type: ViewType}); err != nil {
		return nil, err
	}
	return leaf, nil
}

func (p *Plugin) focusCmd() tea.Cmd {
	leaf, err := p.ensureLeaf()
	if err != nil {
		p.logger.Error("explorer: open", "err", err)
		return msg.ShowError("Could not open the file explorer")
	}
	p.ctx.Workspace.RevealLeaf(leaf)
	p.ctx.Workspace.SetActiveLeaf(leaf)
	return nil
}
