// Package notes provides the markdown note view shown in the main area and
// the commands for creating notes.
package notes

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

const (
	pluginID   = "notes"
	pluginName = "Notes"

	// ViewType is the view type of note leaves.
	ViewType = "markdown"

	CmdNewNote = "new-note"

	untitled = "Untitled"
)

// Plugin registers the markdown view.
type Plugin struct {
	ctx    *plugin.Context
	logger *slog.Logger
}

// New returns the notes plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) ID() string   { return pluginID }
func (p *Plugin) Name() string { return pluginName }

// OnLoad registers the view type and commands.
func (p *Plugin) OnLoad(ctx *plugin.Context) error {
	p.ctx = ctx
	p.logger = ctx.Logger

	if err := ctx.RegisterView(ViewType, func(leaf *workspace.Leaf) workspace.View {
		return NewView(ctx.Vault, p.logger)
	}); err != nil {
		return err
	}

	return ctx.AddCommand(plugin.Command{
		ID:       CmdNewNote,
		Name:     "Create new note",
		Hotkeys:  []keymap.Hotkey{{Modifiers: []string{keymap.ModKey}, Key: "n"}},
		Callback: func() tea.Cmd { return p.NewNote("") },
	})
}

// OnUnload has nothing to release beyond the context registrations.
func (p *Plugin) OnUnload() {}

// NewNote creates an empty note in folder and opens it.
func (p *Plugin) NewNote(folder string) tea.Cmd {
	return func() tea.Msg {
		f, err := CreateUntitled(p.ctx.Vault, folder)
		if err != nil {
			p.logger.Error("notes: create", "err", err)
			return msg.NoticeMsg{Message: "Could not create note: " + err.Error(), Duration: msg.DefaultNoticeDuration, IsError: true}
		}
		return OpenNoteMsg{File: f}
	}
}

// OpenNoteMsg asks the host to show File in the main area.
type OpenNoteMsg struct {
	File vault.File
}

// CreateUntitled creates "Untitled.md" in folder, or "Untitled N.md" with
// the first free N.
func CreateUntitled(v *vault.Vault, folder string) (vault.File, error) {
	folder = strings.Trim(folder, "/")
	for i := 0; i < 1000; i++ {
		name := untitled + ".md"
		if i > 0 {
			name = fmt.Sprintf("%s %d.md", untitled, i)
		}
		p := path.Join(folder, name)
		if v.Exists(p) {
			continue
		}
		return v.Create(p, "")
	}
	return vault.File{}, fmt.Errorf("%w: too many untitled notes in %q", vault.ErrExists, folder)
}
