package bmo

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
	"github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/plugins/bmo/editorcmd"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

func (p *Plugin) editorDeps() editorcmd.Deps {
	return editorcmd.Deps{
		Sender:    p.sender,
		Settings:  p.settings.Snapshot,
		Notes:     p.ctx.Vault,
		Clipboard: p.clipboard,
		Logger:    p.logger,
	}
}

func (p *Plugin) renameActiveCmd() tea.Cmd {
	return p.RenameTitle(editorcmd.ActiveTarget(p.ctx.Workspace))
}

// RenameTitle returns a command that renames the target note to a
// generated title and reports the outcome as a notice.
func (p *Plugin) RenameTitle(t editorcmd.Target) tea.Cmd {
	if !t.Valid() {
		return msg.ShowError("No active note to rename.")
	}
	deps := p.editorDeps()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		renamed, err := editorcmd.RenameTitle(ctx, deps, t)
		if err != nil {
			p.logger.Warn("bmo: rename note title", "path", t.File.Path, "err", err)
			return errorNotice("Rename failed", err)
		}
		return msg.NoticeMsg{Message: "Renamed to " + renamed.Basename(), Duration: msg.DefaultNoticeDuration}
	}
}

func (p *Plugin) promptSelectGenerateCmd() tea.Cmd {
	t := editorcmd.ActiveTarget(p.ctx.Workspace)
	if t.Editor == nil {
		return msg.ShowError("Open a note to use Prompt Select Generate.")
	}
	deps := p.editorDeps()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := editorcmd.PromptSelectGenerate(ctx, deps, t); err != nil {
			p.logger.Warn("bmo: prompt select generate", "path", t.File.Path, "err", err)
			return errorNotice("Generate failed", err)
		}
		return msg.NoticeMsg{Message: "Inserted reply", Duration: msg.DefaultNoticeDuration}
	}
}

// addFileMenuItems contributes the rename entry to a note's file menu.
func (p *Plugin) addFileMenuItems(menu *workspace.Menu, f vault.File) {
	if f.Extension() != "md" {
		return
	}
	menu.AddItem(func(item *workspace.MenuItem) {
		item.SetTitle(fileMenuTitle).
			SetIcon(ribbonIcon).
			OnClick(func() tea.Cmd {
				return p.RenameTitle(editorcmd.FileTarget(p.ctx.Workspace, f))
			})
	})
}

// refreshModelsCmd fetches the model lists and stores them.
func (p *Plugin) refreshModelsCmd() tea.Cmd {
	snapshot := p.settings.Snapshot()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		models, err := p.models.RefreshModels(ctx, snapshot)
		var count int
		p.settings.Update(func(s *config.Settings) {
			models.Apply(s)
			count = len(s.AllModels)
		})
		if saveErr := p.SaveSettings(); saveErr != nil {
			p.logger.Error("bmo: save refreshed models", "err", saveErr)
			return errorNotice("Saving models failed", saveErr)
		}
		if err != nil {
			return errorNotice(fmt.Sprintf("Found %d models; some backends failed", count), err)
		}
		return msg.NoticeMsg{Message: fmt.Sprintf("Found %d models", count), Duration: msg.DefaultNoticeDuration}
	}
}

func errorNotice(prefix string, err error) msg.NoticeMsg {
	text := prefix + ": " + err.Error()
	switch {
	case errors.Is(err, vault.ErrExists):
		text = prefix + ": a note with that title already exists"
	case llm.IsConfigError(err):
		text += " (check the plugin settings)"
	}
	return msg.NoticeMsg{Message: text, Duration: msg.DefaultNoticeDuration, IsError: true}
}
