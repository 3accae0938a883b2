// Package bmo is the chatbot plugin: it registers the chat view, the note
// commands and the settings tab with the host, and owns the activation and
// teardown of the chat panel.
package bmo

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/credentials"
	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/llm/router"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/plugins/bmo/chat"
	"github.com/marcus/bmo/internal/plugins/bmo/history"
	"github.com/marcus/bmo/internal/plugins/bmo/settingstab"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

const (
	pluginID   = "bmo"
	pluginName = "BMO Chatbot"
	ribbonIcon = "bot"

	// Command IDs, relative to the plugin.
	CmdOpenChatbot          = "open-bmo-chatbot"
	CmdRenameNoteTitle      = "rename-note-title"
	CmdPromptSelectGenerate = "prompt-select-generate"
	CmdRefreshModels        = "refresh-models"

	fileMenuTitle = "BMO Chatbot: Generate new title"

	mountTimeout   = 2 * time.Second
	requestTimeout = 5 * time.Minute
)

// ModelRefresher lists the models of every configured backend.
type ModelRefresher interface {
	RefreshModels(ctx context.Context, s *config.Settings) (router.Models, error)
}

// chatView is what the controller needs from a chat panel.
type chatView interface {
	workspace.View
	Mounted() <-chan struct{}
	FocusInput() tea.Cmd
	ScrollToBottom()
	SetReferencedFile(f vault.File, ok bool)
	Cleanup()
}

// ViewFactory builds the chat panel for a leaf.
type ViewFactory func(leaf *workspace.Leaf, deps chat.Deps) chatView

// Plugin is the chatbot plugin controller.
type Plugin struct {
	ctx      *plugin.Context
	logger   *slog.Logger
	settings *config.Store
	history  *history.Store

	sender       chat.Sender
	models       ModelRefresher
	newView      ViewFactory
	clipboard    func(string) error
	httpClient   *http.Client
	mountTimeout time.Duration

	mu    sync.Mutex
	views map[workspace.LeafID]chatView
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithSender replaces the router used for model round trips.
func WithSender(s chat.Sender) Option {
	return func(p *Plugin) { p.sender = s }
}

// WithModelRefresher replaces the router used by "refresh models".
func WithModelRefresher(m ModelRefresher) Option {
	return func(p *Plugin) { p.models = m }
}

// WithViewFactory replaces the chat panel constructor.
func WithViewFactory(f ViewFactory) Option {
	return func(p *Plugin) { p.newView = f }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(p *Plugin) { p.clipboard = fn }
}

// WithHTTPClient sets the client used to reach the model backends.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Plugin) { p.httpClient = c }
}

// WithMountTimeout bounds how long ActivateView waits for the panel.
func WithMountTimeout(d time.Duration) Option {
	return func(p *Plugin) { p.mountTimeout = d }
}

// New returns an unloaded plugin.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		newView: func(leaf *workspace.Leaf, deps chat.Deps) chatView {
			return chat.New(leaf, deps)
		},
		clipboard:    clipboard.WriteAll,
		mountTimeout: mountTimeout,
		views:        make(map[workspace.LeafID]chatView),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ plugin.Plugin = (*Plugin)(nil)

func (p *Plugin) ID() string   { return pluginID }
func (p *Plugin) Name() string { return pluginName }

// OnLoad registers everything the plugin contributes.
func (p *Plugin) OnLoad(ctx *plugin.Context) error {
	p.ctx = ctx
	p.logger = ctx.Logger
	p.settings = config.NewStore(ctx.Data, p.logger)

	if p.sender == nil || p.models == nil {
		var ropts []router.Option
		ropts = append(ropts, router.WithLogger(p.logger))
		if p.httpClient != nil {
			ropts = append(ropts, router.WithHTTPClient(p.httpClient))
		}
		r := router.New(credentials.NewResolver(p.logger), ropts...)
		if p.sender == nil {
			p.sender = r
		}
		if p.models == nil {
			p.models = r
		}
	}

	if err := p.LoadSettings(); err != nil {
		return err
	}

	ctx.RegisterEvent(ctx.Workspace.OnActiveLeafChange(p.handleLeafChange))

	if err := ctx.RegisterView(chat.ViewType, p.buildView); err != nil {
		return err
	}

	ctx.AddRibbonIcon(ribbonIcon, pluginName, p.activateCmd)

	commands := []plugin.Command{
		{
			ID:       CmdOpenChatbot,
			Name:     "Open BMO Chatbot",
			Hotkeys:  []keymap.Hotkey{{Modifiers: []string{keymap.ModKey}, Key: "0"}},
			Callback: p.activateCmd,
		},
		{
			ID:       CmdRenameNoteTitle,
			Name:     "Rename Note Title",
			Hotkeys:  []keymap.Hotkey{{Modifiers: []string{keymap.ModKey}, Key: "'"}},
			Callback: p.renameActiveCmd,
		},
		{
			ID:       CmdPromptSelectGenerate,
			Name:     "Prompt Select Generate",
			Hotkeys:  []keymap.Hotkey{{Modifiers: []string{keymap.ModKey}, Key: "="}},
			Callback: p.promptSelectGenerateCmd,
		},
		{
			ID:       CmdRefreshModels,
			Name:     "BMO Chatbot: Refresh models",
			Callback: p.refreshModelsCmd,
		},
	}
	for _, cmd := range commands {
		if err := ctx.AddCommand(cmd); err != nil {
			return err
		}
	}

	ctx.RegisterEvent(ctx.Workspace.OnFileMenu(p.addFileMenuItems))

	ctx.AddSettingTab(settingstab.New(settingstab.Deps{
		Settings:      p.settings,
		Save:          p.SaveSettings,
		RefreshModels: p.refreshModelsCmd,
		StoreAPIKey:   func(key string) error { return credentials.Store(credentials.DefaultUser, key) },
		DeleteAPIKey:  func() error { return credentials.Delete(credentials.DefaultUser) },
		Logger:        p.logger,
	}))

	p.openHistory()
	return nil
}

func (p *Plugin) openHistory() {
	store, err := history.Open(history.DefaultPath(p.ctx.DataDir))
	if err != nil {
		p.logger.Warn("bmo: chat history unavailable", "err", err)
		return
	}
	p.history = store
}

// OnUnload saves the settings and releases every live chat panel. Leaves
// are detached by the host afterwards.
func (p *Plugin) OnUnload() {
	for _, v := range p.liveViews() {
		if err := p.SaveSettings(); err != nil {
			p.logger.Error("bmo: save settings on unload", "err", err)
		}
		v.Cleanup()
	}
	p.mu.Lock()
	p.views = make(map[workspace.LeafID]chatView)
	p.mu.Unlock()

	if p.history != nil {
		if err := p.history.Close(); err != nil {
			p.logger.Warn("bmo: close chat history", "err", err)
		}
		p.history = nil
	}
}

// Settings returns the shared settings handle.
func (p *Plugin) Settings() *config.Store { return p.settings }

func (p *Plugin) buildView(leaf *workspace.Leaf) workspace.View {
	v := p.newView(leaf, chat.Deps{
		Settings:     p.settings,
		SaveSettings: p.SaveSettings,
		Sender:       p.sender,
		Vault:        p.ctx.Vault,
		History:      p.history,
		Clipboard:    p.clipboard,
		Logger:       p.logger,
	})
	v.SetReferencedFile(p.ctx.Workspace.ActiveFile())

	p.mu.Lock()
	p.views[leaf.ID()] = v
	p.mu.Unlock()
	return v
}

// liveViews returns the registered panels whose leaves are still attached,
// pruning the rest.
func (p *Plugin) liveViews() []chatView {
	leaves := p.ctx.Workspace.GetLeavesOfType(chat.ViewType)
	attached := make(map[workspace.LeafID]bool, len(leaves))
	for _, l := range leaves {
		attached[l.ID()] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	var out []chatView
	for _, l := range leaves {
		if v, ok := p.views[l.ID()]; ok {
			out = append(out, v)
		}
	}
	for id := range p.views {
		if !attached[id] {
			delete(p.views, id)
		}
	}
	return out
}

// handleLeafChange tells the chat panels which note "current note" now
// refers to.
func (p *Plugin) handleLeafChange(*workspace.Leaf) {
	f, ok := p.ctx.Workspace.ActiveFile()
	for _, v := range p.liveViews() {
		v.SetReferencedFile(f, ok)
	}
	if ok {
		p.logger.Debug("bmo: active file", "path", f.Path)
	}
}
