package plugin

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

// Host bundles the shared services plugins register against.
type Host struct {
	Vault       *vault.Vault
	Workspace   *workspace.Workspace
	Keymap      *keymap.Registry
	Commands    *Commands
	Ribbon      *Ribbon
	SettingTabs *SettingTabs
	Logger      *slog.Logger
	DataRoot    string // directory holding one folder per plugin

	// NewData overrides the default file-backed plugin data store.
	NewData func(pluginID string) DataStore
}

// Context is a plugin's handle on the host. Everything registered through
// it is released when the plugin unloads.
type Context struct {
	PluginID  string
	DataDir   string
	Vault     *vault.Vault
	Workspace *workspace.Workspace
	Keymap    *keymap.Registry
	Logger    *slog.Logger
	Data      DataStore

	host *Host

	mu        sync.Mutex
	releases  []func()
	viewTypes []string
	nextIcon  int
}

func newContext(h *Host, pluginID string) *Context {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dataDir := filepath.Join(h.DataRoot, pluginID)
	var data DataStore = FileData{Path: DataFile(h.DataRoot, pluginID)}
	if h.NewData != nil {
		data = h.NewData(pluginID)
	}
	return &Context{
		PluginID:  pluginID,
		DataDir:   dataDir,
		Vault:     h.Vault,
		Workspace: h.Workspace,
		Keymap:    h.Keymap,
		Logger:    logger.With("plugin", pluginID),
		Data:      data,
		host:      h,
	}
}

func (c *Context) onRelease(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases = append(c.releases, fn)
}

// AddCommand registers cmd under "<plugin>:<id>" and binds its hotkeys.
func (c *Context) AddCommand(cmd Command) error {
	full := cmd
	full.ID = FullID(c.PluginID, cmd.ID)
	if err := c.host.Commands.Add(full); err != nil {
		return err
	}
	for _, hk := range cmd.Hotkeys {
		key := c.host.Keymap.RegisterHotkey(hk, full.ID)
		c.Logger.Debug("bound hotkey", "command", full.ID, "key", key)
	}
	c.onRelease(func() {
		c.host.Commands.Remove(full.ID)
		c.host.Keymap.UnregisterCommand(full.ID)
	})
	return nil
}

// AddRibbonIcon adds an icon to the ribbon strip.
func (c *Context) AddRibbonIcon(icon, title string, onClick func() tea.Cmd) {
	c.mu.Lock()
	c.nextIcon++
	id := fmt.Sprintf("%s:ribbon-%d", c.PluginID, c.nextIcon)
	c.mu.Unlock()

	c.host.Ribbon.Add(RibbonIcon{ID: id, Icon: icon, Title: title, OnClick: onClick})
	c.onRelease(func() { c.host.Ribbon.Remove(id) })
}

// RegisterView installs a view factory. Leaves of the type are detached
// when the plugin unloads.
func (c *Context) RegisterView(viewType string, factory workspace.ViewFactory) error {
	if err := c.Workspace.RegisterView(viewType, factory); err != nil {
		return err
	}
	c.mu.Lock()
	c.viewTypes = append(c.viewTypes, viewType)
	c.mu.Unlock()
	c.onRelease(func() { c.Workspace.UnregisterView(viewType) })
	return nil
}

// RegisterEvent ties a workspace event handler to the plugin lifetime.
func (c *Context) RegisterEvent(ref workspace.EventRef) {
	c.onRelease(func() { c.Workspace.Offref(ref) })
}

// AddSettingTab installs the plugin's settings page.
func (c *Context) AddSettingTab(tab SettingTab) {
	c.host.SettingTabs.Add(c.PluginID, tab)
	c.onRelease(func() { c.host.SettingTabs.Remove(c.PluginID) })
}

// detachViews closes every leaf showing a view type this plugin registered.
func (c *Context) detachViews() {
	c.mu.Lock()
	types := append([]string(nil), c.viewTypes...)
	c.mu.Unlock()
	for _, t := range types {
		c.Workspace.DetachLeavesOfType(t)
	}
}

// release undoes registrations in reverse order.
func (c *Context) release() {
	c.mu.Lock()
	fns := c.releases
	c.releases = nil
	c.viewTypes = nil
	c.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
