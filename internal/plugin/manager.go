package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Manager owns plugin lifecycles: unloaded -> loaded -> unloaded.
type Manager struct {
	host *Host

	mu      sync.Mutex
	plugins []Plugin
	loaded  map[string]*Context
}

// NewManager returns a manager registering plugins against h.
func NewManager(h *Host) *Manager {
	if h.Commands == nil {
		h.Commands = NewCommands()
	}
	if h.Ribbon == nil {
		h.Ribbon = &Ribbon{}
	}
	if h.SettingTabs == nil {
		h.SettingTabs = &SettingTabs{}
	}
	if h.Logger == nil {
		h.Logger = slog.Default()
	}
	return &Manager{host: h, loaded: make(map[string]*Context)}
}

// Host returns the shared services.
func (m *Manager) Host() *Host { return m.host }

// Register adds a plugin without loading it.
func (m *Manager) Register(p Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.plugins {
		if existing.ID() == p.ID() {
			return fmt.Errorf("plugin %q already registered", p.ID())
		}
	}
	m.plugins = append(m.plugins, p)
	return nil
}

// Plugins returns the registered plugins in registration order.
func (m *Manager) Plugins() []Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Plugin(nil), m.plugins...)
}

// Loaded reports whether the plugin is loaded.
func (m *Manager) Loaded(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loaded[id]
	return ok
}

// Load runs the plugin's OnLoad. A failed load releases whatever the
// plugin registered before failing.
func (m *Manager) Load(id string) error {
	m.mu.Lock()
	var p Plugin
	for _, candidate := range m.plugins {
		if candidate.ID() == id {
			p = candidate
		}
	}
	_, already := m.loaded[id]
	m.mu.Unlock()

	if p == nil {
		return fmt.Errorf("plugin %q not registered", id)
	}
	if already {
		return nil
	}

	ctx := newContext(m.host, id)
	if err := p.OnLoad(ctx); err != nil {
		ctx.detachViews()
		ctx.release()
		return fmt.Errorf("load plugin %s: %w", id, err)
	}

	m.mu.Lock()
	m.loaded[id] = ctx
	m.mu.Unlock()
	m.host.Logger.Info("plugin loaded", "plugin", id)
	return nil
}

// LoadAll loads every registered plugin, continuing past failures.
func (m *Manager) LoadAll() error {
	var errs []error
	for _, p := range m.Plugins() {
		if err := m.Load(p.ID()); err != nil {
			m.host.Logger.Error("plugin load failed", "plugin", p.ID(), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unload calls OnUnload, then detaches the plugin's leaves and removes its
// registrations.
func (m *Manager) Unload(id string) {
	m.mu.Lock()
	ctx, ok := m.loaded[id]
	var p Plugin
	for _, candidate := range m.plugins {
		if candidate.ID() == id {
			p = candidate
		}
	}
	delete(m.loaded, id)
	m.mu.Unlock()

	if !ok || p == nil {
		return
	}

	p.OnUnload()
	ctx.detachViews()
	ctx.release()
	m.host.Logger.Info("plugin unloaded", "plugin", id)
}

// UnloadAll unloads plugins in reverse registration order.
func (m *Manager) UnloadAll() {
	plugins := m.Plugins()
	for i := len(plugins) - 1; i >= 0; i-- {
		m.Unload(plugins[i].ID())
	}
}
