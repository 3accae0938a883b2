package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrUnknownCommand is returned when executing an unregistered command.
var ErrUnknownCommand = errors.New("unknown command")

// Commands holds every registered command by full ID.
type Commands struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

// NewCommands returns an empty command registry.
func NewCommands() *Commands {
	return &Commands{cmds: make(map[string]Command)}
}

// Add registers cmd. cmd.ID must be the full ID.
func (c *Commands) Add(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cmds[cmd.ID]; ok {
		return fmt.Errorf("command %q already registered", cmd.ID)
	}
	c.cmds[cmd.ID] = cmd
	return nil
}

// Remove unregisters a command.
func (c *Commands) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cmds, id)
}

// Get returns a command by full ID.
func (c *Commands) Get(id string) (Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.cmds[id]
	return cmd, ok
}

// All returns the commands sorted by name.
func (c *Commands) All() []Command {
	c.mu.RLock()
	out := make([]Command, 0, len(c.cmds))
	for _, cmd := range c.cmds {
		out = append(out, cmd)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Execute runs the command's callback.
func (c *Commands) Execute(id string) (tea.Cmd, error) {
	cmd, ok := c.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	if cmd.Callback == nil {
		return nil, nil
	}
	return cmd.Callback(), nil
}

// Ribbon holds the ribbon icons in registration order.
type Ribbon struct {
	mu    sync.RWMutex
	icons []RibbonIcon
}

// Add appends an icon.
func (r *Ribbon) Add(icon RibbonIcon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.icons = append(r.icons, icon)
}

// Remove drops the icon with id.
func (r *Ribbon) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.icons[:0]
	for _, icon := range r.icons {
		if icon.ID != id {
			kept = append(kept, icon)
		}
	}
	r.icons = kept
}

// Icons returns a copy of the icons.
func (r *Ribbon) Icons() []RibbonIcon {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RibbonIcon(nil), r.icons...)
}

// SettingTabs holds one settings page per plugin.
type SettingTabs struct {
	mu    sync.RWMutex
	order []string
	tabs  map[string]SettingTab
}

// Add sets the tab for pluginID, replacing any earlier one.
func (s *SettingTabs) Add(pluginID string, tab SettingTab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tabs == nil {
		s.tabs = make(map[string]SettingTab)
	}
	if _, ok := s.tabs[pluginID]; !ok {
		s.order = append(s.order, pluginID)
	}
	s.tabs[pluginID] = tab
}

// Remove drops the tab of pluginID.
func (s *SettingTabs) Remove(pluginID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[pluginID]; !ok {
		return
	}
	delete(s.tabs, pluginID)
	for i, id := range s.order {
		if id == pluginID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// All returns the tabs in registration order.
func (s *SettingTabs) All() []SettingTab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SettingTab, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tabs[id])
	}
	return out
}
