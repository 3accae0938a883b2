package plugin

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
)

// Plugin defines the interface for all host plugins.
type Plugin interface {
	ID() string
	Name() string
	OnLoad(ctx *Context) error
	OnUnload()
}

// Command represents an action a plugin exposes to the palette and to
// hotkeys.
type Command struct {
	ID       string          // Plugin-local identifier (e.g., "open-bmo-chatbot")
	Name     string          // Palette label
	Hotkeys  []keymap.Hotkey // Default key combinations
	Callback func() tea.Cmd  // Action to execute
}

// RibbonIcon is a clickable entry in the host's ribbon strip.
type RibbonIcon struct {
	ID      string
	Icon    string
	Title   string
	OnClick func() tea.Cmd
}

// SettingTab is a plugin-provided page of the host settings modal.
type SettingTab interface {
	Name() string
	Display()
	Hide()
	Update(msg tea.Msg) tea.Cmd
	Render(width, height int) string
}

// ExecuteCommandMsg asks the host to run a command by full ID.
type ExecuteCommandMsg struct {
	ID string
}

// FullID joins a plugin ID and a plugin-local command ID.
func FullID(pluginID, commandID string) string {
	return pluginID + ":" + commandID
}
