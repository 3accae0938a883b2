package keymap

// Host command IDs.
const (
	CmdQuit               = "app:quit"
	CmdTogglePalette      = "app:toggle-palette"
	CmdOpenSettings       = "app:open-settings"
	CmdFocusNext          = "app:focus-next"
	CmdFocusPrev          = "app:focus-prev"
	CmdToggleRightSidebar = "app:toggle-right-sidebar"
	CmdToggleLeftSidebar  = "app:toggle-left-sidebar"
	CmdCloseLeaf          = "app:close-leaf"
	CmdCycleTheme         = "app:cycle-theme"
)

// DefaultBindings returns the host's default key bindings.
func DefaultBindings() []Binding {
	return []Binding{
		// Global bindings
		{Key: "ctrl+c", Command: CmdQuit, Context: GlobalContext},
		{Key: "alt+p", Command: CmdTogglePalette, Context: GlobalContext},
		{Key: "alt+,", Command: CmdOpenSettings, Context: GlobalContext},
		{Key: "tab", Command: CmdFocusNext, Context: GlobalContext},
		{Key: "shift+tab", Command: CmdFocusPrev, Context: GlobalContext},
		{Key: "alt+\\", Command: CmdToggleRightSidebar, Context: GlobalContext},
		{Key: "alt+b", Command: CmdToggleLeftSidebar, Context: GlobalContext},
		{Key: "alt+w", Command: CmdCloseLeaf, Context: GlobalContext},

		// File explorer
		{Key: "j", Command: "cursor-down", Context: "file-explorer"},
		{Key: "down", Command: "cursor-down", Context: "file-explorer"},
		{Key: "k", Command: "cursor-up", Context: "file-explorer"},
		{Key: "up", Command: "cursor-up", Context: "file-explorer"},
		{Key: "enter", Command: "open", Context: "file-explorer"},
		{Key: "m", Command: "file-menu", Context: "file-explorer"},
		{Key: "r", Command: "refresh", Context: "file-explorer"},
		{Key: "n", Command: "new-note", Context: "file-explorer"},

		// Markdown note view
		{Key: "j", Command: "cursor-down", Context: "markdown"},
		{Key: "k", Command: "cursor-up", Context: "markdown"},
		{Key: "v", Command: "toggle-selection", Context: "markdown"},
		{Key: "esc", Command: "clear-selection", Context: "markdown"},
		{Key: "p", Command: "toggle-preview", Context: "markdown"},
		{Key: "e", Command: "edit", Context: "markdown"},
		{Key: "g", Command: "go-top", Context: "markdown"},
		{Key: "G", Command: "go-bottom", Context: "markdown"},
	}
}

// RegisterDefaults registers all default bindings with the registry.
func RegisterDefaults(r *Registry) {
	for _, b := range DefaultBindings() {
		r.RegisterBinding(b)
	}
}
