// Package state persists the workspace layout between runs: sidebar
// sizes, the last open note, explorer position and key overrides.
package state

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// Default sidebar widths in cells.
const (
	DefaultLeftWidth  = 30
	DefaultRightWidth = 50
	MinSidebarWidth   = 20
)

// State holds persistent layout preferences.
type State struct {
	LastOpenNote string `json:"lastOpenNote,omitempty"`

	LeftSidebarWidth  int  `json:"leftSidebarWidth,omitempty"` // 0 = default
	RightSidebarWidth int  `json:"rightSidebarWidth,omitempty"`
	LeftCollapsed     bool `json:"leftCollapsed,omitempty"`
	RightCollapsed    bool `json:"rightCollapsed,omitempty"`

	Explorer ExplorerState `json:"explorer,omitempty"`

	Theme string `json:"theme,omitempty"`

	// KeymapOverrides rebinds commands, e.g. {"bmo:open-bmo-chatbot": "alt+c"}.
	KeymapOverrides map[string]string `json:"keymapOverrides,omitempty"`
}

// ExplorerState is the file explorer position.
type ExplorerState struct {
	SelectedFile string   `json:"selectedFile,omitempty"`
	Scroll       int      `json:"scroll,omitempty"`
	ExpandedDirs []string `json:"expandedDirs,omitempty"`
}

var (
	current *State
	mu      sync.RWMutex
	path    string
)

// Dir returns the directory holding host state inside a vault.
func Dir(vaultRoot string) string {
	return filepath.Join(vaultRoot, ".bmo")
}

// Init loads the state of the vault at vaultRoot.
func Init(vaultRoot string) error {
	return InitWithDir(Dir(vaultRoot))
}

// InitWithDir loads state from dir/workspace.json.
func InitWithDir(dir string) error {
	mu.Lock()
	path = filepath.Join(dir, "workspace.json")
	mu.Unlock()
	return Load()
}

// Load reads state from disk. A missing file yields defaults.
func Load() error {
	mu.Lock()
	defer mu.Unlock()

	current = &State{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, current)
}

// Save writes state to disk.
func Save() error {
	mu.RLock()
	defer mu.RUnlock()

	if current == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// update mutates the state under the lock. Callers decide when to Save.
func update(fn func(s *State)) {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = &State{}
	}
	fn(current)
}

// Get returns a copy of the current state.
func Get() State {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return State{}
	}
	s := *current
	s.KeymapOverrides = maps.Clone(current.KeymapOverrides)
	return s
}

// GetLastOpenNote returns the note to reopen on start, or "".
func GetLastOpenNote() string {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return ""
	}
	return current.LastOpenNote
}

// SetLastOpenNote records the note shown in the main area.
func SetLastOpenNote(p string) {
	update(func(s *State) { s.LastOpenNote = p })
}

// GetLeftSidebarWidth returns the left sidebar width, or the default.
func GetLeftSidebarWidth() int {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil || current.LeftSidebarWidth == 0 {
		return DefaultLeftWidth
	}
	return current.LeftSidebarWidth
}

// SetLeftSidebarWidth records the left sidebar width, clamped to the
// minimum.
func SetLeftSidebarWidth(w int) {
	update(func(s *State) { s.LeftSidebarWidth = max(MinSidebarWidth, w) })
}

// GetRightSidebarWidth returns the right sidebar width, or the default.
func GetRightSidebarWidth() int {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil || current.RightSidebarWidth == 0 {
		return DefaultRightWidth
	}
	return current.RightSidebarWidth
}

// SetRightSidebarWidth records the right sidebar width, clamped to the
// minimum.
func SetRightSidebarWidth(w int) {
	update(func(s *State) { s.RightSidebarWidth = max(MinSidebarWidth, w) })
}

// SetCollapsed records which sidebars are hidden.
func SetCollapsed(left, right bool) {
	update(func(s *State) {
		s.LeftCollapsed = left
		s.RightCollapsed = right
	})
}

// GetExplorerState returns the saved explorer position.
func GetExplorerState() ExplorerState {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return ExplorerState{}
	}
	e := current.Explorer
	e.ExpandedDirs = append([]string(nil), e.ExpandedDirs...)
	return e
}

// SetExplorerState records the explorer position.
func SetExplorerState(e ExplorerState) {
	update(func(s *State) { s.Explorer = e })
}

// GetKeymapOverrides returns a copy of the key overrides.
func GetKeymapOverrides() map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return nil
	}
	return maps.Clone(current.KeymapOverrides)
}

// GetTheme returns the saved theme name, or "".
func GetTheme() string {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return ""
	}
	return current.Theme
}

// SetTheme records the theme name.
func SetTheme(name string) {
	update(func(s *State) { s.Theme = name })
}
