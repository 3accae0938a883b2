package workspace

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/vault"
)

// View is the content of a leaf. Views are driven from the host's update
// loop; they must not be touched from other goroutines.
type View interface {
	ViewType() string
	DisplayText() string
	Icon() string
	OnOpen() error
	OnClose() error
	Update(msg tea.Msg) tea.Cmd
	Render(width, height int) string
	Resize(width, height int)
	SetFocused(focused bool)
}

// ViewFactory builds the view for a leaf.
type ViewFactory func(leaf *Leaf) View

// FileView is implemented by views that show a note.
type FileView interface {
	File() (vault.File, bool)
}

// FileLoader is implemented by views that can be pointed at a note.
type FileLoader interface {
	LoadFile(f vault.File) error
}

// EditorView is implemented by views that expose an editable buffer.
type EditorView interface {
	Editor() *Editor
}

// FocusContexter reports the keymap context while the view has focus.
type FocusContexter interface {
	FocusContext() string
}

// TextInputConsumer is implemented by views that want printable keys
// delivered as typed text instead of being matched against context
// bindings.
type TextInputConsumer interface {
	ConsumesTextInput() bool
}

// ViewState describes what a leaf should show.
type ViewState struct {
	Type   string
	Active bool
	File   string
}

// emptyView fills leaves that have not been given a view yet.
type emptyView struct{}

const emptyViewType = "empty"

func (emptyView) ViewType() string                { return emptyViewType }
func (emptyView) DisplayText() string             { return "New tab" }
func (emptyView) Icon() string                    { return "" }
func (emptyView) OnOpen() error                   { return nil }
func (emptyView) OnClose() error                  { return nil }
func (emptyView) Update(tea.Msg) tea.Cmd          { return nil }
func (emptyView) Render(width, height int) string { return "" }
func (emptyView) Resize(width, height int)        {}
func (emptyView) SetFocused(bool)                 {}

// ActionMsg asks the focused view to run one of its context-local
// commands, e.g. "cursor-down" in the file explorer. The host sends it for
// keys bound in the view's focus context and for palette selections.
type ActionMsg struct {
	Action string
}
