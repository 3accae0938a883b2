package filebrowser

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/bmo/internal/mouse"
	"github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/plugins/notes"
	"github.com/marcus/bmo/internal/state"
	"github.com/marcus/bmo/internal/styles"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

const (
	// ViewType is the view type of the explorer leaf.
	ViewType = "file-explorer"

	// FocusContext is the keymap context of the focused explorer.
	FocusContext = "file-explorer"

	regionTreeItem = "tree-item"

	headerLines = 1
)

// View lists the vault's notes as a folder tree.
type View struct {
	vault  *vault.Vault
	logger *slog.Logger

	tree    *Tree
	nodes   []Node
	cursor  int
	offset  int
	loadErr error

	width, height int
	focused       bool

	mouse *mouse.Handler
}

// NewView returns an explorer over v.
func NewView(v *vault.Vault, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{vault: v, logger: logger, mouse: mouse.NewHandler()}
}

func (v *View) ViewType() string    { return ViewType }
func (v *View) DisplayText() string { return "Files" }
func (v *View) Icon() string        { return "folder" }
func (v *View) OnClose() error      { return nil }

func (v *View) Resize(width, height int) { v.width, v.height = width, height }
func (v *View) SetFocused(focused bool)  { v.focused = focused }

// FocusContext implements workspace.FocusContexter.
func (v *View) FocusContext() string { return FocusContext }

// OnOpen loads the tree and restores the saved position.
func (v *View) OnOpen() error {
	saved := state.GetExplorerState()
	v.load(saved.ExpandedDirs, saved.SelectedFile)
	v.offset = saved.Scroll
	return nil
}

func (v *View) load(expanded []string, selected string) {
	files, err := v.vault.List()
	v.loadErr = err
	if err != nil {
		v.logger.Warn("explorer: list vault", "err", err)
	}
	v.tree = BuildTree(files, expanded)
	if selected != "" {
		v.tree.Reveal(selected)
	}
	v.nodes = v.tree.Visible()
	v.cursor = 0
	for i, n := range v.nodes {
		if n.Path == selected {
			v.cursor = i
		}
	}
	v.clamp()
}

// Refresh rebuilds the tree, keeping the selection and open folders.
func (v *View) Refresh() {
	sel := ""
	if n, ok := v.Selected(); ok {
		sel = n.Path
	}
	v.load(v.tree.ExpandedDirs(), sel)
}

// Nodes returns the visible rows.
func (v *View) Nodes() []Node { return v.nodes }

// Selected returns the row under the cursor.
func (v *View) Selected() (Node, bool) {
	if v.cursor < 0 || v.cursor >= len(v.nodes) {
		return Node{}, false
	}
	return v.nodes[v.cursor], true
}

// Select moves the cursor to the row showing p, revealing it.
func (v *View) Select(p string) {
	v.tree.Reveal(p)
	v.nodes = v.tree.Visible()
	for i, n := range v.nodes {
		if n.Path == p {
			v.cursor = i
		}
	}
	v.clamp()
	v.persist()
}

func (v *View) bodyHeight() int { return max(1, v.height-headerLines) }

func (v *View) clamp() {
	v.cursor = max(0, min(v.cursor, len(v.nodes)-1))
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+v.bodyHeight() {
		v.offset = v.cursor - v.bodyHeight() + 1
	}
	v.offset = max(0, min(v.offset, len(v.nodes)-v.bodyHeight()))
}

func (v *View) persist() {
	e := state.ExplorerState{Scroll: v.offset, ExpandedDirs: v.tree.ExpandedDirs()}
	if n, ok := v.Selected(); ok {
		e.SelectedFile = n.Path
	}
	state.SetExplorerState(e)
}

func (v *View) Update(m tea.Msg) tea.Cmd {
	switch m := m.(type) {
	case workspace.ActionMsg:
		cmd := v.runAction(m.Action)
		v.persist()
		return cmd

	case vault.Event:
		if m.Type != vault.EventChanged {
			v.Refresh()
		}

	case tea.MouseMsg:
		cmd := v.handleMouse(m)
		v.persist()
		return cmd
	}
	return nil
}

func (v *View) runAction(action string) tea.Cmd {
	switch action {
	case "cursor-down":
		v.cursor++
		v.clamp()
	case "cursor-up":
		v.cursor--
		v.clamp()
	case "open":
		return v.open()
	case "file-menu":
		n, ok := v.Selected()
		if !ok || n.IsDir {
			return nil
		}
		return v.fileMenu(n, 2, headerLines+v.cursor-v.offset+1)
	case "refresh":
		v.Refresh()
	case "new-note":
		folder := ""
		if n, ok := v.Selected(); ok {
			folder = n.Folder()
		}
		return v.newNote(folder)
	}
	return nil
}

func (v *View) open() tea.Cmd {
	n, ok := v.Selected()
	if !ok {
		return nil
	}
	if n.IsDir {
		v.tree.Toggle(n.Path)
		v.nodes = v.tree.Visible()
		v.clamp()
		return nil
	}
	return func() tea.Msg { return notes.OpenNoteMsg{File: n.File()} }
}

func (v *View) fileMenu(n Node, x, y int) tea.Cmd {
	return func() tea.Msg { return workspace.FileMenuMsg{File: n.File(), X: x, Y: y} }
}

func (v *View) newNote(folder string) tea.Cmd {
	vlt := v.vault
	return func() tea.Msg {
		f, err := notes.CreateUntitled(vlt, folder)
		if err != nil {
			return msg.NoticeMsg{Message: "Could not create note: " + err.Error(), Duration: msg.DefaultNoticeDuration, IsError: true}
		}
		return notes.OpenNoteMsg{File: f}
	}
}

// handleMouse expects coordinates relative to the view.
func (v *View) handleMouse(m tea.MouseMsg) tea.Cmd {
	if m.Action == tea.MouseActionPress && m.Button == tea.MouseButtonRight {
		r := v.mouse.HitMap.Test(m.X, m.Y)
		if r == nil {
			return nil
		}
		v.cursor, _ = r.Data.(int)
		n, ok := v.Selected()
		if !ok || n.IsDir {
			return nil
		}
		return v.fileMenu(n, m.X, m.Y)
	}

	action := v.mouse.HandleMouse(m)
	switch action.Type {
	case mouse.ActionScrollUp, mouse.ActionScrollDown:
		v.offset = max(0, min(v.offset+action.Delta, len(v.nodes)-v.bodyHeight()))
	case mouse.ActionClick, mouse.ActionDoubleClick:
		if action.Region == nil || action.Region.ID != regionTreeItem {
			return nil
		}
		v.cursor, _ = action.Region.Data.(int)
		// the first click already toggled the folder
		if n, ok := v.Selected(); ok && (action.Type == mouse.ActionClick || !n.IsDir) {
			return v.open()
		}
	}
	return nil
}

func (v *View) Render(width, height int) string {
	v.width, v.height = width, height
	v.mouse.Clear()

	header := styles.PanelHeader.Render(ansi.Truncate(v.vaultName(), width, "…"))
	var b strings.Builder
	b.WriteString(header)

	switch {
	case v.loadErr != nil:
		b.WriteString("\n" + styles.ErrText.Render(ansi.Truncate("Error: "+v.loadErr.Error(), width, "…")))
		return b.String()
	case len(v.nodes) == 0:
		b.WriteString("\n" + styles.Muted.Render("No notes yet. Press n to create one."))
		return b.String()
	}

	v.clamp()
	end := min(len(v.nodes), v.offset+v.bodyHeight())
	for i := v.offset; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(v.renderNode(v.nodes[i], i == v.cursor, width))
		v.mouse.HitMap.AddRect(regionTreeItem, 0, headerLines+i-v.offset, width, 1, i)
	}
	return b.String()
}

func (v *View) vaultName() string {
	root := v.vault.Root()
	if i := strings.LastIndexAny(root, `/\`); i >= 0 {
		root = root[i+1:]
	}
	return root
}

func (v *View) renderNode(n Node, selected bool, width int) string {
	icon := "  "
	if n.IsDir {
		icon = "▸ "
		if v.tree.Expanded(n.Path) {
			icon = "▾ "
		}
	}
	line := fmt.Sprintf("%s%s%s", strings.Repeat("  ", n.Depth), icon, n.Name)
	line = ansi.Truncate(line, width, "…")

	style := styles.ListItemNormal
	if n.IsDir {
		style = lipgloss.NewStyle().Foreground(styles.TextSecondary)
	}
	if selected {
		style = styles.ListItemSelected
		if v.focused {
			style = styles.ListItemFocused
		}
	}
	return style.Width(width).Render(line)
}
