package notes

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/cespare/xxhash/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"

	"github.com/marcus/bmo/internal/mouse"
	"github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/styles"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

// FocusContext is the keymap context of a focused note.
const FocusContext = "markdown"

const regionLine = "note-line"

type editorFinishedMsg struct {
	path string
	err  error
}

// View shows one note as numbered lines with a movable cursor and line
// selection, or as rendered markdown in preview mode.
type View struct {
	vault  *vault.Vault
	logger *slog.Logger

	editor  *workspace.Editor
	missing bool

	preview       bool
	offset        int
	previewOffset int
	width, height int
	focused       bool

	renderer      *glamour.TermRenderer
	rendererWidth int
	previewKey    uint64
	previewLines  []string

	mouse *mouse.Handler
}

// NewView returns an empty note view.
func NewView(v *vault.Vault, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{vault: v, logger: logger, mouse: mouse.NewHandler()}
}

func (v *View) ViewType() string { return ViewType }
func (v *View) Icon() string     { return "file-text" }
func (v *View) OnOpen() error    { return nil }
func (v *View) OnClose() error   { return nil }

func (v *View) DisplayText() string {
	if v.editor == nil {
		return "No file"
	}
	return v.editor.File().Basename()
}

func (v *View) Resize(width, height int) { v.width, v.height = width, height }
func (v *View) SetFocused(focused bool)  { v.focused = focused }

// FocusContext implements workspace.FocusContexter.
func (v *View) FocusContext() string { return FocusContext }

// Editor implements workspace.EditorView.
func (v *View) Editor() *workspace.Editor { return v.editor }

// File implements workspace.FileView.
func (v *View) File() (vault.File, bool) {
	if v.editor == nil {
		return vault.File{}, false
	}
	return v.editor.File(), true
}

// LoadFile implements workspace.FileLoader.
func (v *View) LoadFile(f vault.File) error {
	content, err := v.vault.Read(f)
	if err != nil {
		return err
	}
	v.editor = workspace.NewEditor(f, content, v.vault.Modify)
	v.missing = false
	v.offset, v.previewOffset = 0, 0
	v.previewLines = nil
	return nil
}

// Preview reports whether the rendered markdown is shown.
func (v *View) Preview() bool { return v.preview }

func (v *View) bodyHeight() int { return max(1, v.height-1) }

func (v *View) Update(m tea.Msg) tea.Cmd {
	switch m := m.(type) {
	case workspace.ActionMsg:
		return v.runAction(m.Action)

	case vault.Event:
		if v.editor == nil || m.Path != v.editor.File().Path {
			return nil
		}
		if m.Type == vault.EventRemoved {
			v.missing = true
			return nil
		}
		v.reload()

	case editorFinishedMsg:
		if m.err != nil {
			v.logger.Warn("notes: external editor", "path", m.path, "err", m.err)
			return msg.ShowError("Editor failed: " + m.err.Error())
		}
		v.reload()

	case tea.MouseMsg:
		v.handleMouse(m)
	}
	return nil
}

func (v *View) reload() {
	if v.editor == nil {
		return
	}
	content, err := v.vault.Read(v.editor.File())
	if err != nil {
		v.logger.Debug("notes: reload", "err", err)
		return
	}
	v.editor.Reload(content)
	v.missing = false
	v.previewLines = nil
}

func (v *View) runAction(action string) tea.Cmd {
	if v.editor == nil {
		return nil
	}
	switch action {
	case "cursor-down":
		v.moveCursor(1)
	case "cursor-up":
		v.moveCursor(-1)
	case "go-top":
		v.moveCursor(-v.editor.LineCount())
	case "go-bottom":
		v.moveCursor(v.editor.LineCount())
	case "toggle-selection":
		if _, _, ok := v.editor.SelectionRange(); ok {
			v.editor.ClearSelection()
		} else {
			v.editor.StartSelection()
		}
	case "clear-selection":
		v.editor.ClearSelection()
	case "toggle-preview":
		v.preview = !v.preview
	case "edit":
		return v.openExternal()
	}
	return nil
}

func (v *View) moveCursor(delta int) {
	if v.preview {
		v.previewOffset = max(0, min(v.previewOffset+delta, len(v.previewLines)-v.bodyHeight()))
		return
	}
	v.editor.SetCursor(v.editor.Cursor() + delta)
	v.ensureVisible()
}

func (v *View) ensureVisible() {
	cur, h := v.editor.Cursor(), v.bodyHeight()
	if cur < v.offset {
		v.offset = cur
	}
	if cur >= v.offset+h {
		v.offset = cur - h + 1
	}
}

func (v *View) openExternal() tea.Cmd {
	abs, err := v.vault.Abs(v.editor.File().Path)
	if err != nil {
		return msg.ShowError(err.Error())
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vim"
	}
	args := strings.Fields(editor)
	c := exec.Command(args[0], append(args[1:], abs)...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{path: abs, err: err}
	})
}

// handleMouse expects coordinates relative to the view.
func (v *View) handleMouse(m tea.MouseMsg) {
	if v.editor == nil {
		return
	}
	action := v.mouse.HandleMouse(m)
	switch action.Type {
	case mouse.ActionScrollUp, mouse.ActionScrollDown:
		if v.preview {
			v.moveCursor(action.Delta)
			return
		}
		maxOffset := max(0, v.editor.LineCount()-v.bodyHeight())
		v.offset = max(0, min(v.offset+action.Delta, maxOffset))
	case mouse.ActionClick, mouse.ActionDoubleClick:
		if action.Region == nil || action.Region.ID != regionLine {
			return
		}
		line, _ := action.Region.Data.(int)
		switch {
		case m.Shift:
			if _, _, ok := v.editor.SelectionRange(); !ok {
				v.editor.StartSelection()
			}
			v.editor.SetCursor(line)
		case action.Type == mouse.ActionDoubleClick:
			v.editor.SelectLines(line, line)
		default:
			v.editor.ClearSelection()
			v.editor.SetCursor(line)
		}
	}
}

func (v *View) Render(width, height int) string {
	v.width, v.height = width, height
	v.mouse.Clear()
	if v.editor == nil {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			styles.Muted.Render("No note open. Pick one in the file explorer."))
	}

	var body string
	if v.preview {
		body = v.renderPreview(width)
	} else {
		body = v.renderLines(width)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Height(v.bodyHeight()).MaxHeight(v.bodyHeight()).Render(body),
		v.renderStatus(width))
}

func (v *View) renderLines(width int) string {
	v.ensureVisible()
	lines := strings.Split(v.editor.Content(), "\n")
	cur := v.editor.Cursor()
	from, to, selecting := v.editor.SelectionRange()

	gutter := len(fmt.Sprint(len(lines)))
	textWidth := max(1, width-gutter-3)
	end := min(len(lines), v.offset+v.bodyHeight())

	var b strings.Builder
	for i := v.offset; i < end; i++ {
		marker := " "
		if i == cur && v.focused {
			marker = styles.ListCursor.Render("▌")
		}
		num := styles.Subtle.Render(fmt.Sprintf("%*d", gutter, i+1))
		text := ansi.Truncate(lines[i], textWidth, "…")
		if selecting && i >= from && i <= to {
			text = styles.ListItemSelected.Width(textWidth).Render(text)
		}
		fmt.Fprintf(&b, "%s%s %s", marker, num, text)
		if i < end-1 {
			b.WriteString("\n")
		}
		v.mouse.HitMap.AddRect(regionLine, 0, i-v.offset, width, 1, i)
	}
	return b.String()
}

func (v *View) renderPreview(width int) string {
	content := v.editor.Content()
	key := xxhash.Sum64String(content) ^ uint64(width)
	if v.previewLines == nil || key != v.previewKey {
		v.previewLines = strings.Split(v.markdown(content, width), "\n")
		v.previewKey = key
	}
	v.previewOffset = max(0, min(v.previewOffset, len(v.previewLines)-v.bodyHeight()))
	end := min(len(v.previewLines), v.previewOffset+v.bodyHeight())
	return strings.Join(v.previewLines[v.previewOffset:end], "\n")
}

func (v *View) markdown(content string, width int) string {
	if v.renderer == nil || v.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(styles.CurrentMarkdownTheme),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			v.logger.Debug("notes: markdown renderer", "err", err)
			return wordwrap.String(content, width)
		}
		v.renderer, v.rendererWidth = r, width
	}
	out, err := v.renderer.Render(content)
	if err != nil {
		return wordwrap.String(content, width)
	}
	return strings.Trim(out, "\n")
}

func (v *View) renderStatus(width int) string {
	parts := []string{styles.BarTitle.Render(v.editor.File().Path)}
	if v.missing {
		parts = append(parts, styles.ErrText.Render("deleted on disk"))
	}
	if v.preview {
		parts = append(parts, styles.BarChipActive.Render("preview"))
	} else {
		parts = append(parts, styles.BarText.Render(fmt.Sprintf("ln %d/%d", v.editor.Cursor()+1, v.editor.LineCount())))
	}
	if from, to, ok := v.editor.SelectionRange(); ok {
		parts = append(parts, styles.BarChip.Render(fmt.Sprintf("%d lines selected", to-from+1)))
	}
	return ansi.Truncate(strings.Join(parts, "  "), width, "…")
}
