package notes

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

func newVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func openView(t *testing.T, v *vault.Vault, p, content string) *View {
	t.Helper()
	f, err := v.Create(p, content)
	if err != nil {
		t.Fatal(err)
	}
	view := NewView(v, nil)
	if err := view.LoadFile(f); err != nil {
		t.Fatal(err)
	}
	view.Resize(40, 5)
	view.SetFocused(true)
	return view
}

func act(view *View, actions ...string) {
	for _, a := range actions {
		view.Update(workspace.ActionMsg{Action: a})
	}
}

func TestCreateUntitledNumbers(t *testing.T) {
	v := newVault(t)
	var got []string
	for i := 0; i < 3; i++ {
		f, err := CreateUntitled(v, "Inbox/")
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, f.Path)
	}
	want := "Inbox/Untitled.md,Inbox/Untitled 1.md,Inbox/Untitled 2.md"
	if strings.Join(got, ",") != want {
		t.Errorf("paths = %v", got)
	}
}

func TestCursorAndSelection(t *testing.T) {
	v := newVault(t)
	view := openView(t, v, "a.md", "one\ntwo\nthree\nfour")

	act(view, "cursor-down", "toggle-selection", "cursor-down", "cursor-down")
	ed := view.Editor()
	if got := ed.Selection(); got != "two\nthree\nfour" {
		t.Errorf("selection = %q", got)
	}
	act(view, "cursor-down")
	if ed.Cursor() != 3 {
		t.Errorf("cursor = %d, want clamped to 3", ed.Cursor())
	}

	act(view, "clear-selection", "go-top")
	if _, _, ok := ed.SelectionRange(); ok || ed.Cursor() != 0 {
		t.Errorf("cursor = %d selection = %v", ed.Cursor(), ok)
	}

	out := view.Render(40, 5)
	if !strings.Contains(out, "ln 1/4") || !strings.Contains(out, "one") {
		t.Errorf("render = %q", out)
	}
}

func TestScrollFollowsCursor(t *testing.T) {
	v := newVault(t)
	view := openView(t, v, "long.md", strings.Repeat("line\n", 20)+"last")
	act(view, "go-bottom")
	out := view.Render(40, 5)
	if !strings.Contains(out, "last") || !strings.Contains(out, "ln 21/21") {
		t.Errorf("render = %q", out)
	}
}

func TestExternalChangeReloads(t *testing.T) {
	v := newVault(t)
	view := openView(t, v, "a.md", "old")
	f, _ := view.File()

	if err := v.Modify(f, "new\ncontent"); err != nil {
		t.Fatal(err)
	}
	view.Update(vault.Event{Type: vault.EventChanged, Path: "other.md"})
	if view.Editor().Content() != "old" {
		t.Fatal("reloaded on an unrelated event")
	}
	view.Update(vault.Event{Type: vault.EventChanged, Path: "a.md"})
	if view.Editor().Content() != "new\ncontent" {
		t.Errorf("content = %q", view.Editor().Content())
	}

	view.Update(vault.Event{Type: vault.EventRemoved, Path: "a.md"})
	if !strings.Contains(view.Render(40, 5), "deleted on disk") {
		t.Error("removal not shown")
	}
}

func TestPreviewToggle(t *testing.T) {
	v := newVault(t)
	view := openView(t, v, "a.md", "# Title\n\nSome *text*.")
	act(view, "toggle-preview")
	if !view.Preview() {
		t.Fatal("preview not enabled")
	}
	out := ansi.Strip(view.Render(40, 8))
	if !strings.Contains(out, "Title") || !strings.Contains(out, "preview") {
		t.Errorf("render = %q", out)
	}
	if strings.Contains(out, "# Title") {
		t.Error("preview shows raw markdown")
	}
}

func TestClickAndShiftClickSelect(t *testing.T) {
	v := newVault(t)
	view := openView(t, v, "a.md", "a\nb\nc\nd")
	view.Render(40, 5)

	view.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: 3, Y: 1})
	if view.Editor().Cursor() != 1 {
		t.Fatalf("cursor = %d", view.Editor().Cursor())
	}
	view.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: 3, Y: 3, Shift: true})
	if got := view.Editor().Selection(); got != "b\nc\nd" {
		t.Errorf("selection = %q", got)
	}
}

type nopData struct{}

func (nopData) LoadData() ([]byte, error) { return nil, nil }
func (nopData) SaveData([]byte) error     { return nil }

func TestPluginRegistersViewAndCommand(t *testing.T) {
	v := newVault(t)
	ws := workspace.New(v, nil)
	km := keymap.NewRegistry("")
	m := plugin.NewManager(&plugin.Host{
		Vault:     v,
		Workspace: ws,
		Keymap:    km,
		DataRoot:  t.TempDir(),
		NewData:   func(string) plugin.DataStore { return nopData{} },
	})
	if err := m.Register(New()); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(pluginID); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.UnloadAll)

	id, ok := km.Lookup("alt+n", keymap.GlobalContext)
	if !ok || id != "notes:new-note" {
		t.Fatalf("alt+n = %q %v", id, ok)
	}
	cmd, err := m.Host().Commands.Execute(id)
	if err != nil {
		t.Fatal(err)
	}
	open, ok := cmd().(OpenNoteMsg)
	if !ok || open.File.Path != "Untitled.md" {
		t.Fatalf("msg = %+v", open)
	}

	if err := ws.OpenFile(open.File, ViewType); err != nil {
		t.Fatal(err)
	}
	if f, ok := ws.ActiveFile(); !ok || f.Path != "Untitled.md" {
		t.Errorf("active file = %v %v", f, ok)
	}
}
