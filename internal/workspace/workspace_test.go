package workspace

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/vault"
)

type fakeView struct {
	kind    string
	file    vault.File
	hasFile bool
	opened  int
	closed  int
	focused bool
	width   int
	resized int
}

func (v *fakeView) ViewType() string        { return v.kind }
func (v *fakeView) DisplayText() string     { return v.kind }
func (v *fakeView) Icon() string            { return "" }
func (v *fakeView) OnOpen() error           { v.opened++; return nil }
func (v *fakeView) OnClose() error          { v.closed++; return nil }
func (v *fakeView) Update(tea.Msg) tea.Cmd  { return nil }
func (v *fakeView) Render(w, h int) string  { return "" }
func (v *fakeView) Resize(w, h int)         { v.width = w; v.resized++ }
func (v *fakeView) SetFocused(focused bool) { v.focused = focused }

type fakeFileView struct {
	fakeView
}

func (v *fakeFileView) File() (vault.File, bool)    { return v.file, v.hasFile }
func (v *fakeFileView) LoadFile(f vault.File) error { v.file, v.hasFile = f, true; return nil }

func newTestWorkspace(t *testing.T) (*Workspace, *vault.Vault) {
	t.Helper()
	v, err := vault.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(v, nil), v
}

func TestGetRightLeafReusesShownLeaf(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	a := ws.GetRightLeaf(false)
	b := ws.GetRightLeaf(false)
	if a != b {
		t.Error("GetRightLeaf(false) should reuse the shown leaf")
	}
	c := ws.GetRightLeaf(true)
	if c == a {
		t.Error("GetRightLeaf(true) should create a new leaf")
	}
	if a.ID() == c.ID() {
		t.Error("leaf ids must be unique")
	}
}

func TestSetViewStateAndDetach(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	var views []*fakeView
	if err := ws.RegisterView("chat", func(*Leaf) View {
		v := &fakeView{kind: "chat"}
		views = append(views, v)
		return v
	}); err != nil {
		t.Fatal(err)
	}
	if err := ws.RegisterView("chat", nil); err == nil {
		t.Error("duplicate RegisterView should fail")
	}

	leaf := ws.GetRightLeaf(false)
	if err := ws.SetViewState(leaf, ViewState{Type: "chat", Active: true}); err != nil {
		t.Fatalf("SetViewState: %v", err)
	}
	if len(views) != 1 || views[0].opened != 1 || !views[0].focused {
		t.Fatalf("view not opened and focused: %+v", views)
	}
	if got := ws.GetLeavesOfType("chat"); len(got) != 1 || got[0] != leaf {
		t.Errorf("GetLeavesOfType = %v", got)
	}

	ws.DetachLeavesOfType("chat")
	if views[0].closed != 1 {
		t.Errorf("closed = %d, want 1", views[0].closed)
	}
	if len(ws.GetLeavesOfType("chat")) != 0 {
		t.Error("leaves remain after detach")
	}
	if ws.ActiveLeaf() != nil {
		t.Error("active leaf should be cleared")
	}
}

func TestSetViewStateUnknownType(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	if err := ws.SetViewState(ws.GetMainLeaf(false), ViewState{Type: "nope"}); err == nil {
		t.Error("expected error for unknown view type")
	}
}

func TestActiveLeafChangeEvents(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	_ = ws.RegisterView("chat", func(*Leaf) View { return &fakeView{kind: "chat"} })

	var seen []*Leaf
	ref := ws.OnActiveLeafChange(func(l *Leaf) { seen = append(seen, l) })

	leaf := ws.GetRightLeaf(false)
	_ = ws.SetViewState(leaf, ViewState{Type: "chat", Active: true})
	if len(seen) != 1 || seen[0] != leaf {
		t.Fatalf("seen = %v", seen)
	}

	ws.Offref(ref)
	ws.SetActiveLeaf(nil)
	if len(seen) != 1 {
		t.Error("handler ran after Offref")
	}
}

func TestActiveFileSurvivesSidebarFocus(t *testing.T) {
	ws, v := newTestWorkspace(t)
	f, err := v.Create("note.md", "body")
	if err != nil {
		t.Fatal(err)
	}
	_ = ws.RegisterView("markdown", func(*Leaf) View { return &fakeFileView{fakeView{kind: "markdown"}} })
	_ = ws.RegisterView("chat", func(*Leaf) View { return &fakeView{kind: "chat"} })

	if err := ws.OpenFile(f, "markdown"); err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	got, ok := ws.ActiveFile()
	if !ok || got.Path != "note.md" {
		t.Fatalf("ActiveFile = %v, %v", got, ok)
	}

	chat := ws.GetRightLeaf(false)
	_ = ws.SetViewState(chat, ViewState{Type: "chat", Active: true})
	if got, ok := ws.ActiveFile(); !ok || got.Path != "note.md" {
		t.Errorf("ActiveFile after sidebar focus = %v, %v", got, ok)
	}
}

func TestNoActiveFile(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	if _, ok := ws.ActiveFile(); ok {
		t.Error("empty workspace should have no active file")
	}
	if _, ok := ws.ActiveEditor(); ok {
		t.Error("empty workspace should have no active editor")
	}
}

func TestRevealLeafResizes(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	var view *fakeView
	_ = ws.RegisterView("chat", func(*Leaf) View { view = &fakeView{kind: "chat"}; return view })
	ws.SetSideSize(SideRight, 44, 20)
	ws.SetCollapsed(SideRight, true)

	leaf := ws.GetRightLeaf(false)
	_ = ws.SetViewState(leaf, ViewState{Type: "chat"})
	before := view.resized
	ws.RevealLeaf(leaf)
	if view.resized != before+1 || view.width != 44 {
		t.Errorf("resized=%d width=%d", view.resized, view.width)
	}
	if ws.Collapsed(SideRight) {
		t.Error("RevealLeaf should expand the side")
	}
}

func TestFileMenu(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	var clicked vault.File
	ws.OnFileMenu(func(menu *Menu, f vault.File) {
		menu.AddItem(func(item *MenuItem) {
			item.SetTitle("Do thing").OnClick(func() tea.Cmd {
				clicked = f
				return nil
			})
		})
	})

	menu := ws.BuildFileMenu(vault.File{Path: "x.md"})
	items := menu.Items()
	if len(items) != 1 || items[0].Title() != "Do thing" {
		t.Fatalf("items = %v", items)
	}
	items[0].Click()
	if clicked.Path != "x.md" {
		t.Errorf("clicked = %v", clicked)
	}
}

func TestEditorSelectionAndInsert(t *testing.T) {
	var saved string
	ed := NewEditor(vault.File{Path: "n.md"}, "one\ntwo\nthree", func(_ vault.File, s string) error {
		saved = s
		return nil
	})

	if ed.Selection() != "" {
		t.Error("no selection expected")
	}
	ed.SelectLines(0, 1)
	if got := ed.Selection(); got != "one\ntwo" {
		t.Errorf("Selection = %q", got)
	}

	if err := ed.InsertAfterSelection("reply"); err != nil {
		t.Fatal(err)
	}
	want := "one\ntwo\n\nreply\nthree"
	if saved != want || ed.Content() != want {
		t.Errorf("content = %q, saved = %q", ed.Content(), saved)
	}
}

func TestEditorInsertSaveFailureRestores(t *testing.T) {
	ed := NewEditor(vault.File{Path: "n.md"}, "a\nb", func(vault.File, string) error {
		return errors.New("disk full")
	})
	ed.SetCursor(0)
	if err := ed.InsertAfterSelection("x"); err == nil {
		t.Fatal("expected error")
	}
	if ed.Content() != "a\nb" {
		t.Errorf("content changed: %q", ed.Content())
	}
}

func TestEditorCurrentLine(t *testing.T) {
	ed := NewEditor(vault.File{}, "first\nsecond", nil)
	ed.SetCursor(5)
	if ed.CurrentLine() != "second" {
		t.Errorf("CurrentLine = %q", ed.CurrentLine())
	}
}

func TestEditorSelectionDuringReload(t *testing.T) {
	long := "a\nb\nc\nd\ne\nf\ng\nh"
	ed := NewEditor(vault.File{Path: "n.md"}, long, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 500 {
			if i%2 == 0 {
				ed.Reload("x")
			} else {
				ed.Reload(long)
			}
		}
	}()
	for {
		select {
		case <-done:
			return
		default:
		}
		ed.SelectLines(0, 7)
		_ = ed.Selection()
	}
}
