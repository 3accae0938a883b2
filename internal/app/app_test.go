package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/bmo/internal/keymap"
	appmsg "github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/palette"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/plugins/filebrowser"
	"github.com/marcus/bmo/internal/plugins/notes"
	"github.com/marcus/bmo/internal/state"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

type nopData struct{}

func (nopData) LoadData() ([]byte, error) { return nil, nil }
func (nopData) SaveData([]byte) error     { return nil }

// typingView is a right sidebar view that takes text input.
type typingView struct {
	got []tea.Msg
}

func (v *typingView) ViewType() string                { return "typist" }
func (v *typingView) DisplayText() string             { return "Typist" }
func (v *typingView) Icon() string                    { return "" }
func (v *typingView) OnOpen() error                   { return nil }
func (v *typingView) OnClose() error                  { return nil }
func (v *typingView) Render(width, height int) string { return "typing" }
func (v *typingView) Resize(width, height int)        {}
func (v *typingView) SetFocused(bool)                 {}
func (v *typingView) FocusContext() string            { return "typist" }
func (v *typingView) ConsumesTextInput() bool         { return true }

func (v *typingView) Update(msg tea.Msg) tea.Cmd {
	switch msg.(type) {
	case tea.KeyMsg, workspace.ActionMsg:
		v.got = append(v.got, msg)
	}
	return nil
}

type fakeTab struct {
	shown   bool
	editing bool
	keys    []string
}

func (t *fakeTab) Name() string                    { return "Fixture" }
func (t *fakeTab) Display()                        { t.shown = true }
func (t *fakeTab) Hide()                           { t.shown = false }
func (t *fakeTab) Editing() bool                   { return t.editing }
func (t *fakeTab) Render(width, height int) string { return "fixture settings" }

func (t *fakeTab) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		t.keys = append(t.keys, k.String())
	}
	return nil
}

// fixture registers a text view in the right sidebar, a ribbon icon and a
// setting tab.
type fixture struct {
	view          *typingView
	tab           *fakeTab
	ribbonClicked bool
	stateDir      string
}

func (f *fixture) ID() string   { return "fixture" }
func (f *fixture) Name() string { return "Fixture" }
func (f *fixture) OnUnload()    {}

func (f *fixture) OnLoad(ctx *plugin.Context) error {
	if err := ctx.RegisterView("typist", func(*workspace.Leaf) workspace.View {
		f.view = &typingView{}
		return f.view
	}); err != nil {
		return err
	}
	ctx.AddRibbonIcon("bot", "Fixture bot", func() tea.Cmd {
		f.ribbonClicked = true
		return nil
	})
	f.tab = &fakeTab{}
	ctx.AddSettingTab(f.tab)
	leaf := ctx.Workspace.GetRightLeaf(false)
	return ctx.Workspace.SetViewState(leaf, workspace.ViewState{Type: "typist"})
}

func newTestModel(t *testing.T, paths ...string) (Model, *fixture) {
	t.Helper()
	stateDir := t.TempDir()
	if err := state.InitWithDir(stateDir); err != nil {
		t.Fatal(err)
	}
	v, err := vault.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		if _, err := v.Create(p, "# "+p+"\nbody"); err != nil {
			t.Fatal(err)
		}
	}
	km := keymap.NewRegistry("alt")
	keymap.RegisterDefaults(km)
	mgr := plugin.NewManager(&plugin.Host{
		Vault:     v,
		Workspace: workspace.New(v, nil),
		Keymap:    km,
		DataRoot:  t.TempDir(),
		NewData:   func(string) plugin.DataStore { return nopData{} },
	})
	fx := &fixture{stateDir: stateDir}
	for _, p := range []plugin.Plugin{filebrowser.New(), notes.New(), fx} {
		if err := mgr.Register(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := mgr.LoadAll(); err != nil {
		t.Fatal(err)
	}

	m, err := New(mgr, Options{Version: "v-test"})
	if err != nil {
		t.Fatal(err)
	}
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return m, fx
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// hostKey sends a key bound to a host command and delivers the command.
func hostKey(t *testing.T, m Model, k string) Model {
	t.Helper()
	m, cmd := send(m, key(k))
	if cmd == nil {
		t.Fatalf("%s: no command", k)
	}
	hc, ok := cmd().(hostCommandMsg)
	if !ok {
		t.Fatalf("%s: not a host command", k)
	}
	m, _ = send(m, hc)
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	if rest, ok := strings.CutPrefix(s, "alt+"); ok {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(rest), Alt: true}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: x, Y: y}
}

func TestStartupFocusesExplorer(t *testing.T) {
	m, _ := newTestModel(t, "a.md")
	if got := m.ActiveContext(); got != filebrowser.FocusContext {
		t.Errorf("context = %q", got)
	}
	if _, ok := m.host.Commands.Get(keymap.CmdQuit); !ok {
		t.Error("host commands not registered")
	}
}

func TestExplorerOpensNote(t *testing.T) {
	m, _ := newTestModel(t, "a.md", "b.md")

	m, _ = send(m, key("j"))
	m, cmd := send(m, key("enter"))
	if cmd == nil {
		t.Fatal("enter returned no command")
	}
	open, ok := cmd().(notes.OpenNoteMsg)
	if !ok || open.File.Path != "b.md" {
		t.Fatalf("msg = %#v", open)
	}

	m, _ = send(m, open)
	if f, ok := m.ws.ActiveFile(); !ok || f.Path != "b.md" {
		t.Errorf("active file = %v, %v", f, ok)
	}
	if m.ActiveContext() != notes.FocusContext {
		t.Errorf("context = %q", m.ActiveContext())
	}
	if state.GetLastOpenNote() != "b.md" {
		t.Errorf("last note = %q", state.GetLastOpenNote())
	}
}

func TestTextInputViewGetsPrintableKeys(t *testing.T) {
	m, fx := newTestModel(t)
	m.ws.SetActiveLeaf(m.ws.ShownLeaf(workspace.SideRight))

	m, _ = send(m, key("j"))
	if len(fx.view.got) != 1 {
		t.Fatalf("view got %v", fx.view.got)
	}
	if k, ok := fx.view.got[0].(tea.KeyMsg); !ok || k.String() != "j" {
		t.Errorf("got %#v, want typed key", fx.view.got[0])
	}

	m = hostKey(t, m, "alt+p")
	if m.activeModal() != ModalPalette {
		t.Error("modifier binding should still reach the palette")
	}
}

func TestPaletteOpenAndClose(t *testing.T) {
	m, _ := newTestModel(t)
	m = hostKey(t, m, "alt+p")
	if m.activeModal() != ModalPalette {
		t.Fatal("palette not open")
	}
	var found bool
	for _, e := range m.palette.Entries() {
		if e.CommandID == keymap.CmdOpenSettings && e.Layer == palette.LayerGlobal {
			found = true
		}
	}
	if !found {
		t.Error("host command missing from palette")
	}

	_, cmd := send(m, key("esc"))
	if _, ok := cmd().(palette.ClosedMsg); !ok {
		t.Fatal("esc did not close the palette")
	}
	m, _ = send(m, palette.ClosedMsg{})
	if m.activeModal() != ModalNone {
		t.Error("palette still open")
	}
}

func TestPaletteSelectionRunsAction(t *testing.T) {
	m, _ := newTestModel(t, "a.md", "b.md")
	m.showPalette = true
	m, _ = send(m, palette.CommandSelectedMsg{CommandID: "cursor-down", Layer: palette.LayerCurrentMode})
	if m.showPalette {
		t.Error("palette still open")
	}
	leaf := m.ws.ShownLeaf(workspace.SideLeft)
	if n, _ := leaf.View().(*filebrowser.View).Selected(); n.Path != "b.md" {
		t.Errorf("selected = %s", n.Path)
	}
}

func TestFileMenu(t *testing.T) {
	m, _ := newTestModel(t, "a.md", "b.md")
	var clicked []string
	m.ws.OnFileMenu(func(menu *workspace.Menu, f vault.File) {
		menu.AddItem(func(item *workspace.MenuItem) {
			item.SetTitle("Chat about note").OnClick(func() tea.Cmd {
				clicked = append(clicked, f.Path)
				return nil
			})
		})
	})

	_, cmd := send(m, key("m"))
	fm, ok := cmd().(workspace.FileMenuMsg)
	if !ok {
		t.Fatal("no file menu message")
	}
	m, _ = send(m, fm)
	if m.activeModal() != ModalFileMenu {
		t.Fatal("menu not open")
	}
	if m.fileMenu.x != fm.X+ribbonWidth || m.fileMenu.y != fm.Y+headerHeight+tabHeight {
		t.Errorf("menu at %d,%d", m.fileMenu.x, m.fileMenu.y)
	}
	m, _ = send(m, key("enter"))
	if m.fileMenu != nil || len(clicked) != 1 || clicked[0] != "a.md" {
		t.Errorf("clicked = %v", clicked)
	}

	m, _ = send(m, fm)
	out := m.View()
	if !strings.Contains(ansi.Strip(out), "Chat about note") {
		t.Error("menu not rendered")
	}
	m, _ = send(m, press(m.fileMenu.x+2, m.fileMenu.y+2))
	if m.fileMenu != nil || len(clicked) != 2 {
		t.Errorf("mouse click on item: clicked = %v", clicked)
	}
}

func TestSettingsModal(t *testing.T) {
	m, fx := newTestModel(t)
	m = hostKey(t, m, "alt+,")
	if m.activeModal() != ModalSettings || !fx.tab.shown {
		t.Fatal("settings not shown")
	}
	if !strings.Contains(ansi.Strip(m.View()), "fixture settings") {
		t.Error("tab not rendered")
	}

	m, _ = send(m, key("x"))
	fx.tab.editing = true
	m, _ = send(m, key("esc"))
	if !m.showSettings || strings.Join(fx.tab.keys, ",") != "x,esc" {
		t.Errorf("keys = %v", fx.tab.keys)
	}

	fx.tab.editing = false
	m, _ = send(m, key("esc"))
	if m.showSettings || fx.tab.shown {
		t.Error("esc did not close settings")
	}
}

func TestNoticeExpiry(t *testing.T) {
	m, _ := newTestModel(t)
	m, cmd := send(m, appmsg.NoticeMsg{Message: "Saved"})
	if cmd == nil || m.Notice() != "Saved" {
		t.Fatalf("notice = %q", m.Notice())
	}
	if !strings.Contains(ansi.Strip(m.View()), "Saved") {
		t.Error("notice not in status bar")
	}
	m, _ = send(m, appmsg.NoticeMsg{Message: "Newer"})
	m, _ = send(m, appmsg.NoticeExpiredMsg{Seq: 1})
	if m.Notice() != "Newer" {
		t.Errorf("stale expiry cleared %q", m.Notice())
	}
	m, _ = send(m, appmsg.NoticeExpiredMsg{Seq: 2})
	if m.Notice() != "" {
		t.Errorf("notice = %q", m.Notice())
	}
}

func TestSidebarToggleAndDrag(t *testing.T) {
	m, _ := newTestModel(t, "a.md")

	m = hostKey(t, m, "alt+b")
	if !m.ws.Collapsed(workspace.SideLeft) {
		t.Fatal("left sidebar not collapsed")
	}
	if _, ok := m.computeLayout().panes[workspace.SideLeft]; ok {
		t.Error("collapsed sidebar still laid out")
	}
	m = hostKey(t, m, "alt+b")

	m.View()
	divider := m.computeLayout().dividers[workspace.SideLeft]
	m, _ = send(m, press(divider.X, 5))
	m, _ = send(m, tea.MouseMsg{Action: tea.MouseActionMotion, X: divider.X + 10, Y: 5})
	m, _ = send(m, tea.MouseMsg{Action: tea.MouseActionRelease, X: divider.X + 10, Y: 5})
	if got := state.GetLeftSidebarWidth(); got != state.DefaultLeftWidth+10 {
		t.Errorf("left width = %d", got)
	}
	if w, _ := m.ws.SideSize(workspace.SideLeft); w != state.DefaultLeftWidth+10 {
		t.Errorf("side size = %d", w)
	}
}

func TestHiddenSidebarKeepsSize(t *testing.T) {
	m, _ := newTestModel(t, "a.md")

	m = hostKey(t, m, "alt+\\")
	if !m.ws.Collapsed(workspace.SideRight) {
		t.Fatal("right sidebar not collapsed")
	}
	w, h := m.ws.SideSize(workspace.SideRight)
	if w != state.GetRightSidebarWidth() || h != 30-headerHeight-footerHeight-tabHeight {
		t.Errorf("hidden right size = %dx%d", w, h)
	}
}

func TestLayoutKeepsMainWidth(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	l := m.computeLayout()
	if l.panes[workspace.SideMain].W != minMainWidth {
		t.Errorf("main = %d", l.panes[workspace.SideMain].W)
	}
	if l.panes[workspace.SideRight].W != 34 || l.panes[workspace.SideLeft].W != state.DefaultLeftWidth {
		t.Errorf("left = %d right = %d", l.panes[workspace.SideLeft].W, l.panes[workspace.SideRight].W)
	}
}

func TestMouseFocusesPane(t *testing.T) {
	m, fx := newTestModel(t)
	m.View()
	r := m.computeLayout().panes[workspace.SideRight]
	m, _ = send(m, press(r.X+2, r.Y+3))
	if m.ActiveContext() != "typist" {
		t.Errorf("context = %q", m.ActiveContext())
	}

	m.View()
	m, _ = send(m, press(1, headerHeight))
	if !fx.ribbonClicked {
		t.Error("ribbon icon not clicked")
	}
}

func TestVaultEventReloadsNote(t *testing.T) {
	m, _ := newTestModel(t, "a.md")
	f, err := m.host.Vault.File("a.md")
	if err != nil {
		t.Fatal(err)
	}
	m, _ = send(m, notes.OpenNoteMsg{File: f})

	if err := os.WriteFile(filepath.Join(m.host.Vault.Root(), "a.md"), []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, _ = send(m, vaultEventMsg{Event: vault.Event{Type: vault.EventChanged, Path: "a.md"}})
	ed, ok := m.ws.ActiveEditor()
	if !ok || ed.Content() != "changed" {
		t.Errorf("editor = %v", ed)
	}
}

func TestQuitConfirmSavesAndUnloads(t *testing.T) {
	m, fx := newTestModel(t, "a.md")
	m, _ = send(m, key("ctrl+c"))
	if m.activeModal() != ModalQuitConfirm {
		t.Fatal("no confirmation")
	}
	m, _ = send(m, key("n"))
	if m.activeModal() != ModalNone {
		t.Fatal("confirmation not dismissed")
	}

	m, _ = send(m, key("ctrl+c"))
	_, cmd := send(m, key("y"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("y did not quit")
	}
	if len(m.ws.GetLeavesOfType(filebrowser.ViewType)) != 0 {
		t.Error("plugins not unloaded")
	}
	if _, err := os.Stat(filepath.Join(fx.stateDir, "workspace.json")); err != nil {
		t.Errorf("state not saved: %v", err)
	}
}

func TestViewTooSmall(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(m, tea.WindowSizeMsg{Width: 40, Height: 8})
	if !strings.HasPrefix(m.View(), "Terminal too small") {
		t.Error("expected size warning")
	}
}
