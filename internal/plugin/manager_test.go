package plugin

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

type testView struct{ closed int }

func (v *testView) ViewType() string       { return "test-view" }
func (v *testView) DisplayText() string    { return "Test" }
func (v *testView) Icon() string           { return "" }
func (v *testView) OnOpen() error          { return nil }
func (v *testView) OnClose() error         { v.closed++; return nil }
func (v *testView) Update(tea.Msg) tea.Cmd { return nil }
func (v *testView) Render(int, int) string { return "" }
func (v *testView) Resize(int, int)        {}
func (v *testView) SetFocused(bool)        {}

type testPlugin struct {
	id           string
	loadErr      error
	unloads      int
	ran          int
	view         *testView
	leafAtUnload int
	ctx          *Context
}

func (p *testPlugin) ID() string   { return p.id }
func (p *testPlugin) Name() string { return "Test" }

func (p *testPlugin) OnLoad(ctx *Context) error {
	p.ctx = ctx
	if err := ctx.RegisterView("test-view", func(*workspace.Leaf) workspace.View {
		p.view = &testView{}
		return p.view
	}); err != nil {
		return err
	}
	if err := ctx.AddCommand(Command{
		ID:       "run",
		Name:     "Run",
		Hotkeys:  []keymap.Hotkey{{Modifiers: []string{keymap.ModKey}, Key: "r"}},
		Callback: func() tea.Cmd { p.ran++; return nil },
	}); err != nil {
		return err
	}
	ctx.AddRibbonIcon("bot", "Test", nil)
	ctx.RegisterEvent(ctx.Workspace.OnActiveLeafChange(func(*workspace.Leaf) {}))
	return p.loadErr
}

func (p *testPlugin) OnUnload() {
	p.unloads++
	p.leafAtUnload = len(p.ctx.Workspace.GetLeavesOfType("test-view"))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	v, err := vault.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(&Host{
		Vault:     v,
		Workspace: workspace.New(v, nil),
		Keymap:    keymap.NewRegistry(""),
		DataRoot:  filepath.Join(v.Root(), ".bmo", "plugins"),
	})
}

func TestManagerLifecycle(t *testing.T) {
	m := newTestManager(t)
	p := &testPlugin{id: "test"}
	if err := m.Register(p); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(p); err == nil {
		t.Error("duplicate Register should fail")
	}
	if err := m.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	h := m.Host()

	if _, ok := h.Commands.Get("test:run"); !ok {
		t.Fatal("command not registered under full id")
	}
	if cmd, ok := h.Keymap.Lookup("alt+r", keymap.GlobalContext); !ok || cmd != "test:run" {
		t.Errorf("hotkey lookup = %q, %v", cmd, ok)
	}
	if _, err := h.Commands.Execute("test:run"); err != nil || p.ran != 1 {
		t.Errorf("Execute err=%v ran=%d", err, p.ran)
	}
	if len(h.Ribbon.Icons()) != 1 {
		t.Error("ribbon icon missing")
	}

	leaf := h.Workspace.GetRightLeaf(false)
	if err := h.Workspace.SetViewState(leaf, workspace.ViewState{Type: "test-view"}); err != nil {
		t.Fatal(err)
	}

	m.UnloadAll()
	if p.unloads != 1 {
		t.Errorf("unloads = %d", p.unloads)
	}
	if p.leafAtUnload != 1 {
		t.Error("leaves should still exist while OnUnload runs")
	}
	if p.view.closed != 1 {
		t.Error("view not closed on unload")
	}
	if _, ok := h.Commands.Get("test:run"); ok {
		t.Error("command survived unload")
	}
	if _, ok := h.Keymap.Lookup("alt+r", keymap.GlobalContext); ok {
		t.Error("hotkey survived unload")
	}
	if len(h.Ribbon.Icons()) != 0 {
		t.Error("ribbon icon survived unload")
	}
	if m.Loaded("test") {
		t.Error("plugin still loaded")
	}

	// Unloading twice is a no-op.
	m.Unload("test")
	if p.unloads != 1 {
		t.Error("OnUnload ran twice")
	}
}

func TestManagerLoadFailureReleases(t *testing.T) {
	m := newTestManager(t)
	p := &testPlugin{id: "broken", loadErr: errors.New("boom")}
	_ = m.Register(p)

	if err := m.LoadAll(); err == nil {
		t.Fatal("expected load error")
	}
	if _, ok := m.Host().Commands.Get("broken:run"); ok {
		t.Error("registrations of a failed plugin should be released")
	}
	if m.Loaded("broken") {
		t.Error("failed plugin marked loaded")
	}
}

func TestFileData(t *testing.T) {
	fd := FileData{Path: filepath.Join(t.TempDir(), "p", "data.json")}
	if _, err := fd.LoadData(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadData on missing file: %v", err)
	}
	if err := fd.SaveData([]byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	got, err := fd.LoadData()
	if err != nil || string(got) != `{"a":1}` {
		t.Errorf("LoadData = %q, %v", got, err)
	}
}

func TestCommandsAll(t *testing.T) {
	c := NewCommands()
	_ = c.Add(Command{ID: "b:x", Name: "Beta"})
	_ = c.Add(Command{ID: "a:x", Name: "Alpha"})
	all := c.All()
	if len(all) != 2 || all[0].Name != "Alpha" {
		t.Errorf("All = %+v", all)
	}
	if _, err := c.Execute("missing"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Execute missing: %v", err)
	}
}
