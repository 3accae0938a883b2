// Package settingstab is the chatbot's page in the host settings modal.
package settingstab

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/styles"
)

// Deps are the collaborators of the settings tab.
type Deps struct {
	Settings      *config.Store
	Save          func() error
	RefreshModels func() tea.Cmd
	StoreAPIKey   func(key string) error
	DeleteAPIKey  func() error
	Logger        *slog.Logger
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
	Prev   key.Binding
	Next   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter", " ")),
	Cancel: key.NewBinding(key.WithKeys("esc")),
	Prev:   key.NewBinding(key.WithKeys("left", "h")),
	Next:   key.NewBinding(key.WithKeys("right", "l")),
}

// row is one line of the page: a section header or a field.
type row struct {
	section int
	field   int // -1 for the header
}

// Tab implements plugin.SettingTab.
type Tab struct {
	deps     Deps
	logger   *slog.Logger
	sections []section

	visible bool
	cursor  int
	offset  int
	editing bool
	input   textinput.Model
	err     string
}

var _ plugin.SettingTab = (*Tab)(nil)

// New returns the settings tab.
func New(deps Deps) *Tab {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 0
	return &Tab{
		deps:     deps,
		logger:   logger,
		sections: sections(),
		input:    ti,
	}
}

func (t *Tab) Name() string { return "BMO Chatbot" }

// Display is called when the tab is shown.
func (t *Tab) Display() {
	t.visible = true
	t.err = ""
}

// Hide is called when the tab is closed. An edit in progress is dropped.
func (t *Tab) Hide() {
	t.visible = false
	t.stopEditing()
}

// Editing reports whether a text field has the keyboard.
func (t *Tab) Editing() bool { return t.editing }

func (t *Tab) rows(s *config.Settings) []row {
	var out []row
	for i, sec := range t.sections {
		out = append(out, row{section: i, field: -1})
		if !sec.expanded(s) {
			continue
		}
		for j := range sec.fields {
			out = append(out, row{section: i, field: j})
		}
	}
	return out
}

// Update handles navigation and editing keys.
func (t *Tab) Update(m tea.Msg) tea.Cmd {
	km, ok := m.(tea.KeyMsg)
	if !ok {
		if t.editing {
			var cmd tea.Cmd
			t.input, cmd = t.input.Update(m)
			return cmd
		}
		return nil
	}

	s := t.deps.Settings.Snapshot()
	rows := t.rows(s)
	t.cursor = min(t.cursor, len(rows)-1)

	if t.editing {
		switch {
		case km.Type == tea.KeyEnter:
			return t.commit(rows[t.cursor])
		case key.Matches(km, keys.Cancel):
			t.stopEditing()
			return nil
		}
		var cmd tea.Cmd
		t.input, cmd = t.input.Update(km)
		return cmd
	}

	switch {
	case key.Matches(km, keys.Up):
		if t.cursor > 0 {
			t.cursor--
		}
	case key.Matches(km, keys.Down):
		if t.cursor < len(rows)-1 {
			t.cursor++
		}
	case key.Matches(km, keys.Prev):
		return t.cycleModel(rows[t.cursor], s, -1)
	case key.Matches(km, keys.Next):
		return t.cycleModel(rows[t.cursor], s, 1)
	case key.Matches(km, keys.Select):
		return t.activate(rows[t.cursor], s)
	}
	return nil
}

func (t *Tab) activate(r row, s *config.Settings) tea.Cmd {
	sec := t.sections[r.section]
	if r.field < 0 {
		return t.apply(func(s *config.Settings) { sec.toggle(s) })
	}
	f := sec.fields[r.field]
	t.err = ""
	switch f.kind {
	case kindBool:
		return t.apply(f.flip)
	case kindModel:
		return t.cycleModel(r, s, 1)
	case kindAction:
		return t.runAction(f.run, s)
	}

	t.editing = true
	t.input.SetValue(f.get(s))
	t.input.CursorEnd()
	if f.kind == kindSecret {
		t.input.EchoMode = textinput.EchoPassword
	} else {
		t.input.EchoMode = textinput.EchoNormal
	}
	return t.input.Focus()
}

func (t *Tab) commit(r row) tea.Cmd {
	f := t.sections[r.section].fields[r.field]
	value := t.input.Value()
	var setErr error
	t.deps.Settings.Update(func(s *config.Settings) {
		setErr = f.set(s, value)
	})
	if setErr != nil {
		t.err = setErr.Error()
		return nil
	}
	t.stopEditing()
	return t.save()
}

func (t *Tab) cycleModel(r row, s *config.Settings, delta int) tea.Cmd {
	if r.field < 0 || t.sections[r.section].fields[r.field].kind != kindModel {
		return nil
	}
	if len(s.AllModels) == 0 {
		t.err = "No models yet. Refresh models first."
		return nil
	}
	idx := -1
	for i, m := range s.AllModels {
		if m == s.Model {
			idx = i
		}
	}
	next := s.AllModels[(idx+delta+len(s.AllModels))%len(s.AllModels)]
	if idx < 0 && delta < 0 {
		next = s.AllModels[len(s.AllModels)-1]
	}
	return t.apply(func(s *config.Settings) { s.Model = next })
}

func (t *Tab) runAction(id string, s *config.Settings) tea.Cmd {
	switch id {
	case actionRefreshModels:
		if t.deps.RefreshModels != nil {
			return tea.Batch(msg.ShowNotice("Refreshing models…", msg.DefaultNoticeDuration), t.deps.RefreshModels())
		}
	case actionStoreKey:
		if t.deps.StoreAPIKey == nil {
			return nil
		}
		if strings.TrimSpace(s.APIKey) == "" {
			t.err = "Enter an API key first."
			return nil
		}
		if err := t.deps.StoreAPIKey(s.APIKey); err != nil {
			t.logger.Warn("settings: store api key", "err", err)
			t.err = "Keyring unavailable: " + err.Error()
			return nil
		}
		return t.apply(func(s *config.Settings) { s.APIKey = "" })
	case actionForgetKey:
		if t.deps.DeleteAPIKey == nil {
			return nil
		}
		if err := t.deps.DeleteAPIKey(); err != nil {
			t.logger.Warn("settings: delete api key", "err", err)
			t.err = "Keyring unavailable: " + err.Error()
			return nil
		}
		return msg.ShowNotice("API key removed from the keyring", msg.DefaultNoticeDuration)
	}
	return nil
}

// apply updates the settings and persists them.
func (t *Tab) apply(fn func(*config.Settings)) tea.Cmd {
	t.deps.Settings.Update(fn)
	return t.save()
}

func (t *Tab) save() tea.Cmd {
	if t.deps.Save == nil {
		return nil
	}
	if err := t.deps.Save(); err != nil {
		t.logger.Error("settings: save", "err", err)
		return msg.ShowError("Saving settings failed: " + err.Error())
	}
	return nil
}

func (t *Tab) stopEditing() {
	t.editing = false
	t.input.Blur()
	t.input.Reset()
}

// Render draws the page.
func (t *Tab) Render(width, height int) string {
	s := t.deps.Settings.Snapshot()
	rows := t.rows(s)
	t.cursor = max(0, min(t.cursor, len(rows)-1))

	bodyHeight := max(height-2, 1)
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+bodyHeight {
		t.offset = t.cursor - bodyHeight + 1
	}

	labelWidth := 28
	var lines []string
	for i := t.offset; i < len(rows) && i < t.offset+bodyHeight; i++ {
		lines = append(lines, t.renderRow(rows[i], s, i == t.cursor, labelWidth, width))
	}

	footer := styles.KeyHint.Render("↑/↓ move · enter edit/toggle · ←/→ model · esc cancel")
	if t.err != "" {
		footer = styles.ErrText.Render(t.err)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(lines, "\n"),
		"",
		footer,
	)
}

func (t *Tab) renderRow(r row, s *config.Settings, selected bool, labelWidth, width int) string {
	sec := t.sections[r.section]
	if r.field < 0 {
		arrow := "▸"
		if sec.expanded(s) {
			arrow = "▾"
		}
		line := styles.SectionHeader.Render(arrow + " " + sec.title)
		if selected {
			line = styles.ListCursor.Render("> ") + line
		} else {
			line = "  " + line
		}
		return line
	}

	f := sec.fields[r.field]
	label := lipgloss.NewStyle().Width(labelWidth).Render("    " + f.label)
	var value string
	switch {
	case selected && t.editing:
		value = t.input.View()
	case f.kind == kindAction:
		value = styles.Subtle.Render("[enter]")
	case f.kind == kindSecret:
		if f.get(s) != "" {
			value = "••••••••"
		} else {
			value = styles.Muted.Render("(env or keyring)")
		}
	case f.kind == kindModel:
		value = fmt.Sprintf("‹ %s ›", orNone(f.get(s)))
	default:
		value = f.get(s)
		if value == "" {
			value = styles.Muted.Render("(empty)")
		}
	}

	line := label + value
	style := styles.ListItemNormal
	if selected {
		style = styles.ListItemSelected
	}
	return style.MaxWidth(width).Render(line)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
