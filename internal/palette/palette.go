// Package palette implements the command palette: a fuzzy-filtered list of
// every command reachable from the focused view.
package palette

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/mouse"
	"github.com/marcus/bmo/internal/plugin"
)

const regionPaletteEntry = "palette-entry"

// Layer groups entries by where their command comes from.
type Layer int

const (
	// LayerCurrentMode holds the focused view's own actions.
	LayerCurrentMode Layer = iota
	// LayerPlugin holds plugin commands.
	LayerPlugin
	// LayerGlobal holds host commands.
	LayerGlobal
)

// MatchRange is a half-open byte range of Name matched by the query.
type MatchRange struct {
	Start, End int
}

// PaletteEntry is one selectable command.
type PaletteEntry struct {
	Key         string
	Name        string
	Description string
	CommandID   string
	Layer       Layer
	MatchRanges []MatchRange
}

// CommandSelectedMsg reports the entry the user picked.
type CommandSelectedMsg struct {
	CommandID string
	Layer     Layer
}

// ClosedMsg reports that the palette was dismissed.
type ClosedMsg struct{}

// Model is the palette state. It is rebuilt by Open each time the palette
// is shown.
type Model struct {
	commands *plugin.Commands
	keys     *keymap.Registry

	textInput    textinput.Model
	mouseHandler *mouse.Handler

	entries  []PaletteEntry
	filtered []PaletteEntry

	activeContext   string
	pluginContext   string
	showAllContexts bool

	cursor     int
	offset     int
	maxVisible int
	width      int
	height     int
}

// New returns a palette over the host's commands and key bindings.
func New(commands *plugin.Commands, keys *keymap.Registry) Model {
	ti := textinput.New()
	ti.Placeholder = "Search commands..."
	ti.Prompt = ""
	ti.CharLimit = 100
	return Model{
		commands:     commands,
		keys:         keys,
		textInput:    ti,
		mouseHandler: mouse.NewHandler(),
		maxVisible:   12,
	}
}

// SetSize records the terminal size.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.maxVisible = max(3, min(12, height-10))
}

// Open resets the query and collects entries. context is the focused
// view's keymap context; owner is the ID of the plugin owning that view,
// or "".
func (m *Model) Open(context, owner string) tea.Cmd {
	m.activeContext = context
	m.pluginContext = owner
	m.showAllContexts = owner == ""
	m.textInput.Reset()
	m.cursor, m.offset = 0, 0
	m.entries = m.collect()
	m.filter()
	return m.textInput.Focus()
}

// Entries returns the filtered entries in display order.
func (m Model) Entries() []PaletteEntry { return m.filtered }

// Cursor returns the selected index into Entries.
func (m Model) Cursor() int { return m.cursor }

// Query returns the current search text.
func (m Model) Query() string { return m.textInput.Value() }

func (m Model) collect() []PaletteEntry {
	var out []PaletteEntry

	if m.activeContext != "" && m.activeContext != keymap.GlobalContext {
		seen := make(map[string]bool)
		for _, b := range m.keys.BindingsForContext(m.activeContext) {
			if b.Context != m.activeContext || seen[b.Command] {
				continue
			}
			seen[b.Command] = true
			out = append(out, PaletteEntry{
				Key:         m.keys.KeyFor(b.Command),
				Name:        actionName(b.Command),
				Description: m.activeContext,
				CommandID:   b.Command,
				Layer:       LayerCurrentMode,
			})
		}
	}

	for _, cmd := range m.commands.All() {
		owner, _, _ := strings.Cut(cmd.ID, ":")
		layer := LayerPlugin
		if owner == "app" {
			layer = LayerGlobal
		} else if !m.showAllContexts && owner != m.pluginContext {
			continue
		}
		out = append(out, PaletteEntry{
			Key:         m.keys.KeyFor(cmd.ID),
			Name:        cmd.Name,
			Description: cmd.ID,
			CommandID:   cmd.ID,
			Layer:       layer,
		})
	}
	return out
}

// actionName turns "toggle-selection" into "Toggle selection".
func actionName(id string) string {
	s := strings.ReplaceAll(id, "-", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (m *Model) filter() {
	query := strings.TrimSpace(m.textInput.Value())
	if query == "" {
		m.filtered = append([]PaletteEntry(nil), m.entries...)
	} else {
		names := make([]string, len(m.entries))
		for i, e := range m.entries {
			names[i] = e.Name
		}
		ranks := list.DefaultFilter(query, names)
		m.filtered = make([]PaletteEntry, 0, len(ranks))
		for _, r := range ranks {
			e := m.entries[r.Index]
			e.MatchRanges = toRanges(r.MatchedIndexes)
			m.filtered = append(m.filtered, e)
		}
	}
	// layers render in order, so keep the flat list in the same order
	sort.SliceStable(m.filtered, func(i, j int) bool {
		return m.filtered[i].Layer < m.filtered[j].Layer
	})
	m.cursor = min(m.cursor, max(0, len(m.filtered)-1))
	m.ensureVisible()
}

// toRanges merges sorted matched indexes into contiguous ranges.
func toRanges(idx []int) []MatchRange {
	var out []MatchRange
	for _, i := range idx {
		if n := len(out); n > 0 && out[n-1].End == i {
			out[n-1].End++
			continue
		}
		out = append(out, MatchRange{Start: i, End: i + 1})
	}
	return out
}

// GroupEntriesByLayer splits entries by layer, keeping their order.
func GroupEntriesByLayer(entries []PaletteEntry) map[Layer][]PaletteEntry {
	groups := make(map[Layer][]PaletteEntry)
	for _, e := range entries {
		groups[e.Layer] = append(groups[e.Layer], e)
	}
	return groups
}

func (m *Model) ensureVisible() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.maxVisible {
		m.offset = m.cursor - m.maxVisible + 1
	}
	m.offset = max(0, m.offset)
}

func (m *Model) move(delta int) {
	if len(m.filtered) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.filtered)-1, m.cursor+delta))
	m.ensureVisible()
}

func (m Model) selected() tea.Cmd {
	if m.cursor >= len(m.filtered) {
		return nil
	}
	e := m.filtered[m.cursor]
	return func() tea.Msg { return CommandSelectedMsg{CommandID: e.CommandID, Layer: e.Layer} }
}

// Update handles keys and mouse events while the palette is open. Mouse
// coordinates must be relative to the palette box.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.textInput.Blur()
			return m, func() tea.Msg { return ClosedMsg{} }
		case "enter":
			return m, m.selected()
		case "up", "ctrl+p":
			m.move(-1)
			return m, nil
		case "down", "ctrl+n":
			m.move(1)
			return m, nil
		case "pgup":
			m.move(-m.maxVisible)
			return m, nil
		case "pgdown":
			m.move(m.maxVisible)
			return m, nil
		case "tab":
			m.showAllContexts = !m.showAllContexts
			m.entries = m.collect()
			m.filter()
			return m, nil
		}
		prev := m.textInput.Value()
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		if m.textInput.Value() != prev {
			m.cursor, m.offset = 0, 0
			m.filter()
		}
		return m, cmd

	case tea.MouseMsg:
		action := m.mouseHandler.HandleMouse(msg)
		switch action.Type {
		case mouse.ActionScrollUp:
			m.move(-1)
		case mouse.ActionScrollDown:
			m.move(1)
		case mouse.ActionClick, mouse.ActionDoubleClick:
			if action.Region == nil || action.Region.ID != regionPaletteEntry {
				return m, nil
			}
			idx, _ := action.Region.Data.(int)
			m.cursor = idx
			if action.Type == mouse.ActionDoubleClick {
				return m, m.selected()
			}
		}
		return m, nil
	}
	return m, nil
}
