package workspace

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/vault"
)

// EventRef identifies a registered event handler.
type EventRef struct {
	id   int
	kind eventKind
}

type eventKind int

const (
	eventActiveLeafChange eventKind = iota + 1
	eventFileOpen
	eventFileMenu
)

// Valid reports whether the ref came from a registration.
func (r EventRef) Valid() bool { return r.kind != 0 }

// OnActiveLeafChange registers fn to run after the focused leaf changes.
// fn receives nil when no leaf is focused.
func (w *Workspace) OnActiveLeafChange(fn func(leaf *Leaf)) EventRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextRef++
	w.leafHandlers[w.nextRef] = fn
	return EventRef{id: w.nextRef, kind: eventActiveLeafChange}
}

// OnFileOpen registers fn to run after a note is opened in the main area.
func (w *Workspace) OnFileOpen(fn func(f vault.File)) EventRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextRef++
	w.fileOpenHandlers[w.nextRef] = fn
	return EventRef{id: w.nextRef, kind: eventFileOpen}
}

// OnFileMenu registers fn to contribute items to a note's context menu.
func (w *Workspace) OnFileMenu(fn func(menu *Menu, f vault.File)) EventRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextRef++
	w.fileMenuHandlers[w.nextRef] = fn
	return EventRef{id: w.nextRef, kind: eventFileMenu}
}

// Offref removes a handler. Unknown refs are ignored.
func (w *Workspace) Offref(ref EventRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch ref.kind {
	case eventActiveLeafChange:
		delete(w.leafHandlers, ref.id)
	case eventFileOpen:
		delete(w.fileOpenHandlers, ref.id)
	case eventFileMenu:
		delete(w.fileMenuHandlers, ref.id)
	}
}

// BuildFileMenu collects the context menu for f from all contributors.
func (w *Workspace) BuildFileMenu(f vault.File) *Menu {
	w.mu.Lock()
	handlers := make([]func(*Menu, vault.File), 0, len(w.fileMenuHandlers))
	for _, id := range sortedIDs(w.fileMenuHandlers) {
		handlers = append(handlers, w.fileMenuHandlers[id])
	}
	w.mu.Unlock()

	menu := &Menu{}
	for _, fn := range handlers {
		fn(menu, f)
	}
	return menu
}

func (w *Workspace) fireActiveLeafChange(leaf *Leaf) {
	w.mu.Lock()
	handlers := make([]func(*Leaf), 0, len(w.leafHandlers))
	for _, id := range sortedIDs(w.leafHandlers) {
		handlers = append(handlers, w.leafHandlers[id])
	}
	w.mu.Unlock()

	for _, fn := range handlers {
		fn(leaf)
	}
}

func (w *Workspace) fireFileOpen(f vault.File) {
	w.mu.Lock()
	handlers := make([]func(vault.File), 0, len(w.fileOpenHandlers))
	for _, id := range sortedIDs(w.fileOpenHandlers) {
		handlers = append(handlers, w.fileOpenHandlers[id])
	}
	w.mu.Unlock()

	for _, fn := range handlers {
		fn(f)
	}
}

// Menu is a context menu built by contributors.
type Menu struct {
	items []*MenuItem
}

// AddItem appends an item configured by fn.
func (m *Menu) AddItem(fn func(item *MenuItem)) *Menu {
	item := &MenuItem{}
	fn(item)
	m.items = append(m.items, item)
	return m
}

// Items returns the menu entries in insertion order.
func (m *Menu) Items() []*MenuItem { return m.items }

// MenuItem is a single menu entry.
type MenuItem struct {
	title   string
	icon    string
	onClick func() tea.Cmd
}

func (i *MenuItem) SetTitle(title string) *MenuItem {
	i.title = title
	return i
}

func (i *MenuItem) SetIcon(icon string) *MenuItem {
	i.icon = icon
	return i
}

func (i *MenuItem) OnClick(fn func() tea.Cmd) *MenuItem {
	i.onClick = fn
	return i
}

func (i *MenuItem) Title() string { return i.title }
func (i *MenuItem) Icon() string  { return i.icon }

// Click runs the item's action.
func (i *MenuItem) Click() tea.Cmd {
	if i.onClick == nil {
		return nil
	}
	return i.onClick()
}

// FileMenuMsg asks the host to show the context menu of File with its
// top-left corner at (X, Y), relative to the sending view.
type FileMenuMsg struct {
	File vault.File
	X, Y int
}
