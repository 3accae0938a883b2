package workspace

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/marcus/bmo/internal/vault"
)

// Side is one of the three areas leaves live in.
type Side int

const (
	SideLeft Side = iota
	SideMain
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideMain:
		return "main"
	case SideRight:
		return "right"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// Sides lists the areas in layout order.
var Sides = []Side{SideLeft, SideMain, SideRight}

// LeafID identifies a leaf for its lifetime.
type LeafID string

// Leaf is a pane holding a single view.
type Leaf struct {
	id   LeafID
	side Side
	view View
}

func (l *Leaf) ID() LeafID  { return l.id }
func (l *Leaf) Side() Side { return l.side }
func (l *Leaf) View() View { return l.view }

type size struct{ width, height int }

// Workspace owns the leaves of the host window and the registered view
// types.
type Workspace struct {
	mu     sync.Mutex
	vault  *vault.Vault
	logger *slog.Logger

	factories map[string]ViewFactory
	leaves    map[Side][]*Leaf
	shown     map[Side]*Leaf
	sizes     map[Side]size
	collapsed map[Side]bool
	active    *Leaf
	lastFile  *Leaf

	nextRef          int
	leafHandlers     map[int]func(*Leaf)
	fileOpenHandlers map[int]func(vault.File)
	fileMenuHandlers map[int]func(*Menu, vault.File)
}

// New returns an empty workspace over v.
func New(v *vault.Vault, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		vault:     v,
		logger:    logger,
		factories: make(map[string]ViewFactory),
		leaves:    make(map[Side][]*Leaf),
		shown:     make(map[Side]*Leaf),
		sizes: map[Side]size{
			SideLeft:  {30, 24},
			SideMain:  {80, 24},
			SideRight: {50, 24},
		},
		collapsed:        make(map[Side]bool),
		leafHandlers:     make(map[int]func(*Leaf)),
		fileOpenHandlers: make(map[int]func(vault.File)),
		fileMenuHandlers: make(map[int]func(*Menu, vault.File)),
	}
}

// Vault returns the vault the workspace edits.
func (w *Workspace) Vault() *vault.Vault { return w.vault }

// RegisterView installs the factory for viewType.
func (w *Workspace) RegisterView(viewType string, factory ViewFactory) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.factories[viewType]; ok {
		return fmt.Errorf("view type %q already registered", viewType)
	}
	w.factories[viewType] = factory
	return nil
}

// UnregisterView removes the factory for viewType. Open leaves keep their
// views until detached.
func (w *Workspace) UnregisterView(viewType string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.factories, viewType)
}

// GetLeftLeaf returns the shown left sidebar leaf, or a new one when split
// is set or the sidebar is empty.
func (w *Workspace) GetLeftLeaf(split bool) *Leaf { return w.getLeaf(SideLeft, split) }

// GetRightLeaf returns the shown right sidebar leaf, or a new one when
// split is set or the sidebar is empty.
func (w *Workspace) GetRightLeaf(split bool) *Leaf { return w.getLeaf(SideRight, split) }

// GetMainLeaf returns the shown main-area leaf, or a new one when split is
// set or the main area is empty.
func (w *Workspace) GetMainLeaf(split bool) *Leaf { return w.getLeaf(SideMain, split) }

func (w *Workspace) getLeaf(side Side, split bool) *Leaf {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !split {
		if l := w.shown[side]; l != nil {
			return l
		}
	}
	l := &Leaf{id: LeafID(uuid.NewString()), side: side, view: emptyView{}}
	w.leaves[side] = append(w.leaves[side], l)
	if w.shown[side] == nil {
		w.shown[side] = l
	}
	return l
}

// SetViewState replaces the leaf's view with a new view of state.Type.
func (w *Workspace) SetViewState(leaf *Leaf, state ViewState) error {
	w.mu.Lock()
	factory, ok := w.factories[state.Type]
	attached := w.attachedLocked(leaf)
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown view type %q", state.Type)
	}
	if !attached {
		return fmt.Errorf("leaf %s is not attached", leaf.id)
	}

	if err := leaf.view.OnClose(); err != nil {
		w.logger.Warn("workspace: close view", "type", leaf.view.ViewType(), "err", err)
	}

	view := factory(leaf)
	w.mu.Lock()
	leaf.view = view
	sz := w.sizes[leaf.side]
	w.mu.Unlock()

	if err := view.OnOpen(); err != nil {
		return fmt.Errorf("open %s view: %w", state.Type, err)
	}
	if state.File != "" {
		if loader, ok := view.(FileLoader); ok {
			f, err := w.vault.File(state.File)
			if err != nil {
				return err
			}
			if err := loader.LoadFile(f); err != nil {
				return err
			}
		}
	}
	view.Resize(sz.width, sz.height)

	if state.Active {
		w.setActive(leaf, true)
	}
	return nil
}

// GetLeavesOfType returns the attached leaves showing viewType, in side
// then tab order.
func (w *Workspace) GetLeavesOfType(viewType string) []*Leaf {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*Leaf
	for _, side := range Sides {
		for _, l := range w.leaves[side] {
			if l.view.ViewType() == viewType {
				out = append(out, l)
			}
		}
	}
	return out
}

// DetachLeavesOfType closes and removes every leaf showing viewType.
func (w *Workspace) DetachLeavesOfType(viewType string) {
	for _, l := range w.GetLeavesOfType(viewType) {
		w.Detach(l)
	}
}

// Detach closes the leaf's view and removes the leaf.
func (w *Workspace) Detach(leaf *Leaf) {
	w.mu.Lock()
	if !w.attachedLocked(leaf) {
		w.mu.Unlock()
		return
	}
	list := w.leaves[leaf.side]
	idx := 0
	for i, l := range list {
		if l == leaf {
			idx = i
			break
		}
	}
	w.leaves[leaf.side] = append(list[:idx:idx], list[idx+1:]...)

	if w.shown[leaf.side] == leaf {
		w.shown[leaf.side] = nil
		if rest := w.leaves[leaf.side]; len(rest) > 0 {
			w.shown[leaf.side] = rest[min(idx, len(rest)-1)]
		}
	}
	if w.lastFile == leaf {
		w.lastFile = nil
	}
	activeChanged := w.active == leaf
	if activeChanged {
		w.active = nil
	}
	w.mu.Unlock()

	if err := leaf.view.OnClose(); err != nil {
		w.logger.Warn("workspace: close view", "type", leaf.view.ViewType(), "err", err)
	}
	if activeChanged {
		w.fireActiveLeafChange(nil)
	}
}

// RevealLeaf makes the leaf the shown tab of its side, expands the side if
// collapsed, and sizes its view.
func (w *Workspace) RevealLeaf(leaf *Leaf) {
	w.mu.Lock()
	if !w.attachedLocked(leaf) {
		w.mu.Unlock()
		return
	}
	w.shown[leaf.side] = leaf
	w.collapsed[leaf.side] = false
	sz := w.sizes[leaf.side]
	w.mu.Unlock()

	leaf.view.Resize(sz.width, sz.height)
}

// SetActiveLeaf moves focus to leaf and notifies listeners.
func (w *Workspace) SetActiveLeaf(leaf *Leaf) {
	w.setActive(leaf, false)
}

// setActive with force re-announces a leaf whose view was just replaced.
func (w *Workspace) setActive(leaf *Leaf, force bool) {
	w.mu.Lock()
	if leaf != nil && !w.attachedLocked(leaf) {
		w.mu.Unlock()
		return
	}
	prev := w.active
	if prev == leaf && !force {
		w.mu.Unlock()
		return
	}
	w.active = leaf
	if leaf != nil {
		w.shown[leaf.side] = leaf
		if _, ok := leaf.view.(FileView); ok {
			w.lastFile = leaf
		}
	}
	w.mu.Unlock()

	if prev != nil && prev != leaf {
		prev.view.SetFocused(false)
	}
	if leaf != nil {
		leaf.view.SetFocused(true)
	}
	w.fireActiveLeafChange(leaf)
}

// ActiveLeaf returns the focused leaf, or nil.
func (w *Workspace) ActiveLeaf() *Leaf {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// ShownLeaf returns the visible tab of side, or nil.
func (w *Workspace) ShownLeaf(side Side) *Leaf {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shown[side]
}

// Leaves returns the leaves of side in tab order.
func (w *Workspace) Leaves(side Side) []*Leaf {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Leaf(nil), w.leaves[side]...)
}

// OpenFile shows f in the main area, reusing the shown main leaf, and
// focuses it.
func (w *Workspace) OpenFile(f vault.File, viewType string) error {
	leaf := w.GetMainLeaf(false)
	if err := w.SetViewState(leaf, ViewState{Type: viewType, File: f.Path, Active: true}); err != nil {
		return err
	}
	w.RevealLeaf(leaf)
	w.fireFileOpen(f)
	return nil
}

// ActiveFile returns the note of the most recently focused file view. A
// focused sidebar does not clear it.
func (w *Workspace) ActiveFile() (vault.File, bool) {
	w.mu.Lock()
	leaf := w.lastFile
	w.mu.Unlock()
	if leaf == nil {
		return vault.File{}, false
	}
	fv, ok := leaf.view.(FileView)
	if !ok {
		return vault.File{}, false
	}
	return fv.File()
}

// ActiveEditor returns the editor of the most recently focused file view.
func (w *Workspace) ActiveEditor() (*Editor, bool) {
	w.mu.Lock()
	leaf := w.lastFile
	w.mu.Unlock()
	if leaf == nil {
		return nil, false
	}
	ev, ok := leaf.view.(EditorView)
	if !ok {
		return nil, false
	}
	ed := ev.Editor()
	return ed, ed != nil
}

// SetSideSize records the area available to side and resizes its shown
// view.
func (w *Workspace) SetSideSize(side Side, width, height int) {
	w.mu.Lock()
	prev := w.sizes[side]
	w.sizes[side] = size{width, height}
	leaf := w.shown[side]
	w.mu.Unlock()

	if leaf != nil && (prev.width != width || prev.height != height) {
		leaf.view.Resize(width, height)
	}
}

// SideSize returns the area last recorded for side.
func (w *Workspace) SideSize(side Side) (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sz := w.sizes[side]
	return sz.width, sz.height
}

// Collapsed reports whether side is hidden.
func (w *Workspace) Collapsed(side Side) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collapsed[side]
}

// SetCollapsed hides or shows a sidebar. The main area cannot collapse.
func (w *Workspace) SetCollapsed(side Side, collapsed bool) {
	if side == SideMain {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.collapsed[side] = collapsed
}

// FocusNext moves focus to the next visible leaf; delta -1 goes back.
func (w *Workspace) FocusNext(delta int) {
	w.mu.Lock()
	var visible []*Leaf
	for _, side := range Sides {
		if w.collapsed[side] {
			continue
		}
		if l := w.shown[side]; l != nil {
			visible = append(visible, l)
		}
	}
	cur := -1
	for i, l := range visible {
		if l == w.active {
			cur = i
		}
	}
	w.mu.Unlock()

	if len(visible) == 0 {
		return
	}
	next := (cur + delta + len(visible)) % len(visible)
	if cur < 0 {
		next = 0
	}
	w.SetActiveLeaf(visible[next])
}

func (w *Workspace) attachedLocked(leaf *Leaf) bool {
	if leaf == nil {
		return false
	}
	for _, l := range w.leaves[leaf.side] {
		if l == leaf {
			return true
		}
	}
	return false
}

func sortedIDs[T any](m map[int]T) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
