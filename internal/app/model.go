package app

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/mouse"
	"github.com/marcus/bmo/internal/palette"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/plugins/notes"
	"github.com/marcus/bmo/internal/state"
	"github.com/marcus/bmo/internal/styles"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

// ModalKind identifies an app-level modal with explicit priority ordering.
// Lower values = higher priority (checked first for rendering and input routing).
type ModalKind int

const (
	ModalNone        ModalKind = iota // No modal open
	ModalQuitConfirm                  // Quit confirmation (highest priority)
	ModalPalette                      // Command palette
	ModalFileMenu                     // File context menu
	ModalSettings                     // Plugin settings (lowest priority)
)

// activeModal returns the highest-priority open modal.
func (m *Model) activeModal() ModalKind {
	switch {
	case m.showQuitConfirm:
		return ModalQuitConfirm
	case m.showPalette:
		return ModalPalette
	case m.fileMenu != nil:
		return ModalFileMenu
	case m.showSettings:
		return ModalSettings
	default:
		return ModalNone
	}
}

// DefaultWatchDebounce coalesces bursts of file system events.
const DefaultWatchDebounce = 150 * time.Millisecond

// Options configures the root model.
type Options struct {
	Version string

	// Watch starts the vault watcher; WatchDebounce defaults to
	// DefaultWatchDebounce.
	Watch         bool
	WatchDebounce time.Duration
}

// fileMenu is an open context menu for a note.
type fileMenu struct {
	file   vault.File
	items  []*workspace.MenuItem
	cursor int
	x, y   int // requested screen position
}

// frame records where the last render placed the palette, so mouse events
// can be translated into its coordinates.
type frame struct {
	paletteX, paletteY int
}

// Model is the root Bubble Tea model of the host window.
type Model struct {
	manager *plugin.Manager
	host    *plugin.Host
	ws      *workspace.Workspace
	keymap  *keymap.Registry
	logger  *slog.Logger
	version string

	activeContext string

	// Modals
	showQuitConfirm bool
	showPalette     bool
	showSettings    bool
	palette         palette.Model
	settingsTab     int
	fileMenu        *fileMenu

	// Status bar notice
	notice        string
	noticeIsError bool
	noticeSeq     int

	// Mouse
	mouseHandler *mouse.Handler
	frame        *frame
	ribbonHover  int

	// Vault watcher
	events    <-chan vault.Event
	stopWatch context.CancelFunc

	width, height int
	ready         bool
}

// New builds the root model over a manager whose plugins are already
// loaded. It registers the host commands, restores the saved layout and
// reopens the last note.
func New(manager *plugin.Manager, opts Options) (Model, error) {
	host := manager.Host()
	if err := registerHostCommands(host.Commands); err != nil {
		return Model{}, err
	}

	m := Model{
		manager:       manager,
		host:          host,
		ws:            host.Workspace,
		keymap:        host.Keymap,
		logger:        host.Logger,
		version:       opts.Version,
		activeContext: keymap.GlobalContext,
		palette:       palette.New(host.Commands, host.Keymap),
		mouseHandler:  mouse.NewHandler(),
		frame:         &frame{},
		ribbonHover:   -1,
	}

	if name := state.GetTheme(); name != "" {
		styles.ApplyTheme(name)
	}
	saved := state.Get()
	m.ws.SetCollapsed(workspace.SideLeft, saved.LeftCollapsed)
	m.ws.SetCollapsed(workspace.SideRight, saved.RightCollapsed)
	m.restoreLastNote(saved.LastOpenNote)
	if m.ws.ActiveLeaf() == nil {
		m.ws.FocusNext(1)
	}

	if opts.Watch {
		debounce := opts.WatchDebounce
		if debounce <= 0 {
			debounce = DefaultWatchDebounce
		}
		ctx, cancel := context.WithCancel(context.Background())
		events, err := host.Vault.Watch(ctx, debounce)
		if err != nil {
			cancel()
			m.logger.Warn("vault watcher unavailable", "err", err)
		} else {
			m.events, m.stopWatch = events, cancel
		}
	}

	m.updateContext()
	return m, nil
}

func (m *Model) restoreLastNote(p string) {
	if p == "" {
		return
	}
	f, err := m.host.Vault.File(p)
	if err != nil {
		m.logger.Debug("last note not restored", "path", p, "err", err)
		return
	}
	if err := m.ws.OpenFile(f, notes.ViewType); err != nil {
		m.logger.Warn("reopen last note", "path", p, "err", err)
	}
}

// Init starts listening for vault changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("BMO"),
		waitForVaultEvent(m.events),
	)
}

// Workspace returns the workspace the model renders.
func (m Model) Workspace() *workspace.Workspace { return m.ws }

// ActiveContext returns the keymap context of the focused view.
func (m Model) ActiveContext() string { return m.activeContext }

// Notice returns the status bar notice, or "".
func (m Model) Notice() string { return m.notice }

// activeLeaf returns the focused leaf, or nil.
func (m Model) activeLeaf() *workspace.Leaf { return m.ws.ActiveLeaf() }

// updateContext tracks the keymap context of the focused view.
func (m *Model) updateContext() {
	m.activeContext = keymap.GlobalContext
	leaf := m.ws.ActiveLeaf()
	if leaf == nil {
		return
	}
	if fc, ok := leaf.View().(workspace.FocusContexter); ok {
		if ctx := fc.FocusContext(); ctx != "" {
			m.activeContext = ctx
		}
	}
}

// consumesText reports whether the focused view wants printable keys as
// typed text.
func consumesText(leaf *workspace.Leaf) bool {
	if leaf == nil {
		return false
	}
	tc, ok := leaf.View().(workspace.TextInputConsumer)
	return ok && tc.ConsumesTextInput()
}

// sideVisible reports whether side has a shown leaf and is not collapsed.
func (m Model) sideVisible(side workspace.Side) bool {
	return m.ws.ShownLeaf(side) != nil && !m.ws.Collapsed(side)
}

// settingTabs returns the registered plugin setting pages.
func (m Model) settingTabs() []plugin.SettingTab {
	return m.host.SettingTabs.All()
}
