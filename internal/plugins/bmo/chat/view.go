// Package chat is the chatbot panel: a transcript, an input box and the
// slash commands that drive it.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
	"github.com/marcus/bmo/internal/plugins/bmo/history"
	"github.com/marcus/bmo/internal/styles"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

const (
	// ViewType is the view type the chat panel is registered under.
	ViewType = "bmo-chatbot"

	// FocusContext is the keymap context while the panel has focus.
	FocusContext = "bmo-chat"

	inputHeight = 3
)

// Sender performs one model round trip. onDelta receives streamed chunks
// when the backend streams.
type Sender interface {
	Send(ctx context.Context, s *config.Settings, messages []llm.Message, onDelta func(string)) (string, error)
}

// Deps are the collaborators of a chat panel.
type Deps struct {
	Settings     *config.Store
	SaveSettings func() error
	Sender       Sender
	Vault        *vault.Vault
	History      *history.Store // nil disables transcript mirroring
	Clipboard    func(string) error
	Logger       *slog.Logger
}

type keyMap struct {
	Send     key.Binding
	Newline  key.Binding
	Stop     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

var keys = keyMap{
	Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Newline:  key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
	Stop:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
}

// View is the chat panel of one leaf.
type View struct {
	id     workspace.LeafID
	deps   Deps
	logger *slog.Logger

	settings    atomic.Pointer[config.Settings]
	unsubscribe func()

	input   textarea.Model
	vp      viewport.Model
	spin    spinner.Model
	focused bool
	visible bool // input is hidden until the panel is activated
	width   int
	height  int

	renderer      *glamour.TermRenderer
	rendererWidth int
	cache         map[renderKey]string
	dirty         bool

	entries []entry
	partial string

	ctx       context.Context
	cancelAll context.CancelFunc
	cancelReq context.CancelFunc
	reqID     int
	pending   bool

	refFile vault.File
	session string

	mounted     chan struct{}
	mountOnce   sync.Once
	cleanupOnce sync.Once
}

// New returns the chat panel for leaf.
func New(leaf *workspace.Leaf, deps Deps) *View {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ta := textarea.New()
	ta.Placeholder = "Message… (/help for commands)"
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.KeyMap.InsertNewline = keys.Newline
	ta.SetHeight(inputHeight)
	ta.Blur()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		id:        leaf.ID(),
		deps:      deps,
		logger:    logger.With("view", ViewType),
		input:     ta,
		vp:        viewport.New(0, 0),
		spin:      sp,
		cache:     make(map[renderKey]string),
		dirty:     true,
		ctx:       ctx,
		cancelAll: cancel,
		mounted:   make(chan struct{}),
	}
	v.settings.Store(deps.Settings.Snapshot())
	v.unsubscribe = deps.Settings.Subscribe(func(s *config.Settings) {
		v.settings.Store(s)
	})
	return v
}

var (
	_ workspace.View              = (*View)(nil)
	_ workspace.FocusContexter    = (*View)(nil)
	_ workspace.TextInputConsumer = (*View)(nil)
)

func (v *View) ViewType() string { return ViewType }

func (v *View) DisplayText() string {
	return v.current().ChatbotName + " Chatbot"
}

func (v *View) Icon() string { return "bot" }

func (v *View) OnOpen() error { return nil }

// OnClose releases the panel when its leaf is detached.
func (v *View) OnClose() error {
	v.Cleanup()
	return nil
}

func (v *View) FocusContext() string { return FocusContext }

// ConsumesTextInput reports whether typed keys belong to the input box.
func (v *View) ConsumesTextInput() bool { return v.focused && v.visible }

func (v *View) SetFocused(focused bool) {
	v.focused = focused
	if focused && v.visible {
		v.input.Focus()
		return
	}
	v.input.Blur()
}

// Resize lays the panel out. The first non-empty size marks it mounted.
func (v *View) Resize(width, height int) {
	if width == v.width && height == v.height {
		return
	}
	v.width, v.height = width, height
	v.input.SetWidth(max(width-2, 1))
	v.vp.Width = max(width, 1)
	v.vp.Height = max(height-v.chromeHeight(), 1)
	v.dirty = true
	if width > 0 && height > 0 {
		v.mountOnce.Do(func() { close(v.mounted) })
	}
}

// Mounted is closed once the input exists and the panel has been sized.
func (v *View) Mounted() <-chan struct{} { return v.mounted }

// FocusInput shows the input box and gives it focus.
func (v *View) FocusInput() tea.Cmd {
	v.visible = true
	v.focused = true
	return v.input.Focus()
}

// ScrollToBottom moves the transcript to its last line.
func (v *View) ScrollToBottom() {
	v.refresh()
	v.vp.GotoBottom()
}

// SetReferencedFile records the note "current note" refers to.
func (v *View) SetReferencedFile(f vault.File, ok bool) {
	if !ok {
		f = vault.File{}
	}
	if f != v.refFile {
		v.refFile = f
		v.dirty = true
	}
}

// Cleanup aborts any in-flight request and drops the settings
// subscription. It is safe to call more than once.
func (v *View) Cleanup() {
	v.cleanupOnce.Do(func() {
		v.cancelAll()
		v.unsubscribe()
		v.pending = false
		v.logger.Debug("chat: cleanup", "leaf", v.id)
	})
}

// Transcript returns the conversation shown in the panel.
func (v *View) Transcript() []llm.Message {
	out := make([]llm.Message, 0, len(v.entries))
	for _, e := range v.entries {
		if e.kind == entryMessage {
			out = append(out, e.msg)
		}
	}
	return out
}

// Pending reports whether a request is in flight.
func (v *View) Pending() bool { return v.pending }

func (v *View) current() *config.Settings { return v.settings.Load() }

func (v *View) chromeHeight() int {
	h := inputHeight + 1 // input plus status line
	if v.current().AllowHeader {
		h++
	}
	return h
}
