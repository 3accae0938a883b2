package keymap

import (
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// GlobalContext bindings apply whenever no context-specific binding matches.
const GlobalContext = "global"

// Binding maps a key in a context to a command ID.
type Binding struct {
	Key     string
	Command string
	Context string
}

// Registry resolves keys to command IDs per focus context. User overrides
// rebind a command to a different key and disable its default keys.
type Registry struct {
	mu        sync.RWMutex
	mod       string
	bindings  []Binding
	overrides map[string]string // command -> key
}

// NewRegistry returns an empty registry. mod is the key ModKey resolves to.
func NewRegistry(mod string) *Registry {
	if mod == "" {
		mod = DefaultMod
	}
	return &Registry{
		mod:       mod,
		overrides: make(map[string]string),
	}
}

// Mod returns the key ModKey resolves to.
func (r *Registry) Mod() string {
	return r.mod
}

// RegisterBinding adds a binding. Duplicate key/context pairs keep the
// most recent registration.
func (r *Registry) RegisterBinding(b Binding) {
	if b.Context == "" {
		b.Context = GlobalContext
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.bindings {
		if existing.Key == b.Key && existing.Context == b.Context {
			r.bindings[i] = b
			return
		}
	}
	r.bindings = append(r.bindings, b)
}

// RegisterHotkey binds a plugin hotkey to command in the global context and
// returns the resolved key string.
func (r *Registry) RegisterHotkey(h Hotkey, command string) string {
	key := h.Resolve(r.mod)
	r.RegisterBinding(Binding{Key: key, Command: command, Context: GlobalContext})
	return key
}

// UnregisterCommand removes every binding for command.
func (r *Registry) UnregisterCommand(command string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.bindings[:0]
	for _, b := range r.bindings {
		if b.Command != command {
			kept = append(kept, b)
		}
	}
	r.bindings = kept
}

// SetUserOverrides replaces the command -> key override table.
func (r *Registry) SetUserOverrides(overrides map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = make(map[string]string, len(overrides))
	for cmd, key := range overrides {
		r.overrides[cmd] = key
	}
}

// Lookup returns the command bound to key in context, falling back to the
// global context.
func (r *Registry) Lookup(key, context string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for cmd, k := range r.overrides {
		if k == key && r.hasCommandLocked(cmd, context) {
			return cmd, true
		}
	}
	if cmd, ok := r.lookupLocked(key, context); ok {
		return cmd, true
	}
	if context != GlobalContext {
		return r.lookupLocked(key, GlobalContext)
	}
	return "", false
}

func (r *Registry) lookupLocked(key, context string) (string, bool) {
	for _, b := range r.bindings {
		if b.Key != key || b.Context != context {
			continue
		}
		if _, overridden := r.overrides[b.Command]; overridden {
			continue
		}
		return b.Command, true
	}
	return "", false
}

func (r *Registry) hasCommandLocked(cmd, context string) bool {
	for _, b := range r.bindings {
		if b.Command == cmd && (b.Context == context || b.Context == GlobalContext) {
			return true
		}
	}
	return false
}

// Handle resolves a key message in context.
func (r *Registry) Handle(msg tea.KeyMsg, context string) (string, bool) {
	return r.Lookup(msg.String(), context)
}

// KeyFor returns the effective key for command, preferring a user override.
func (r *Registry) KeyFor(command string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k, ok := r.overrides[command]; ok {
		return k
	}
	for _, b := range r.bindings {
		if b.Command == command {
			return b.Key
		}
	}
	return ""
}

// BindingsForContext returns the bindings active in context, including the
// global ones, sorted by key.
func (r *Registry) BindingsForContext(context string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Binding
	for _, b := range r.bindings {
		if b.Context != context && b.Context != GlobalContext {
			continue
		}
		if k, ok := r.overrides[b.Command]; ok {
			b.Key = k
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
