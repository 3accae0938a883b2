package keymap

import (
	"strings"
)

// Modifier names accepted in Hotkey.Modifiers. ModKey is the platform
// "primary" modifier and is resolved by the registry.
const (
	ModKey   = "Mod"
	ModCtrl  = "Ctrl"
	ModAlt   = "Alt"
	ModShift = "Shift"
)

// DefaultMod is the key ModKey resolves to. Terminals cannot deliver
// ctrl+digit, so alt is the only modifier that reaches the program for the
// default chatbot hotkeys.
const DefaultMod = "alt"

// Hotkey is a plugin-facing key combination, e.g. {Mod}+0.
type Hotkey struct {
	Modifiers []string
	Key       string
}

// Resolve converts the hotkey to the key string Bubble Tea reports for it,
// with ModKey mapped to mod. The result uses Bubble Tea's ordering: alt
// first, then ctrl, then shift.
func (h Hotkey) Resolve(mod string) string {
	if mod == "" {
		mod = DefaultMod
	}
	var alt, ctrl, shift bool
	for _, m := range h.Modifiers {
		name := m
		if m == ModKey {
			name = mod
		}
		switch strings.ToLower(name) {
		case "alt", "option", "meta":
			alt = true
		case "ctrl", "control", "cmd":
			ctrl = true
		case "shift":
			shift = true
		}
	}

	key := strings.ToLower(h.Key)
	if len([]rune(h.Key)) == 1 {
		key = h.Key
	}

	var b strings.Builder
	if alt {
		b.WriteString("alt+")
	}
	if ctrl {
		b.WriteString("ctrl+")
	}
	if shift {
		b.WriteString("shift+")
	}
	b.WriteString(key)
	return b.String()
}

// String renders the hotkey for display, e.g. "Mod+0".
func (h Hotkey) String() string {
	parts := append(append([]string{}, h.Modifiers...), h.Key)
	return strings.Join(parts, "+")
}
