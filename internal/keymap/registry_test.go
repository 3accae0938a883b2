package keymap

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestHotkeyResolve(t *testing.T) {
	tests := []struct {
		name string
		hk   Hotkey
		mod  string
		want string
	}{
		{"mod digit", Hotkey{Modifiers: []string{ModKey}, Key: "0"}, "", "alt+0"},
		{"mod quote", Hotkey{Modifiers: []string{ModKey}, Key: "'"}, "alt", "alt+'"},
		{"mod as ctrl", Hotkey{Modifiers: []string{ModKey}, Key: "="}, "ctrl", "ctrl+="},
		{"ordering", Hotkey{Modifiers: []string{ModShift, ModCtrl, ModAlt}, Key: "Up"}, "", "alt+ctrl+shift+up"},
		{"no modifiers", Hotkey{Key: "x"}, "", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hk.Resolve(tt.mod); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHotkeyString(t *testing.T) {
	hk := Hotkey{Modifiers: []string{ModKey}, Key: "0"}
	if got := hk.String(); got != "Mod+0" {
		t.Errorf("String() = %q, want Mod+0", got)
	}
}

func TestLookup_ContextFallsBackToGlobal(t *testing.T) {
	r := NewRegistry("")
	RegisterDefaults(r)

	if cmd, ok := r.Lookup("ctrl+c", "file-explorer"); !ok || cmd != CmdQuit {
		t.Errorf("Lookup(ctrl+c) = %q, %v", cmd, ok)
	}
	if cmd, ok := r.Lookup("j", "file-explorer"); !ok || cmd != "cursor-down" {
		t.Errorf("Lookup(j, explorer) = %q, %v", cmd, ok)
	}
	if _, ok := r.Lookup("j", "bmo-chatbot"); ok {
		t.Error("j should not be bound in the chat context")
	}
}

func TestRegisterHotkeyAndHandle(t *testing.T) {
	r := NewRegistry("alt")
	key := r.RegisterHotkey(Hotkey{Modifiers: []string{ModKey}, Key: "0"}, "bmo:open-bmo-chatbot")
	if key != "alt+0" {
		t.Fatalf("key = %q", key)
	}

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'0'}, Alt: true}
	cmd, ok := r.Handle(msg, "markdown")
	if !ok || cmd != "bmo:open-bmo-chatbot" {
		t.Errorf("Handle = %q, %v", cmd, ok)
	}

	r.UnregisterCommand("bmo:open-bmo-chatbot")
	if _, ok := r.Handle(msg, "markdown"); ok {
		t.Error("binding survived UnregisterCommand")
	}
}

func TestUserOverrides(t *testing.T) {
	r := NewRegistry("")
	r.RegisterHotkey(Hotkey{Modifiers: []string{ModKey}, Key: "0"}, "bmo:open-bmo-chatbot")
	r.SetUserOverrides(map[string]string{"bmo:open-bmo-chatbot": "alt+o"})

	if _, ok := r.Lookup("alt+0", GlobalContext); ok {
		t.Error("default key should be disabled by override")
	}
	if cmd, ok := r.Lookup("alt+o", GlobalContext); !ok || cmd != "bmo:open-bmo-chatbot" {
		t.Errorf("Lookup(alt+o) = %q, %v", cmd, ok)
	}
	if got := r.KeyFor("bmo:open-bmo-chatbot"); got != "alt+o" {
		t.Errorf("KeyFor = %q", got)
	}
}

func TestBindingsForContext(t *testing.T) {
	r := NewRegistry("")
	RegisterDefaults(r)
	for _, b := range r.BindingsForContext("markdown") {
		if b.Context != "markdown" && b.Context != GlobalContext {
			t.Errorf("unexpected binding %+v", b)
		}
	}
}
