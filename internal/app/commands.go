package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
	appmsg "github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/vault"
)

// Message types for tea.Cmd
type (
	// hostCommandMsg runs one of the host's own commands.
	hostCommandMsg struct {
		ID string
	}

	// vaultEventMsg carries a change seen by the vault watcher.
	vaultEventMsg struct {
		Event vault.Event
	}

	// watchClosedMsg reports that the watcher stopped.
	watchClosedMsg struct{}
)

// hostCommands are registered in the command registry so the palette and
// key bindings reach them the same way as plugin commands.
var hostCommands = []struct {
	id   string
	name string
}{
	{keymap.CmdTogglePalette, "Toggle command palette"},
	{keymap.CmdOpenSettings, "Open settings"},
	{keymap.CmdFocusNext, "Focus next pane"},
	{keymap.CmdFocusPrev, "Focus previous pane"},
	{keymap.CmdToggleLeftSidebar, "Toggle left sidebar"},
	{keymap.CmdToggleRightSidebar, "Toggle right sidebar"},
	{keymap.CmdCloseLeaf, "Close pane"},
	{keymap.CmdCycleTheme, "Switch to next theme"},
	{keymap.CmdQuit, "Quit"},
}

func registerHostCommands(c *plugin.Commands) error {
	for _, hc := range hostCommands {
		id := hc.id
		err := c.Add(plugin.Command{
			ID:   id,
			Name: hc.name,
			Callback: func() tea.Cmd {
				return func() tea.Msg { return hostCommandMsg{ID: id} }
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// waitForVaultEvent blocks on the next watcher event.
func waitForVaultEvent(ch <-chan vault.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return vaultEventMsg{Event: ev}
	}
}

// expireNotice clears notice seq after d.
func expireNotice(seq int, d time.Duration) tea.Cmd {
	if d <= 0 {
		d = appmsg.DefaultNoticeDuration
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return appmsg.NoticeExpiredMsg{Seq: seq}
	})
}
