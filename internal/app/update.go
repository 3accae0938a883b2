package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/mouse"
	appmsg "github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/palette"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/plugins/notes"
	"github.com/marcus/bmo/internal/state"
	"github.com/marcus/bmo/internal/styles"
	"github.com/marcus/bmo/internal/workspace"
)

// Mouse regions registered by View.
const (
	regionRibbon       = "ribbon"
	regionDividerLeft  = "divider-left"
	regionDividerRight = "divider-right"
	regionFileMenuItem = "file-menu-item"
)

// Update handles all messages and routes them to the focused view or the
// open modal.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m.updateContext()
	m.resizeSides()
	return m, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.palette.SetSize(msg.Width, msg.Height)
		return m, nil

	case appmsg.NoticeMsg:
		m.noticeSeq++
		m.notice = msg.Message
		m.noticeIsError = msg.IsError
		if msg.IsError {
			m.logger.Warn("notice", "message", msg.Message)
		}
		return m, expireNotice(m.noticeSeq, msg.Duration)

	case appmsg.NoticeExpiredMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
			m.noticeIsError = false
		}
		return m, nil

	case hostCommandMsg:
		return m.runHostCommand(msg.ID)

	case plugin.ExecuteCommandMsg:
		return m, m.execute(msg.ID)

	case palette.CommandSelectedMsg:
		m.showPalette = false
		if msg.Layer == palette.LayerCurrentMode {
			return m, m.sendAction(msg.CommandID)
		}
		return m, m.execute(msg.CommandID)

	case palette.ClosedMsg:
		m.showPalette = false
		return m, nil

	case notes.OpenNoteMsg:
		if err := m.ws.OpenFile(msg.File, notes.ViewType); err != nil {
			return m, appmsg.ShowError(fmt.Sprintf("Open %s: %v", msg.File.Path, err))
		}
		state.SetLastOpenNote(msg.File.Path)
		return m, nil

	case workspace.FileMenuMsg:
		return m.openFileMenu(msg)

	case vaultEventMsg:
		return m, tea.Batch(m.broadcast(msg.Event), waitForVaultEvent(m.events))

	case watchClosedMsg:
		m.events = nil
		return m, nil
	}

	// Stream chunks, spinner ticks and editor results are addressed to a
	// specific view; the others ignore them.
	return m, m.broadcast(msg)
}

// handleKeyMsg routes keys: open modal first, then key bindings for the
// focused context, then the focused view.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()

	if id, ok := m.keymap.Lookup(key, keymap.GlobalContext); ok && id == keymap.CmdQuit && !m.showQuitConfirm {
		m.showQuitConfirm = true
		return m, nil
	}

	switch m.activeModal() {
	case ModalQuitConfirm:
		switch key {
		case "y", "Y", "enter", "ctrl+c":
			return m, m.shutdown()
		case "n", "N", "esc", "q":
			m.showQuitConfirm = false
		}
		return m, nil

	case ModalPalette:
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd

	case ModalFileMenu:
		return m.handleFileMenuKey(key)

	case ModalSettings:
		return m.handleSettingsKey(msg)
	}

	leaf := m.activeLeaf()
	if consumesText(leaf) && isTextKey(msg) {
		return m, leaf.View().Update(msg)
	}

	if id, ok := m.keymap.Lookup(key, m.activeContext); ok {
		if _, registered := m.host.Commands.Get(id); registered {
			return m, m.execute(id)
		}
		return m, m.sendAction(id)
	}

	if leaf != nil {
		return m, leaf.View().Update(msg)
	}
	return m, nil
}

// isTextKey reports whether msg types a character.
func isTextKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyRunes:
		return !msg.Alt
	case tea.KeySpace:
		return true
	}
	return false
}

// execute runs a registered command by full ID.
func (m Model) execute(id string) tea.Cmd {
	cmd, err := m.host.Commands.Execute(id)
	if err != nil {
		m.logger.Warn("execute command", "id", id, "err", err)
		return appmsg.ShowError(err.Error())
	}
	return cmd
}

// sendAction delivers a context-local action to the focused view.
func (m Model) sendAction(action string) tea.Cmd {
	leaf := m.activeLeaf()
	if leaf == nil {
		return nil
	}
	return leaf.View().Update(workspace.ActionMsg{Action: action})
}

// broadcast delivers msg to every leaf.
func (m Model) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for _, side := range workspace.Sides {
		for _, leaf := range m.ws.Leaves(side) {
			cmds = append(cmds, leaf.View().Update(msg))
		}
	}
	return tea.Batch(cmds...)
}

// runHostCommand executes one of the host's own commands.
func (m Model) runHostCommand(id string) (Model, tea.Cmd) {
	switch id {
	case keymap.CmdTogglePalette:
		if m.showPalette {
			m.showPalette = false
			return m, nil
		}
		m.palette.SetSize(m.width, m.height)
		m.showPalette = true
		return m, m.palette.Open(m.activeContext, "")

	case keymap.CmdOpenSettings:
		tabs := m.settingTabs()
		if len(tabs) == 0 {
			return m, appmsg.ShowNotice("No settings available", appmsg.DefaultNoticeDuration)
		}
		m.settingsTab = min(m.settingsTab, len(tabs)-1)
		tabs[m.settingsTab].Display()
		m.showSettings = true
		return m, nil

	case keymap.CmdFocusNext:
		m.ws.FocusNext(1)
	case keymap.CmdFocusPrev:
		m.ws.FocusNext(-1)

	case keymap.CmdToggleLeftSidebar:
		m.toggleSide(workspace.SideLeft)
	case keymap.CmdToggleRightSidebar:
		m.toggleSide(workspace.SideRight)

	case keymap.CmdCloseLeaf:
		if leaf := m.activeLeaf(); leaf != nil {
			m.ws.Detach(leaf)
			m.ws.FocusNext(1)
		}

	case keymap.CmdCycleTheme:
		name := nextTheme(styles.ListThemes(), styles.CurrentThemeName())
		styles.ApplyTheme(name)
		state.SetTheme(name)
		return m, appmsg.ShowNotice("Theme: "+name, appmsg.DefaultNoticeDuration)

	case keymap.CmdQuit:
		m.showQuitConfirm = true
	}
	return m, nil
}

// toggleSide collapses or expands a sidebar, moving focus out of it when
// it collapses.
func (m Model) toggleSide(side workspace.Side) {
	collapse := !m.ws.Collapsed(side)
	m.ws.SetCollapsed(side, collapse)
	if !collapse {
		return
	}
	if leaf := m.activeLeaf(); leaf != nil && leaf.Side() == side {
		if main := m.ws.ShownLeaf(workspace.SideMain); main != nil {
			m.ws.SetActiveLeaf(main)
		} else {
			m.ws.FocusNext(1)
		}
	}
}

func nextTheme(names []string, current string) string {
	if len(names) == 0 {
		return current
	}
	for i, n := range names {
		if n == current {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

// shutdown persists the layout, unloads plugins so they save their data,
// and quits.
func (m Model) shutdown() tea.Cmd {
	state.SetCollapsed(m.ws.Collapsed(workspace.SideLeft), m.ws.Collapsed(workspace.SideRight))
	if f, ok := m.ws.ActiveFile(); ok {
		state.SetLastOpenNote(f.Path)
	}
	if m.stopWatch != nil {
		m.stopWatch()
	}
	m.manager.UnloadAll()
	if err := state.Save(); err != nil {
		m.logger.Error("save workspace state", "err", err)
	}
	return tea.Quit
}

// handleSettingsKey drives the settings modal. While a field is being
// edited every key goes to the tab.
func (m Model) handleSettingsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	tabs := m.settingTabs()
	if len(tabs) == 0 {
		m.showSettings = false
		return m, nil
	}
	m.settingsTab = min(m.settingsTab, len(tabs)-1)
	tab := tabs[m.settingsTab]

	if !tabEditing(tab) {
		switch msg.String() {
		case "esc", "q":
			tab.Hide()
			m.showSettings = false
			return m, nil
		case "[", "]":
			tab.Hide()
			delta := 1
			if msg.String() == "[" {
				delta = -1
			}
			m.settingsTab = (m.settingsTab + delta + len(tabs)) % len(tabs)
			tabs[m.settingsTab].Display()
			return m, nil
		}
	}
	return m, tab.Update(msg)
}

func tabEditing(tab plugin.SettingTab) bool {
	e, ok := tab.(interface{ Editing() bool })
	return ok && e.Editing()
}

// openFileMenu shows the context menu of a note at the position the view
// asked for.
func (m Model) openFileMenu(msg workspace.FileMenuMsg) (Model, tea.Cmd) {
	items := m.ws.BuildFileMenu(msg.File).Items()
	if len(items) == 0 {
		return m, appmsg.ShowNotice("No actions for "+msg.File.Name(), appmsg.DefaultNoticeDuration)
	}
	x, y := msg.X, msg.Y
	if leaf := m.activeLeaf(); leaf != nil {
		if r, ok := m.computeLayout().content(leaf.Side()); ok {
			x += r.X
			y += r.Y
		}
	}
	m.fileMenu = &fileMenu{file: msg.File, items: items, x: x, y: y}
	return m, nil
}

func (m Model) handleFileMenuKey(key string) (Model, tea.Cmd) {
	fm := m.fileMenu
	switch key {
	case "esc", "q", "m":
		m.fileMenu = nil
	case "up", "k":
		if fm.cursor > 0 {
			fm.cursor--
		}
	case "down", "j":
		if fm.cursor < len(fm.items)-1 {
			fm.cursor++
		}
	case "enter":
		m.fileMenu = nil
		return m, fm.items[fm.cursor].Click()
	}
	return m, nil
}

// handleMouseMsg routes mouse events to the open overlay, the layout
// chrome, or the pane under the pointer.
func (m Model) handleMouseMsg(msg tea.MouseMsg) (Model, tea.Cmd) {
	switch m.activeModal() {
	case ModalPalette:
		local := msg
		local.X -= m.frame.paletteX
		local.Y -= m.frame.paletteY
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(local)
		return m, cmd
	case ModalFileMenu:
		return m.handleFileMenuMouse(msg)
	case ModalQuitConfirm, ModalSettings:
		return m, nil
	}

	action := m.mouseHandler.HandleMouse(msg)
	switch action.Type {
	case mouse.ActionDrag:
		m.dragDivider(action.X)
		return m, nil
	case mouse.ActionDragEnd:
		return m, nil
	case mouse.ActionHover:
		m.ribbonHover = -1
		if action.Region != nil && action.Region.ID == regionRibbon {
			m.ribbonHover, _ = action.Region.Data.(int)
		}
		return m, nil
	}

	if action.Region != nil && msg.Action == tea.MouseActionPress {
		switch action.Region.ID {
		case regionRibbon:
			if msg.Button != tea.MouseButtonLeft {
				return m, nil
			}
			idx, _ := action.Region.Data.(int)
			icons := m.host.Ribbon.Icons()
			if idx < len(icons) && icons[idx].OnClick != nil {
				return m, icons[idx].OnClick()
			}
			return m, nil
		case regionDividerLeft:
			m.mouseHandler.StartDrag(msg.X, msg.Y, regionDividerLeft, state.GetLeftSidebarWidth())
			return m, nil
		case regionDividerRight:
			m.mouseHandler.StartDrag(msg.X, msg.Y, regionDividerRight, state.GetRightSidebarWidth())
			return m, nil
		}
	}

	return m, m.forwardMouse(msg)
}

// forwardMouse focuses the pane under the pointer on press and hands the
// event to its view in view-relative coordinates.
func (m Model) forwardMouse(msg tea.MouseMsg) tea.Cmd {
	l := m.computeLayout()
	side, ok := l.paneAt(msg.X, msg.Y)
	if !ok {
		return nil
	}
	leaf := m.ws.ShownLeaf(side)
	if leaf == nil {
		return nil
	}
	if msg.Action == tea.MouseActionPress && !msg.IsWheel() && leaf != m.activeLeaf() {
		m.ws.SetActiveLeaf(leaf)
	}
	r, _ := l.content(side)
	if msg.Y < r.Y {
		return nil
	}
	local := msg
	local.X -= r.X
	local.Y -= r.Y
	return leaf.View().Update(local)
}

func (m Model) handleFileMenuMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	action := m.mouseHandler.HandleMouse(msg)
	fm := m.fileMenu
	switch action.Type {
	case mouse.ActionScrollUp:
		fm.cursor = max(0, fm.cursor-1)
		return m, nil
	case mouse.ActionScrollDown:
		fm.cursor = min(len(fm.items)-1, fm.cursor+1)
		return m, nil
	}
	if action.Region != nil && action.Region.ID == regionFileMenuItem {
		idx, _ := action.Region.Data.(int)
		m.fileMenu = nil
		if idx < len(fm.items) {
			return m, fm.items[idx].Click()
		}
		return m, nil
	}
	// A press outside the menu dismisses it.
	m.fileMenu = nil
	return m, nil
}
