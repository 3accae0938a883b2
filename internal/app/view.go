package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/mouse"
	"github.com/marcus/bmo/internal/styles"
	"github.com/marcus/bmo/internal/ui"
	"github.com/marcus/bmo/internal/workspace"
)

// ribbonGlyphs maps ribbon icon names to single-cell glyphs.
var ribbonGlyphs = map[string]string{
	"bot":    "☻",
	"files":  "≡",
	"search": "⌕",
}

// View renders the host window.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.width < minWidth || m.height < minHeight {
		return fmt.Sprintf("Terminal too small (%dx%d, need %dx%d)", m.width, m.height, minWidth, minHeight)
	}

	m.mouseHandler.Clear()
	l := m.computeLayout()

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderBody(l),
		m.renderFooter(),
	)

	switch m.activeModal() {
	case ModalQuitConfirm:
		return ui.OverlayModal(content, m.renderQuitConfirm(), m.width, m.height)
	case ModalPalette:
		box := m.palette.View()
		m.frame.paletteX, m.frame.paletteY = ui.CenterOrigin(box, m.width, m.height)
		return ui.OverlayModal(content, box, m.width, m.height)
	case ModalFileMenu:
		return m.renderFileMenu(content)
	case ModalSettings:
		if box := m.renderSettings(); box != "" {
			return ui.OverlayModal(content, box, m.width, m.height)
		}
	}
	return content
}

// renderHeader renders the title bar: logo, vault name, active note and
// version.
func (m Model) renderHeader() string {
	left := styles.Logo.Render(" BMO ") + " " + styles.BarText.Render(filepath.Base(m.host.Vault.Root()))
	if f, ok := m.ws.ActiveFile(); ok {
		left += styles.BarText.Render("  " + f.Path)
	}
	right := ""
	if m.version != "" {
		right = styles.Subtle.Render(m.version + " ")
	}
	return joinBar(left, right, m.width)
}

// renderFooter renders key hints for the focused context and the current
// notice.
func (m Model) renderFooter() string {
	var right string
	switch {
	case m.notice != "" && m.noticeIsError:
		right = styles.ToastError.Render(m.notice)
	case m.notice != "":
		right = styles.ToastSuccess.Render(m.notice)
	case m.ribbonHover >= 0:
		if icons := m.host.Ribbon.Icons(); m.ribbonHover < len(icons) {
			right = styles.BarText.Render(icons[m.ribbonHover].Title + " ")
		}
	}
	return joinBar(m.footerHints(), right, m.width)
}

// footerHints lists the focused view's bindings, one key per action,
// followed by the palette key.
func (m Model) footerHints() string {
	var parts []string
	seen := make(map[string]bool)
	if m.activeContext != keymap.GlobalContext {
		for _, b := range m.keymap.BindingsForContext(m.activeContext) {
			if b.Context != m.activeContext || seen[b.Command] {
				continue
			}
			seen[b.Command] = true
			parts = append(parts, hint(b.Key, strings.ReplaceAll(b.Command, "-", " ")))
		}
	}
	if k := m.keymap.KeyFor(keymap.CmdTogglePalette); k != "" {
		parts = append(parts, hint(k, "commands"))
	}
	return " " + strings.Join(parts, " ")
}

func hint(key, label string) string {
	return styles.KeyHint.Render(key) + styles.Muted.Render(" "+label)
}

// joinBar lays out left and right aligned text on one line of width.
func joinBar(left, right string, width int) string {
	rw := ansi.StringWidth(right)
	left = ansi.Truncate(left, max(0, width-rw-1), "…")
	gap := max(0, width-ansi.StringWidth(left)-rw)
	return left + strings.Repeat(" ", gap) + right
}

// renderBody renders the ribbon and the visible panes, registering their
// mouse regions.
func (m Model) renderBody(l layout) string {
	parts := []string{m.renderRibbon(l.ribbon.Y, l.ribbon.H)}
	for _, side := range workspace.Sides {
		r, ok := l.panes[side]
		if !ok {
			continue
		}
		if side == workspace.SideRight {
			parts = append(parts, m.renderDivider(regionDividerRight, l.dividers[side]))
		}
		parts = append(parts, m.renderPane(side, r))
		if side == workspace.SideLeft {
			parts = append(parts, m.renderDivider(regionDividerLeft, l.dividers[side]))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderRibbon(y, height int) string {
	icons := m.host.Ribbon.Icons()
	sep := styles.RibbonSeparator.Render("│")
	lines := make([]string, height)
	for i := range lines {
		cell := "   "
		if i < len(icons) {
			style := styles.RibbonIcon
			if i == m.ribbonHover {
				style = styles.RibbonIconHover
			}
			cell = style.Render(ribbonGlyph(icons[i].Icon))
			m.mouseHandler.HitMap.AddRect(regionRibbon, 0, y+i, ribbonWidth-1, 1, i)
		}
		lines[i] = fitLine(cell, ribbonWidth-1) + sep
	}
	return strings.Join(lines, "\n")
}

func ribbonGlyph(icon string) string {
	if g, ok := ribbonGlyphs[icon]; ok {
		return g
	}
	if r, _ := utf8.DecodeRuneInString(icon); r != utf8.RuneError {
		return strings.ToUpper(string(r))
	}
	return "•"
}

func (m Model) renderDivider(region string, r mouse.Rect) string {
	m.mouseHandler.HitMap.Add(region, r, nil)
	line := styles.RibbonSeparator.Render("│")
	lines := make([]string, r.H)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// renderPane renders the tab row and shown view of side.
func (m Model) renderPane(side workspace.Side, r mouse.Rect) string {
	active := m.activeLeaf()
	shown := m.ws.ShownLeaf(side)

	var tabs []string
	for _, leaf := range m.ws.Leaves(side) {
		label := leaf.View().DisplayText()
		switch {
		case leaf == shown && leaf == active:
			tabs = append(tabs, styles.BarChipActive.Render(label))
		case leaf == shown:
			tabs = append(tabs, styles.BarChip.Render(label))
		default:
			tabs = append(tabs, styles.BarText.Render(" "+label+" "))
		}
	}
	tabRow := fitLine(strings.Join(tabs, " "), r.W)

	bodyH := max(0, r.H-tabHeight)
	var body string
	if shown == nil {
		body = lipgloss.Place(r.W, bodyH, lipgloss.Center, lipgloss.Center, m.emptyPaneHint())
	} else {
		body = shown.View().Render(r.W, bodyH)
	}
	return tabRow + "\n" + fitBlock(body, r.W, bodyH)
}

func (m Model) emptyPaneHint() string {
	var b strings.Builder
	b.WriteString(styles.Muted.Render("No note open"))
	if k := m.keymap.KeyFor("explorer:focus-file-explorer"); k != "" {
		b.WriteString("\n")
		b.WriteString(hint(k, "file explorer"))
	}
	if k := m.keymap.KeyFor("notes:new-note"); k != "" {
		b.WriteString("\n")
		b.WriteString(hint(k, "new note"))
	}
	return b.String()
}

// fitLine truncates or pads s to exactly width cells.
func fitLine(s string, width int) string {
	s = ansi.Truncate(s, width, "")
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// fitBlock makes s exactly width x height cells.
func fitBlock(s string, width, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		lines[i] = fitLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderQuitConfirm() string {
	var b strings.Builder
	b.WriteString(styles.ModalTitle.Render("Quit BMO?"))
	b.WriteString("\n\n")
	b.WriteString(styles.Muted.Render("Settings and layout are saved on exit."))
	b.WriteString("\n\n")
	b.WriteString(hint("y", "quit"))
	b.WriteString("  ")
	b.WriteString(hint("n", "cancel"))
	return styles.ModalBox.Padding(1, 2).Render(b.String())
}

// renderFileMenu draws the context menu at its requested position and
// registers its items above everything else.
func (m Model) renderFileMenu(content string) string {
	fm := m.fileMenu
	var b strings.Builder
	b.WriteString(styles.ModalTitle.Render(ansi.Truncate(fm.file.Name(), 30, "…")))
	for i, item := range fm.items {
		b.WriteString("\n")
		if i == fm.cursor {
			b.WriteString(styles.ListItemSelected.Render("> " + item.Title()))
		} else {
			b.WriteString(styles.ListItemNormal.Render("  " + item.Title()))
		}
	}
	box := styles.ModalBox.Render(b.String())
	out, x, y := ui.OverlayAt(content, box, fm.x, fm.y, m.width, m.height)

	// border row, then the title row
	w, _ := ui.Size(box)
	for i := range fm.items {
		m.mouseHandler.HitMap.AddRect(regionFileMenuItem, x+1, y+2+i, w-2, 1, i)
	}
	return out
}

// renderSettings draws the settings modal with one chip per plugin tab.
func (m Model) renderSettings() string {
	tabs := m.settingTabs()
	if len(tabs) == 0 {
		return ""
	}
	idx := min(m.settingsTab, len(tabs)-1)
	w := max(40, min(100, m.width-8))
	h := max(6, min(30, m.height-10))

	var chips []string
	for i, t := range tabs {
		if i == idx {
			chips = append(chips, styles.BarChipActive.Render(t.Name()))
		} else {
			chips = append(chips, styles.BarChip.Render(t.Name()))
		}
	}

	var b strings.Builder
	b.WriteString(styles.ModalTitle.Render("Settings"))
	b.WriteString("  ")
	b.WriteString(strings.Join(chips, " "))
	b.WriteString("\n\n")
	b.WriteString(fitBlock(tabs[idx].Render(w, h), w, h))
	b.WriteString("\n\n")
	if len(tabs) > 1 {
		b.WriteString(hint("[ ]", "switch tab"))
		b.WriteString("  ")
	}
	b.WriteString(hint("esc", "close"))
	return styles.ModalBox.Render(b.String())
}
