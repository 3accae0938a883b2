package palette

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/marcus/bmo/internal/styles"
)

// keyColumnWidth fits "shift+tab" plus the chip padding.
const keyColumnWidth = 12

const nameColumnWidth = 26

// headerLines is the number of lines above the first entry: the input,
// the mode line and the divider.
const headerLines = 3

var layerOrder = []Layer{LayerCurrentMode, LayerPlugin, LayerGlobal}

// Width returns the rendered box width for the current terminal size.
func (m Model) Width() int {
	return max(40, min(80, m.width-4))
}

// View renders the palette box and records its mouse regions relative to
// the box's top-left corner.
func (m Model) View() string {
	m.mouseHandler.Clear()

	width := m.Width()
	contentWidth := width - 4
	// border plus padding
	originX, originY := 3, 2

	var b strings.Builder

	prompt := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true).Render(">")
	esc := styles.KeyHint.Render("esc")
	inputWidth := contentWidth - lipgloss.Width(prompt) - lipgloss.Width(esc) - 3
	input := lipgloss.NewStyle().Width(inputWidth).Render(m.textInput.View())
	fmt.Fprintf(&b, "%s %s %s\n", prompt, input, esc)

	mode := m.activeContext
	if m.showAllContexts {
		mode = "All plugins"
	}
	fmt.Fprintf(&b, "%s  %s\n", styles.BarChip.Render(mode), styles.Muted.Render("tab to toggle"))
	b.WriteString(styles.Subtle.Render(strings.Repeat("─", contentWidth)))
	b.WriteString("\n")

	y := headerLines
	if m.offset > 0 {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  ↑ %d more above", m.offset)))
		b.WriteString("\n")
		y++
	}

	end := min(len(m.filtered), m.offset+m.maxVisible)
	groups := GroupEntriesByLayer(m.filtered)
	idx := 0
	for _, layer := range layerOrder {
		entries := groups[layer]
		first, last := idx, idx+len(entries)
		if len(entries) > 0 && first < end && last > m.offset {
			b.WriteString(m.layerHeader(layer))
			b.WriteString("\n")
			y++
		}
		for _, e := range entries {
			if idx >= m.offset && idx < end {
				b.WriteString(m.renderEntry(e, idx == m.cursor, contentWidth))
				b.WriteString("\n")
				m.mouseHandler.HitMap.AddRect(regionPaletteEntry, originX, originY+y, contentWidth, 1, idx)
				y++
			}
			idx++
		}
	}

	if end < len(m.filtered) {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  ↓ %d more below", len(m.filtered)-end)))
		b.WriteString("\n")
	}
	if len(m.filtered) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("No matching commands"))
	}

	return styles.ModalBox.Padding(1, 2).Width(width).
		Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) layerHeader(layer Layer) string {
	switch layer {
	case LayerCurrentMode:
		return styles.ModalTitle.PaddingLeft(1).Render(strings.ToUpper(m.activeContext))
	case LayerPlugin:
		name := "PLUGINS"
		if !m.showAllContexts && m.pluginContext != "" {
			name = strings.ToUpper(m.pluginContext)
		}
		return styles.SectionHeader.PaddingLeft(1).Render(name)
	default:
		return styles.Subtle.PaddingLeft(1).Render("GLOBAL")
	}
}

func (m Model) renderEntry(e PaletteEntry, selected bool, width int) string {
	key := ""
	if e.Key != "" {
		key = styles.KeyHint.Render(e.Key)
	}
	if w := lipgloss.Width(key); w < keyColumnWidth {
		key += strings.Repeat(" ", keyColumnWidth-w)
	}

	name := lipgloss.NewStyle().Width(nameColumnWidth).Render(highlight(e.Name, e.MatchRanges))

	desc := e.Description
	if room := width - keyColumnWidth - nameColumnWidth - 4; room > 3 {
		desc = runewidth.Truncate(desc, room, "...")
	}

	line := fmt.Sprintf("  %s %s %s", key, name, styles.Subtitle.Render(desc))
	if selected {
		return styles.ListItemSelected.Width(width).Render(line)
	}
	return styles.ListItemNormal.Width(width).Render(line)
}

// highlight styles the matched parts of text.
func highlight(text string, ranges []MatchRange) string {
	if len(ranges) == 0 {
		return text
	}
	match := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	var b strings.Builder
	last := 0
	for _, r := range ranges {
		if r.Start < last || r.End > len(text) {
			continue
		}
		b.WriteString(text[last:r.Start])
		b.WriteString(match.Render(text[r.Start:r.End]))
		last = r.End
	}
	b.WriteString(text[last:])
	return b.String()
}
