// Package ui composites overlays (palette, settings, context menus) onto
// the rendered workspace.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// DimStyle greys out the workspace behind a modal. Existing styling is
// stripped first because faint does not combine with most color codes.
var DimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

func maxLineWidth(lines []string) int {
	w := 0
	for _, line := range lines {
		w = max(w, ansi.StringWidth(line))
	}
	return w
}

// Size returns the width and height of a rendered block.
func Size(block string) (int, int) {
	lines := strings.Split(block, "\n")
	return maxLineWidth(lines), len(lines)
}

// CenterOrigin returns where a block is placed by OverlayModal.
func CenterOrigin(block string, width, height int) (int, int) {
	w, h := Size(block)
	return max(0, (width-w)/2), max(0, (height-h)/2)
}

// compositeRow places fg over bg at column x. With dim set, the visible
// background is greyed out.
func compositeRow(bg, fg string, x, fgWidth int, dim bool) string {
	var b strings.Builder
	paint := func(s string) string {
		if dim {
			return DimStyle.Render(ansi.Strip(s))
		}
		return s
	}

	bgWidth := ansi.StringWidth(bg)
	if x > 0 {
		left := ansi.Truncate(bg, x, "")
		b.WriteString(paint(left))
		if w := ansi.StringWidth(left); w < x {
			b.WriteString(strings.Repeat(" ", x-w))
		}
	}
	b.WriteString(fg)
	if right := x + fgWidth; bgWidth > right {
		b.WriteString(paint(ansi.Cut(bg, right, bgWidth)))
	}
	return b.String()
}

func overlay(background, block string, x, y, width, height int, dim bool) string {
	bgLines := strings.Split(background, "\n")
	for len(bgLines) < height {
		bgLines = append(bgLines, "")
	}
	fgLines := strings.Split(block, "\n")
	fgWidth := maxLineWidth(fgLines)

	out := make([]string, 0, height)
	for row := 0; row < height; row++ {
		line := bgLines[row]
		if i := row - y; i >= 0 && i < len(fgLines) {
			// keep the block's own width so short lines still cover bg
			fg := fgLines[i]
			if w := ansi.StringWidth(fg); w < fgWidth {
				fg += strings.Repeat(" ", fgWidth-w)
			}
			out = append(out, compositeRow(line, fg, x, fgWidth, dim))
			continue
		}
		if dim {
			line = DimStyle.Render(ansi.Strip(line))
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// OverlayModal centers modal over a dimmed background.
func OverlayModal(background, modal string, width, height int) string {
	x, y := CenterOrigin(modal, width, height)
	return overlay(background, modal, x, y, width, height, true)
}

// OverlayAt draws block with its top-left corner at (x, y), shifted left
// and up as needed to stay on screen. The background keeps its styling.
// It returns the frame and the corner actually used.
func OverlayAt(background, block string, x, y, width, height int) (string, int, int) {
	w, h := Size(block)
	x = max(0, min(x, width-w))
	y = max(0, min(y, height-h))
	return overlay(background, block, x, y, width, height, false), x, y
}
