package app

import (
	"github.com/marcus/bmo/internal/mouse"
	"github.com/marcus/bmo/internal/state"
	"github.com/marcus/bmo/internal/workspace"
)

const (
	headerHeight = 1
	footerHeight = 1
	tabHeight    = 1 // pane tab row above each view
	ribbonWidth  = 4 // icon column plus separator
	minMainWidth = 30

	minWidth  = 60
	minHeight = 10
)

// layout is the screen geometry of one frame.
type layout struct {
	ribbon   mouse.Rect
	panes    map[workspace.Side]mouse.Rect // including the tab row
	dividers map[workspace.Side]mouse.Rect // between a sidebar and the main area
}

// content returns the area of side below its tab row.
func (l layout) content(side workspace.Side) (mouse.Rect, bool) {
	r, ok := l.panes[side]
	if !ok {
		return mouse.Rect{}, false
	}
	r.Y += tabHeight
	r.H = max(0, r.H-tabHeight)
	return r, true
}

// paneAt returns the side whose pane contains (x, y).
func (l layout) paneAt(x, y int) (workspace.Side, bool) {
	for _, side := range workspace.Sides {
		if r, ok := l.panes[side]; ok && r.Contains(x, y) {
			return side, true
		}
	}
	return 0, false
}

// computeLayout places the ribbon, sidebars and main area. Sidebars shrink
// toward their minimum, then hide, so the main area keeps minMainWidth.
func (m Model) computeLayout() layout {
	return m.layoutFor(m.sideVisible)
}

func (m Model) layoutFor(visible func(workspace.Side) bool) layout {
	bodyY := headerHeight
	bodyH := max(1, m.height-headerHeight-footerHeight)
	l := layout{
		ribbon:   mouse.Rect{X: 0, Y: bodyY, W: ribbonWidth, H: bodyH},
		panes:    make(map[workspace.Side]mouse.Rect),
		dividers: make(map[workspace.Side]mouse.Rect),
	}

	avail := max(0, m.width-ribbonWidth)
	left, right := 0, 0
	if visible(workspace.SideLeft) {
		left = state.GetLeftSidebarWidth()
	}
	if visible(workspace.SideRight) {
		right = state.GetRightSidebarWidth()
	}
	mainWidth := func() int {
		w := avail - left - right
		if left > 0 {
			w--
		}
		if right > 0 {
			w--
		}
		return w
	}
	for mainWidth() < minMainWidth && right > state.MinSidebarWidth {
		right--
	}
	for mainWidth() < minMainWidth && left > state.MinSidebarWidth {
		left--
	}
	if mainWidth() < minMainWidth {
		right = 0
	}
	if mainWidth() < minMainWidth {
		left = 0
	}

	x := ribbonWidth
	if left > 0 {
		l.panes[workspace.SideLeft] = mouse.Rect{X: x, Y: bodyY, W: left, H: bodyH}
		x += left
		l.dividers[workspace.SideLeft] = mouse.Rect{X: x, Y: bodyY, W: 1, H: bodyH}
		x++
	}
	mw := max(0, mainWidth())
	l.panes[workspace.SideMain] = mouse.Rect{X: x, Y: bodyY, W: mw, H: bodyH}
	x += mw
	if right > 0 {
		l.dividers[workspace.SideRight] = mouse.Rect{X: x, Y: bodyY, W: 1, H: bodyH}
		x++
		l.panes[workspace.SideRight] = mouse.Rect{X: x, Y: bodyY, W: right, H: bodyH}
	}
	return l
}

// resizeSides hands each side the area it renders into. A hidden sidebar
// gets the size it would have when shown, so a view opened into it can lay
// out before the next frame.
func (m Model) resizeSides() {
	if !m.ready {
		return
	}
	l := m.computeLayout()
	for _, side := range workspace.Sides {
		r, ok := l.content(side)
		if !ok {
			shown := m.layoutFor(func(s workspace.Side) bool {
				return s == side || m.sideVisible(s)
			})
			r, ok = shown.content(side)
		}
		if ok {
			m.ws.SetSideSize(side, r.W, r.H)
		}
	}
}

// dragDivider resizes the sidebar whose divider is being dragged.
func (m Model) dragDivider(x int) {
	dx, _ := m.mouseHandler.DragDelta(x, 0)
	start := m.mouseHandler.DragStartValue()
	switch m.mouseHandler.DragRegion() {
	case regionDividerLeft:
		state.SetLeftSidebarWidth(start + dx)
	case regionDividerRight:
		state.SetRightSidebarWidth(start - dx)
	}
	m.resizeSides()
}
