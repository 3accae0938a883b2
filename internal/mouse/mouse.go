// Package mouse maps terminal mouse events onto named screen regions.
package mouse

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// doubleClickWindow is the longest gap between two clicks on the same
// region that still counts as a double click.
const doubleClickWindow = 400 * time.Millisecond

// scrollStep is the number of lines one wheel notch moves.
const scrollStep = 3

// Rect is a screen rectangle in cells. The right and bottom edges are
// exclusive.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return r.W > 0 && r.H > 0 &&
		x >= r.X && x < r.X+r.W &&
		y >= r.Y && y < r.Y+r.H
}

// Region is a named, clickable rectangle. Data is whatever the renderer
// wants back on a hit, e.g. a row index or a command ID.
type Region struct {
	ID   string
	Rect Rect
	Data any
}

// HitMap holds the regions registered by the last render. Later regions
// sit on top of earlier ones.
type HitMap struct {
	regions []Region
}

// NewHitMap returns an empty hit map.
func NewHitMap() *HitMap { return &HitMap{} }

// Add registers a region.
func (h *HitMap) Add(id string, r Rect, data any) {
	h.regions = append(h.regions, Region{ID: id, Rect: r, Data: data})
}

// AddRect registers a region from its coordinates.
func (h *HitMap) AddRect(id string, x, y, w, hgt int, data any) {
	h.Add(id, Rect{X: x, Y: y, W: w, H: hgt}, data)
}

// Clear drops every region. Renderers call it before registering anew.
func (h *HitMap) Clear() { h.regions = h.regions[:0] }

// Test returns the topmost region containing (x, y), or nil.
func (h *HitMap) Test(x, y int) *Region {
	for i := len(h.regions) - 1; i >= 0; i-- {
		if h.regions[i].Rect.Contains(x, y) {
			r := h.regions[i]
			return &r
		}
	}
	return nil
}

// Regions returns a copy of the registered regions.
func (h *HitMap) Regions() []Region {
	return append([]Region(nil), h.regions...)
}

// ActionType classifies a handled mouse event.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionClick
	ActionDoubleClick
	ActionScrollUp
	ActionScrollDown
	ActionScrollLeft
	ActionScrollRight
	ActionDrag
	ActionDragEnd
	ActionHover
)

// Action is the result of HandleMouse.
type Action struct {
	Type   ActionType
	Region *Region
	X, Y   int
	Delta  int // scroll lines, negative is up or left

	DragDX, DragDY int
}

// ClickResult is the result of HandleClick.
type ClickResult struct {
	Region        *Region
	IsDoubleClick bool
}

// Handler tracks clicks and drags over a HitMap.
type Handler struct {
	HitMap *HitMap

	lastClickID   string
	lastClickTime time.Time

	dragging   bool
	dragRegion string
	dragStartX int
	dragStartY int
	dragValue  int

	now func() time.Time
}

// NewHandler returns a handler with an empty hit map.
func NewHandler() *Handler {
	return &Handler{HitMap: NewHitMap(), now: time.Now}
}

// Clear drops the registered regions.
func (h *Handler) Clear() { h.HitMap.Clear() }

// HandleClick resolves a click at (x, y). A second click on the same region
// within the double-click window is reported as a double click; the click
// after that starts over.
func (h *Handler) HandleClick(x, y int) ClickResult {
	region := h.HitMap.Test(x, y)
	if region == nil {
		h.lastClickID = ""
		return ClickResult{}
	}
	now := h.now()
	double := region.ID == h.lastClickID && now.Sub(h.lastClickTime) <= doubleClickWindow
	if double {
		h.lastClickID = ""
	} else {
		h.lastClickID = region.ID
		h.lastClickTime = now
	}
	return ClickResult{Region: region, IsDoubleClick: double}
}

// StartDrag begins a drag of region from (x, y). value is the quantity
// being dragged, e.g. a pane width, so callers can apply the delta to it.
func (h *Handler) StartDrag(x, y int, region string, value int) {
	h.dragging = true
	h.dragRegion = region
	h.dragStartX, h.dragStartY = x, y
	h.dragValue = value
}

// IsDragging reports whether a drag is in progress.
func (h *Handler) IsDragging() bool { return h.dragging }

// DragRegion returns the region being dragged.
func (h *Handler) DragRegion() string { return h.dragRegion }

// DragStartValue returns the value passed to StartDrag.
func (h *Handler) DragStartValue() int { return h.dragValue }

// DragDelta returns the offset of (x, y) from the drag start.
func (h *Handler) DragDelta(x, y int) (int, int) {
	return x - h.dragStartX, y - h.dragStartY
}

// EndDrag finishes the drag.
func (h *Handler) EndDrag() {
	h.dragging = false
	h.dragRegion = ""
}

// HandleMouse classifies a Bubble Tea mouse event against the hit map.
func (h *Handler) HandleMouse(msg tea.MouseMsg) Action {
	a := Action{X: msg.X, Y: msg.Y}

	switch msg.Action {
	case tea.MouseActionRelease:
		if h.dragging {
			h.EndDrag()
			a.Type = ActionDragEnd
		}
		return a

	case tea.MouseActionMotion:
		if h.dragging {
			a.Type = ActionDrag
			a.DragDX, a.DragDY = h.DragDelta(msg.X, msg.Y)
			return a
		}
		a.Type = ActionHover
		a.Region = h.HitMap.Test(msg.X, msg.Y)
		return a
	}

	if msg.Action != tea.MouseActionPress {
		return a
	}
	a.Region = h.HitMap.Test(msg.X, msg.Y)

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.Type, a.Delta = ActionScrollUp, -scrollStep
		if msg.Shift {
			a.Type = ActionScrollLeft
		}
	case tea.MouseButtonWheelDown:
		a.Type, a.Delta = ActionScrollDown, scrollStep
		if msg.Shift {
			a.Type = ActionScrollRight
		}
	case tea.MouseButtonWheelLeft:
		// natural scrolling reports the wheel inverted
		a.Type, a.Delta = ActionScrollRight, scrollStep
	case tea.MouseButtonWheelRight:
		a.Type, a.Delta = ActionScrollLeft, -scrollStep
	case tea.MouseButtonLeft:
		res := h.HandleClick(msg.X, msg.Y)
		if res.Region == nil {
			return a
		}
		a.Region = res.Region
		a.Type = ActionClick
		if res.IsDoubleClick {
			a.Type = ActionDoubleClick
		}
	}
	return a
}
