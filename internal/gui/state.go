// Package gui holds the switcher's window list and turns it into
// pixels. The list is ordered most-recently-used first; selection and
// layout are derived state, recomputed on demand.
package gui

import (
	"image"
	"strings"

	"github.com/wayswitch/wayswitch/internal/config"
	"github.com/wayswitch/wayswitch/internal/wayland"
)

// Item is one switchable window.
type Item struct {
	ID      wayland.WindowID
	Title   string
	AppID   string
	Preview *image.RGBA
	Icon    *image.RGBA
}

// DisplayTitle renders the label drawn under the preview.
func (it *Item) DisplayTitle() string {
	appName := capitalize(it.AppID)
	switch {
	case it.Title == "" && appName == "":
		return "Untitled Window"
	case it.Title == "":
		return appName
	case appName == "":
		return it.Title
	default:
		return it.Title + " | " + appName
	}
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// State is the switcher model. Only the daemon loop touches it.
type State struct {
	win  config.WindowConfig
	item config.ItemConfig

	items    []*Item
	selected int
	layout   Layout
}

// NewState creates an empty switcher model.
func NewState(win config.WindowConfig, item config.ItemConfig) *State {
	return &State{win: win, item: item}
}

// SetStyle swaps in new style config, for live config reload.
func (s *State) SetStyle(win config.WindowConfig, item config.ItemConfig) {
	s.win = win
	s.item = item
}

// Len returns the number of windows.
func (s *State) Len() int {
	return len(s.items)
}

// Items returns the items in MRU order. Callers must not mutate.
func (s *State) Items() []*Item {
	return s.items
}

func (s *State) find(id wayland.WindowID) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// AddWindow appends a newly announced window at the cold end of the
// MRU order. No-op if already known.
func (s *State) AddWindow(id wayland.WindowID) {
	if s.find(id) >= 0 {
		return
	}
	s.items = append(s.items, &Item{ID: id})
}

// RemoveWindow drops a closed window and keeps the selection on a
// valid item.
func (s *State) RemoveWindow(id wayland.WindowID) {
	i := s.find(id)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	if s.selected > i || s.selected >= len(s.items) {
		s.selected--
	}
	if s.selected < 0 {
		s.selected = 0
	}
}

// SetTitle updates a window's title.
func (s *State) SetTitle(id wayland.WindowID, title string) {
	if i := s.find(id); i >= 0 {
		s.items[i].Title = title
	}
}

// SetAppID updates a window's app id.
func (s *State) SetAppID(id wayland.WindowID, appID string) {
	if i := s.find(id); i >= 0 {
		s.items[i].AppID = appID
	}
}

// SetPreview installs a scaled preview image.
func (s *State) SetPreview(id wayland.WindowID, img *image.RGBA) {
	if i := s.find(id); i >= 0 {
		s.items[i].Preview = img
	}
}

// SetIcon installs an application icon.
func (s *State) SetIcon(id wayland.WindowID, img *image.RGBA) {
	if i := s.find(id); i >= 0 {
		s.items[i].Icon = img
	}
}

// SignalActivation rotates the window to the hot end of the MRU
// order. Unknown ids are added first; compositors may activate a
// window before announcing it.
func (s *State) SignalActivation(id wayland.WindowID) {
	i := s.find(id)
	if i < 0 {
		s.items = append(s.items, &Item{ID: id})
		i = len(s.items) - 1
	}
	if i == 0 {
		return
	}
	it := s.items[i]
	copy(s.items[1:i+1], s.items[0:i])
	s.items[0] = it
}

// First returns the most recently used window.
func (s *State) First() (*Item, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[0], true
}

// Selected returns the highlighted window.
func (s *State) Selected() (*Item, bool) {
	if len(s.items) == 0 || s.selected >= len(s.items) {
		return nil, false
	}
	return s.items[s.selected], true
}

// ResetSelection highlights the previous window, which is what an
// alt-tab press means: one item selects it, two or more select the
// second.
func (s *State) ResetSelection() {
	if len(s.items) > 1 {
		s.selected = 1
	} else {
		s.selected = 0
	}
}

// SelectNext moves the highlight forward, wrapping.
func (s *State) SelectNext() {
	if len(s.items) == 0 {
		return
	}
	s.selected = (s.selected + 1) % len(s.items)
}

// SelectPrev moves the highlight backward, wrapping.
func (s *State) SelectPrev() {
	if len(s.items) == 0 {
		return
	}
	s.selected = (s.selected - 1 + len(s.items)) % len(s.items)
}

// Select highlights an explicit index, for pointer hover.
func (s *State) Select(i int) {
	if i >= 0 && i < len(s.items) {
		s.selected = i
	}
}

// SelectedIndex returns the highlight position.
func (s *State) SelectedIndex() int {
	return s.selected
}

// PreviewTarget computes the preview size for a capture of the given
// bounds: fixed height, width following aspect within the configured
// clamp.
func (s *State) PreviewTarget(src image.Rectangle) (int, int) {
	h := int(s.item.PreviewHeight)
	w := int(s.item.PreviewMinWidth)
	if src.Dy() > 0 {
		w = src.Dx() * h / src.Dy()
	}
	if min := int(s.item.PreviewMinWidth); w < min {
		w = min
	}
	if max := int(s.item.PreviewMaxWidth); w > max {
		w = max
	}
	return w, h
}

// tileWidth is the drawn width of one item.
func (s *State) tileWidth(it *Item) int {
	if it.Preview != nil {
		w, _ := s.PreviewTarget(it.Preview.Bounds())
		return w
	}
	return int(s.item.PreviewMinWidth)
}

// Layout is the computed panel geometry in surface coordinates.
type Layout struct {
	Panel image.Rectangle
	Boxes []image.Rectangle
}

// Relayout places items into centered rows, wrapping at the
// configured panel width, and centers the panel on the surface. The
// result is cached for HitTest.
func (s *State) Relayout(surfaceW, surfaceH int) Layout {
	padding := int(s.win.Padding)
	spacing := int(s.item.Spacing)
	tileH := int(s.item.PreviewHeight + s.item.TitleHeight)
	maxRowW := int(s.win.MaxWidth) - 2*padding
	if maxRowW < int(s.item.PreviewMinWidth) {
		maxRowW = int(s.item.PreviewMinWidth)
	}

	type row struct {
		start, end int // item index range
		width      int
	}
	var rows []row
	cur := row{}
	for i, it := range s.items {
		w := s.tileWidth(it)
		cand := cur.width + w
		if cur.end > cur.start {
			cand += spacing
		}
		if cur.end > cur.start && cand > maxRowW {
			rows = append(rows, cur)
			cur = row{start: i, end: i}
			cand = w
		}
		cur.width = cand
		cur.end = i + 1
	}
	if cur.end > cur.start {
		rows = append(rows, cur)
	}

	panelW := 2 * padding
	for _, r := range rows {
		if r.width+2*padding > panelW {
			panelW = r.width + 2*padding
		}
	}
	panelH := 2 * padding
	if len(rows) > 0 {
		panelH += len(rows)*tileH + (len(rows)-1)*spacing
	}

	panelX := (surfaceW - panelW) / 2
	panelY := (surfaceH - panelH) / 2

	l := Layout{
		Panel: image.Rect(panelX, panelY, panelX+panelW, panelY+panelH),
		Boxes: make([]image.Rectangle, len(s.items)),
	}

	y := panelY + padding
	for _, r := range rows {
		// Center the row inside the panel.
		x := panelX + (panelW-r.width)/2
		for i := r.start; i < r.end; i++ {
			w := s.tileWidth(s.items[i])
			l.Boxes[i] = image.Rect(x, y, x+w, y+tileH)
			x += w + spacing
		}
		y += tileH + spacing
	}

	s.layout = l
	return l
}

// HitTest maps a surface coordinate to an item index using the last
// computed layout.
func (s *State) HitTest(x, y int) (int, bool) {
	pt := image.Pt(x, y)
	for i, box := range s.layout.Boxes {
		if pt.In(box) {
			return i, true
		}
	}
	return -1, false
}
