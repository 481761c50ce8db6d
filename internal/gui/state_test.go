package gui

import (
	"image"
	"testing"

	"github.com/wayswitch/wayswitch/internal/config"
	"github.com/wayswitch/wayswitch/internal/wayland"
)

func wid(v uint32) wayland.WindowID { return wayland.WindowID(v) }

func newTestState() *State {
	d := config.Defaults()
	return NewState(d.Window, d.Item)
}

func ids(s *State) []uint32 {
	out := make([]uint32, 0, s.Len())
	for _, it := range s.Items() {
		out = append(out, uint32(it.ID))
	}
	return out
}

func TestAddWindowIsIdempotent(t *testing.T) {
	s := newTestState()
	s.AddWindow(1)
	s.AddWindow(1)
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestSignalActivationRotatesToFront(t *testing.T) {
	s := newTestState()
	for _, id := range []uint32{1, 2, 3} {
		s.AddWindow(wid(id))
	}

	s.SignalActivation(3)
	if got := ids(s); got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("order after activation = %v, want [3 1 2]", got)
	}

	// Activating the front window changes nothing.
	s.SignalActivation(3)
	if got := ids(s); got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("order after re-activation = %v, want [3 1 2]", got)
	}
}

func TestSignalActivationAddsUnknownWindow(t *testing.T) {
	s := newTestState()
	s.SignalActivation(7)
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if first, ok := s.First(); !ok || first.ID != 7 {
		t.Fatalf("first = %+v, want window 7", first)
	}
}

func TestResetSelectionPicksPreviousWindow(t *testing.T) {
	s := newTestState()

	s.ResetSelection()
	if s.SelectedIndex() != 0 {
		t.Fatalf("empty list: selected = %d, want 0", s.SelectedIndex())
	}

	s.AddWindow(1)
	s.ResetSelection()
	if s.SelectedIndex() != 0 {
		t.Fatalf("one window: selected = %d, want 0", s.SelectedIndex())
	}

	s.AddWindow(2)
	s.AddWindow(3)
	s.ResetSelection()
	if s.SelectedIndex() != 1 {
		t.Fatalf("three windows: selected = %d, want 1", s.SelectedIndex())
	}
}

func TestSelectionWraps(t *testing.T) {
	s := newTestState()
	for _, id := range []uint32{1, 2, 3} {
		s.AddWindow(wid(id))
	}

	s.ResetSelection() // index 1
	s.SelectNext()     // 2
	s.SelectNext()     // wraps to 0
	if s.SelectedIndex() != 0 {
		t.Fatalf("selected = %d, want 0 after wrap", s.SelectedIndex())
	}

	s.SelectPrev() // wraps to 2
	if s.SelectedIndex() != 2 {
		t.Fatalf("selected = %d, want 2 after backward wrap", s.SelectedIndex())
	}
}

func TestSelectionOnEmptyListIsSafe(t *testing.T) {
	s := newTestState()
	s.SelectNext()
	s.SelectPrev()
	if _, ok := s.Selected(); ok {
		t.Fatal("Selected returned an item for an empty list")
	}
}

func TestRemoveWindowKeepsSelectionValid(t *testing.T) {
	s := newTestState()
	for _, id := range []uint32{1, 2, 3} {
		s.AddWindow(wid(id))
	}
	s.Select(2)

	s.RemoveWindow(3)
	if sel, ok := s.Selected(); !ok || sel == nil {
		t.Fatal("selection invalid after removing selected window")
	}
	if s.SelectedIndex() >= s.Len() {
		t.Fatalf("selected index %d out of range (len %d)", s.SelectedIndex(), s.Len())
	}

	s.RemoveWindow(1)
	s.RemoveWindow(2)
	if s.Len() != 0 {
		t.Fatalf("len = %d, want 0", s.Len())
	}
	if _, ok := s.Selected(); ok {
		t.Fatal("Selected returned an item after all windows removed")
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		title, appID, want string
	}{
		{"Editor", "code", "Editor | Code"},
		{"", "firefox", "Firefox"},
		{"Terminal", "", "Terminal"},
		{"", "", "Untitled Window"},
	}
	for _, tc := range cases {
		it := &Item{Title: tc.title, AppID: tc.appID}
		if got := it.DisplayTitle(); got != tc.want {
			t.Errorf("DisplayTitle(%q, %q) = %q, want %q", tc.title, tc.appID, got, tc.want)
		}
	}
}

func TestPreviewTargetClampsWidth(t *testing.T) {
	s := newTestState()
	d := config.Defaults()

	// Very wide source clamps to max.
	w, h := s.PreviewTarget(image.Rect(0, 0, 4000, 100))
	if w != int(d.Item.PreviewMaxWidth) || h != int(d.Item.PreviewHeight) {
		t.Fatalf("wide target = %dx%d, want %dx%d", w, h, d.Item.PreviewMaxWidth, d.Item.PreviewHeight)
	}

	// Very tall source clamps to min.
	w, _ = s.PreviewTarget(image.Rect(0, 0, 100, 4000))
	if w != int(d.Item.PreviewMinWidth) {
		t.Fatalf("tall target width = %d, want %d", w, d.Item.PreviewMinWidth)
	}
}

func TestRelayoutWrapsRowsAndCenters(t *testing.T) {
	s := newTestState()
	// Default max width 800, padding 10, min tile width 100, spacing
	// 10: seven previewless tiles need 7*100+6*10 = 760 < 780, eight
	// need 870 and must wrap.
	for i := uint32(1); i <= 8; i++ {
		s.AddWindow(wid(i))
	}

	l := s.Relayout(1920, 1080)
	if len(l.Boxes) != 8 {
		t.Fatalf("boxes = %d, want 8", len(l.Boxes))
	}
	if l.Boxes[7].Min.Y <= l.Boxes[0].Min.Y {
		t.Fatal("eighth tile did not wrap to a second row")
	}
	if l.Panel.Dx() > 800 {
		t.Fatalf("panel width %d exceeds configured max", l.Panel.Dx())
	}

	// Panel is centered on the surface.
	leftGap := l.Panel.Min.X
	rightGap := 1920 - l.Panel.Max.X
	if diff := leftGap - rightGap; diff < -1 || diff > 1 {
		t.Fatalf("panel not centered: gaps %d / %d", leftGap, rightGap)
	}
}

func TestHitTestMapsBoxesToItems(t *testing.T) {
	s := newTestState()
	s.AddWindow(1)
	s.AddWindow(2)
	l := s.Relayout(1920, 1080)

	for i, box := range l.Boxes {
		cx := box.Min.X + box.Dx()/2
		cy := box.Min.Y + box.Dy()/2
		got, ok := s.HitTest(cx, cy)
		if !ok || got != i {
			t.Fatalf("HitTest(center of box %d) = %d, %v", i, got, ok)
		}
	}

	if _, ok := s.HitTest(0, 0); ok {
		t.Fatal("HitTest outside the panel reported a hit")
	}
}

func TestPaintEmptyListStillDrawsPanel(t *testing.T) {
	s := newTestState()
	dst := image.NewRGBA(image.Rect(0, 0, 64, 64))
	// Pre-fill to prove Paint clears everything outside the panel.
	for i := range dst.Pix {
		dst.Pix[i] = 0xaa
	}
	s.Paint(dst)

	if c := dst.RGBAAt(0, 0); c.A != 0 {
		t.Fatalf("corner alpha = %#x, want fully transparent", c.A)
	}
	// With no items the panel collapses to its padding but is still
	// visible at the surface center.
	if c := dst.RGBAAt(32, 32); c.A == 0 {
		t.Fatal("panel center transparent with empty item list")
	}
}

func TestPaintDrawsPanel(t *testing.T) {
	s := newTestState()
	s.AddWindow(1)
	s.SetTitle(1, "Terminal")

	dst := image.NewRGBA(image.Rect(0, 0, 400, 400))
	s.Paint(dst)

	// Center of the surface is inside the panel and must not be
	// transparent anymore.
	c := dst.RGBAAt(200, 200)
	if c.A == 0 {
		t.Fatal("panel center still transparent after Paint")
	}
}
