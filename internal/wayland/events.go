package wayland

import (
	"encoding/binary"
	"fmt"
	"image"
	"strings"
)

// WindowID identifies a foreign toplevel for the lifetime of the
// session.
type WindowID uint32

// ModifierMask is the set of held modifier keys, in the conventional
// XKB bit layout.
type ModifierMask uint32

const (
	ModShift ModifierMask = 1 << 0
	ModCtrl  ModifierMask = 1 << 2
	ModAlt   ModifierMask = 1 << 3
	ModSuper ModifierMask = 1 << 6
)

// Has reports whether every bit of m2 is held.
func (m ModifierMask) Has(m2 ModifierMask) bool {
	return m&m2 == m2
}

// ParseModifier maps a config token to its mask bit.
func ParseModifier(name string) (ModifierMask, error) {
	switch strings.ToLower(name) {
	case "shift":
		return ModShift, nil
	case "ctrl", "control":
		return ModCtrl, nil
	case "alt", "mod1":
		return ModAlt, nil
	case "super", "logo", "mod4":
		return ModSuper, nil
	}
	return 0, fmt.Errorf("unknown modifier %q", name)
}

// Evdev keycodes used for switcher navigation.
const (
	KeyEscape = 1
	KeyTab    = 15
	KeyEnter  = 28
	KeyUp     = 103
	KeyLeft   = 105
	KeyRight  = 106
	KeyDown   = 108
)

// Event is anything the compositor session reports to the daemon.
// Handlers on the dispatch goroutine only parse and enqueue; all
// reactions happen on the daemon loop.
type Event interface {
	event()
}

// SurfaceConfigure reports the size the compositor granted the
// overlay. It must be acked before the next commit.
type SurfaceConfigure struct {
	Serial uint32
	Width  uint32
	Height uint32
}

// SurfaceClosed means the compositor tore the overlay down.
type SurfaceClosed struct{}

// FrameDone means the overlay may paint again.
type FrameDone struct{}

// KeyPressed reports an evdev keycode going down while the overlay
// holds keyboard focus.
type KeyPressed struct {
	Key uint32
}

// ModifiersChanged reports the currently held modifier set.
type ModifiersChanged struct {
	Held ModifierMask
}

// PointerMotion reports surface-local pointer coordinates.
type PointerMotion struct {
	X, Y float64
}

// PointerButton reports a pointer button press or release.
type PointerButton struct {
	Button  uint32
	Pressed bool
}

// WindowAdded announces a new toplevel. Title and app id follow.
type WindowAdded struct {
	ID WindowID
}

// WindowTitle reports a title change.
type WindowTitle struct {
	ID    WindowID
	Title string
}

// WindowAppID reports an app id change.
type WindowAppID struct {
	ID    WindowID
	AppID string
}

// WindowOutputEnter reports a toplevel appearing on an output.
type WindowOutputEnter struct {
	ID     WindowID
	Output uint32
}

// WindowOutputLeave reports a toplevel leaving an output.
type WindowOutputLeave struct {
	ID     WindowID
	Output uint32
}

// WindowActivated reports a toplevel gaining focus.
type WindowActivated struct {
	ID WindowID
}

// WindowClosed reports a toplevel going away.
type WindowClosed struct {
	ID WindowID
}

// CaptureReady delivers a finished screen capture.
type CaptureReady struct {
	Window WindowID
	Image  *image.RGBA
}

// CaptureFailed reports that a capture cannot complete.
type CaptureFailed struct {
	Window WindowID
}

// SessionError is fatal; the event channel closes after it.
type SessionError struct {
	Err error
}

func (SurfaceConfigure) event()  {}
func (SurfaceClosed) event()     {}
func (FrameDone) event()         {}
func (KeyPressed) event()        {}
func (ModifiersChanged) event()  {}
func (PointerMotion) event()     {}
func (PointerButton) event()     {}
func (WindowAdded) event()       {}
func (WindowTitle) event()       {}
func (WindowAppID) event()       {}
func (WindowOutputEnter) event() {}
func (WindowOutputLeave) event() {}
func (WindowActivated) event()   {}
func (WindowClosed) event()      {}
func (CaptureReady) event()      {}
func (CaptureFailed) event()     {}
func (SessionError) event()      {}

// argReader walks a little-endian event body.
type argReader struct {
	data []byte
	off  int
}

func (r *argReader) uint32() uint32 {
	if r.off+4 > len(r.data) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *argReader) int32() int32 {
	return int32(r.uint32())
}

// fixed reads a wl_fixed 24.8 value.
func (r *argReader) fixed() float64 {
	return float64(r.int32()) / 256.0
}

// string reads a length-prefixed, NUL-terminated, padded string.
func (r *argReader) string() string {
	n := int(r.uint32())
	if n == 0 || r.off+n > len(r.data) {
		return ""
	}
	s := string(r.data[r.off : r.off+n-1]) // strip NUL
	r.off += (n + 3) &^ 3
	return s
}

// uint32Array reads a wl_array of 32-bit values.
func (r *argReader) uint32Array() []uint32 {
	n := int(r.uint32())
	if r.off+n > len(r.data) {
		return nil
	}
	out := make([]uint32, 0, n/4)
	for i := 0; i+4 <= n; i += 4 {
		out = append(out, binary.LittleEndian.Uint32(r.data[r.off+i:]))
	}
	r.off += (n + 3) &^ 3
	return out
}
