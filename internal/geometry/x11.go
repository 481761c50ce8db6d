package geometry

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// X11Provider reads the active window rectangle through XWayland (or a
// plain X session). Last resort: native Wayland windows are invisible
// to it.
type X11Provider struct {
	conn       *xgb.Conn
	root       xproto.Window
	activeAtom xproto.Atom
}

// NewX11Provider connects to the X server and interns the atoms it
// needs.
func NewX11Provider() (Provider, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	atomReply, err := xproto.InternAtom(conn, false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	return &X11Provider{
		conn:       conn,
		root:       root,
		activeAtom: atomReply.Atom,
	}, nil
}

// Name returns the provider name.
func (p *X11Provider) Name() string {
	return "x11"
}

// ActiveWindowGeometry reads _NET_ACTIVE_WINDOW off the root window
// and translates the window's origin into root coordinates.
func (p *X11Provider) ActiveWindowGeometry() (Geometry, error) {
	reply, err := xproto.GetProperty(p.conn, false, p.root, p.activeAtom,
		xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to get _NET_ACTIVE_WINDOW: %w", err)
	}
	if reply.ValueLen == 0 {
		return Geometry{}, fmt.Errorf("no active window")
	}

	windowID := uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
	win := xproto.Window(windowID)

	geom, err := xproto.GetGeometry(p.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to get window geometry: %w", err)
	}

	// Window coordinates are parent-relative; translate to root.
	trans, err := xproto.TranslateCoordinates(p.conn, win, p.root, 0, 0).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to translate coordinates: %w", err)
	}

	return Geometry{
		X:      int32(trans.DstX),
		Y:      int32(trans.DstY),
		Width:  int32(geom.Width),
		Height: int32(geom.Height),
	}, nil
}

// Close closes the X connection.
func (p *X11Provider) Close() error {
	p.conn.Close()
	return nil
}
