package geometry

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	kwinService   = "org.kde.KWin"
	kwinPath      = "/KWin"
	kwinInterface = "org.kde.KWin"
)

// KWinProvider queries KWin over the session bus.
type KWinProvider struct {
	conn *dbus.Conn
}

// NewKWinProvider connects to the session bus and verifies KWin is
// actually there.
func NewKWinProvider() (Provider, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to list D-Bus names: %w", err)
	}

	kwinFound := false
	for _, name := range names {
		if name == kwinService {
			kwinFound = true
			break
		}
	}
	if !kwinFound {
		conn.Close()
		return nil, fmt.Errorf("KWin service not found on D-Bus")
	}

	return &KWinProvider{conn: conn}, nil
}

// Name returns the provider name.
func (p *KWinProvider) Name() string {
	return "kwin"
}

// ActiveWindowGeometry resolves the active window UUID and reads its
// rectangle from getWindowInfo.
func (p *KWinProvider) ActiveWindowGeometry() (Geometry, error) {
	uuid, err := p.activeWindowUUID()
	if err != nil {
		return Geometry{}, err
	}

	obj := p.conn.Object(kwinService, kwinPath)
	var info map[string]dbus.Variant
	if err := obj.Call(kwinInterface+".getWindowInfo", 0, uuid).Store(&info); err != nil {
		return Geometry{}, fmt.Errorf("getWindowInfo failed: %w", err)
	}

	return Geometry{
		X:      variantInt32(info, "x"),
		Y:      variantInt32(info, "y"),
		Width:  variantInt32(info, "width"),
		Height: variantInt32(info, "height"),
	}, nil
}

// activeWindowUUID reads the active window property. KWin5 calls it
// activeClient, KWin6 activeWindow.
func (p *KWinProvider) activeWindowUUID() (string, error) {
	obj := p.conn.Object(kwinService, kwinPath)

	for _, propName := range []string{"activeWindow", "activeClient"} {
		variant, err := obj.GetProperty(kwinInterface + "." + propName)
		if err != nil {
			continue
		}

		var path string
		switch v := variant.Value().(type) {
		case dbus.ObjectPath:
			path = string(v)
		case string:
			path = v
		}
		if path == "" || path == "/" {
			continue
		}
		// Path looks like /org/kde/KWin/Window/{uuid}.
		if idx := strings.LastIndex(path, "/"); idx >= 0 {
			path = path[idx+1:]
		}
		return strings.Trim(path, "{}"), nil
	}

	return "", fmt.Errorf("no active window exposed by KWin")
}

// variantInt32 pries a number out of a variant map. KWin versions
// disagree on the numeric type, so accept all of them.
func variantInt32(info map[string]dbus.Variant, key string) int32 {
	variant, ok := info[key]
	if !ok {
		return 0
	}
	switch v := variant.Value().(type) {
	case float64:
		return int32(v)
	case int32:
		return v
	case int64:
		return int32(v)
	case uint32:
		return int32(v)
	}
	return 0
}

// Close closes the session bus connection.
func (p *KWinProvider) Close() error {
	return p.conn.Close()
}
