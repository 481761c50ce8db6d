package geometry

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"
)

const hyprlandTimeout = time.Second

// HyprlandProvider queries Hyprland's command socket.
type HyprlandProvider struct {
	socketPath string
}

// NewHyprlandProvider locates the Hyprland command socket for the
// current session.
func NewHyprlandProvider() (Provider, error) {
	signature := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if signature == "" {
		return nil, fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE not set")
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = fmt.Sprintf("/run/user/%d", os.Getuid())
	}

	socketPath := filepath.Join(runtimeDir, "hypr", signature, ".socket.sock")
	if _, err := os.Stat(socketPath); err != nil {
		return nil, fmt.Errorf("hyprland socket not found: %w", err)
	}

	return &HyprlandProvider{socketPath: socketPath}, nil
}

// Name returns the provider name.
func (p *HyprlandProvider) Name() string {
	return "hyprland"
}

// activeWindowReply is the subset of `hyprctl activewindow` we need.
type activeWindowReply struct {
	At   [2]int32 `json:"at"`
	Size [2]int32 `json:"size"`
}

// ActiveWindowGeometry asks Hyprland for the focused window rectangle.
// Each query is its own connection; Hyprland closes the socket after
// one reply.
func (p *HyprlandProvider) ActiveWindowGeometry() (Geometry, error) {
	conn, err := net.DialTimeout("unix", p.socketPath, hyprlandTimeout)
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to connect to hyprland: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(hyprlandTimeout))

	if _, err := conn.Write([]byte("j/activewindow")); err != nil {
		return Geometry{}, fmt.Errorf("failed to query hyprland: %w", err)
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to read hyprland reply: %w", err)
	}

	var reply activeWindowReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return Geometry{}, fmt.Errorf("failed to parse hyprland reply: %w", err)
	}

	return Geometry{
		X:      reply.At[0],
		Y:      reply.At[1],
		Width:  reply.Size[0],
		Height: reply.Size[1],
	}, nil
}

// Close is a no-op; connections are per-query.
func (p *HyprlandProvider) Close() error {
	return nil
}
