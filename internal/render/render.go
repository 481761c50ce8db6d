// Package render draws overlay frames into compositor shared memory.
package render

import (
	"fmt"
	"image"

	"github.com/wayswitch/wayswitch/internal/config"
	"github.com/wayswitch/wayswitch/internal/wayland"
)

// Surface is the subset of the compositor session a backend draws to.
// *wayland.Session satisfies it.
type Surface interface {
	CreateBuffer(width, height uint32) (*wayland.ShmBuffer, error)
	DestroyBuffer(buf *wayland.ShmBuffer)
	Attach(buf *wayland.ShmBuffer)
}

// InitResult reports the outcome of an asynchronous backend initialization.
type InitResult struct {
	Backend string
	Err     error
}

// Backend renders overlay content to a Surface.
type Backend interface {
	Name() string

	// InitSurface prepares buffers for a surface of the given size and
	// reports the outcome on done. It never blocks the caller.
	InitSurface(surface Surface, width, height uint32, done chan<- InitResult)

	// Render calls paint with a staging image and pushes the result to
	// the surface. It fails if InitSurface has not completed.
	Render(paint func(*image.RGBA)) error

	// Resize replaces the buffers for a new surface size.
	Resize(width, height uint32) error

	// DestroySurface releases the buffers. The backend can be
	// reinitialized with InitSurface afterwards.
	DestroySurface()
}

// Select returns the backend for the configured choice.
func Select(choice config.RenderBackend) (Backend, error) {
	switch choice {
	case config.RenderBackendAuto, config.RenderBackendSoftware:
		return NewSoftware(), nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", choice)
	}
}
