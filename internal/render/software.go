package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/wayswitch/wayswitch/internal/imaging"
	"github.com/wayswitch/wayswitch/internal/logger"
	"github.com/wayswitch/wayswitch/internal/wayland"
)

// Software is a CPU backend. It paints into a staging RGBA image and
// converts into the shared memory buffer on each frame.
type Software struct {
	mu      sync.Mutex
	surface Surface
	buf     *wayland.ShmBuffer
	staging *image.RGBA
}

// NewSoftware returns an uninitialized software backend.
func NewSoftware() *Software {
	return &Software{}
}

// Name identifies the backend in logs.
func (s *Software) Name() string {
	return "software"
}

// InitSurface allocates a shared memory buffer for the surface and reports
// the outcome on done.
func (s *Software) InitSurface(surface Surface, width, height uint32, done chan<- InitResult) {
	go func() {
		err := s.initSurface(surface, width, height)
		done <- InitResult{Backend: s.Name(), Err: err}
	}()
}

func (s *Software) initSurface(surface Surface, width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	buf, err := surface.CreateBuffer(width, height)
	if err != nil {
		return fmt.Errorf("failed to create surface buffer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf != nil {
		s.releaseLocked()
	}
	s.surface = surface
	s.buf = buf
	s.staging = image.NewRGBA(image.Rect(0, 0, int(width), int(height)))

	logger.WithComponent("render").Debug().
		Uint32("width", width).
		Uint32("height", height).
		Msg("Software backend initialized")
	return nil
}

// Render paints a frame and attaches it to the surface.
func (s *Software) Render(paint func(*image.RGBA)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return fmt.Errorf("render backend not initialized")
	}

	paint(s.staging)
	imaging.RGBAToBGRA(s.staging, s.buf.Pixels(), int(s.buf.Stride))
	s.surface.Attach(s.buf)
	return nil
}

// Resize reallocates buffers for a new surface size.
func (s *Software) Resize(width, height uint32) error {
	s.mu.Lock()
	surface := s.surface
	s.mu.Unlock()

	if surface == nil {
		return fmt.Errorf("render backend not initialized")
	}
	return s.initSurface(surface, width, height)
}

// DestroySurface releases the shared memory buffer.
func (s *Software) DestroySurface() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.surface = nil
	s.staging = nil
}

func (s *Software) releaseLocked() {
	if s.buf == nil {
		return
	}
	s.surface.DestroyBuffer(s.buf)
	s.buf = nil
}
