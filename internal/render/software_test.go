package render

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/wayswitch/wayswitch/internal/config"
	"github.com/wayswitch/wayswitch/internal/wayland"
)

type fakeSurface struct {
	created   int
	destroyed int
	attached  int
	last      *wayland.ShmBuffer
}

func (f *fakeSurface) CreateBuffer(width, height uint32) (*wayland.ShmBuffer, error) {
	buf, err := wayland.NewMemoryBuffer(width, height, width*4)
	if err != nil {
		return nil, err
	}
	f.created++
	return buf, nil
}

func (f *fakeSurface) DestroyBuffer(buf *wayland.ShmBuffer) {
	f.destroyed++
	buf.Release()
}

func (f *fakeSurface) Attach(buf *wayland.ShmBuffer) {
	f.attached++
	f.last = buf
}

func initBackend(t *testing.T, s *Software, surface Surface, w, h uint32) {
	t.Helper()
	done := make(chan InitResult, 1)
	s.InitSurface(surface, w, h, done)
	select {
	case res := <-done:
		if res.Err != nil {
			t.Fatalf("InitSurface failed: %v", res.Err)
		}
		if res.Backend != "software" {
			t.Fatalf("unexpected backend name %q", res.Backend)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("InitSurface did not complete")
	}
}

func TestSelectBackend(t *testing.T) {
	for _, choice := range []config.RenderBackend{config.RenderBackendAuto, config.RenderBackendSoftware} {
		backend, err := Select(choice)
		if err != nil {
			t.Fatalf("Select(%q) failed: %v", choice, err)
		}
		if backend.Name() != "software" {
			t.Errorf("Select(%q) = %q, want software", choice, backend.Name())
		}
	}
	if _, err := Select("vulkan"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRenderBeforeInitFails(t *testing.T) {
	s := NewSoftware()
	if err := s.Render(func(*image.RGBA) {}); err == nil {
		t.Error("expected error rendering before InitSurface")
	}
}

func TestRenderConvertsToSharedMemory(t *testing.T) {
	surface := &fakeSurface{}
	s := NewSoftware()
	initBackend(t, s, surface, 4, 2)
	defer s.DestroySurface()

	err := s.Render(func(img *image.RGBA) {
		img.SetRGBA(0, 0, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if surface.attached != 1 {
		t.Fatalf("attached = %d, want 1", surface.attached)
	}

	px := surface.last.Pixels()
	if px[0] != 0x33 || px[1] != 0x22 || px[2] != 0x11 || px[3] != 0xff {
		t.Errorf("shared memory pixel = % x, want 33 22 11 ff", px[:4])
	}
}

func TestStagingPersistsBetweenFrames(t *testing.T) {
	surface := &fakeSurface{}
	s := NewSoftware()
	initBackend(t, s, surface, 2, 2)
	defer s.DestroySurface()

	if err := s.Render(func(img *image.RGBA) {
		img.SetRGBA(1, 1, color.RGBA{R: 0xff, A: 0xff})
	}); err != nil {
		t.Fatalf("first Render failed: %v", err)
	}
	if err := s.Render(func(img *image.RGBA) {
		if got := img.RGBAAt(1, 1); got.R != 0xff {
			t.Errorf("staging pixel lost between frames: %v", got)
		}
	}); err != nil {
		t.Fatalf("second Render failed: %v", err)
	}
}

func TestInitRejectsDegenerateSize(t *testing.T) {
	surface := &fakeSurface{}
	s := NewSoftware()
	done := make(chan InitResult, 1)
	s.InitSurface(surface, 0, 100, done)
	res := <-done
	if res.Err == nil {
		t.Error("expected error for zero width surface")
	}
	if surface.created != 0 {
		t.Errorf("created = %d, want 0", surface.created)
	}
}

func TestResizeReplacesBuffer(t *testing.T) {
	surface := &fakeSurface{}
	s := NewSoftware()
	initBackend(t, s, surface, 4, 4)

	if err := s.Resize(8, 8); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if surface.created != 2 {
		t.Errorf("created = %d, want 2", surface.created)
	}
	if surface.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", surface.destroyed)
	}

	err := s.Render(func(img *image.RGBA) {
		if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
			t.Errorf("staging bounds = %v, want 8x8", img.Bounds())
		}
	})
	if err != nil {
		t.Fatalf("Render after Resize failed: %v", err)
	}

	s.DestroySurface()
	if surface.destroyed != 2 {
		t.Errorf("destroyed after DestroySurface = %d, want 2", surface.destroyed)
	}
}
