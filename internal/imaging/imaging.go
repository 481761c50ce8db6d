// Package imaging does pixel format conversion and preview scaling.
// Scaling runs on a worker goroutine; full-screen captures are big and
// the daemon loop must not stall on them.
package imaging

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/wayswitch/wayswitch/internal/logger"
)

// BGRAToRGBA converts little-endian 32-bit pixels (BGRA byte order in
// memory, as wl_shm ARGB8888/XRGB8888 lay them out) into an RGBA
// image. When hasAlpha is false the alpha channel is forced opaque.
func BGRAToRGBA(data []byte, width, height, stride int, hasAlpha bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := data[y*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			si := x * 4
			di := x * 4
			dst[di+0] = src[si+2]
			dst[di+1] = src[si+1]
			dst[di+2] = src[si+0]
			if hasAlpha {
				dst[di+3] = src[si+3]
			} else {
				dst[di+3] = 0xff
			}
		}
	}
	return img
}

// RGBAToBGRA writes img into a BGRA destination with the given stride.
// The destination must hold height*stride bytes.
func RGBAToBGRA(img *image.RGBA, dst []byte, stride int) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride:]
		row := dst[y*stride:]
		for x := 0; x < b.Dx(); x++ {
			si := x * 4
			row[si+0] = src[si+2]
			row[si+1] = src[si+1]
			row[si+2] = src[si+0]
			row[si+3] = src[si+3]
		}
	}
}

// Resized is a finished preview scale.
type Resized struct {
	Window uint32
	Image  *image.RGBA
}

type resizeRequest struct {
	window uint32
	img    *image.RGBA
	width  int
	height int
}

// Resizer scales capture images down to preview size off the daemon
// loop. Overflowing requests are dropped; a fresher capture replaces
// them soon enough.
type Resizer struct {
	requests chan resizeRequest
	results  chan Resized
	quit     chan struct{}
}

// NewResizer creates and starts a resize worker.
func NewResizer() *Resizer {
	r := &Resizer{
		requests: make(chan resizeRequest, 8),
		results:  make(chan Resized, 8),
		quit:     make(chan struct{}),
	}
	go r.run()
	return r
}

// Resize queues img to be scaled to exactly width x height.
func (r *Resizer) Resize(window uint32, img *image.RGBA, width, height int) {
	if img == nil || width <= 0 || height <= 0 {
		return
	}
	select {
	case r.requests <- resizeRequest{window: window, img: img, width: width, height: height}:
	case <-r.quit:
	default:
		logger.WithComponent("imaging").Debug().
			Uint32("window", window).
			Msg("Resize queue full, dropping request")
	}
}

// Results returns the finished previews.
func (r *Resizer) Results() <-chan Resized {
	return r.results
}

// Stop terminates the worker.
func (r *Resizer) Stop() {
	close(r.quit)
}

func (r *Resizer) run() {
	for {
		select {
		case req := <-r.requests:
			dst := image.NewRGBA(image.Rect(0, 0, req.width, req.height))
			draw.ApproxBiLinear.Scale(dst, dst.Bounds(), req.img, req.img.Bounds(), draw.Src, nil)
			select {
			case r.results <- Resized{Window: req.window, Image: dst}:
			case <-r.quit:
				return
			}
		case <-r.quit:
			return
		}
	}
}
