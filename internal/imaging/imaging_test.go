package imaging

import (
	"image"
	"testing"
	"time"
)

func TestBGRAToRGBA(t *testing.T) {
	// One row, two pixels: blue opaque, red half-transparent.
	data := []byte{
		0xff, 0x00, 0x00, 0xff, // B G R A
		0x00, 0x00, 0xff, 0x80,
	}
	img := BGRAToRGBA(data, 2, 1, 8, true)

	if got := img.Pix[0:4]; got[0] != 0x00 || got[1] != 0x00 || got[2] != 0xff || got[3] != 0xff {
		t.Fatalf("pixel 0 = %v, want opaque blue in RGBA order", got)
	}
	if got := img.Pix[4:8]; got[0] != 0xff || got[2] != 0x00 || got[3] != 0x80 {
		t.Fatalf("pixel 1 = %v, want half-transparent red", got)
	}
}

func TestBGRAToRGBAIgnoresAlphaForXRGB(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30, 0x00}
	img := BGRAToRGBA(data, 1, 1, 4, false)
	if img.Pix[3] != 0xff {
		t.Fatalf("alpha = %#x, want forced opaque", img.Pix[3])
	}
}

func TestBGRAToRGBARespectsStride(t *testing.T) {
	// Stride 8 with one real pixel per row; padding must be skipped.
	data := []byte{
		0x01, 0x02, 0x03, 0xff, 0xee, 0xee, 0xee, 0xee,
		0x04, 0x05, 0x06, 0xff, 0xee, 0xee, 0xee, 0xee,
	}
	img := BGRAToRGBA(data, 1, 2, 8, true)
	if img.Pix[0] != 0x03 || img.PixOffset(0, 1) != img.Stride || img.Pix[img.Stride] != 0x06 {
		t.Fatalf("stride handling wrong: %v", img.Pix)
	}
}

func TestRGBAToBGRARoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = byte(i * 7)
	}

	bgra := make([]byte, 2*2*4)
	RGBAToBGRA(src, bgra, 8)
	back := BGRAToRGBA(bgra, 2, 2, 8, true)

	for i := range src.Pix {
		if src.Pix[i] != back.Pix[i] {
			t.Fatalf("round trip changed pixel byte %d: %#x != %#x", i, src.Pix[i], back.Pix[i])
		}
	}
}

func TestResizerScalesToRequestedSize(t *testing.T) {
	r := NewResizer()
	defer r.Stop()

	src := image.NewRGBA(image.Rect(0, 0, 400, 300))
	r.Resize(9, src, 200, 150)

	select {
	case res := <-r.Results():
		if res.Window != 9 {
			t.Fatalf("result window = %d, want 9", res.Window)
		}
		if b := res.Image.Bounds(); b.Dx() != 200 || b.Dy() != 150 {
			t.Fatalf("result size = %dx%d, want 200x150", b.Dx(), b.Dy())
		}
	case <-time.After(time.Second):
		t.Fatal("no resize result")
	}
}

func TestResizerRejectsDegenerateTargets(t *testing.T) {
	r := NewResizer()
	defer r.Stop()

	r.Resize(1, nil, 10, 10)
	r.Resize(2, image.NewRGBA(image.Rect(0, 0, 4, 4)), 0, 10)

	select {
	case res := <-r.Results():
		t.Fatalf("unexpected result %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
}
