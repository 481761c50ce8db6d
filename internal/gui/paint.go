package gui

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Paint renders the switcher into dst, which covers the whole overlay
// surface. Everything outside the panel stays fully transparent.
func (s *State) Paint(dst *image.RGBA) {
	bounds := dst.Bounds()
	draw.Draw(dst, bounds, image.Transparent, image.Point{}, draw.Src)

	// The panel is drawn even with no items, so an empty switcher
	// still reads as present rather than as a dead surface.
	l := s.Relayout(bounds.Dx(), bounds.Dy())
	draw.Draw(dst, l.Panel, image.NewUniform(s.win.Background), image.Point{}, draw.Over)
	strokeRect(dst, l.Panel, 1, image.NewUniform(s.win.Border))

	for i, it := range s.items {
		box := l.Boxes[i]
		draw.Draw(dst, box, image.NewUniform(s.item.Background), image.Point{}, draw.Over)

		previewArea := image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+int(s.item.PreviewHeight))
		if it.Preview != nil {
			pb := it.Preview.Bounds()
			// Center the preview in its slot.
			off := image.Pt(
				previewArea.Min.X+(previewArea.Dx()-pb.Dx())/2,
				previewArea.Min.Y+(previewArea.Dy()-pb.Dy())/2,
			)
			target := image.Rectangle{Min: off, Max: off.Add(pb.Size())}.Intersect(previewArea)
			draw.Draw(dst, target, it.Preview, pb.Min, draw.Over)
		}

		titleArea := image.Rect(box.Min.X, previewArea.Max.Y, box.Max.X, box.Max.Y)
		s.paintTitle(dst, titleArea, it)

		if i == s.selected {
			strokeRect(dst, box, 2, image.NewUniform(s.item.SelectedBorder))
		}
	}
}

func (s *State) paintTitle(dst *image.RGBA, area image.Rectangle, it *Item) {
	textLeft := area.Min.X + 4
	if it.Icon != nil {
		ib := it.Icon.Bounds()
		iconTop := area.Min.Y + (area.Dy()-ib.Dy())/2
		iconRect := image.Rect(textLeft, iconTop, textLeft+ib.Dx(), iconTop+ib.Dy()).Intersect(area)
		draw.Draw(dst, iconRect, it.Icon, ib.Min, draw.Over)
		textLeft += ib.Dx() + 4
	}

	face := basicfont.Face7x13
	title := truncateToWidth(it.DisplayTitle(), face, area.Max.X-4-textLeft)
	if title == "" {
		return
	}

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(s.item.TitleColor),
		Face: face,
		Dot: fixed.P(
			textLeft,
			area.Min.Y+(area.Dy()+face.Ascent-face.Descent)/2,
		),
	}
	d.DrawString(title)
}

// truncateToWidth trims a string to fit the pixel width, appending an
// ellipsis when it had to cut.
func truncateToWidth(s string, face font.Face, width int) string {
	if width <= 0 {
		return ""
	}
	w := fixed.I(width)
	if font.MeasureString(face, s) <= w {
		return s
	}
	ellipsis := font.MeasureString(face, "…")
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if font.MeasureString(face, string(runes))+ellipsis <= w {
			return string(runes) + "…"
		}
	}
	return ""
}

// strokeRect draws a w-pixel frame just inside r.
func strokeRect(dst *image.RGBA, r image.Rectangle, w int, src image.Image) {
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), src, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), src, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y+w, r.Min.X+w, r.Max.Y-w), src, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Max.X-w, r.Min.Y+w, r.Max.X, r.Max.Y-w), src, image.Point{}, draw.Over)
}
