// Package render holds the raster primitives shared by the overlay, the
// compositor and the editor chrome.
package render

import (
	"image"
	"image/color"
	"image/draw"
)

// Clear makes every pixel of dst fully transparent.
func Clear(dst *image.RGBA) {
	if dst == nil {
		return
	}
	clear(dst.Pix)
}

// FillRect paints rect with an opaque-or-not solid colour, replacing what was
// there. rect is clipped to dst.
func FillRect(dst *image.RGBA, rect image.Rectangle, col color.Color) {
	if dst == nil {
		return
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, image.NewUniform(col), image.Point{}, draw.Src)
}

// BlendRect composites a solid colour over rect.
func BlendRect(dst *image.RGBA, rect image.Rectangle, col color.Color) {
	if dst == nil {
		return
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, image.NewUniform(col), image.Point{}, draw.Over)
}

// StrokeRect outlines rect with a band thick pixels wide centred on its edges.
func StrokeRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thick int) {
	if thick <= 0 {
		return
	}
	inner := thick / 2
	outer := thick - inner
	o := rect.Inset(-outer)
	in := rect.Inset(inner)
	if in.Empty() {
		FillRect(dst, o, col)
		return
	}
	FillRect(dst, image.Rect(o.Min.X, o.Min.Y, o.Max.X, in.Min.Y), col)
	FillRect(dst, image.Rect(o.Min.X, in.Max.Y, o.Max.X, o.Max.Y), col)
	FillRect(dst, image.Rect(o.Min.X, in.Min.Y, in.Min.X, in.Max.Y), col)
	FillRect(dst, image.Rect(in.Max.X, in.Min.Y, o.Max.X, in.Max.Y), col)
}

// DrawDashedRect outlines rect with alternating dashes of c1 and c2.
func DrawDashedRect(img *image.RGBA, rect image.Rectangle, dash, thickness int, c1, c2 color.Color) {
	drawDashedLine(img, rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Max.X, rect.Min.Y, rect.Max.X, rect.Max.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Max.X, rect.Max.Y, rect.Min.X, rect.Max.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Min.X, rect.Max.Y, rect.Min.X, rect.Min.Y, dash, thickness, c1, c2)
}

// drawDashedLine handles horizontal and vertical segments only.
func drawDashedLine(img *image.RGBA, x0, y0, x1, y1, dash, thickness int, c1, c2 color.Color) {
	if dash <= 0 {
		dash = 1
	}
	horiz := y0 == y1
	length := x1 - x0
	step := 1
	if !horiz {
		length = y1 - y0
	}
	if length < 0 {
		length = -length
		step = -1
	}
	b := img.Bounds()
	for i := 0; i <= length; i++ {
		col := c1
		if (i/dash)%2 == 1 {
			col = c2
		}
		for t := 0; t < thickness; t++ {
			var p image.Point
			if horiz {
				p = image.Pt(x0+i*step, y0+t)
			} else {
				p = image.Pt(x0+t, y0+i*step)
			}
			if p.In(b) {
				img.Set(p.X, p.Y, col)
			}
		}
	}
}

// Clone returns a deep copy of src with the same bounds.
func Clone(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// Ensure returns img if it already has size, otherwise a new transparent
// image of that size. The second result reports whether a reallocation
// happened.
func Ensure(img *image.RGBA, size image.Point) (*image.RGBA, bool) {
	if img != nil && img.Bounds().Size() == size {
		return img, false
	}
	return image.NewRGBA(image.Rectangle{Max: size}), true
}

// IsTransparent reports whether every pixel of img has zero alpha.
func IsTransparent(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return false
		}
	}
	return true
}
