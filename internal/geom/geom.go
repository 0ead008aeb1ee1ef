// Package geom maps between source-frame coordinates and a scaled preview
// surface. All functions are pure.
package geom

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// DefaultMargin is the gap kept free on each side of the preview surface.
const DefaultMargin = 50

// floorEpsilon absorbs float error so that 1080*(440/1080) floors to 440.
const floorEpsilon = 1e-9

// ErrDegenerateWorkspace is wrapped by every GeometryError.
var ErrDegenerateWorkspace = errors.New("degenerate workspace")

// GeometryError reports inputs for which no workspace can be laid out.
type GeometryError struct {
	Preview Size
	Crop    Size
	Margin  float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%v: preview %gx%g, crop %gx%g, margin %g",
		ErrDegenerateWorkspace, e.Preview.Width, e.Preview.Height, e.Crop.Width, e.Crop.Height, e.Margin)
}

func (e *GeometryError) Unwrap() error { return ErrDegenerateWorkspace }

// Point is a position in either preview pixels or source units.
type Point struct {
	X, Y float64
}

// Size is a width and height pair.
type Size struct {
	Width, Height float64
}

// Rect is an axis aligned rectangle in source-space units.
type Rect struct {
	X, Y, Width, Height float64
}

// Workspace is where the active crop is drawn inside the preview surface.
type Workspace struct {
	X, Y, Width, Height float64
	Scale               float64
}

// FullFrame returns the rectangle covering a whole frame of the given size.
func FullFrame(s Size) Rect {
	return Rect{Width: s.Width, Height: s.Height}
}

// SizeOf converts image bounds into a Size.
func SizeOf(r image.Rectangle) Size {
	return Size{Width: float64(r.Dx()), Height: float64(r.Dy())}
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Max returns the bottom-right corner.
func (r Rect) Max() Point { return Point{X: r.X + r.Width, Y: r.Y + r.Height} }

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.Width <= r.X+r.Width && o.Y+o.Height <= r.Y+r.Height
}

// ClampTo returns r intersected with bounds. A rectangle entirely outside
// bounds collapses to a zero-area rectangle on the nearest edge.
func (r Rect) ClampTo(bounds Rect) Rect {
	x0 := clamp(r.X, bounds.X, bounds.X+bounds.Width)
	y0 := clamp(r.Y, bounds.Y, bounds.Y+bounds.Height)
	x1 := clamp(r.X+r.Width, bounds.X, bounds.X+bounds.Width)
	y1 := clamp(r.Y+r.Height, bounds.Y, bounds.Y+bounds.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Image converts r into integer pixel bounds covering every pixel r touches.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
}

// Image returns the workspace placement in preview pixels.
func (w Workspace) Image() image.Rectangle {
	return image.Rect(int(w.X), int(w.Y), int(w.X+w.Width), int(w.Y+w.Height))
}

// NormalizeRect returns the bounding box of two points.
func NormalizeRect(a, b Point) Rect {
	x := math.Min(a.X, b.X)
	y := math.Min(a.Y, b.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(a.X, b.X) - x,
		Height: math.Max(a.Y, b.Y) - y,
	}
}

// ComputeWorkspace fits crop into preview, keeping margin free on every side.
// The crop is scaled uniformly and centred.
func ComputeWorkspace(preview, crop Size, margin float64) (Workspace, error) {
	availW := preview.Width - margin*2
	availH := preview.Height - margin*2
	if !finite(availW, availH, crop.Width, crop.Height) || availW <= 0 || availH <= 0 || crop.Width <= 0 || crop.Height <= 0 {
		return Workspace{}, &GeometryError{Preview: preview, Crop: crop, Margin: margin}
	}
	scale := math.Min(availW/crop.Width, availH/crop.Height)
	width := math.Floor(crop.Width*scale + floorEpsilon)
	height := math.Floor(crop.Height*scale + floorEpsilon)
	if scale <= 0 || width <= 0 || height <= 0 {
		return Workspace{}, &GeometryError{Preview: preview, Crop: crop, Margin: margin}
	}
	return Workspace{
		X:      math.Floor((preview.Width - width) / 2),
		Y:      math.Floor((preview.Height - height) / 2),
		Width:  width,
		Height: height,
		Scale:  scale,
	}, nil
}

// ClampToWorkspace moves p onto the nearest point inside the workspace.
func ClampToWorkspace(p Point, ws Workspace) Point {
	return Point{
		X: clamp(p.X, ws.X, ws.X+ws.Width),
		Y: clamp(p.Y, ws.Y, ws.Y+ws.Height),
	}
}

// MapPointerToSource converts a preview pointer position into source space.
// The pointer is first clamped into the workspace so the result never leaves
// the active crop.
func MapPointerToSource(p Point, ws Workspace, crop Rect) Point {
	c := ClampToWorkspace(p, ws)
	return Point{
		X: clamp((c.X-ws.X)/ws.Scale+crop.X, crop.X, crop.X+crop.Width),
		Y: clamp((c.Y-ws.Y)/ws.Scale+crop.Y, crop.Y, crop.Y+crop.Height),
	}
}

// MapSourceToPreview is the inverse of MapPointerToSource for points inside
// the crop.
func MapSourceToPreview(p Point, ws Workspace, crop Rect) Point {
	return Point{
		X: (p.X-crop.X)*ws.Scale + ws.X,
		Y: (p.Y-crop.Y)*ws.Scale + ws.Y,
	}
}

// MapRectToPreview converts a source rectangle into preview space.
func MapRectToPreview(r Rect, ws Workspace, crop Rect) Rect {
	min := MapSourceToPreview(Point{X: r.X, Y: r.Y}, ws, crop)
	return Rect{X: min.X, Y: min.Y, Width: r.Width * ws.Scale, Height: r.Height * ws.Scale}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
