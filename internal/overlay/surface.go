// Package overlay owns the persistent full-frame layer that holds committed
// redactions and the decorative badge.
package overlay

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/render"
)

// BadgePadding is added to the badge height, and proportionally to its
// width, to size the translucent backing box.
const BadgePadding = 50

// DefaultBadgeBacking is the translucent box drawn behind the badge.
var DefaultBadgeBacking = color.NRGBA{A: 153}

// Surface is a transparent RGBA layer the size of the source frame. It is
// not safe for concurrent use.
type Surface struct {
	img       *image.RGBA
	redaction color.Color
	backing   color.Color

	badge   image.Image
	badgeAt geom.Rect
}

// Option configures a Surface.
type Option func(*Surface)

// WithRedactionColor sets the fill used for redactions.
func WithRedactionColor(c color.Color) Option {
	return func(s *Surface) {
		if c != nil {
			s.redaction = c
		}
	}
}

// WithBadgeBacking sets the colour of the box behind the badge.
func WithBadgeBacking(c color.Color) Option {
	return func(s *Surface) {
		if c != nil {
			s.backing = c
		}
	}
}

// New allocates a transparent surface for frames of the given size.
func New(frame geom.Size, opts ...Option) *Surface {
	s := &Surface{
		img:       image.NewRGBA(image.Rect(0, 0, int(frame.Width), int(frame.Height))),
		redaction: color.Black,
		backing:   DefaultBadgeBacking,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Image returns the backing image, or nil once released.
func (s *Surface) Image() *image.RGBA { return s.img }

// PaintRedaction fills r with the redaction colour.
func (s *Surface) PaintRedaction(r geom.Rect) {
	if s.img == nil {
		return
	}
	render.FillRect(s.img, r.Image(), s.redaction)
}

// Repaint clears the surface and paints rects in order, then the badge if
// one has been placed.
func (s *Surface) Repaint(rects []geom.Rect) {
	if s.img == nil {
		return
	}
	render.Clear(s.img)
	for _, r := range rects {
		s.PaintRedaction(r)
	}
	if s.badge != nil {
		s.drawBadge()
	}
}

// PlaceBadge stamps badge into the top-left corner of crop and remembers it
// so later repaints keep it. A nil badge is ignored.
func (s *Surface) PlaceBadge(badge image.Image, crop geom.Rect) {
	if s.img == nil || badge == nil {
		return
	}
	s.badge = badge
	s.badgeAt = crop
	s.drawBadge()
}

// HasBadge reports whether a badge has been placed.
func (s *Surface) HasBadge() bool { return s.badge != nil }

// BadgeBounds returns where the badge box sits in frame coordinates.
func (s *Surface) BadgeBounds() (image.Rectangle, bool) {
	if s.badge == nil {
		return image.Rectangle{}, false
	}
	return badgeBox(s.badge.Bounds().Size(), s.badgeAt), true
}

// Release drops the pixel buffer. Further calls are no-ops.
func (s *Surface) Release() {
	s.img = nil
	s.badge = nil
}

func (s *Surface) drawBadge() {
	box := badgeBox(s.badge.Bounds().Size(), s.badgeAt)
	render.BlendRect(s.img, box, s.backing)
	xdraw.ApproxBiLinear.Scale(s.img, box, s.badge, s.badge.Bounds(), xdraw.Over, nil)
}

func badgeBox(size image.Point, crop geom.Rect) image.Rectangle {
	w, h := float64(size.X), float64(size.Y)
	if h <= 0 {
		h = 1
	}
	k := w / h
	bw := int(math.Floor(w + BadgePadding*k))
	bh := int(math.Floor(h + BadgePadding))
	x := int(math.Floor(crop.X))
	y := int(math.Floor(crop.Y))
	return image.Rect(x, y, x+bw, y+bh)
}
