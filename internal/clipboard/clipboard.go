// Package clipboard copies published frames and crop rectangles to the
// system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/sharecrop/internal/geom"
)

var (
	// ErrUnsupported is returned on platforms without a clipboard backend.
	ErrUnsupported = errors.New("clipboard not supported on this platform")
	// ErrEmpty is returned when the clipboard holds nothing in the
	// requested format.
	ErrEmpty = errors.New("clipboard empty")
)

// FormatRect renders r as "x,y,w,h" in whole source pixels.
func FormatRect(r geom.Rect) string {
	b := r.Image()
	return fmt.Sprintf("%d,%d,%d,%d", b.Min.X, b.Min.Y, b.Dx(), b.Dy())
}

// ParseRect reads the "x,y,w,h" form written by FormatRect. Whitespace
// around fields is ignored.
func ParseRect(s string) (geom.Rect, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return geom.Rect{}, fmt.Errorf("rect %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = f
	}
	if v[2] < 0 || v[3] < 0 {
		return geom.Rect{}, fmt.Errorf("rect %q: negative size", s)
	}
	return geom.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

// ReadRect parses a crop rectangle from the clipboard text.
func ReadRect() (geom.Rect, error) {
	text, err := ReadText()
	if err != nil {
		return geom.Rect{}, err
	}
	return ParseRect(text)
}
