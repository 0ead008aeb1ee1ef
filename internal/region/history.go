// Package region keeps the committed crop and redaction rectangles of an
// editing session as two independent undo stacks.
package region

import (
	"github.com/example/sharecrop/internal/geom"
)

// RepaintFunc redraws the overlay from the remaining redactions, in order.
type RepaintFunc func(redactions []geom.Rect)

// History holds the crop and redaction stacks for one source frame size.
// It is not safe for concurrent use; callers serialize access.
type History struct {
	frame      geom.Size
	crops      []geom.Rect
	redactions []geom.Rect
	repaint    RepaintFunc
}

// New returns an empty History for frames of the given size. repaint may be
// nil.
func New(frame geom.Size, repaint RepaintFunc) *History {
	return &History{frame: frame, repaint: repaint}
}

// Frame returns the source frame size the history was created for.
func (h *History) Frame() geom.Size { return h.frame }

// PushCrop commits a crop. The rectangle is clamped into the source frame.
func (h *History) PushCrop(r geom.Rect) {
	h.crops = append(h.crops, r.ClampTo(geom.FullFrame(h.frame)))
}

// PopCrop removes the most recent crop.
func (h *History) PopCrop() (geom.Rect, bool) {
	if len(h.crops) == 0 {
		return geom.Rect{}, false
	}
	last := h.crops[len(h.crops)-1]
	h.crops = h.crops[:len(h.crops)-1]
	return last, true
}

// CurrentCrop returns the active crop, or the full frame when none has been
// committed.
func (h *History) CurrentCrop() geom.Rect {
	if len(h.crops) == 0 {
		return geom.FullFrame(h.frame)
	}
	return h.crops[len(h.crops)-1]
}

// Crops returns a copy of the crop stack, oldest first.
func (h *History) Crops() []geom.Rect {
	return append([]geom.Rect(nil), h.crops...)
}

// PushRedaction commits a redaction rectangle. Painting it is the caller's
// job; only removals trigger a repaint.
func (h *History) PushRedaction(r geom.Rect) {
	h.redactions = append(h.redactions, r)
}

// PopRedaction removes the most recent redaction and repaints the overlay
// from what remains.
func (h *History) PopRedaction() (geom.Rect, bool) {
	if len(h.redactions) == 0 {
		return geom.Rect{}, false
	}
	last := h.redactions[len(h.redactions)-1]
	h.redactions = h.redactions[:len(h.redactions)-1]
	h.notifyRepaint()
	return last, true
}

// Redactions returns a copy of the redaction stack, oldest first.
func (h *History) Redactions() []geom.Rect {
	return append([]geom.Rect(nil), h.redactions...)
}

// ResetAll clears both stacks and repaints the overlay once.
func (h *History) ResetAll() {
	h.crops = nil
	h.redactions = nil
	h.notifyRepaint()
}

func (h *History) notifyRepaint() {
	if h.repaint != nil {
		h.repaint(h.Redactions())
	}
}
