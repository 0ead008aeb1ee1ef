// Package session binds one frame source to the editing state a user
// builds up before sharing: crop and redaction history, the overlay layer and
// the pointer gesture in progress. Every mutation goes through one mutex,
// which the compositor also holds while drawing.
package session

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/gesture"
	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/overlay"
	"github.com/example/sharecrop/internal/region"
)

// State is the lifecycle position of a session.
type State int

const (
	StateIdle State = iota
	StateEditing
	StateAccepting
	StateAccepted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateAccepting:
		return "accepting"
	case StateAccepted:
		return "accepted"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// BadgeFunc loads the decorative badge stamped on accept.
type BadgeFunc func(ctx context.Context) (image.Image, error)

// Options configures a Session.
type Options struct {
	PreviewSize     geom.Size
	Margin          float64
	MinDragDistance float64
	RedactionColor  color.Color
	BadgeBacking    color.Color
	// Badge is loaded on accept when set.
	Badge BadgeFunc
	Tool  gesture.Tool
}

// Session is safe for concurrent use.
type Session struct {
	id   string
	opts Options
	log  *logrus.Entry

	mu       sync.Mutex
	state    State
	tool     gesture.Tool
	frame    geom.Size
	history  *region.History
	overlay  *overlay.Surface
	gestures *gesture.Controller
	future   *Future
	onChange []func()
}

// New creates an idle session.
func New(opts Options) *Session {
	id := uuid.New().String()
	return &Session{
		id:   id,
		opts: opts,
		tool: opts.Tool,
		log:  logrus.WithFields(logrus.Fields{"session": id}),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Begin starts editing frames from src. Calling it again returns the same
// future.
func (s *Session) Begin(src media.FrameSource) *Future {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.future != nil {
		return s.future
	}
	size := src.Size()
	s.frame = geom.Size{Width: float64(size.X), Height: float64(size.Y)}
	s.overlay = overlay.New(s.frame,
		overlay.WithRedactionColor(s.opts.RedactionColor),
		overlay.WithBadgeBacking(s.opts.BadgeBacking))
	s.history = region.New(s.frame, s.overlay.Repaint)
	s.gestures = gesture.New(s.history, s.overlay, gesture.ToolFunc(func() gesture.Tool { return s.tool }), s.opts.PreviewSize)
	if s.opts.Margin > 0 {
		s.gestures.SetMargin(s.opts.Margin)
	}
	s.gestures.MinDragDistance = s.opts.MinDragDistance
	s.future = newFuture()
	s.state = StateEditing
	s.log.WithFields(logrus.Fields{
		"function": "Begin",
		"frame":    size,
	}).Info("editing session started")
	return s.future
}

// Locker returns the mutex that serializes edits and compositing.
func (s *Session) Locker() sync.Locker { return &s.mu }

// Scene returns a view of the editing state for the compositor. Its methods
// must be called with Locker held.
func (s *Session) Scene() *Scene { return &Scene{s: s} }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ended reports whether the session has accepted or cancelled.
func (s *Session) Ended() bool {
	st := s.State()
	return st != StateIdle && st != StateEditing
}

// OnChange registers fn to run after every effective edit.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// edit runs fn under the lock if the session is editing and notifies change
// listeners when fn reports a change.
func (s *Session) edit(fn func() bool) bool {
	s.mu.Lock()
	if s.state != StateEditing {
		s.mu.Unlock()
		return false
	}
	changed := fn()
	listeners := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	if changed {
		for _, l := range listeners {
			l()
		}
	}
	return changed
}

// SelectTool sets the tool used by the next committed drag.
func (s *Session) SelectTool(t gesture.Tool) {
	s.edit(func() bool {
		changed := s.tool != t
		s.tool = t
		return changed
	})
}

// Tool returns the selected tool.
func (s *Session) Tool() gesture.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetPreviewSize updates the preview dimensions used for pointer mapping.
func (s *Session) SetPreviewSize(size geom.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.PreviewSize = size
	if s.gestures != nil {
		s.gestures.SetPreviewSize(size)
	}
}

// Down starts a drag at preview point p.
func (s *Session) Down(p geom.Point) {
	s.edit(func() bool {
		commit, ok := s.gestures.Down(p)
		s.logCommit(commit, ok)
		return true
	})
}

// Move extends the drag in progress.
func (s *Session) Move(p geom.Point) {
	s.edit(func() bool {
		if !s.gestures.Dragging() {
			return false
		}
		s.gestures.Move(p)
		return true
	})
}

// Up completes the drag in progress.
func (s *Session) Up(p geom.Point) (gesture.Commit, bool) {
	var commit gesture.Commit
	var ok bool
	s.edit(func() bool {
		wasDragging := s.gestures.Dragging()
		commit, ok = s.gestures.Up(p)
		s.logCommit(commit, ok)
		return wasDragging
	})
	return commit, ok
}

// CancelDrag drops the drag in progress.
func (s *Session) CancelDrag() {
	s.edit(func() bool {
		if !s.gestures.Dragging() {
			return false
		}
		s.gestures.CancelDrag()
		return true
	})
}

// Dragging reports whether a drag is in progress.
func (s *Session) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestures != nil && s.gestures.Dragging()
}

// Cursor returns the pointer shape the host should show.
func (s *Session) Cursor() gesture.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gestures == nil {
		return gesture.CursorCrosshair
	}
	return s.gestures.Cursor()
}

// UndoCrop removes the most recent crop.
func (s *Session) UndoCrop() bool {
	return s.edit(func() bool {
		_, ok := s.history.PopCrop()
		return ok
	})
}

// UndoRedaction removes the most recent redaction.
func (s *Session) UndoRedaction() bool {
	return s.edit(func() bool {
		_, ok := s.history.PopRedaction()
		return ok
	})
}

// Reset clears all crops and redactions.
func (s *Session) Reset() {
	s.edit(func() bool {
		s.gestures.CancelDrag()
		s.history.ResetAll()
		return true
	})
}

// PushCrop commits r as a crop directly, without a gesture.
func (s *Session) PushCrop(r geom.Rect) bool {
	return s.edit(func() bool {
		s.history.PushCrop(r.ClampTo(s.history.CurrentCrop()))
		return true
	})
}

// PushRedaction paints and commits r directly, without a gesture.
func (s *Session) PushRedaction(r geom.Rect) bool {
	return s.edit(func() bool {
		r = r.ClampTo(s.history.CurrentCrop())
		s.overlay.PaintRedaction(r)
		s.history.PushRedaction(r)
		return true
	})
}

// CurrentCrop returns the active crop.
func (s *Session) CurrentCrop() geom.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return geom.Rect{}
	}
	return s.history.CurrentCrop()
}

// Crops returns the crop stack, oldest first.
func (s *Session) Crops() []geom.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return nil
	}
	return s.history.Crops()
}

// Redactions returns the redaction stack, oldest first.
func (s *Session) Redactions() []geom.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return nil
	}
	return s.history.Redactions()
}

// Accept finishes editing. When a badge is configured it is loaded in the
// background and stamped before the future resolves. A badge that fails to
// load is logged and skipped.
func (s *Session) Accept(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateEditing {
		s.mu.Unlock()
		return
	}
	s.gestures.CancelDrag()
	s.state = StateAccepting
	badge := s.opts.Badge
	s.mu.Unlock()

	if badge == nil {
		s.finishAccept(nil)
		return
	}
	go func() {
		img, err := badge(ctx)
		if err != nil {
			s.log.WithField("function", "Accept").WithError(err).Warn("badge skipped")
			img = nil
		}
		s.finishAccept(img)
	}()
}

func (s *Session) finishAccept(badge image.Image) {
	s.mu.Lock()
	if s.state != StateAccepting {
		s.mu.Unlock()
		return
	}
	crop := s.history.CurrentCrop()
	if badge != nil {
		s.overlay.PlaceBadge(badge, crop)
	}
	s.state = StateAccepted
	res := Result{CropRect: crop, Overlay: s.overlay.Image()}
	listeners := append([]func(){}, s.onChange...)
	s.mu.Unlock()

	s.future.settle(res, nil)
	s.log.WithFields(logrus.Fields{
		"function": "Accept",
		"crop":     crop,
		"badge":    badge != nil,
	}).Info("selection accepted")
	for _, l := range listeners {
		l()
	}
}

// Cancel rejects the session on user request.
func (s *Session) Cancel(reason string) {
	s.end(&CancelError{Reason: reason})
}

// RequestExternalCancel force-terminates a session that is still editing or
// waiting for its badge, for example when the source ends.
func (s *Session) RequestExternalCancel(reason string) {
	s.end(&CancelError{Reason: reason, External: true})
}

func (s *Session) end(cerr *CancelError) {
	s.mu.Lock()
	if s.state != StateEditing && s.state != StateAccepting {
		s.mu.Unlock()
		return
	}
	s.gestures.CancelDrag()
	s.state = StateCancelled
	listeners := append([]func(){}, s.onChange...)
	s.mu.Unlock()

	s.future.settle(Result{}, cerr)
	s.log.WithFields(logrus.Fields{
		"function": "end",
		"external": cerr.External,
	}).WithError(cerr).Info("selection cancelled")
	for _, l := range listeners {
		l()
	}
}

// Release drops the overlay pixels. Call it once nothing composites the
// session any more.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlay != nil {
		s.overlay.Release()
	}
	s.onChange = nil
}

func (s *Session) logCommit(c gesture.Commit, ok bool) {
	if !ok {
		return
	}
	s.log.WithFields(logrus.Fields{
		"function": "commit",
		"tool":     c.Tool,
		"rect":     c.Rect,
	}).Debug("selection committed")
}

// Scene exposes the editing state to the compositor without locking.
type Scene struct {
	s *Session
}

// CurrentCrop returns the active crop, or an empty rect before Begin.
func (v *Scene) CurrentCrop() geom.Rect {
	if v.s.history == nil {
		return geom.Rect{}
	}
	return v.s.history.CurrentCrop()
}

// Overlay returns the overlay pixels.
func (v *Scene) Overlay() *image.RGBA {
	if v.s.overlay == nil {
		return nil
	}
	return v.s.overlay.Image()
}

// Pending returns the drag in progress, if any.
func (v *Scene) Pending() (geom.Rect, bool) {
	if v.s.gestures == nil {
		return geom.Rect{}, false
	}
	return v.s.gestures.Pending()
}
