package media

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
)

// ErrNoFrame is returned when a surface has not produced a frame yet.
var ErrNoFrame = errors.New("no frame available")

// Surface is a drawing target whose contents can be published as a track.
type Surface interface {
	// Output returns a copy of the latest composited frame, or nil.
	Output() *image.RGBA
	// OutputSize returns the current output dimensions.
	OutputSize() image.Point
}

type surfaceSource struct {
	surface Surface
	stopped atomic.Bool
}

func (s *surfaceSource) Frame(context.Context) (image.Image, error) {
	if s.stopped.Load() {
		return nil, ErrNoFrame
	}
	img := s.surface.Output()
	if img == nil {
		return nil, ErrNoFrame
	}
	return img, nil
}

func (s *surfaceSource) Size() image.Point { return s.surface.OutputSize() }
func (s *surfaceSource) Active() bool      { return !s.stopped.Load() }
func (s *surfaceSource) Stop()             { s.stopped.Store(true) }

// CaptureTrack publishes surface as a live video track at fps.
func CaptureTrack(label string, surface Surface, fps float64) *Track {
	size := surface.OutputSize()
	return NewTrack(KindVideo, label, Settings{
		Width:     size.X,
		Height:    size.Y,
		FrameRate: fps,
	}, &surfaceSource{surface: surface})
}
