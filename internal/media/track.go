// Package media models the channels a capture source publishes: tracks
// carrying frames, grouped into streams.
package media

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Kind is the type of a track.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// DefaultFrameRate is used when a track does not report a rate.
const DefaultFrameRate = 12

// Settings are the properties a track reports.
type Settings struct {
	Width     int
	Height    int
	FrameRate float64
}

// NominalFrameRate returns the reported rate or DefaultFrameRate.
func (s Settings) NominalFrameRate() float64 {
	if s.FrameRate > 0 {
		return s.FrameRate
	}
	return DefaultFrameRate
}

// FrameSource produces the frames of a video track.
type FrameSource interface {
	// Frame returns the most recent frame.
	Frame(ctx context.Context) (image.Image, error)
	// Size returns the current frame dimensions.
	Size() image.Point
	// Active reports whether frames are still being produced.
	Active() bool
}

// Stopper is implemented by sources that hold resources.
type Stopper interface {
	Stop()
}

// Track is a single media channel. It ends at most once.
type Track struct {
	id     string
	kind   Kind
	label  string
	source FrameSource

	mu       sync.Mutex
	settings Settings
	enabled  bool
	ended    bool
	nextID   int
	onEnded  map[int]func(*Track)
}

// NewTrack creates an enabled, live track. source may be nil for non-video
// tracks.
func NewTrack(kind Kind, label string, settings Settings, source FrameSource) *Track {
	return &Track{
		id:       uuid.New().String(),
		kind:     kind,
		label:    label,
		source:   source,
		settings: settings,
		enabled:  true,
		onEnded:  map[int]func(*Track){},
	}
}

func (t *Track) ID() string          { return t.id }
func (t *Track) Kind() Kind          { return t.kind }
func (t *Track) Label() string       { return t.label }
func (t *Track) Source() FrameSource { return t.source }

// Settings returns the track settings. Width and height follow the source
// when one is attached.
func (t *Track) Settings() Settings {
	t.mu.Lock()
	s := t.settings
	t.mu.Unlock()
	if t.source != nil {
		if sz := t.source.Size(); sz.X > 0 && sz.Y > 0 {
			s.Width, s.Height = sz.X, sz.Y
		}
	}
	return s
}

// Enabled reports whether the track delivers frames.
func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled toggles frame delivery without ending the track.
func (t *Track) SetEnabled(v bool) {
	t.mu.Lock()
	t.enabled = v
	t.mu.Unlock()
}

// Ended reports whether Stop has been called.
func (t *Track) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

// Live reports whether the track is not ended and its source still produces
// frames.
func (t *Track) Live() bool {
	if t.Ended() {
		return false
	}
	return t.source == nil || t.source.Active()
}

// OnEnded registers fn to run once when the track ends. If the track has
// already ended fn is not called. The returned func unregisters fn.
func (t *Track) OnEnded(fn func(*Track)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.onEnded[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.onEnded, id)
		t.mu.Unlock()
	}
}

// Stop ends the track, stops its source and notifies listeners. Only the
// first call has an effect.
func (t *Track) Stop() {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	t.enabled = false
	listeners := make([]func(*Track), 0, len(t.onEnded))
	for i := 0; i < t.nextID; i++ {
		if fn, ok := t.onEnded[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	t.onEnded = map[int]func(*Track){}
	t.mu.Unlock()

	if s, ok := t.source.(Stopper); ok {
		s.Stop()
	}
	logrus.WithFields(logrus.Fields{
		"function": "Stop",
		"track":    t.id,
		"label":    t.label,
	}).Debug("track ended")
	for _, fn := range listeners {
		fn(t)
	}
}
