package media

import (
	"sync"

	"github.com/google/uuid"
)

// Stream is an ordered group of tracks.
type Stream struct {
	id string

	mu       sync.Mutex
	tracks   []*Track
	nextID   int
	onRemove map[int]func(*Track)
}

// NewStream creates a stream holding tracks in order.
func NewStream(tracks ...*Track) *Stream {
	s := &Stream{id: uuid.New().String(), onRemove: map[int]func(*Track){}}
	for _, t := range tracks {
		s.AddTrack(t)
	}
	return s
}

func (s *Stream) ID() string { return s.id }

// AddTrack appends t unless it is already present.
func (s *Stream) AddTrack(t *Track) {
	if t == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tracks {
		if existing == t {
			return
		}
	}
	s.tracks = append(s.tracks, t)
}

// RemoveTrack removes t and notifies remove listeners. It reports whether t
// was present.
func (s *Stream) RemoveTrack(t *Track) bool {
	s.mu.Lock()
	idx := -1
	for i, existing := range s.tracks {
		if existing == t {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.tracks = append(s.tracks[:idx], s.tracks[idx+1:]...)
	listeners := make([]func(*Track), 0, len(s.onRemove))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.onRemove[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
	return true
}

// OnRemoveTrack registers fn for track removals. The returned func
// unregisters it.
func (s *Stream) OnRemoveTrack(fn func(*Track)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.onRemove[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.onRemove, id)
		s.mu.Unlock()
	}
}

// Tracks returns the tracks in order.
func (s *Stream) Tracks() []*Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Track(nil), s.tracks...)
}

// VideoTracks returns the video tracks in order.
func (s *Stream) VideoTracks() []*Track {
	var out []*Track
	for _, t := range s.Tracks() {
		if t.Kind() == KindVideo {
			out = append(out, t)
		}
	}
	return out
}

// Track looks up a track by id.
func (s *Stream) Track(id string) (*Track, bool) {
	for _, t := range s.Tracks() {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}

// Contains reports whether t belongs to the stream.
func (s *Stream) Contains(t *Track) bool {
	for _, existing := range s.Tracks() {
		if existing == t {
			return true
		}
	}
	return false
}

// StopAll stops every track in the stream.
func (s *Stream) StopAll() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
