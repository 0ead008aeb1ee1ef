package main

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/scheduler"
)

// sink receives the published frames of a track.
type sink struct {
	mu     sync.Mutex
	last   image.Image
	frames int
}

func (s *sink) put(img image.Image) {
	s.mu.Lock()
	s.last = img
	s.frames++
	s.mu.Unlock()
}

func (s *sink) result() (image.Image, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.frames
}

// publish pulls frames from track at its frame rate until the track ends or
// ctx is done. It returns the last frame pulled and the number of frames.
func publish(ctx context.Context, track *media.Track, sched scheduler.Scheduler) (image.Image, int) {
	log := logrus.WithFields(logrus.Fields{"function": "publish", "track": track.Label()})
	ended := make(chan struct{})
	var once sync.Once
	detach := track.OnEnded(func(*media.Track) { once.Do(func() { close(ended) }) })
	defer detach()
	if track.Ended() {
		once.Do(func() { close(ended) })
	}

	out := &sink{}
	interval := time.Duration(float64(time.Second) / track.Settings().NominalFrameRate())
	task := sched.Every(interval, func() {
		if !track.Live() {
			return
		}
		img, err := track.Source().Frame(ctx)
		if err != nil {
			if !errors.Is(err, media.ErrNoFrame) {
				log.WithError(err).Debug("frame skipped")
			}
			return
		}
		out.put(img)
	})
	defer task.Cancel()

	select {
	case <-ended:
		log.Info("track ended")
	case <-ctx.Done():
		log.WithError(ctx.Err()).Info("publishing stopped")
	}
	return out.result()
}
