package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/media"
)

// Constraints describes what a caller asks a media acquirer for.
type Constraints struct {
	Video bool
	Audio bool
	// Target names the screen or window to capture. Empty lets the
	// acquirer choose.
	Target string
}

// Acquirer obtains a stream from the platform.
type Acquirer func(ctx context.Context, c Constraints) (*media.Stream, error)

// screenLabelPrefixes identify user-media tracks that carry screen content.
var screenLabelPrefixes = []string{"screen", "window", "web-contents-media-stream"}

// Interceptor wraps the platform acquirers so every screen capture passes
// through the editor before it is returned.
type Interceptor struct {
	bridge  *Bridge
	display Acquirer
	user    Acquirer
}

// NewInterceptor wraps display and user. Either may be nil, in which case the
// matching method reports an error.
func NewInterceptor(b *Bridge, display, user Acquirer) *Interceptor {
	return &Interceptor{bridge: b, display: display, user: user}
}

// DisplayMedia acquires a display stream and edits its first video track.
func (i *Interceptor) DisplayMedia(ctx context.Context, c Constraints) (*media.Stream, error) {
	log := logrus.WithFields(logrus.Fields{"function": "DisplayMedia", "target": c.Target})
	if i.display == nil {
		return nil, fmt.Errorf("display media: no acquirer")
	}
	stream, err := i.display(ctx, c)
	if err != nil {
		log.WithError(err).Error("acquire failed")
		return nil, fmt.Errorf("display media: %w", err)
	}
	videos := stream.VideoTracks()
	if len(videos) == 0 {
		stream.StopAll()
		log.Error("stream has no video track")
		return nil, fmt.Errorf("display media: %w", ErrNoVideoTrack)
	}
	out, err := i.bridge.ModifyStream(ctx, stream, videos[0])
	if err != nil {
		log.WithError(err).Error("edit failed")
		return nil, fmt.Errorf("display media: %w", err)
	}
	return out, nil
}

// UserMedia acquires a user stream. When it carries a screen-content video
// track that track is edited. Otherwise the stream is returned untouched.
func (i *Interceptor) UserMedia(ctx context.Context, c Constraints) (*media.Stream, error) {
	log := logrus.WithFields(logrus.Fields{"function": "UserMedia", "target": c.Target})
	if i.user == nil {
		return nil, fmt.Errorf("user media: no acquirer")
	}
	stream, err := i.user(ctx, c)
	if err != nil {
		log.WithError(err).Error("acquire failed")
		return nil, fmt.Errorf("user media: %w", err)
	}
	video := ScreenTrack(stream)
	if video == nil {
		log.Debug("no screen track, passing stream through")
		return stream, nil
	}
	out, err := i.bridge.ModifyStream(ctx, stream, video)
	if err != nil {
		log.WithError(err).Error("edit failed")
		return nil, fmt.Errorf("user media: %w", err)
	}
	return out, nil
}

// ScreenTrack returns the first video track whose label marks it as screen
// content, or nil.
func ScreenTrack(s *media.Stream) *media.Track {
	for _, t := range s.VideoTracks() {
		label := strings.ToLower(t.Label())
		for _, p := range screenLabelPrefixes {
			if strings.HasPrefix(label, p) {
				return t
			}
		}
	}
	return nil
}
