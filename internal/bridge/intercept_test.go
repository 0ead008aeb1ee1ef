package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sharecrop/internal/compositor"
	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/session"
)

func acquire(s *media.Stream, err error) Acquirer {
	return func(context.Context, Constraints) (*media.Stream, error) { return s, err }
}

func accepting() *fakeView {
	return &fakeView{onShow: func(s *session.Session, _ *compositor.Loop) { s.Accept(context.Background()) }}
}

func TestDisplayMediaEditsFirstVideoTrack(t *testing.T) {
	first, second := videoTrack("camera"), videoTrack("other")
	view := accepting()
	b, _ := newBridge(view)
	i := NewInterceptor(b, acquire(media.NewStream(audioTrack(), first, second), nil), nil)

	out, err := i.DisplayMedia(context.Background(), Constraints{Video: true})
	require.NoError(t, err)
	assert.Equal(t, 1, view.shown)
	assert.False(t, out.Contains(first))
	assert.True(t, out.Contains(second))
}

func TestDisplayMediaWithoutVideo(t *testing.T) {
	audio := audioTrack()
	b, _ := newBridge(accepting())
	i := NewInterceptor(b, acquire(media.NewStream(audio), nil), nil)
	_, err := i.DisplayMedia(context.Background(), Constraints{Audio: true})
	assert.ErrorIs(t, err, ErrNoVideoTrack)
	assert.True(t, audio.Ended())
}

func TestAcquireErrorIsWrapped(t *testing.T) {
	denied := errors.New("permission denied")
	b, _ := newBridge(accepting())
	i := NewInterceptor(b, acquire(nil, denied), acquire(nil, denied))

	_, err := i.DisplayMedia(context.Background(), Constraints{})
	assert.ErrorIs(t, err, denied)
	_, err = i.UserMedia(context.Background(), Constraints{})
	assert.ErrorIs(t, err, denied)
}

func TestUserMediaPassesCameraThrough(t *testing.T) {
	camera := videoTrack("FaceTime HD Camera")
	src := media.NewStream(camera, audioTrack())
	view := accepting()
	b, _ := newBridge(view)
	i := NewInterceptor(b, nil, acquire(src, nil))

	out, err := i.UserMedia(context.Background(), Constraints{Video: true})
	require.NoError(t, err)
	assert.Same(t, src, out)
	assert.Zero(t, view.shown)
}

func TestUserMediaEditsScreenTrack(t *testing.T) {
	for _, label := range []string{"screen:0:0", "window:42", "web-contents-media-stream://1"} {
		t.Run(label, func(t *testing.T) {
			camera, screen := videoTrack("camera"), videoTrack(label)
			view := accepting()
			b, _ := newBridge(view)
			i := NewInterceptor(b, nil, acquire(media.NewStream(camera, screen), nil))

			out, err := i.UserMedia(context.Background(), Constraints{Video: true})
			require.NoError(t, err)
			assert.Equal(t, 1, view.shown)
			assert.False(t, out.Contains(screen))
			assert.True(t, out.Contains(camera))
		})
	}
}

func TestUserMediaCancelPropagates(t *testing.T) {
	screen := videoTrack("screen:1")
	b, _ := newBridge(&fakeView{onShow: func(s *session.Session, _ *compositor.Loop) { s.Cancel("") }})
	i := NewInterceptor(b, nil, acquire(media.NewStream(screen), nil))
	_, err := i.UserMedia(context.Background(), Constraints{})
	assert.ErrorIs(t, err, session.ErrCancelled)
	assert.True(t, screen.Ended())
}

func TestMissingAcquirer(t *testing.T) {
	i := NewInterceptor(nil, nil, nil)
	_, err := i.DisplayMedia(context.Background(), Constraints{})
	assert.Error(t, err)
	_, err = i.UserMedia(context.Background(), Constraints{})
	assert.Error(t, err)
}
