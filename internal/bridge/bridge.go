// Package bridge swaps the video track of a media stream for a composited,
// user-edited copy and keeps the two in step for the lifetime of the share.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/clipboard"
	"github.com/example/sharecrop/internal/compositor"
	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/notify"
	"github.com/example/sharecrop/internal/scheduler"
	"github.com/example/sharecrop/internal/session"
	"github.com/example/sharecrop/internal/timeutil"
)

var (
	// ErrNoVideoTrack is returned when there is no track to edit.
	ErrNoVideoTrack = errors.New("no video track")
	// ErrTrackEnded is returned when the track to edit has already ended.
	ErrTrackEnded = errors.New("video track already ended")
)

// View is the host UI that lets the user edit a session.
type View interface {
	// Show presents the editor for sess, drawing previews from loop.
	Show(sess *session.Session, loop *compositor.Loop) error
	// Hide removes the editor once the session has settled.
	Hide()
}

// Notifier reports session outcomes to the user. *notify.Notifier
// implements it.
type Notifier interface {
	Accept(region string, img image.Image)
	Cancel(reason string)
	Ended(label string)
}

// Options configures a Bridge.
type Options struct {
	Session    session.Options
	Compositor compositor.Options
	// Scheduler drives compositing. Nil uses a timer on the real clock.
	Scheduler scheduler.Scheduler
	// View is optional. Without one the session must be settled by the
	// caller, for example through OnSession.
	View View
	// OnSession is called with every new session before the view is shown.
	OnSession func(*session.Session, *compositor.Loop)
	// Notifier is optional.
	Notifier Notifier
}

// Bridge edits streams.
type Bridge struct {
	opts Options
}

// New returns a Bridge.
func New(opts Options) *Bridge {
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New(nil, timeutil.RealClock{})
	}
	if opts.Notifier == nil {
		opts.Notifier = (*notify.Notifier)(nil)
	}
	return &Bridge{opts: opts}
}

// ModifyStream lets the user edit video and returns a stream in which video
// is replaced by the composited result. Every other track of src is carried
// over. It blocks until the user accepts or cancels, or ctx is done. On
// cancellation every track of src is stopped and the error wraps
// session.ErrCancelled.
func (b *Bridge) ModifyStream(ctx context.Context, src *media.Stream, video *media.Track) (*media.Stream, error) {
	if video == nil || video.Kind() != media.KindVideo || video.Source() == nil {
		return nil, ErrNoVideoTrack
	}
	if video.Ended() {
		return nil, ErrTrackEnded
	}

	sess := session.New(b.opts.Session)
	log := logrus.WithFields(logrus.Fields{
		"function": "ModifyStream",
		"session":  sess.ID(),
		"track":    video.Label(),
	})
	future := sess.Begin(video.Source())

	copts := b.opts.Compositor
	copts.Lock = sess.Locker()
	loop := compositor.New(video.Source(), video.Settings(), sess.Scene(), copts)

	captured := media.CaptureTrack(video.Label(), loop, loop.FrameRate())
	out := media.NewStream(captured)
	for _, t := range src.Tracks() {
		if t != video {
			out.AddTrack(t)
		}
	}
	log = log.WithField("captured", captured.ID())

	l := &link{
		log:      log,
		src:      src,
		out:      out,
		video:    video,
		captured: captured,
		sess:     sess,
		loop:     loop,
		notifier: b.opts.Notifier,
	}
	l.attach()

	loop.Start(context.WithoutCancel(ctx), b.opts.Scheduler)
	log.WithField("fps", loop.FrameRate()).Info("editing stream")

	if b.opts.OnSession != nil {
		b.opts.OnSession(sess, loop)
	}
	if b.opts.View != nil {
		if err := b.opts.View.Show(sess, loop); err != nil {
			sess.Cancel("view unavailable")
			l.stopAll()
			return nil, fmt.Errorf("show editor: %w", err)
		}
		defer b.opts.View.Hide()
	}

	select {
	case <-future.Done():
	case <-ctx.Done():
		sess.RequestExternalCancel(ctx.Err().Error())
	}
	res, err := future.Wait(context.Background())
	if err != nil {
		log.WithError(err).Info("edit cancelled")
		// An ended source has already been reported by sourceEnded.
		var cerr *session.CancelError
		if !errors.As(err, &cerr) || !cerr.External || !video.Ended() {
			b.opts.Notifier.Cancel(err.Error())
		}
		l.stopAll()
		return nil, err
	}

	loop.SetPreviewEnabled(false)
	log.WithField("crop", clipboard.FormatRect(res.CropRect)).Info("edit accepted")
	var preview image.Image
	if img := loop.Output(); img != nil {
		preview = img
	}
	b.opts.Notifier.Accept(fmt.Sprintf("%s of %s", clipboard.FormatRect(res.CropRect), video.Label()), preview)
	return out, nil
}

// link keeps an edited track and its source in step.
type link struct {
	log      *logrus.Entry
	src, out *media.Stream
	video    *media.Track
	captured *media.Track
	sess     *session.Session
	loop     *compositor.Loop
	notifier Notifier

	once   sync.Once
	mu     sync.Mutex
	detach []func()
}

func (l *link) attach() {
	offVideo := l.video.OnEnded(l.sourceEnded)
	offCaptured := l.captured.OnEnded(l.capturedEnded)
	offRemove := l.src.OnRemoveTrack(l.forwardRemoval)
	l.mu.Lock()
	l.detach = []func(){offVideo, offCaptured, offRemove}
	l.mu.Unlock()
}

// sourceEnded runs when the edited track ends.
func (l *link) sourceEnded(*media.Track) {
	l.log.Info("source ended")
	l.sess.RequestExternalCancel("source ended")
	l.captured.SetEnabled(false)
	l.captured.Stop()
	l.out.RemoveTrack(l.captured)
	l.notifier.Ended(l.video.Label())
	l.teardown()
}

// capturedEnded runs when the published track is stopped, by a consumer or
// by sourceEnded.
func (l *link) capturedEnded(*media.Track) {
	if !l.video.Ended() {
		l.log.Debug("published track stopped, stopping source")
		l.video.Stop()
	}
	l.teardown()
}

func (l *link) forwardRemoval(t *media.Track) {
	if t == l.video {
		l.out.RemoveTrack(l.captured)
		return
	}
	l.out.RemoveTrack(t)
}

// stopAll detaches before stopping so a cancelled edit is not reported as
// an ended source.
func (l *link) stopAll() {
	l.teardown()
	l.src.StopAll()
	l.out.StopAll()
}

func (l *link) teardown() {
	l.once.Do(func() {
		l.loop.Release()
		l.sess.Release()
		l.mu.Lock()
		detach := l.detach
		l.detach = nil
		l.mu.Unlock()
		for _, off := range detach {
			off()
		}
		l.log.Debug("edited stream torn down")
	})
}
