package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrStopped is returned by Frame once a source has been stopped.
var ErrStopped = errors.New("source stopped")

// maxGrabFailures is how many consecutive failed grabs end a live source.
const maxGrabFailures = 24

// X11Source reads a screen region or a window from the X server on every
// frame. It is safe for concurrent use.
type X11Source struct {
	target Target
	log    *logrus.Entry

	mu       sync.Mutex
	g        grabber
	size     image.Point
	failures int
	stopped  bool
	onLost   []func()
}

// NewX11Source connects to the display and grabs one frame to learn the
// target size.
func NewX11Source(t Target) (*X11Source, error) {
	g, err := backend.Dial()
	if err != nil {
		return nil, err
	}
	first, err := g.Grab(t)
	if err != nil {
		_ = g.Close()
		return nil, err
	}
	s := &X11Source{
		target: t,
		g:      g,
		size:   first.Bounds().Size(),
		log: logrus.WithFields(logrus.Fields{
			"window": t.Window,
			"rect":   t.Rect,
		}),
	}
	s.log.WithFields(logrus.Fields{"function": "NewX11Source", "size": s.size}).Debug("live source ready")
	return s, nil
}

// Frame grabs the current pixels. After maxGrabFailures consecutive errors
// the source stops itself and its lost callbacks run.
func (s *X11Source) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	img, err := s.g.Grab(s.target)
	if err == nil {
		s.failures = 0
		s.size = img.Bounds().Size()
		s.mu.Unlock()
		return img, nil
	}
	s.failures++
	lost := s.failures >= maxGrabFailures
	s.mu.Unlock()

	if lost {
		s.log.WithField("function", "Frame").WithError(err).Warn("source lost")
		s.lose()
	}
	return nil, err
}

// Size returns the size of the last grabbed frame.
func (s *X11Source) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Active reports whether the source still produces frames.
func (s *X11Source) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// OnLost registers fn to run once if the target disappears.
func (s *X11Source) OnLost(fn func()) {
	s.mu.Lock()
	s.onLost = append(s.onLost, fn)
	s.mu.Unlock()
}

// Stop closes the display connection.
func (s *X11Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *X11Source) stopLocked() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.onLost = nil
	if err := s.g.Close(); err != nil {
		s.log.WithField("function", "Stop").WithError(err).Debug("close display")
	}
}

func (s *X11Source) lose() {
	s.mu.Lock()
	lost := s.onLost
	s.stopLocked()
	s.mu.Unlock()
	for _, fn := range lost {
		fn()
	}
}

// StillSource repeats one image on every frame.
type StillSource struct {
	img *image.RGBA

	mu      sync.Mutex
	stopped bool
}

// NewStillSource wraps img.
func NewStillSource(img image.Image) *StillSource {
	return &StillSource{img: toRGBA(img)}
}

// LoadStillSource decodes the image file at path.
func LoadStillSource(path string) (*StillSource, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return NewStillSource(img), nil
}

// NewPortalSource takes one screenshot through the desktop portal, cropped
// to rect when it is not empty, and repeats it.
func NewPortalSource(ctx context.Context, interactive bool, rect image.Rectangle) (*StillSource, error) {
	shot, err := portalScreenshotFn(ctx, interactive)
	if err != nil {
		return nil, err
	}
	if !rect.Empty() {
		if shot, err = cropToRect(shot, rect); err != nil {
			return nil, err
		}
	}
	return &StillSource{img: shot}, nil
}

// Frame returns the image.
func (s *StillSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Active() {
		return nil, ErrStopped
	}
	return s.img, nil
}

// Size returns the image size.
func (s *StillSource) Size() image.Point { return s.img.Bounds().Size() }

// Active reports whether Stop has not been called.
func (s *StillSource) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Stop ends the source.
func (s *StillSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

var portalScreenshotFn = portalScreenshot

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// toRGBA returns img as an RGBA with a zero origin, copying when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
	return dst
}

func cropToRect(src *image.RGBA, rect image.Rectangle) (*image.RGBA, error) {
	rect = rect.Intersect(src.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("requested region outside captured image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Copy(dst, image.Point{}, src, rect, xdraw.Src, nil)
	return dst, nil
}
