// Package compositor redraws the edited frame at a fixed rate: a scaled
// preview with editing chrome for the host, and a 1:1 cropped output that is
// published as the replacement video track.
package compositor

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/render"
	"github.com/example/sharecrop/internal/scheduler"
	"github.com/example/sharecrop/internal/theme"
)

// Chrome stroke widths in preview pixels.
const (
	BorderWidth    = 10
	SelectionWidth = 10
)

// Scene is the editing state a tick reads.
type Scene interface {
	CurrentCrop() geom.Rect
	Overlay() *image.RGBA
	Pending() (geom.Rect, bool)
}

// Options configures a Loop.
type Options struct {
	// FrameRate overrides the source track's rate when positive.
	FrameRate   float64
	Margin      float64
	PreviewSize geom.Size
	Theme       *theme.Theme
	// Lock serializes ticks with edits to the Scene. It may be nil.
	Lock sync.Locker
}

// Loop draws one frame per tick. Exported methods are safe for concurrent
// use.
type Loop struct {
	src      media.FrameSource
	scene    Scene
	lock     sync.Locker
	theme    *theme.Theme
	margin   float64
	interval time.Duration
	log      *logrus.Entry

	mu             sync.Mutex
	ctx            context.Context
	cancel         context.CancelFunc
	task           scheduler.Task
	output         *image.RGBA
	preview        *image.RGBA
	previewSize    geom.Size
	previewEnabled bool
	workspace      geom.Workspace
	hasWorkspace   bool
	frames         uint64
	lastErr        string
	onFrame        []func()
	stopped        bool
	done           chan struct{}
}

// New creates a stopped Loop reading frames from src.
func New(src media.FrameSource, settings media.Settings, scene Scene, opts Options) *Loop {
	fps := opts.FrameRate
	if fps <= 0 {
		fps = settings.NominalFrameRate()
	}
	th := opts.Theme
	if th == nil {
		th = theme.Default()
	}
	margin := opts.Margin
	if margin <= 0 {
		margin = geom.DefaultMargin
	}
	lock := opts.Lock
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Loop{
		src:            src,
		scene:          scene,
		lock:           lock,
		theme:          th,
		margin:         margin,
		interval:       time.Duration(float64(time.Second) / fps),
		log:            logrus.WithField("component", "compositor"),
		previewSize:    opts.PreviewSize,
		previewEnabled: true,
		done:           make(chan struct{}),
	}
}

// Interval is the delay between ticks.
func (l *Loop) Interval() time.Duration { return l.interval }

// FrameRate is the nominal rate derived from Interval.
func (l *Loop) FrameRate() float64 { return float64(time.Second) / float64(l.interval) }

// Start schedules ticks on s until Stop is called or the source goes
// inactive. Starting twice is a no-op.
func (l *Loop) Start(ctx context.Context, s scheduler.Scheduler) {
	l.mu.Lock()
	if l.task != nil || l.stopped {
		l.mu.Unlock()
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.mu.Unlock()

	task := s.Every(l.interval, func() { l.Tick() })

	l.mu.Lock()
	l.task = task
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		task.Cancel()
	}
	l.log.WithFields(logrus.Fields{
		"function": "Start",
		"interval": l.interval,
	}).Debug("compositing started")
}

// Stop cancels future ticks. It is safe to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	task := l.task
	cancel := l.cancel
	l.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
	if cancel != nil {
		cancel()
	}
	close(l.done)
	l.log.WithFields(logrus.Fields{
		"function": "Stop",
		"frames":   l.Frames(),
	}).Debug("compositing stopped")
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Stopped reports whether Stop has run.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Tick draws one frame. It returns false once the source is no longer
// active, after stopping the loop.
func (l *Loop) Tick() bool {
	if l.Stopped() {
		return false
	}
	if !l.src.Active() {
		l.log.WithField("function", "Tick").Debug("source inactive")
		l.Stop()
		return false
	}

	l.mu.Lock()
	ctx := l.ctx
	l.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	frame, err := l.src.Frame(ctx)
	if err != nil {
		l.skip("frame", err)
		return true
	}

	l.lock.Lock()
	l.mu.Lock()
	drawErr := l.draw(frame)
	l.frames++
	callbacks := append([]func(){}, l.onFrame...)
	l.mu.Unlock()
	l.lock.Unlock()

	if drawErr != nil {
		l.skip("preview", drawErr)
	}
	for _, fn := range callbacks {
		fn()
	}
	return true
}

// skip logs a failed draw once per distinct error.
func (l *Loop) skip(stage string, err error) {
	l.mu.Lock()
	repeat := l.lastErr == err.Error()
	l.lastErr = err.Error()
	l.mu.Unlock()
	entry := l.log.WithFields(logrus.Fields{"function": "Tick", "stage": stage}).WithError(err)
	if repeat {
		entry.Trace("draw skipped")
		return
	}
	entry.Warn("draw skipped")
}

// draw renders frame into both surfaces. Called with l.lock and l.mu held.
func (l *Loop) draw(frame image.Image) error {
	crop := l.scene.CurrentCrop()
	overlay := l.scene.Overlay()
	fb := frame.Bounds()
	src := crop.Image().Add(fb.Min).Intersect(fb)

	var resized bool
	l.output, resized = render.Ensure(l.output, src.Size())
	if resized {
		l.log.WithFields(logrus.Fields{"function": "draw", "size": src.Size()}).Debug("output resized")
	}
	xdraw.Copy(l.output, image.Point{}, frame, src, xdraw.Src, nil)
	if overlay != nil {
		xdraw.Copy(l.output, image.Point{}, overlay, src.Sub(fb.Min), xdraw.Over, nil)
	}

	if !l.previewEnabled {
		return nil
	}
	size := image.Pt(int(l.previewSize.Width), int(l.previewSize.Height))
	if size.X <= 0 || size.Y <= 0 {
		l.hasWorkspace = false
		return nil
	}
	l.preview, _ = render.Ensure(l.preview, size)
	render.FillRect(l.preview, l.preview.Bounds(), l.theme.Background)

	ws, err := geom.ComputeWorkspace(l.previewSize, crop.Size(), l.margin)
	if err != nil {
		l.hasWorkspace = false
		return err
	}
	l.workspace, l.hasWorkspace = ws, true
	dst := ws.Image()
	render.StrokeRect(l.preview, dst, l.theme.WorkspaceBorder, BorderWidth)
	xdraw.ApproxBiLinear.Scale(l.preview, dst, frame, src, xdraw.Src, nil)
	if overlay != nil {
		xdraw.NearestNeighbor.Scale(l.preview, dst, overlay, src.Sub(fb.Min), xdraw.Over, nil)
	}
	if pending, ok := l.scene.Pending(); ok {
		guide := geom.MapRectToPreview(pending, ws, crop).Image()
		render.StrokeRect(l.preview, guide, l.theme.Selection, SelectionWidth)
	}
	return nil
}

// Output returns a copy of the latest output frame, or nil before the first
// tick.
func (l *Loop) Output() *image.RGBA {
	l.mu.Lock()
	defer l.mu.Unlock()
	return render.Clone(l.output)
}

// OutputSize returns the size of the output surface.
func (l *Loop) OutputSize() image.Point {
	l.mu.Lock()
	out := l.output
	l.mu.Unlock()
	if out != nil {
		return out.Bounds().Size()
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.scene.CurrentCrop().Image().Size()
}

// Preview returns a copy of the latest preview frame, or nil.
func (l *Loop) Preview() *image.RGBA {
	l.mu.Lock()
	defer l.mu.Unlock()
	return render.Clone(l.preview)
}

// DrawPreview copies the latest preview into dst at the origin without
// allocating. It reports false when no preview exists yet.
func (l *Loop) DrawPreview(dst *image.RGBA) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.preview == nil || dst == nil {
		return false
	}
	xdraw.Copy(dst, image.Point{}, l.preview, l.preview.Bounds(), xdraw.Src, nil)
	return true
}

// Workspace returns the placement used by the latest preview.
func (l *Loop) Workspace() (geom.Workspace, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.workspace, l.hasWorkspace
}

// SetPreviewSize changes the preview surface size from the next tick.
func (l *Loop) SetPreviewSize(s geom.Size) {
	l.mu.Lock()
	l.previewSize = s
	l.mu.Unlock()
}

// SetPreviewEnabled toggles drawing of the preview. The output is always
// drawn.
func (l *Loop) SetPreviewEnabled(v bool) {
	l.mu.Lock()
	l.previewEnabled = v
	l.mu.Unlock()
}

// OnFrame registers fn to run after every completed tick.
func (l *Loop) OnFrame(fn func()) {
	l.mu.Lock()
	l.onFrame = append(l.onFrame, fn)
	l.mu.Unlock()
}

// Frames returns the number of ticks that fetched a frame.
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Release stops the loop and drops both surfaces.
func (l *Loop) Release() {
	l.Stop()
	l.mu.Lock()
	l.output = nil
	l.preview = nil
	l.onFrame = nil
	l.mu.Unlock()
}
