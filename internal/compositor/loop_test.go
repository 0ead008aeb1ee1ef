package compositor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/overlay"
	"github.com/example/sharecrop/internal/region"
	"github.com/example/sharecrop/internal/render"
	"github.com/example/sharecrop/internal/scheduler"
	"github.com/example/sharecrop/internal/theme"
	"github.com/example/sharecrop/internal/timeutil"
)

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

// splitSource is a 200x100 frame, red on the left half and blue on the right.
type splitSource struct {
	active bool
	err    error
	calls  int
}

func (s *splitSource) Frame(context.Context) (image.Image, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	render.FillRect(img, image.Rect(0, 0, 100, 100), red)
	render.FillRect(img, image.Rect(100, 0, 200, 100), blue)
	return img, nil
}
func (s *splitSource) Size() image.Point { return image.Pt(200, 100) }
func (s *splitSource) Active() bool      { return s.active }

type scene struct {
	history *region.History
	surface *overlay.Surface
	pending *geom.Rect
}

func newScene() *scene {
	frame := geom.Size{Width: 200, Height: 100}
	s := &scene{surface: overlay.New(frame)}
	s.history = region.New(frame, s.surface.Repaint)
	return s
}

func (s *scene) CurrentCrop() geom.Rect { return s.history.CurrentCrop() }
func (s *scene) Overlay() *image.RGBA   { return s.surface.Image() }
func (s *scene) Pending() (geom.Rect, bool) {
	if s.pending == nil {
		return geom.Rect{}, false
	}
	return *s.pending, true
}

func newLoop(src *splitSource, sc *scene, preview geom.Size) *Loop {
	return New(src, media.Settings{}, sc, Options{PreviewSize: preview})
}

func TestOutputIsActiveCropAtFullResolution(t *testing.T) {
	src := &splitSource{active: true}
	sc := newScene()
	sc.history.PushCrop(geom.Rect{X: 100, Y: 0, Width: 100, Height: 100})
	l := newLoop(src, sc, geom.Size{Width: 400, Height: 300})

	require.True(t, l.Tick())
	out := l.Output()
	require.NotNil(t, out)
	assert.Equal(t, image.Pt(100, 100), out.Bounds().Size())
	assert.Equal(t, blue, out.RGBAAt(0, 0))
	assert.Equal(t, blue, out.RGBAAt(99, 99))
	assert.Equal(t, image.Pt(100, 100), l.OutputSize())
}

func TestOutputCarriesRedactions(t *testing.T) {
	src := &splitSource{active: true}
	sc := newScene()
	sc.history.PushCrop(geom.Rect{X: 100, Y: 0, Width: 100, Height: 100})
	r := geom.Rect{X: 110, Y: 10, Width: 10, Height: 10}
	sc.surface.PaintRedaction(r)
	sc.history.PushRedaction(r)
	l := newLoop(src, sc, geom.Size{Width: 400, Height: 300})

	l.Tick()
	out := l.Output()
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(15, 15))
	assert.Equal(t, blue, out.RGBAAt(25, 25))

	sc.history.PopRedaction()
	l.Tick()
	assert.Equal(t, blue, l.Output().RGBAAt(15, 15))
}

func TestOutputResizesWithCrop(t *testing.T) {
	src := &splitSource{active: true}
	sc := newScene()
	l := newLoop(src, sc, geom.Size{Width: 400, Height: 300})

	l.Tick()
	assert.Equal(t, image.Pt(200, 100), l.OutputSize())

	sc.history.PushCrop(geom.Rect{X: 10, Y: 10, Width: 50, Height: 40})
	l.Tick()
	assert.Equal(t, image.Pt(50, 40), l.OutputSize())
	assert.Equal(t, red, l.Output().RGBAAt(0, 0))
}

func TestPreviewChrome(t *testing.T) {
	src := &splitSource{active: true}
	sc := newScene()
	l := newLoop(src, sc, geom.Size{Width: 400, Height: 300})
	th := theme.Default()

	l.Tick()
	ws, ok := l.Workspace()
	require.True(t, ok)
	// 200x100 into 300x200 available: scale 1.5, 300x150 at (50, 75).
	assert.Equal(t, geom.Workspace{X: 50, Y: 75, Width: 300, Height: 150, Scale: 1.5}, ws)

	p := l.Preview()
	require.NotNil(t, p)
	assert.Equal(t, image.Pt(400, 300), p.Bounds().Size())
	assert.Equal(t, th.Background, p.RGBAAt(5, 5))
	assert.Equal(t, th.WorkspaceBorder, p.RGBAAt(47, 150), "border just outside the workspace")
	assert.Equal(t, red, p.RGBAAt(100, 150))
	assert.Equal(t, blue, p.RGBAAt(300, 150))
}

func TestPendingSelectionOnlyOnPreview(t *testing.T) {
	src := &splitSource{active: true}
	sc := newScene()
	sc.pending = &geom.Rect{X: 20, Y: 20, Width: 40, Height: 40}
	sel := color.RGBA{0, 255, 0, 255}
	th := theme.Default()
	th.Selection = sel
	l := New(src, media.Settings{}, sc, Options{PreviewSize: geom.Size{Width: 400, Height: 300}, Theme: th})

	l.Tick()
	// Source (20,20) maps to preview (80,105).
	assert.Equal(t, sel, l.Preview().RGBAAt(80, 120))
	out := l.Output()
	assert.Equal(t, red, out.RGBAAt(20, 30))
}

func TestPreviewDisabledStillPublishes(t *testing.T) {
	src := &splitSource{active: true}
	l := newLoop(src, newScene(), geom.Size{Width: 400, Height: 300})
	l.SetPreviewEnabled(false)
	l.Tick()
	assert.Nil(t, l.Preview())
	assert.NotNil(t, l.Output())
}

func TestDegenerateCropSkipsPreviewButKeepsRunning(t *testing.T) {
	src := &splitSource{active: true}
	sc := newScene()
	sc.history.PushCrop(geom.Rect{X: 50, Y: 50, Width: 0, Height: 0})
	l := newLoop(src, sc, geom.Size{Width: 400, Height: 300})

	assert.True(t, l.Tick())
	_, ok := l.Workspace()
	assert.False(t, ok)
	assert.Equal(t, image.Point{}, l.OutputSize())
	assert.Equal(t, theme.Default().Background, l.Preview().RGBAAt(200, 150))
	assert.EqualValues(t, 1, l.Frames())
}

func TestFrameErrorIsSkipped(t *testing.T) {
	src := &splitSource{active: true, err: errors.New("no frame")}
	l := newLoop(src, newScene(), geom.Size{Width: 400, Height: 300})
	assert.True(t, l.Tick())
	assert.Nil(t, l.Output())
	assert.Zero(t, l.Frames())

	src.err = nil
	assert.True(t, l.Tick())
	assert.EqualValues(t, 1, l.Frames())
}

func TestInactiveSourceStopsLoop(t *testing.T) {
	src := &splitSource{active: true}
	l := newLoop(src, newScene(), geom.Size{Width: 400, Height: 300})
	m := scheduler.NewManual()
	l.Start(context.Background(), m)

	m.Step()
	assert.EqualValues(t, 1, l.Frames())

	src.active = false
	m.Step()
	assert.True(t, l.Stopped())
	assert.Zero(t, m.Live())
	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed")
	}
	assert.Equal(t, 1, src.calls)
}

func TestNominalRate(t *testing.T) {
	src := &splitSource{active: true}
	l := New(src, media.Settings{}, newScene(), Options{})
	assert.InDelta(t, 12, l.FrameRate(), 0.001)

	l = New(src, media.Settings{FrameRate: 25}, newScene(), Options{})
	assert.Equal(t, 40*time.Millisecond, l.Interval())

	l = New(src, media.Settings{FrameRate: 25}, newScene(), Options{FrameRate: 50})
	assert.Equal(t, 20*time.Millisecond, l.Interval())
}

func TestTimerScheduledTicks(t *testing.T) {
	src := &splitSource{active: true}
	l := New(src, media.Settings{FrameRate: 10}, newScene(), Options{PreviewSize: geom.Size{Width: 400, Height: 300}})
	clock := timeutil.NewMockClock(time.Time{})
	frames := 0
	l.OnFrame(func() { frames++ })

	l.Start(context.Background(), scheduler.New(nil, clock))
	clock.Advance(0)
	clock.Advance(350 * time.Millisecond)
	assert.Equal(t, 4, frames)

	l.Release()
	clock.Advance(time.Second)
	assert.Equal(t, 4, frames)
	assert.Zero(t, clock.Pending())
	assert.Nil(t, l.Output())
}

func TestStopBeforeStart(t *testing.T) {
	src := &splitSource{active: true}
	l := newLoop(src, newScene(), geom.Size{Width: 400, Height: 300})
	l.Stop()
	l.Stop()
	m := scheduler.NewManual()
	l.Start(context.Background(), m)
	assert.Zero(t, m.Step())
	assert.False(t, l.Tick())
}
