package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/gesture"
	"github.com/example/sharecrop/internal/overlay"
	"github.com/example/sharecrop/internal/render"
)

type sizedSource struct{ size image.Point }

func (s sizedSource) Frame(context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rectangle{Max: s.size}), nil
}
func (s sizedSource) Size() image.Point { return s.size }
func (s sizedSource) Active() bool      { return true }

// 1000x1000 frames in a 1100x1100 preview map 1:1 with a 50px offset.
func begin(t *testing.T, opts Options) (*Session, *Future) {
	t.Helper()
	opts.PreviewSize = geom.Size{Width: 1100, Height: 1100}
	s := New(opts)
	f := s.Begin(sizedSource{size: image.Pt(1000, 1000)})
	require.NotNil(t, f)
	return s, f
}

func dragTo(s *Session, a, b geom.Point) {
	s.Down(a)
	s.Move(b)
	s.Up(b)
}

func waitFor(t *testing.T, f *Future) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return res, err
}

func TestBeginTwiceReturnsSameFuture(t *testing.T) {
	s, f := begin(t, Options{})
	assert.Same(t, f, s.Begin(sizedSource{size: image.Pt(10, 10)}))
	assert.Equal(t, geom.Rect{Width: 1000, Height: 1000}, s.CurrentCrop())
	assert.Equal(t, StateEditing, s.State())
}

func TestCropThenRedactThenAccept(t *testing.T) {
	s, f := begin(t, Options{})
	dragTo(s, geom.Point{X: 150, Y: 150}, geom.Point{X: 550, Y: 550})

	s.SelectTool(gesture.ToolRedact)
	dragTo(s, geom.Point{X: 50, Y: 50}, geom.Point{X: 300, Y: 175})

	s.Accept(context.Background())
	res, err := waitFor(t, f)
	require.NoError(t, err)
	assert.Equal(t, geom.Rect{X: 100, Y: 100, Width: 400, Height: 400}, res.CropRect)
	require.NotNil(t, res.Overlay)
	assert.Equal(t, color.RGBA{A: 255}, res.Overlay.RGBAAt(150, 120))
	assert.Equal(t, StateAccepted, s.State())
	assert.True(t, s.Ended())
}

func TestAcceptStampsBadge(t *testing.T) {
	badge := image.NewRGBA(image.Rect(0, 0, 10, 10))
	render.FillRect(badge, badge.Bounds(), color.RGBA{255, 255, 255, 255})
	s, f := begin(t, Options{Badge: func(context.Context) (image.Image, error) { return badge, nil }})
	require.True(t, s.PushCrop(geom.Rect{X: 200, Y: 300, Width: 400, Height: 400}))

	s.Accept(context.Background())
	res, err := waitFor(t, f)
	require.NoError(t, err)
	// The badge box is 60x60 at the crop origin.
	assert.NotZero(t, res.Overlay.RGBAAt(230, 330).A)
	assert.Zero(t, res.Overlay.RGBAAt(199, 299).A)
}

func TestAcceptWithBrokenBadgeStillResolves(t *testing.T) {
	s, f := begin(t, Options{Badge: func(context.Context) (image.Image, error) {
		return nil, &overlay.ResourceLoadError{Source: "x", Err: errors.New("404")}
	}})
	s.Accept(context.Background())
	res, err := waitFor(t, f)
	require.NoError(t, err)
	assert.True(t, render.IsTransparent(res.Overlay))
	assert.Equal(t, StateAccepted, s.State())
}

func TestCancelRejects(t *testing.T) {
	s, f := begin(t, Options{})
	s.Cancel("closed")
	_, err := waitFor(t, f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))
	var cerr *CancelError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "closed", cerr.Reason)
	assert.False(t, cerr.External)
	assert.Equal(t, StateCancelled, s.State())
}

func TestMutationsAfterEndAreNoOps(t *testing.T) {
	s, f := begin(t, Options{})
	s.Accept(context.Background())
	_, err := waitFor(t, f)
	require.NoError(t, err)

	changes := 0
	s.OnChange(func() { changes++ })
	dragTo(s, geom.Point{X: 100, Y: 100}, geom.Point{X: 500, Y: 500})
	assert.False(t, s.PushCrop(geom.Rect{Width: 1, Height: 1}))
	assert.False(t, s.UndoCrop())
	s.Reset()
	s.Cancel("late")
	s.Accept(context.Background())

	assert.Empty(t, s.Crops())
	assert.Zero(t, changes)
	_, settled, err := f.Settled()
	assert.True(t, settled)
	assert.NoError(t, err)
}

func TestExternalCancelDuringBadgeLoad(t *testing.T) {
	release := make(chan struct{})
	s, f := begin(t, Options{Badge: func(ctx context.Context) (image.Image, error) {
		<-release
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}})
	s.Accept(context.Background())
	assert.Equal(t, StateAccepting, s.State())

	s.RequestExternalCancel("source ended")
	_, err := waitFor(t, f)
	var cerr *CancelError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.External)

	close(release)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, StateCancelled, s.State())
}

func TestUndoAndReset(t *testing.T) {
	s, _ := begin(t, Options{})
	changes := 0
	s.OnChange(func() { changes++ })

	s.PushCrop(geom.Rect{X: 100, Y: 100, Width: 500, Height: 500})
	s.PushRedaction(geom.Rect{X: 150, Y: 150, Width: 10, Height: 10})
	s.PushRedaction(geom.Rect{X: 0, Y: 0, Width: 300, Height: 300})
	assert.Equal(t, []geom.Rect{
		{X: 150, Y: 150, Width: 10, Height: 10},
		{X: 100, Y: 100, Width: 200, Height: 200},
	}, s.Redactions(), "redactions are clamped to the crop")

	assert.True(t, s.UndoRedaction())
	assert.Len(t, s.Redactions(), 1)
	assert.True(t, s.UndoCrop())
	assert.False(t, s.UndoCrop())

	s.Reset()
	assert.Empty(t, s.Redactions())
	assert.Equal(t, 6, changes)
}

func TestCursorAndTool(t *testing.T) {
	s, _ := begin(t, Options{})
	assert.Equal(t, gesture.ToolCrop, s.Tool())
	s.Down(geom.Point{X: 100, Y: 100})
	assert.Equal(t, gesture.CursorResize, s.Cursor())
	assert.True(t, s.Dragging())
	s.CancelDrag()
	assert.False(t, s.Dragging())
	assert.Equal(t, gesture.CursorCrosshair, s.Cursor())
	assert.Empty(t, s.Crops())
}

func TestSceneReflectsPending(t *testing.T) {
	s, _ := begin(t, Options{})
	sc := s.Scene()
	_, ok := sc.Pending()
	assert.False(t, ok)

	s.Down(geom.Point{X: 150, Y: 150})
	s.Move(geom.Point{X: 250, Y: 250})
	s.Locker().Lock()
	p, ok := sc.Pending()
	crop := sc.CurrentCrop()
	s.Locker().Unlock()
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 100, Y: 100, Width: 100, Height: 100}, p)
	assert.Equal(t, geom.Rect{Width: 1000, Height: 1000}, crop)
}

func TestConcurrentEdits(t *testing.T) {
	s, f := begin(t, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p := geom.Point{X: float64(100 + i*10), Y: float64(100 + j)}
				s.Down(p)
				s.Move(geom.Point{X: p.X + 50, Y: p.Y + 50})
				s.Up(geom.Point{X: p.X + 60, Y: p.Y + 60})
				if j%7 == 0 {
					s.UndoCrop()
				}
			}
		}(i)
	}
	wg.Wait()
	s.Cancel("")
	_, err := waitFor(t, f)
	assert.ErrorIs(t, err, ErrCancelled)

	prev := geom.Rect{Width: 1000, Height: 1000}
	for _, c := range s.Crops() {
		assert.True(t, prev.Contains(c), "crop %v escapes %v", c, prev)
		prev = c
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "accepting", StateAccepting.String())
	assert.Equal(t, "selection cancelled", (&CancelError{}).Error())
	assert.Equal(t, "selection cancelled: x", (&CancelError{Reason: "x"}).Error())
}
