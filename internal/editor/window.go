package editor

import (
	"errors"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/sharecrop/internal/compositor"
	"github.com/example/sharecrop/internal/session"
	"github.com/example/sharecrop/internal/theme"
)

// ErrNoScreen is returned by Show outside Run.
var ErrNoScreen = errors.New("editor: no screen, call Show from within Run")

// Options configures an Editor.
type Options struct {
	Title string
	// Size is the initial window size. It should match the preview size
	// plus the status bar.
	Size      image.Point
	Theme     *theme.Theme
	Clipboard Clipboard
}

// Editor shows one editing window at a time. It implements bridge.View.
type Editor struct {
	opts Options

	mu  sync.Mutex
	scr screen.Screen
	win *window
}

// New returns an Editor.
func New(opts Options) *Editor {
	if opts.Size.X <= 0 || opts.Size.Y <= 0 {
		opts.Size = image.Pt(960, 540+StatusHeight)
	}
	if opts.Title == "" {
		opts.Title = "sharecrop"
	}
	return &Editor{opts: opts}
}

// Run starts the window system and calls fn on another goroutine. It must
// be called from the main goroutine and returns after fn does.
func (e *Editor) Run(fn func()) {
	driver.Main(func(s screen.Screen) {
		e.mu.Lock()
		e.scr = s
		e.mu.Unlock()
		done := make(chan struct{})
		go func() {
			defer close(done)
			fn()
		}()
		<-done
		e.Hide()
		e.mu.Lock()
		e.scr = nil
		e.mu.Unlock()
	})
}

// PreviewSize returns the preview area for the initial window size.
func (e *Editor) PreviewSize() image.Point {
	return image.Pt(e.opts.Size.X, e.opts.Size.Y-StatusHeight)
}

// Show opens a window editing sess. Closing the window cancels the session.
func (e *Editor) Show(sess *session.Session, loop *compositor.Loop) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scr == nil {
		return ErrNoScreen
	}
	if e.win != nil {
		return errors.New("editor: a session is already shown")
	}
	w, err := e.scr.NewWindow(&screen.NewWindowOptions{
		Width:  e.opts.Size.X,
		Height: e.opts.Size.Y,
		Title:  e.opts.Title,
	})
	if err != nil {
		return err
	}
	c := NewController(sess, loop, e.opts.Theme, e.opts.Clipboard)
	c.Resize(e.opts.Size)
	win := &window{scr: e.scr, w: w, c: c, sess: sess, done: make(chan struct{})}
	loop.OnFrame(win.repaint)
	e.win = win
	go win.run()
	return nil
}

// RequestFrame runs fn on the shown window's event loop ahead of its next
// paint. Without a window fn runs on its own goroutine. Editor therefore
// implements scheduler.Host.
func (e *Editor) RequestFrame(fn func()) {
	e.mu.Lock()
	win := e.win
	e.mu.Unlock()
	if win == nil || !win.requestFrame(fn) {
		go fn()
	}
}

// Hide closes the window opened by Show and waits for its event loop.
func (e *Editor) Hide() {
	e.mu.Lock()
	win := e.win
	e.win = nil
	e.mu.Unlock()
	if win != nil {
		win.close()
	}
}

// closeEvent asks a window's event loop to release the window and exit.
type closeEvent struct{}

// frameEvent asks a window's event loop to run its queued frame callbacks.
type frameEvent struct{}

type window struct {
	scr  screen.Screen
	w    screen.Window
	c    *Controller
	sess *session.Session

	mu     sync.Mutex
	closed bool
	frames []func()
	done   chan struct{}
	buf    screen.Buffer
}

// requestFrame queues fn for the event loop. It reports false once the
// window is closed.
func (win *window) requestFrame(fn func()) bool {
	win.mu.Lock()
	defer win.mu.Unlock()
	if win.closed {
		return false
	}
	win.frames = append(win.frames, fn)
	if len(win.frames) == 1 {
		win.w.Send(frameEvent{})
	}
	return true
}

// takeFrames empties the frame queue. Once closing, later requests are
// refused so the caller owns every callback it takes.
func (win *window) takeFrames(closing bool) []func() {
	win.mu.Lock()
	defer win.mu.Unlock()
	if closing {
		win.closed = true
	}
	fns := win.frames
	win.frames = nil
	return fns
}

func (win *window) repaint() {
	win.mu.Lock()
	defer win.mu.Unlock()
	if !win.closed {
		win.w.Send(paint.Event{})
	}
}

func (win *window) close() {
	win.mu.Lock()
	if win.closed {
		win.mu.Unlock()
		<-win.done
		return
	}
	win.closed = true
	win.w.Send(closeEvent{})
	win.mu.Unlock()
	<-win.done
}

func (win *window) run() {
	log := logrus.WithFields(logrus.Fields{"function": "run", "session": win.sess.ID()})
	defer close(win.done)
	defer func() {
		if win.buf != nil {
			win.buf.Release()
		}
		win.w.Release()
		// Callbacks still queued must not be lost with the window.
		for _, fn := range win.takeFrames(true) {
			go fn()
		}
	}()
	for {
		switch e := win.w.NextEvent().(type) {
		case closeEvent:
			return
		case frameEvent:
			for _, fn := range win.takeFrames(false) {
				fn()
			}
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				log.Debug("window closed")
				win.mu.Lock()
				win.closed = true
				win.mu.Unlock()
				win.sess.Cancel("window closed")
				return
			}
		case size.Event:
			win.c.Resize(image.Pt(e.WidthPx, e.HeightPx))
			win.w.Send(paint.Event{})
		case paint.Event:
			if err := win.paint(); err != nil {
				log.WithError(err).Warn("paint failed")
			}
		case mouse.Event:
			if win.c.Mouse(e) {
				win.w.Send(paint.Event{})
			}
		case key.Event:
			if win.c.Key(e) {
				win.w.Send(paint.Event{})
			}
		case error:
			log.WithError(e).Warn("window error")
		}
	}
}

func (win *window) paint() error {
	sz := win.c.Size()
	if sz.X <= 0 || sz.Y <= 0 {
		return nil
	}
	if win.buf == nil || win.buf.Size() != sz {
		if win.buf != nil {
			win.buf.Release()
		}
		b, err := win.scr.NewBuffer(sz)
		if err != nil {
			win.buf = nil
			return err
		}
		win.buf = b
	}
	win.c.Paint(win.buf.RGBA())
	win.w.Upload(image.Point{}, win.buf, win.buf.Bounds())
	win.w.Publish()
	return nil
}
