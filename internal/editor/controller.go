// Package editor hosts an editing session in a desktop window. It turns
// pointer and key events into session edits and paints the compositor
// preview with a status bar underneath.
package editor

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/sharecrop/internal/clipboard"
	"github.com/example/sharecrop/internal/compositor"
	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/gesture"
	"github.com/example/sharecrop/internal/render"
	"github.com/example/sharecrop/internal/session"
	"github.com/example/sharecrop/internal/theme"
)

// messageDuration is how long status messages stay visible.
const messageDuration = 2 * time.Second

// Clipboard is the subset of the system clipboard the editor uses.
type Clipboard interface {
	WriteImage(img image.Image) error
	ReadRect() (geom.Rect, error)
}

type systemClipboard struct{}

func (systemClipboard) WriteImage(img image.Image) error { return clipboard.WriteImage(img) }
func (systemClipboard) ReadRect() (geom.Rect, error)    { return clipboard.ReadRect() }

// SystemClipboard uses the desktop clipboard.
var SystemClipboard Clipboard = systemClipboard{}

// Controller routes window events to a session. It is not safe for
// concurrent use; a window drives it from its event goroutine.
type Controller struct {
	sess *session.Session
	loop *compositor.Loop
	th   *theme.Theme
	clip Clipboard
	now  func() time.Time
	log  *logrus.Entry

	size    image.Point
	actions []*action
	keymap  map[KeyShortcut]*action
	buttons []shortcutButton
	hover   int

	message      string
	messageUntil time.Time
}

// NewController binds a session and its compositor loop. A nil theme uses
// theme.Default and a nil clipboard disables copy and paste.
func NewController(sess *session.Session, loop *compositor.Loop, th *theme.Theme, clip Clipboard) *Controller {
	if th == nil {
		th = theme.Default()
	}
	c := &Controller{
		sess:  sess,
		loop:  loop,
		th:    th,
		clip:  clip,
		now:   time.Now,
		hover: -1,
		log:   logrus.WithFields(logrus.Fields{"session": sess.ID()}),
	}
	c.registerActions()
	return c
}

func (c *Controller) registerActions() {
	c.keymap = map[KeyShortcut]*action{}
	register := func(name, label string, keys []KeyShortcut, run func() bool) {
		a := &action{name: name, label: label, keys: keys, run: run}
		c.actions = append(c.actions, a)
		for _, k := range keys {
			c.keymap[k] = a
		}
	}
	register("crop", "R:crop", letter('r', key.CodeR, 0), func() bool {
		c.sess.SelectTool(gesture.ToolCrop)
		return true
	})
	register("redact", "X:redact", letter('x', key.CodeX, 0), func() bool {
		c.sess.SelectTool(gesture.ToolRedact)
		return true
	})
	register("undocrop", "Z:undo crop", letter('z', key.CodeZ, 0), func() bool {
		return c.sess.UndoCrop()
	})
	register("undoredact", "U:undo redact", letter('u', key.CodeU, 0), func() bool {
		return c.sess.UndoRedaction()
	})
	register("reset", "Bksp:reset", code(key.CodeDeleteBackspace), func() bool {
		c.sess.Reset()
		c.flash("selection reset")
		return true
	})
	register("copy", "^C:copy", letter('c', key.CodeC, key.ModControl), c.copyFrame)
	register("paste", "^V:paste crop", letter('v', key.CodeV, key.ModControl), c.pasteCrop)
	register("accept", "Enter:share", code(key.CodeReturnEnter), func() bool {
		c.sess.Accept(context.Background())
		return true
	})
	register("cancel", "Esc:cancel", code(key.CodeEscape), func() bool {
		if c.sess.Dragging() {
			c.sess.CancelDrag()
			return true
		}
		c.sess.Cancel("cancelled by user")
		return true
	})
}

// Trigger runs a named action. It reports whether a repaint is needed.
func (c *Controller) Trigger(name string) bool {
	for _, a := range c.actions {
		if a.name == name {
			c.log.WithFields(logrus.Fields{"function": "Trigger", "action": name}).Debug("action")
			return a.run()
		}
	}
	return false
}

// Key handles a key event.
func (c *Controller) Key(e key.Event) bool {
	if e.Direction == key.DirRelease {
		return false
	}
	for _, k := range shortcutFor(e) {
		if a, ok := c.keymap[k]; ok {
			return c.Trigger(a.name)
		}
	}
	return false
}

// Mouse handles a pointer event in window coordinates.
func (c *Controller) Mouse(e mouse.Event) bool {
	p := geom.Point{X: float64(e.X), Y: float64(e.Y)}
	if c.sess.Dragging() {
		switch {
		case e.Direction == mouse.DirRelease && e.Button == mouse.ButtonLeft:
			c.sess.Up(p)
		case e.Direction == mouse.DirPress && e.Button == mouse.ButtonLeft:
			c.sess.Down(p)
		default:
			c.sess.Move(p)
		}
		return true
	}

	pt := image.Pt(int(e.X), int(e.Y))
	if pt.Y >= c.previewRect().Max.Y {
		prev := c.hover
		c.hover = -1
		for i, b := range c.buttons {
			if pt.In(b.rect) {
				c.hover = i
				if e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress {
					c.Trigger(b.action)
					return true
				}
				break
			}
		}
		return prev != c.hover
	}
	c.hover = -1
	if e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress {
		c.sess.Down(p)
		return true
	}
	return false
}

// Resize updates the window size and the preview area derived from it.
func (c *Controller) Resize(size image.Point) {
	c.size = size
	pr := c.previewRect()
	ps := geom.Size{Width: float64(pr.Dx()), Height: float64(pr.Dy())}
	c.sess.SetPreviewSize(ps)
	c.loop.SetPreviewSize(ps)
}

// Size returns the window size.
func (c *Controller) Size() image.Point { return c.size }

func (c *Controller) previewRect() image.Rectangle {
	h := c.size.Y - StatusHeight
	if h < 0 {
		h = 0
	}
	return image.Rect(0, 0, c.size.X, h)
}

// Paint draws the latest preview and the status bar into dst.
func (c *Controller) Paint(dst *image.RGBA) {
	pr := c.previewRect()
	if !c.loop.DrawPreview(dst) {
		render.FillRect(dst, pr, c.th.Background)
	}
	c.drawStatus(dst)
}

// Cursor returns the pointer shape for the current gesture.
func (c *Controller) Cursor() gesture.Cursor { return c.sess.Cursor() }

func (c *Controller) copyFrame() bool {
	if c.clip == nil {
		return false
	}
	img := c.loop.Output()
	if img == nil {
		c.flash("nothing to copy yet")
		return true
	}
	if err := c.clip.WriteImage(img); err != nil {
		c.log.WithField("function", "copyFrame").WithError(err).Warn("copy failed")
		c.flash("copy failed")
		return true
	}
	c.flash("frame copied to clipboard")
	return true
}

func (c *Controller) pasteCrop() bool {
	if c.clip == nil {
		return false
	}
	r, err := c.clip.ReadRect()
	if err != nil {
		c.log.WithField("function", "pasteCrop").WithError(err).Warn("paste failed")
		c.flash("clipboard has no crop")
		return true
	}
	if !c.sess.PushCrop(r) {
		return false
	}
	c.flash(fmt.Sprintf("crop %s", clipboard.FormatRect(c.sess.CurrentCrop())))
	return true
}

func (c *Controller) flash(msg string) {
	c.message = msg
	c.messageUntil = c.now().Add(messageDuration)
}

func (c *Controller) currentMessage() string {
	if c.message != "" && c.now().Before(c.messageUntil) {
		return c.message
	}
	return ""
}
