package editor

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/example/sharecrop/internal/render"
	"github.com/example/sharecrop/internal/session"
)

// StatusHeight is the height of the status bar under the preview.
const StatusHeight = 24

// shortcutButton is a clickable status bar label.
type shortcutButton struct {
	label  string
	action string
	rect   image.Rectangle
}

// statusText summarises the tool, crop and session state.
func (c *Controller) statusText() string {
	crop := c.sess.CurrentCrop().Image()
	text := fmt.Sprintf("%s  %dx%d", c.sess.Tool(), crop.Dx(), crop.Dy())
	switch st := c.sess.State(); st {
	case session.StateAccepting:
		text += "  loading badge"
	case session.StateAccepted, session.StateCancelled:
		text += "  " + st.String()
	}
	if msg := c.currentMessage(); msg != "" {
		text += "  " + msg
	}
	return text
}

func (c *Controller) drawStatus(dst *image.RGBA) {
	width := c.size.X
	top := c.size.Y - StatusHeight
	render.FillRect(dst, image.Rect(0, top, width, c.size.Y), c.th.StatusBackground)

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c.th.StatusText), Face: basicfont.Face7x13}
	baseline := top + 16
	d.Dot = fixed.P(4, baseline)
	d.DrawString(c.statusText())

	c.buttons = c.buttons[:0]
	x := d.Dot.X.Ceil() + 12
	for _, a := range c.actions {
		w := d.MeasureString(a.label).Ceil()
		b := shortcutButton{label: a.label, action: a.name, rect: image.Rect(x-2, top+2, x+w+2, top+StatusHeight-2)}
		if b.rect.Max.X > width {
			break
		}
		c.drawButton(dst, d, b, len(c.buttons) == c.hover)
		c.buttons = append(c.buttons, b)
		x = b.rect.Max.X + 8
	}
}

func (c *Controller) drawButton(dst *image.RGBA, d *font.Drawer, b shortcutButton, hover bool) {
	fill := color.RGBA{200, 200, 200, 255}
	if hover {
		fill = color.RGBA{180, 180, 180, 255}
	}
	render.FillRect(dst, b.rect, fill)
	render.StrokeRect(dst, b.rect, c.th.StatusText, 1)
	d.Dot = fixed.P(b.rect.Min.X+2, b.rect.Min.Y+13)
	d.DrawString(b.label)
}
