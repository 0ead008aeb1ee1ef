// Package gesture turns pointer events on the preview into committed crop
// and redaction rectangles in source space.
package gesture

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/geom"
)

// Tool selects what a completed drag commits.
type Tool int

const (
	ToolCrop Tool = iota
	ToolRedact
)

func (t Tool) String() string {
	switch t {
	case ToolCrop:
		return "crop"
	case ToolRedact:
		return "redact"
	}
	return "unknown"
}

// ParseTool maps a tool name to a Tool.
func ParseTool(s string) (Tool, bool) {
	switch s {
	case "crop", "c", "r":
		return ToolCrop, true
	case "redact", "redaction", "x":
		return ToolRedact, true
	}
	return ToolCrop, false
}

// Cursor is the pointer shape the host should show.
type Cursor int

const (
	CursorCrosshair Cursor = iota
	CursorResize
)

func (c Cursor) String() string {
	if c == CursorResize {
		return "nwse-resize"
	}
	return "crosshair"
}

// ToolSource reports the tool selected in the host UI. It is read when a
// drag commits.
type ToolSource interface {
	Tool() Tool
}

// ToolFunc adapts a function to ToolSource.
type ToolFunc func() Tool

func (f ToolFunc) Tool() Tool { return f() }

// Regions is the committed state a drag writes into.
type Regions interface {
	CurrentCrop() geom.Rect
	PushCrop(geom.Rect)
	PushRedaction(geom.Rect)
}

// Painter paints committed redactions.
type Painter interface {
	PaintRedaction(geom.Rect)
}

// Commit describes a completed drag.
type Commit struct {
	Tool Tool
	Rect geom.Rect
}

// Controller tracks one drag at a time. It is not safe for concurrent use.
type Controller struct {
	regions Regions
	painter Painter
	tools   ToolSource

	preview geom.Size
	margin  float64

	// MinDragDistance drops drags whose preview-space width or height is
	// below it. Zero commits every drag, including plain clicks.
	MinDragDistance float64

	dragging   bool
	start, end geom.Point
	rawStart   geom.Point
	rawEnd     geom.Point
	cursor     Cursor
}

// New returns an idle Controller.
func New(regions Regions, painter Painter, tools ToolSource, preview geom.Size) *Controller {
	return &Controller{
		regions: regions,
		painter: painter,
		tools:   tools,
		preview: preview,
		margin:  geom.DefaultMargin,
	}
}

// SetPreviewSize updates the preview dimensions used for pointer mapping.
func (c *Controller) SetPreviewSize(s geom.Size) { c.preview = s }

// SetMargin overrides the workspace margin.
func (c *Controller) SetMargin(m float64) { c.margin = m }

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool { return c.dragging }

// Cursor returns the current cursor shape.
func (c *Controller) Cursor() Cursor { return c.cursor }

// Pending returns the in-progress selection in source space.
func (c *Controller) Pending() (geom.Rect, bool) {
	if !c.dragging {
		return geom.Rect{}, false
	}
	return geom.NormalizeRect(c.start, c.end), true
}

// Down starts a drag at preview point p. A Down while already dragging
// only completes the current drag at p.
func (c *Controller) Down(p geom.Point) (Commit, bool) {
	if c.dragging {
		return c.Up(p)
	}
	src, ok := c.mapPoint(p)
	if !ok {
		return Commit{}, false
	}
	c.dragging = true
	c.start, c.end = src, src
	c.rawStart, c.rawEnd = p, p
	if c.currentTool() == ToolCrop {
		c.cursor = CursorResize
	} else {
		c.cursor = CursorCrosshair
	}
	return Commit{}, false
}

// Move extends the pending selection.
func (c *Controller) Move(p geom.Point) {
	if !c.dragging {
		return
	}
	if src, ok := c.mapPoint(p); ok {
		c.end = src
		c.rawEnd = p
	}
}

// Up finishes the drag at p and commits the selection with the tool that
// is selected now.
func (c *Controller) Up(p geom.Point) (Commit, bool) {
	if !c.dragging {
		return Commit{}, false
	}
	c.Move(p)
	crop := c.regions.CurrentCrop()
	rect := geom.NormalizeRect(c.start, c.end).ClampTo(crop)
	tooSmall := c.MinDragDistance > 0 &&
		(math.Abs(c.rawEnd.X-c.rawStart.X) < c.MinDragDistance || math.Abs(c.rawEnd.Y-c.rawStart.Y) < c.MinDragDistance)
	c.reset()

	log := logrus.WithFields(logrus.Fields{"function": "Up", "rect": rect})
	if tooSmall {
		log.Debug("drag below minimum distance, dropped")
		return Commit{}, false
	}
	tool := c.currentTool()
	switch tool {
	case ToolCrop:
		c.regions.PushCrop(rect)
	case ToolRedact:
		if c.painter != nil {
			c.painter.PaintRedaction(rect)
		}
		c.regions.PushRedaction(rect)
	}
	log.WithField("tool", tool).Debug("selection committed")
	return Commit{Tool: tool, Rect: rect}, true
}

// CancelDrag abandons the pending selection.
func (c *Controller) CancelDrag() {
	c.reset()
}

func (c *Controller) reset() {
	c.dragging = false
	c.start, c.end = geom.Point{}, geom.Point{}
	c.rawStart, c.rawEnd = geom.Point{}, geom.Point{}
	c.cursor = CursorCrosshair
}

func (c *Controller) currentTool() Tool {
	if c.tools == nil {
		return ToolCrop
	}
	return c.tools.Tool()
}

// Workspace returns the current workspace for the preview size and crop.
func (c *Controller) Workspace() (geom.Workspace, error) {
	return geom.ComputeWorkspace(c.preview, c.regions.CurrentCrop().Size(), c.margin)
}

func (c *Controller) mapPoint(p geom.Point) (geom.Point, bool) {
	ws, err := c.Workspace()
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "mapPoint"}).WithError(err).Debug("pointer ignored")
		return geom.Point{}, false
	}
	return geom.MapPointerToSource(p, ws, c.regions.CurrentCrop()), true
}
