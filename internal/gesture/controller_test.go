package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/region"
)

type recordingPainter struct {
	painted []geom.Rect
}

func (p *recordingPainter) PaintRedaction(r geom.Rect) { p.painted = append(p.painted, r) }

type toolBox struct{ tool Tool }

func (b *toolBox) Tool() Tool { return b.tool }

// A 1000x1000 frame in a 1100x1100 preview maps 1:1 with a 50px offset.
func newController(t *testing.T) (*Controller, *region.History, *recordingPainter, *toolBox) {
	t.Helper()
	h := region.New(geom.Size{Width: 1000, Height: 1000}, nil)
	p := &recordingPainter{}
	tools := &toolBox{tool: ToolCrop}
	c := New(h, p, tools, geom.Size{Width: 1100, Height: 1100})
	ws, err := c.Workspace()
	require.NoError(t, err)
	require.Equal(t, 1.0, ws.Scale)
	return c, h, p, tools
}

func drag(c *Controller, from, to geom.Point) (Commit, bool) {
	c.Down(from)
	c.Move(geom.Point{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2})
	return c.Up(to)
}

func TestCropDragCommits(t *testing.T) {
	c, h, _, _ := newController(t)

	commit, ok := drag(c, geom.Point{X: 550, Y: 550}, geom.Point{X: 150, Y: 150})
	require.True(t, ok)
	assert.Equal(t, ToolCrop, commit.Tool)
	assert.Equal(t, geom.Rect{X: 100, Y: 100, Width: 400, Height: 400}, h.CurrentCrop())
	assert.False(t, c.Dragging())
}

func TestNestedCropsNarrowMonotonically(t *testing.T) {
	c, h, _, _ := newController(t)

	drag(c, geom.Point{X: 150, Y: 150}, geom.Point{X: 550, Y: 550})
	first := h.CurrentCrop()

	// Scale is now 2.5; preview 300..550 maps to source 200..300.
	drag(c, geom.Point{X: 300, Y: 300}, geom.Point{X: 550, Y: 550})
	second := h.CurrentCrop()
	assert.Equal(t, geom.Rect{X: 200, Y: 200, Width: 100, Height: 100}, second)
	assert.True(t, first.Contains(second))

	// Dragging past the workspace edge is clamped to the current crop.
	drag(c, geom.Point{X: -500, Y: -500}, geom.Point{X: 5000, Y: 5000})
	third := h.CurrentCrop()
	assert.True(t, second.Contains(third))
	assert.Equal(t, second, third)
}

func TestCropThenRedact(t *testing.T) {
	c, h, p, tools := newController(t)
	drag(c, geom.Point{X: 150, Y: 150}, geom.Point{X: 550, Y: 550})

	tools.tool = ToolRedact
	commit, ok := drag(c, geom.Point{X: 50, Y: 50}, geom.Point{X: 300, Y: 175})
	require.True(t, ok)
	want := geom.Rect{X: 100, Y: 100, Width: 100, Height: 50}
	assert.Equal(t, want, commit.Rect)
	assert.Equal(t, []geom.Rect{want}, h.Redactions())
	assert.Equal(t, []geom.Rect{want}, p.painted)
	assert.Len(t, h.Crops(), 1, "redaction does not touch the crop stack")
}

func TestToolIsReadAtCommit(t *testing.T) {
	c, h, _, tools := newController(t)
	c.Down(geom.Point{X: 100, Y: 100})
	tools.tool = ToolRedact
	c.Up(geom.Point{X: 200, Y: 200})
	assert.Empty(t, h.Crops())
	assert.Len(t, h.Redactions(), 1)
}

func TestCursorFollowsDrag(t *testing.T) {
	c, _, _, tools := newController(t)
	assert.Equal(t, CursorCrosshair, c.Cursor())
	c.Down(geom.Point{X: 100, Y: 100})
	assert.Equal(t, CursorResize, c.Cursor())
	c.Up(geom.Point{X: 200, Y: 200})
	assert.Equal(t, CursorCrosshair, c.Cursor())

	tools.tool = ToolRedact
	c.Down(geom.Point{X: 100, Y: 100})
	assert.Equal(t, CursorCrosshair, c.Cursor())
}

func TestDownWhileDraggingActsAsUp(t *testing.T) {
	c, h, _, _ := newController(t)
	c.Down(geom.Point{X: 150, Y: 150})
	commit, ok := c.Down(geom.Point{X: 550, Y: 550})
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 100, Y: 100, Width: 400, Height: 400}, commit.Rect)
	assert.Len(t, h.Crops(), 1)
	assert.False(t, c.Dragging(), "the second down does not start a new drag")

	// The release of that click has no drag to finish.
	_, ok = c.Up(geom.Point{X: 550, Y: 550})
	assert.False(t, ok)
	assert.Len(t, h.Crops(), 1)
	_, err := c.Workspace()
	assert.NoError(t, err)
}

func TestPendingAndCancel(t *testing.T) {
	c, h, _, _ := newController(t)
	_, ok := c.Pending()
	assert.False(t, ok)

	c.Down(geom.Point{X: 150, Y: 150})
	c.Move(geom.Point{X: 250, Y: 350})
	pending, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 100, Y: 100, Width: 100, Height: 200}, pending)

	c.CancelDrag()
	_, ok = c.Pending()
	assert.False(t, ok)
	_, ok = c.Up(geom.Point{X: 300, Y: 300})
	assert.False(t, ok)
	assert.Empty(t, h.Crops())
}

func TestZeroAreaClickCommitsByDefault(t *testing.T) {
	c, h, _, _ := newController(t)
	c.Down(geom.Point{X: 300, Y: 300})
	commit, ok := c.Up(geom.Point{X: 300, Y: 300})
	require.True(t, ok)
	assert.True(t, commit.Rect.Empty())
	assert.Len(t, h.Crops(), 1)
}

func TestMinDragDistanceDropsShortDrags(t *testing.T) {
	c, h, _, _ := newController(t)
	c.MinDragDistance = 3
	c.Down(geom.Point{X: 300, Y: 300})
	_, ok := c.Up(geom.Point{X: 302, Y: 400})
	assert.False(t, ok)
	assert.Empty(t, h.Crops())

	_, ok = drag(c, geom.Point{X: 300, Y: 300}, geom.Point{X: 310, Y: 310})
	assert.True(t, ok)
}

func TestMoveAndUpWhileIdleAreIgnored(t *testing.T) {
	c, h, _, _ := newController(t)
	c.Move(geom.Point{X: 10, Y: 10})
	_, ok := c.Up(geom.Point{X: 10, Y: 10})
	assert.False(t, ok)
	assert.Empty(t, h.Crops())
}

func TestDegeneratePreviewIgnoresPointer(t *testing.T) {
	c, _, _, _ := newController(t)
	c.SetPreviewSize(geom.Size{Width: 50, Height: 50})
	c.Down(geom.Point{X: 10, Y: 10})
	assert.False(t, c.Dragging())
}

func TestParseTool(t *testing.T) {
	tool, ok := ParseTool("redact")
	assert.True(t, ok)
	assert.Equal(t, ToolRedact, tool)
	_, ok = ParseTool("lasso")
	assert.False(t, ok)
	assert.Equal(t, "crop", ToolCrop.String())
	assert.Equal(t, "nwse-resize", CursorResize.String())
}
