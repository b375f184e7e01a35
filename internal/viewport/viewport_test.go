package viewport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
)

func TestZoomStaysInRange(t *testing.T) {
	v := New(1200, 800)
	for i := 0; i < 100; i++ {
		v.ZoomIn()
		assert.LessOrEqual(t, v.Zoom, MaxZoom)
	}
	assert.InDelta(t, MaxZoom, v.Zoom, 1e-9)

	for i := 0; i < 100; i++ {
		v.ZoomOut()
		assert.GreaterOrEqual(t, v.Zoom, MinZoom)
	}
	assert.InDelta(t, MinZoom, v.Zoom, 1e-9)

	for i := 0; i < 50; i++ {
		v.Scroll(canvas.Point{X: 10, Y: 10}, -500)
	}
	assert.LessOrEqual(t, v.Zoom, MaxZoom)
	for i := 0; i < 50; i++ {
		v.Scroll(canvas.Point{X: 10, Y: 10}, 500)
	}
	assert.GreaterOrEqual(t, v.Zoom, MinZoom)
}

func TestZoomKeepsCenterFixed(t *testing.T) {
	v := New(1000, 600)
	v.Offset = canvas.Point{X: -250, Y: 75}
	before := v.ToPlane(v.Center())

	require.True(t, v.ZoomIn())
	after := v.ToPlane(v.Center())
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
	assert.InDelta(t, 1.1, v.Zoom, 1e-9)
}

func TestScrollKeepsPointerFixed(t *testing.T) {
	v := New(1000, 600)
	v.Offset = canvas.Point{X: 40, Y: -20}
	pointer := canvas.Point{X: 130, Y: 470}
	before := v.ToPlane(pointer)

	v.Scroll(pointer, 120)
	assert.Less(t, v.Zoom, 1.0)
	after := v.ToPlane(pointer)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestCenterOn(t *testing.T) {
	v := New(1000, 800)
	n := &canvas.ChatNode{X: 1500, Y: 1200, Width: 360, Height: 180}
	v.CenterOn(n)
	assert.Equal(t, 500-1500-180.0, v.Offset.X)
	assert.Equal(t, 400-1200-90.0, v.Offset.Y)
}

func TestFit(t *testing.T) {
	v := New(1000, 800)
	nodes := []*canvas.ChatNode{
		{X: 0, Y: 0, Width: 360, Height: 180},
		{X: 4000, Y: 2000, Width: 360, Height: 180},
	}
	v.Fit(nodes)

	require.Greater(t, v.Zoom, MinZoom)
	require.Less(t, v.Zoom, 1.0)
	for _, n := range nodes {
		tl := v.ToScreen(canvas.Point{X: n.X, Y: n.Y})
		br := v.ToScreen(canvas.Point{X: n.X + n.Width, Y: n.Y + n.Height})
		assert.GreaterOrEqual(t, tl.X, 0.0)
		assert.GreaterOrEqual(t, tl.Y, 0.0)
		assert.LessOrEqual(t, br.X, v.Width)
		assert.LessOrEqual(t, br.Y, v.Height)
	}

	small := New(1000, 800)
	small.Fit(nodes[:1])
	assert.Equal(t, 1.0, small.Zoom, "fit never zooms in past 1")

	empty := New(1000, 800)
	empty.Offset = canvas.Point{X: 9, Y: 9}
	empty.Fit(nil)
	assert.Equal(t, canvas.Point{}, empty.Offset)
}

func newTree(t *testing.T) (*canvas.Canvas, *canvas.ChatNode) {
	t.Helper()
	c := canvas.New()
	root := c.CreateRoot(1000, 800)
	return c, root
}

func TestBackgroundPan(t *testing.T) {
	c, _ := newTree(t)
	v := New(1000, 800)
	v.Offset = canvas.Point{X: 10, Y: 20}
	ctl := NewController(v, c)

	require.True(t, ctl.PointerDown(PointerEvent{Button: ButtonLeft, X: 100, Y: 100, Target: TargetBackground}))
	assert.Equal(t, ModePan, ctl.Mode())
	assert.True(t, ctl.Capturing())

	change, err := ctl.PointerMove(PointerEvent{X: 150, Y: 80})
	require.NoError(t, err)
	assert.True(t, change.View)
	assert.Equal(t, canvas.Point{X: 60, Y: 0}, v.Offset)

	assert.Equal(t, ModePan, ctl.PointerUp(PointerEvent{}))
	assert.False(t, ctl.Capturing())

	change, err = ctl.PointerMove(PointerEvent{X: 500, Y: 500})
	require.NoError(t, err)
	assert.True(t, change.Empty(), "moves are ignored once released")
}

func TestNodeDragDividesByZoom(t *testing.T) {
	c, root := newTree(t)
	v := New(1000, 800)
	v.Zoom = 0.5
	ctl := NewController(v, c)
	startX, startY := root.X, root.Y

	require.True(t, ctl.PointerDown(PointerEvent{Button: ButtonLeft, X: 0, Y: 0, Target: TargetNode, NodeID: root.ID}))
	change, err := ctl.PointerMove(PointerEvent{X: 50, Y: -20})
	require.NoError(t, err)
	assert.Equal(t, root.ID, change.NodeID)
	assert.Equal(t, startX+100, root.X)
	assert.Equal(t, startY-40, root.Y)

	_, err = ctl.PointerMove(PointerEvent{X: 1e9, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, canvas.PlaneMax, root.X)
}

func TestResizeHandle(t *testing.T) {
	c, root := newTree(t)
	v := New(1000, 800)
	v.Zoom = 2
	ctl := NewController(v, c)

	require.True(t, ctl.PointerDown(PointerEvent{Button: ButtonLeft, X: 10, Y: 10, Target: TargetResizeHandle, NodeID: root.ID}))
	assert.Equal(t, ModeResize, ctl.Mode())
	assert.True(t, root.ManualHeight)

	_, err := ctl.PointerMove(PointerEvent{X: 110, Y: 50})
	require.NoError(t, err)
	assert.Equal(t, canvas.DefaultWidth+50, root.Width)
	assert.Equal(t, canvas.DefaultHeight+20, root.Height)

	_, err = ctl.PointerMove(PointerEvent{X: -1000, Y: -1000})
	require.NoError(t, err)
	assert.Equal(t, canvas.MinWidth, root.Width)
	assert.Equal(t, canvas.MinHeight, root.Height)
}

func TestResizeHandleKeepsSizeUntilMoved(t *testing.T) {
	c, root := newTree(t)
	root.Width, root.Height = 120, 60
	ctl := NewController(New(1000, 800), c)

	require.True(t, ctl.PointerDown(PointerEvent{Button: ButtonLeft, Target: TargetResizeHandle, NodeID: root.ID}))
	assert.True(t, root.ManualHeight)
	assert.Equal(t, 120.0, root.Width)
	assert.Equal(t, 60.0, root.Height)

	other := NewController(New(1000, 800), c)
	assert.False(t, other.PointerDown(PointerEvent{Button: ButtonLeft, Target: TargetResizeHandle, NodeID: "missing"}))
	assert.Equal(t, ModeIdle, other.Mode())
}

func TestInteractionsAreExclusive(t *testing.T) {
	c, root := newTree(t)
	v := New(1000, 800)
	ctl := NewController(v, c)

	require.True(t, ctl.PointerDown(PointerEvent{Button: ButtonMiddle, X: 5, Y: 5, Target: TargetNode, NodeID: root.ID}))
	assert.Equal(t, ModeMiddlePan, ctl.Mode())
	assert.False(t, ctl.PointerDown(PointerEvent{Button: ButtonLeft, Target: TargetBackground}))
	assert.Equal(t, ModeMiddlePan, ctl.Mode())
}

func TestPointerDownIgnored(t *testing.T) {
	c, root := newTree(t)
	ctl := NewController(New(1000, 800), c)

	assert.False(t, ctl.PointerDown(PointerEvent{Button: ButtonLeft, Target: TargetControl, NodeID: root.ID}))
	assert.False(t, ctl.PointerDown(PointerEvent{Button: ButtonRight, Target: TargetBackground}))
	assert.False(t, ctl.PointerDown(PointerEvent{Button: ButtonLeft, Target: TargetNode, NodeID: "missing"}))
	assert.Equal(t, ModeIdle, ctl.Mode())
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, MinZoom, ClampZoom(-3))
	assert.Equal(t, MaxZoom, ClampZoom(40))
	assert.Equal(t, MinZoom, ClampZoom(0))
	assert.Equal(t, 1.0, ClampZoom(math.NaN()))
	assert.Equal(t, 0.5, ClampZoom(0.5))
}
