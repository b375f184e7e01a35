package viewport

import (
	"math"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
)

const (
	MinZoom  = 0.01
	MaxZoom  = 2.0
	ZoomStep = 0.1

	// wheelSensitivity converts a wheel delta (pixels) into a zoom exponent.
	wheelSensitivity = 0.0015

	// fitPadding is the screen margin kept around nodes when fitting.
	fitPadding = 40.0
)

// View is the pan/zoom state of the canvas as seen through a viewport of
// Width x Height screen pixels. A plane point p appears on screen at
// p*Zoom + Offset.
type View struct {
	Offset canvas.Point `json:"offset"`
	Zoom   float64      `json:"zoom"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
}

// New returns an unzoomed view for a viewport of the given size.
func New(width, height float64) *View {
	return &View{Zoom: 1, Width: width, Height: height}
}

// ClampZoom limits z to [MinZoom, MaxZoom]. NaN maps to 1.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Center returns the screen centre of the viewport.
func (v *View) Center() canvas.Point {
	return canvas.Point{X: v.Width / 2, Y: v.Height / 2}
}

// ToPlane converts a screen point to plane coordinates.
func (v *View) ToPlane(p canvas.Point) canvas.Point {
	return canvas.Point{
		X: (p.X - v.Offset.X) / v.Zoom,
		Y: (p.Y - v.Offset.Y) / v.Zoom,
	}
}

// ToScreen converts a plane point to screen coordinates.
func (v *View) ToScreen(p canvas.Point) canvas.Point {
	return canvas.Point{
		X: p.X*v.Zoom + v.Offset.X,
		Y: p.Y*v.Zoom + v.Offset.Y,
	}
}

// CenterOn pans, without zooming, so the node is in the middle of the viewport.
func (v *View) CenterOn(n *canvas.ChatNode) {
	v.Offset.X = v.Width/2 - n.X - n.Width/2
	v.Offset.Y = v.Height/2 - n.Y - n.Height/2
}

// ZoomAt sets the zoom level while keeping the plane point under the screen
// point ref fixed.
func (v *View) ZoomAt(ref canvas.Point, zoom float64) {
	anchor := v.ToPlane(ref)
	v.Zoom = ClampZoom(zoom)
	v.Offset.X = ref.X - anchor.X*v.Zoom
	v.Offset.Y = ref.Y - anchor.Y*v.Zoom
}

// ZoomIn zooms one step around the viewport centre. It reports whether the
// zoom changed.
func (v *View) ZoomIn() bool {
	if v.Zoom >= MaxZoom {
		return false
	}
	v.ZoomAt(v.Center(), v.Zoom+ZoomStep)
	return true
}

// ZoomOut zooms out one step around the viewport centre.
func (v *View) ZoomOut() bool {
	if v.Zoom <= MinZoom {
		return false
	}
	v.ZoomAt(v.Center(), v.Zoom-ZoomStep)
	return true
}

// Scroll applies a modifier-scroll zoom keeping the pointer fixed. Positive
// deltas zoom out.
func (v *View) Scroll(pointer canvas.Point, deltaY float64) {
	v.ZoomAt(pointer, v.Zoom*math.Exp(-deltaY*wheelSensitivity))
}

// Resize updates the viewport dimensions.
func (v *View) Resize(width, height float64) {
	v.Width = width
	v.Height = height
}

// Rect is an axis-aligned box on the plane.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Bounds returns the bounding box of the nodes and false when there are none.
func Bounds(nodes []*canvas.ChatNode) (Rect, bool) {
	if len(nodes) == 0 {
		return Rect{}, false
	}
	r := Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, n := range nodes {
		r.MinX = math.Min(r.MinX, n.X)
		r.MinY = math.Min(r.MinY, n.Y)
		r.MaxX = math.Max(r.MaxX, n.X+n.Width)
		r.MaxY = math.Max(r.MaxY, n.Y+n.Height)
	}
	return r, true
}

// Fit zooms and pans so every node is visible, never zooming in past 1.
// An empty node set resets the view to the origin at zoom 1.
func (v *View) Fit(nodes []*canvas.ChatNode) {
	r, ok := Bounds(nodes)
	if !ok {
		v.Offset = canvas.Point{}
		v.Zoom = 1
		return
	}
	w := math.Max(r.MaxX-r.MinX, 1)
	h := math.Max(r.MaxY-r.MinY, 1)
	availW := math.Max(v.Width-2*fitPadding, 1)
	availH := math.Max(v.Height-2*fitPadding, 1)

	v.Zoom = ClampZoom(math.Min(1, math.Min(availW/w, availH/h)))
	cx := (r.MinX + r.MaxX) / 2
	cy := (r.MinY + r.MaxY) / 2
	v.Offset.X = v.Width/2 - cx*v.Zoom
	v.Offset.Y = v.Height/2 - cy*v.Zoom
}
