package viewport

import (
	"github.com/ziadkadry99/branch-canvas/internal/canvas"
)

// Mode is the pointer interaction currently in progress.
type Mode int

const (
	ModeIdle Mode = iota
	ModePan
	ModeDrag
	ModeResize
	ModeMiddlePan
)

func (m Mode) String() string {
	switch m {
	case ModePan:
		return "pan"
	case ModeDrag:
		return "drag"
	case ModeResize:
		return "resize"
	case ModeMiddlePan:
		return "middle-pan"
	default:
		return "idle"
	}
}

// Button identifies a mouse button using DOM numbering.
type Button int

const (
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

// TargetKind is what the pointer was over when the button went down.
type TargetKind string

const (
	TargetBackground   TargetKind = "background"
	TargetNode         TargetKind = "node"
	TargetControl      TargetKind = "control"
	TargetResizeHandle TargetKind = "resize-handle"
)

// PointerEvent is a pointer-down, move or up event in screen coordinates.
type PointerEvent struct {
	Button Button     `json:"button"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Target TargetKind `json:"target,omitempty"`
	NodeID string     `json:"nodeId,omitempty"`
}

func (e PointerEvent) point() canvas.Point { return canvas.Point{X: e.X, Y: e.Y} }

// NodeEditor is the subset of the conversation tree the controller mutates.
type NodeEditor interface {
	Node(id string) (*canvas.ChatNode, bool)
	Move(id string, x, y float64) error
	Resize(id string, width, height float64) error
	MarkManual(id string) error
}

// Change reports what a pointer event modified.
type Change struct {
	View   bool
	NodeID string
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool { return !c.View && c.NodeID == "" }

// Controller turns pointer events into pan, drag and resize updates. At most
// one interaction runs at a time; move and up events are only consumed while
// one is in progress.
type Controller struct {
	view  *View
	nodes NodeEditor

	mode      Mode
	nodeID    string
	start     canvas.Point
	nodeStart canvas.Point
	sizeStart canvas.Size
}

// NewController binds a controller to a view and a node editor.
func NewController(view *View, nodes NodeEditor) *Controller {
	return &Controller{view: view, nodes: nodes}
}

// Bind swaps the node editor, ending any interaction in progress.
func (c *Controller) Bind(view *View, nodes NodeEditor) {
	c.view = view
	c.nodes = nodes
	c.reset()
}

// Mode returns the active interaction.
func (c *Controller) Mode() Mode { return c.mode }

// Capturing reports whether move/up events are being listened for.
func (c *Controller) Capturing() bool { return c.mode != ModeIdle }

// PointerDown starts an interaction matching the event's button and target.
// It returns false when the event does not start one.
func (c *Controller) PointerDown(ev PointerEvent) bool {
	if c.mode != ModeIdle {
		return false
	}

	switch {
	case ev.Button == ButtonMiddle:
		c.beginPan(ModeMiddlePan, ev)
	case ev.Button != ButtonLeft:
		return false
	case ev.Target == TargetResizeHandle:
		n, ok := c.nodes.Node(ev.NodeID)
		if !ok || c.nodes.MarkManual(n.ID) != nil {
			return false
		}
		c.mode = ModeResize
		c.nodeID = n.ID
		c.start = ev.point()
		c.sizeStart = canvas.Size{Width: n.Width, Height: n.Height}
	case ev.Target == TargetBackground:
		c.beginPan(ModePan, ev)
	case ev.Target == TargetNode:
		n, ok := c.nodes.Node(ev.NodeID)
		if !ok {
			return false
		}
		c.mode = ModeDrag
		c.nodeID = n.ID
		c.start = ev.point()
		c.nodeStart = canvas.Point{X: n.X, Y: n.Y}
	default:
		return false
	}
	return true
}

func (c *Controller) beginPan(mode Mode, ev PointerEvent) {
	c.mode = mode
	c.start = canvas.Point{X: ev.X - c.view.Offset.X, Y: ev.Y - c.view.Offset.Y}
}

// PointerMove advances the interaction in progress.
func (c *Controller) PointerMove(ev PointerEvent) (Change, error) {
	switch c.mode {
	case ModePan, ModeMiddlePan:
		c.view.Offset.X = ev.X - c.start.X
		c.view.Offset.Y = ev.Y - c.start.Y
		return Change{View: true}, nil
	case ModeDrag:
		x := c.nodeStart.X + (ev.X-c.start.X)/c.view.Zoom
		y := c.nodeStart.Y + (ev.Y-c.start.Y)/c.view.Zoom
		if err := c.nodes.Move(c.nodeID, x, y); err != nil {
			c.reset()
			return Change{}, err
		}
		return Change{NodeID: c.nodeID}, nil
	case ModeResize:
		w := c.sizeStart.Width + (ev.X-c.start.X)/c.view.Zoom
		h := c.sizeStart.Height + (ev.Y-c.start.Y)/c.view.Zoom
		if err := c.nodes.Resize(c.nodeID, w, h); err != nil {
			c.reset()
			return Change{}, err
		}
		return Change{NodeID: c.nodeID}, nil
	}
	return Change{}, nil
}

// PointerUp ends the interaction in progress and reports which mode ended.
func (c *Controller) PointerUp(PointerEvent) Mode {
	ended := c.mode
	c.reset()
	return ended
}

func (c *Controller) reset() {
	c.mode = ModeIdle
	c.nodeID = ""
}
