package canvas

import "errors"

// Role represents the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a node's chat history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Point is a position on the virtual plane or in screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the width and height of a node in plane units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ChatNode is one branch point of the conversation tree.
type ChatNode struct {
	ID           string      `json:"id"`
	ParentID     string      `json:"parentId,omitempty"`
	Children     []*ChatNode `json:"-"`
	Messages     []Message   `json:"messages"`
	Input        string      `json:"input"`
	Loading      bool        `json:"loading"`
	Active       bool        `json:"active"`
	X            float64     `json:"x"`
	Y            float64     `json:"y"`
	Width        float64     `json:"width"`
	Height       float64     `json:"height"`
	Title        string      `json:"title,omitempty"`
	ManualHeight bool        `json:"manualHeight,omitempty"`
}

// ChildIDs returns the ids of the node's children in order.
func (n *ChatNode) ChildIDs() []string {
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

// DisplayTitle is the title shown when renaming a node that has none yet.
func (n *ChatNode) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	id := n.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Chat " + id
}

// Geometry constants of the canvas.
const (
	PlaneMin = -50000.0
	PlaneMax = 50000.0

	DefaultWidth  = 360.0
	DefaultHeight = 180.0
	MinWidth      = 200.0
	MinHeight     = 100.0

	// BranchGap is the horizontal distance between a parent and a new branch.
	BranchGap = 40.0
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNodeInactive = errors.New("node is inactive")
	ErrNodeLoading  = errors.New("node is waiting for a reply")
	ErrEmptyMessage = errors.New("message is empty")
)

// ClampCoord limits a coordinate to the virtual plane.
func ClampCoord(v float64) float64 {
	if v < PlaneMin {
		return PlaneMin
	}
	if v > PlaneMax {
		return PlaneMax
	}
	return v
}
