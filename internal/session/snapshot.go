// Package session persists canvases and provider preferences per browser
// session and converts canvases to and from the saved-file format.
package session

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
	"github.com/ziadkadry99/branch-canvas/internal/viewport"
)

// Snapshot is the serialized form of a canvas and its view. Nodes reference
// their children by id.
type Snapshot struct {
	Nodes        map[string]*SnapshotNode `json:"nodes"`
	RootNodeID   string                   `json:"rootNodeId,omitempty"`
	CanvasOffset *canvas.Point            `json:"canvasOffset,omitempty"`
	Zoom         *float64                 `json:"zoom,omitempty"`
}

// SnapshotNode is a node with its children flattened to ids.
type SnapshotNode struct {
	canvas.ChatNode
	Children []string `json:"children"`
}

// NodeOf returns the serialized form of n. Messages are shared with n.
func NodeOf(n *canvas.ChatNode) *SnapshotNode {
	node := *n
	node.Children = nil
	if node.Messages == nil {
		node.Messages = []canvas.Message{}
	}
	return &SnapshotNode{ChatNode: node, Children: n.ChildIDs()}
}

// Capture serializes the canvas and the view.
func Capture(c *canvas.Canvas, v *viewport.View) *Snapshot {
	s := &Snapshot{
		Nodes:      make(map[string]*SnapshotNode, c.Len()),
		RootNodeID: c.RootID(),
	}
	for _, n := range c.Nodes() {
		s.Nodes[n.ID] = NodeOf(n)
	}
	if v != nil {
		offset := v.Offset
		zoom := v.Zoom
		s.CanvasOffset = &offset
		s.Zoom = &zoom
	}
	return s
}

// Encode writes the snapshot as indented JSON.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding canvas: %w", err)
	}
	return data, nil
}

// Decode parses a saved canvas.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding canvas: %w", err)
	}
	if s.Nodes == nil {
		s.Nodes = map[string]*SnapshotNode{}
	}
	return &s, nil
}

// Canvas rebuilds the tree. Child lists are resolved from ids and unknown
// children are skipped. A child listed by several parents stays with the
// first one in id order, and an edge that would close a cycle is dropped,
// so the result is always a forest. Nodes are restored in id order, placed
// on the plane, and none of them is left waiting for a reply.
func (s *Snapshot) Canvas() *canvas.Canvas {
	ids := make([]string, 0, len(s.Nodes))
	for id, n := range s.Nodes {
		if n != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	nodes := make(map[string]*canvas.ChatNode, len(ids))
	ordered := make([]*canvas.ChatNode, 0, len(ids))
	for _, id := range ids {
		n := s.Nodes[id].ChatNode
		n.ID = id
		n.ParentID = ""
		n.Children = nil
		n.Loading = false
		n.X = canvas.ClampCoord(n.X)
		n.Y = canvas.ClampCoord(n.Y)
		if n.Messages == nil {
			n.Messages = []canvas.Message{}
		}
		nodes[id] = &n
		ordered = append(ordered, &n)
	}
	for _, id := range ids {
		parent := nodes[id]
		for _, childID := range s.Nodes[id].Children {
			child, ok := nodes[childID]
			if !ok || child.ParentID != "" || isAncestor(nodes, child, parent) {
				continue
			}
			parent.Children = append(parent.Children, child)
			child.ParentID = id
		}
	}
	return canvas.Restore(ordered, s.RootNodeID)
}

// isAncestor reports whether a is n or one of its ancestors.
func isAncestor(nodes map[string]*canvas.ChatNode, a, n *canvas.ChatNode) bool {
	for n != nil {
		if n == a {
			return true
		}
		n = nodes[n.ParentID]
	}
	return false
}

// HasView reports whether the snapshot carries an offset or a zoom level.
func (s *Snapshot) HasView() bool {
	return s.CanvasOffset != nil || s.Zoom != nil
}

// ApplyView restores the offset and zoom onto v. A missing offset is the
// origin and a missing or zero zoom is 1. When neither was saved the view
// is fitted to the nodes instead.
func (s *Snapshot) ApplyView(v *viewport.View, nodes []*canvas.ChatNode) {
	if !s.HasView() {
		v.Fit(nodes)
		return
	}
	v.Offset = canvas.Point{}
	if s.CanvasOffset != nil {
		v.Offset = *s.CanvasOffset
	}
	v.Zoom = 1
	if s.Zoom != nil && *s.Zoom != 0 {
		v.Zoom = viewport.ClampZoom(*s.Zoom)
	}
}
