package canvas

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Canvas holds the conversation tree: every node keyed by id plus the id of
// the designated root. The map may also contain orphan roots created by
// "new root" actions.
//
// Canvas is not safe for concurrent use; callers serialise access.
type Canvas struct {
	nodes  map[string]*ChatNode
	order  []string
	rootID string
	newID  func() string
}

// New returns an empty canvas.
func New() *Canvas {
	return &Canvas{
		nodes: make(map[string]*ChatNode),
		newID: uuid.NewString,
	}
}

// Restore builds a canvas from already linked nodes. Unknown root ids are
// dropped.
func Restore(nodes []*ChatNode, rootID string) *Canvas {
	c := New()
	for _, n := range nodes {
		c.insert(n)
	}
	if _, ok := c.nodes[rootID]; ok {
		c.rootID = rootID
	}
	return c
}

// SetIDGenerator replaces the id generator. Intended for tests.
func (c *Canvas) SetIDGenerator(gen func() string) {
	c.newID = gen
}

// RootID returns the designated root, or "" when there is none.
func (c *Canvas) RootID() string { return c.rootID }

// Len returns the number of nodes.
func (c *Canvas) Len() int { return len(c.nodes) }

// Node looks up a node by id.
func (c *Canvas) Node(id string) (*ChatNode, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Nodes returns every node in creation order.
func (c *Canvas) Nodes() []*ChatNode {
	out := make([]*ChatNode, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.nodes[id])
	}
	return out
}

// IDs returns the node ids in sorted order.
func (c *Canvas) IDs() []string {
	ids := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Canvas) insert(n *ChatNode) {
	if _, exists := c.nodes[n.ID]; !exists {
		c.order = append(c.order, n.ID)
	}
	c.nodes[n.ID] = n
}

func (c *Canvas) get(id string) (*ChatNode, error) {
	n, ok := c.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

// CreateRoot adds a new active root node placed at 1.5x the viewport size
// and makes it the designated root.
func (c *Canvas) CreateRoot(viewportWidth, viewportHeight float64) *ChatNode {
	root := &ChatNode{
		ID:       c.newID(),
		Messages: []Message{},
		Active:   true,
		X:        ClampCoord(viewportWidth * 1.5),
		Y:        ClampCoord(viewportHeight * 1.5),
		Width:    DefaultWidth,
		Height:   DefaultHeight,
	}
	c.insert(root)
	c.rootID = root.ID
	return root
}

// Branch creates an active child to the right of the node and marks the
// node read-only. Inactive nodes may be branched again.
func (c *Canvas) Branch(id string) (*ChatNode, error) {
	parent, err := c.get(id)
	if err != nil {
		return nil, err
	}
	child := &ChatNode{
		ID:       c.newID(),
		ParentID: parent.ID,
		Messages: []Message{},
		Active:   true,
		X:        ClampCoord(parent.X + parent.Width + BranchGap),
		Y:        parent.Y,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
	}
	parent.Children = append(parent.Children, child)
	c.insert(child)
	parent.Active = false
	return child, nil
}

// Delete removes the node and all of its descendants, detaching it from its
// parent. Deleting the designated root clears the root reference.
func (c *Canvas) Delete(id string) error {
	n, err := c.get(id)
	if err != nil {
		return err
	}
	c.remove(n)
	return nil
}

func (c *Canvas) remove(n *ChatNode) {
	if parent, ok := c.nodes[n.ParentID]; ok && n.ParentID != "" {
		kept := parent.Children[:0]
		for _, child := range parent.Children {
			if child.ID != n.ID {
				kept = append(kept, child)
			}
		}
		parent.Children = kept
	}
	// Copy: recursive removal rewrites n.Children through the parent filter.
	children := append([]*ChatNode(nil), n.Children...)
	for _, child := range children {
		c.remove(child)
	}
	delete(c.nodes, n.ID)
	for i, oid := range c.order {
		if oid == n.ID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.rootID == n.ID {
		c.rootID = ""
	}
}

// Reset drops every node.
func (c *Canvas) Reset() {
	c.nodes = make(map[string]*ChatNode)
	c.order = nil
	c.rootID = ""
}

// Rename sets the node title.
func (c *Canvas) Rename(id, title string) error {
	n, err := c.get(id)
	if err != nil {
		return err
	}
	n.Title = title
	return nil
}

// SetInput stores the pending, unsent input text of a node.
func (c *Canvas) SetInput(id, text string) error {
	n, err := c.get(id)
	if err != nil {
		return err
	}
	n.Input = text
	return nil
}

// Move places the node at (x, y), clamped to the plane.
func (c *Canvas) Move(id string, x, y float64) error {
	n, err := c.get(id)
	if err != nil {
		return err
	}
	n.X = ClampCoord(x)
	n.Y = ClampCoord(y)
	return nil
}

// MarkManual flags the node as manually sized without touching its size.
func (c *Canvas) MarkManual(id string) error {
	n, err := c.get(id)
	if err != nil {
		return err
	}
	n.ManualHeight = true
	return nil
}

// Resize sets the node size, honouring the minimum size and the plane
// bounds, and marks the node as manually sized.
func (c *Canvas) Resize(id string, width, height float64) error {
	n, err := c.get(id)
	if err != nil {
		return err
	}
	width = max(MinWidth, min(width, PlaneMax-n.X))
	height = max(MinHeight, min(height, PlaneMax-n.Y))
	n.Width = width
	n.Height = height
	n.ManualHeight = true
	return nil
}

// Thread returns the chain of nodes from the top-most ancestor down to id.
func (c *Canvas) Thread(id string) ([]*ChatNode, error) {
	n, err := c.get(id)
	if err != nil {
		return nil, err
	}
	var thread []*ChatNode
	seen := make(map[string]bool)
	for n != nil && !seen[n.ID] {
		seen[n.ID] = true
		thread = append([]*ChatNode{n}, thread...)
		n = c.nodes[n.ParentID]
	}
	return thread, nil
}

// Context assembles the conversation history seen by a node: for each
// ancestor from the root down, a "Branch name" system message when the
// ancestor has a title followed by its messages, then the node's own
// messages.
func (c *Canvas) Context(id string) ([]Message, error) {
	thread, err := c.Thread(id)
	if err != nil {
		return nil, err
	}
	var ctx []Message
	for _, ancestor := range thread[:len(thread)-1] {
		if ancestor.Title != "" {
			ctx = append(ctx, Message{Role: RoleSystem, Content: "Branch name: " + ancestor.Title})
		}
		ctx = append(ctx, ancestor.Messages...)
	}
	ctx = append(ctx, thread[len(thread)-1].Messages...)
	return ctx, nil
}

// Pending describes a user message that is waiting for a reply.
type Pending struct {
	NodeID  string
	Message string
	Context []Message
}

// BeginSend records a user message on an active, idle node and returns the
// history to send alongside it. The returned context does not include the
// new message.
func (c *Canvas) BeginSend(id, text string) (*Pending, error) {
	n, err := c.get(id)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, ErrEmptyMessage
	case !n.Active:
		return nil, fmt.Errorf("%w: %s", ErrNodeInactive, id)
	case n.Loading:
		return nil, fmt.Errorf("%w: %s", ErrNodeLoading, id)
	}

	history, err := c.Context(id)
	if err != nil {
		return nil, err
	}
	n.Messages = append(n.Messages, Message{Role: RoleUser, Content: text})
	n.Input = ""
	n.Loading = true
	return &Pending{NodeID: id, Message: text, Context: history}, nil
}

// CompleteSend appends the assistant reply and clears the loading flag.
func (c *Canvas) CompleteSend(id, reply string) error {
	n, err := c.get(id)
	if err != nil {
		return err
	}
	n.Messages = append(n.Messages, Message{Role: RoleAssistant, Content: reply})
	n.Loading = false
	return nil
}
