// Package workspace binds a session's canvas, view, interaction state and
// provider preferences together. Every mutation is persisted and announced
// on the event bus.
package workspace

import (
	"context"
	"fmt"
	"sync"

	"github.com/huandu/go-clone"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
	"github.com/ziadkadry99/branch-canvas/internal/events"
	"github.com/ziadkadry99/branch-canvas/internal/llm"
	"github.com/ziadkadry99/branch-canvas/internal/session"
	"github.com/ziadkadry99/branch-canvas/internal/viewport"
)

// Workspace is the live state of one session. It is safe for concurrent use.
type Workspace struct {
	id      string
	manager *Manager
	logger  zerolog.Logger

	mu     sync.Mutex
	canvas *canvas.Canvas
	view   *viewport.View
	ctl    *viewport.Controller
	prefs  session.Preferences
}

// ID returns the session id.
func (w *Workspace) ID() string { return w.id }

// update runs fn under the lock, saves the canvas when fn succeeds and then
// publishes the events fn returned.
func (w *Workspace) update(ctx context.Context, fn func() ([]events.Event, error)) error {
	w.mu.Lock()
	evts, err := fn()
	if err == nil {
		err = w.persistLocked(ctx)
	}
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.publish(evts...)
	return nil
}

func (w *Workspace) persistLocked(ctx context.Context) error {
	if err := w.manager.store.SaveCanvas(ctx, w.id, session.Capture(w.canvas, w.view)); err != nil {
		return fmt.Errorf("saving canvas: %w", err)
	}
	return nil
}

func (w *Workspace) publish(evts ...events.Event) {
	for _, e := range evts {
		e.SessionID = w.id
		if err := w.manager.bus.Publish(e); err != nil {
			w.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("publishing event")
		}
	}
}

// nodeEvent returns an event carrying a detached copy of the node.
func nodeEvent(t events.Type, n *canvas.ChatNode) events.Event {
	return events.Event{Type: t, NodeID: n.ID, Node: detach(n)}
}

func (w *Workspace) viewEvent() events.Event {
	v := *w.view
	return events.Event{Type: events.ViewChanged, View: &v}
}

func detach(n *canvas.ChatNode) *session.SnapshotNode {
	return clone.Clone(session.NodeOf(n)).(*session.SnapshotNode)
}

// Snapshot returns a detached copy of the canvas and view.
func (w *Workspace) Snapshot() *session.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return clone.Clone(session.Capture(w.canvas, w.view)).(*session.Snapshot)
}

// Node returns a detached copy of a node.
func (w *Workspace) Node(id string) (*session.SnapshotNode, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.canvas.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, id)
	}
	return detach(n), nil
}

// View returns the current view.
func (w *Workspace) View() viewport.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.view
}

// Context returns the history that would accompany a message sent from id.
func (w *Workspace) Context(id string) ([]canvas.Message, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msgs, err := w.canvas.Context(id)
	if err != nil {
		return nil, err
	}
	return append([]canvas.Message(nil), msgs...), nil
}

// NewRoot adds a new root node and pans the view to it. Existing nodes stay
// on the canvas.
func (w *Workspace) NewRoot(ctx context.Context) (*session.SnapshotNode, error) {
	var root *session.SnapshotNode
	err := w.update(ctx, func() ([]events.Event, error) {
		n := w.canvas.CreateRoot(w.view.Width, w.view.Height)
		w.view.CenterOn(n)
		e := nodeEvent(events.NodeCreated, n)
		e.RootID = n.ID
		root = e.Node
		return []events.Event{e, w.viewEvent()}, nil
	})
	return root, err
}

// Reset drops every node and starts over with a fresh root.
func (w *Workspace) Reset(ctx context.Context) (*session.SnapshotNode, error) {
	var root *session.SnapshotNode
	err := w.update(ctx, func() ([]events.Event, error) {
		w.ctl.PointerUp(viewport.PointerEvent{})
		w.canvas.Reset()
		n := w.canvas.CreateRoot(w.view.Width, w.view.Height)
		w.view.CenterOn(n)
		e := nodeEvent(events.NodeCreated, n)
		e.RootID = n.ID
		root = e.Node
		return []events.Event{{Type: events.CanvasReset}, e, w.viewEvent()}, nil
	})
	return root, err
}

// Branch creates a child of id and makes id read-only.
func (w *Workspace) Branch(ctx context.Context, id string) (*session.SnapshotNode, error) {
	var child *session.SnapshotNode
	err := w.update(ctx, func() ([]events.Event, error) {
		n, err := w.canvas.Branch(id)
		if err != nil {
			return nil, err
		}
		parent, _ := w.canvas.Node(id)
		created := nodeEvent(events.NodeCreated, n)
		child = created.Node
		return []events.Event{nodeEvent(events.NodeUpdated, parent), created}, nil
	})
	return child, err
}

// Delete removes id and its descendants and returns the removed ids.
func (w *Workspace) Delete(ctx context.Context, id string) ([]string, error) {
	var removed []string
	err := w.update(ctx, func() ([]events.Event, error) {
		n, ok := w.canvas.Node(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, id)
		}
		removed = subtree(n, make(map[string]bool))
		parentID := n.ParentID
		if err := w.canvas.Delete(id); err != nil {
			return nil, err
		}
		evts := []events.Event{{Type: events.NodeDeleted, NodeID: id, Removed: removed, RootID: w.canvas.RootID()}}
		if parent, ok := w.canvas.Node(parentID); ok {
			evts = append(evts, nodeEvent(events.NodeUpdated, parent))
		}
		return evts, nil
	})
	return removed, err
}

func subtree(n *canvas.ChatNode, seen map[string]bool) []string {
	if seen[n.ID] {
		return nil
	}
	seen[n.ID] = true
	ids := []string{n.ID}
	for _, c := range n.Children {
		ids = append(ids, subtree(c, seen)...)
	}
	return ids
}

// Rename sets the title of id.
func (w *Workspace) Rename(ctx context.Context, id, title string) (*session.SnapshotNode, error) {
	return w.editNode(ctx, id, func() error { return w.canvas.Rename(id, title) })
}

// SetInput stores the unsent input of id.
func (w *Workspace) SetInput(ctx context.Context, id, text string) (*session.SnapshotNode, error) {
	return w.editNode(ctx, id, func() error { return w.canvas.SetInput(id, text) })
}

// Move places id at (x, y) on the plane.
func (w *Workspace) Move(ctx context.Context, id string, x, y float64) (*session.SnapshotNode, error) {
	return w.editNode(ctx, id, func() error { return w.canvas.Move(id, x, y) })
}

// Resize sets the size of id.
func (w *Workspace) Resize(ctx context.Context, id string, width, height float64) (*session.SnapshotNode, error) {
	return w.editNode(ctx, id, func() error { return w.canvas.Resize(id, width, height) })
}

func (w *Workspace) editNode(ctx context.Context, id string, edit func() error) (*session.SnapshotNode, error) {
	var out *session.SnapshotNode
	err := w.update(ctx, func() ([]events.Event, error) {
		if err := edit(); err != nil {
			return nil, err
		}
		n, _ := w.canvas.Node(id)
		e := nodeEvent(events.NodeUpdated, n)
		out = e.Node
		return []events.Event{e}, nil
	})
	return out, err
}

// Preferences returns the provider settings of the session.
func (w *Workspace) Preferences() session.Preferences {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prefs
}

// SetPreferences stores new provider settings.
func (w *Workspace) SetPreferences(ctx context.Context, p session.Preferences) (session.Preferences, error) {
	if _, err := llm.ParseKind(string(p.Provider)); err != nil {
		return session.Preferences{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.manager.store.SavePreferences(ctx, w.id, p); err != nil {
		return session.Preferences{}, err
	}
	prefs, err := w.manager.store.Preferences(ctx, w.id)
	if err != nil {
		return session.Preferences{}, err
	}
	w.prefs = prefs
	return prefs, nil
}

// Export returns the canvas in the saved-file format.
func (w *Workspace) Export() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return session.Capture(w.canvas, w.view).Encode()
}

// Import replaces the canvas with a saved file. On error nothing changes.
func (w *Workspace) Import(ctx context.Context, data []byte) error {
	snap, err := session.Import(data)
	if err != nil {
		return err
	}
	return w.update(ctx, func() ([]events.Event, error) {
		w.load(snap)
		return []events.Event{{Type: events.CanvasLoaded, RootID: w.canvas.RootID()}, w.viewEvent()}, nil
	})
}

// load swaps in the canvas and view of snap. Callers hold the lock.
func (w *Workspace) load(snap *session.Snapshot) {
	w.canvas = snap.Canvas()
	if w.manager.opts.NewID != nil {
		w.canvas.SetIDGenerator(w.manager.opts.NewID)
	}
	snap.ApplyView(w.view, w.canvas.Nodes())
	w.ctl.Bind(w.view, w.canvas)
}
