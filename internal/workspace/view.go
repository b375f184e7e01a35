package workspace

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
	"github.com/ziadkadry99/branch-canvas/internal/events"
	"github.com/ziadkadry99/branch-canvas/internal/viewport"
)

// Mode returns the pointer interaction in progress.
func (w *Workspace) Mode() viewport.Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctl.Mode()
}

// PointerDown starts a pan, drag or resize. It reports whether an
// interaction started; nothing is persisted until it ends.
func (w *Workspace) PointerDown(ev viewport.PointerEvent) bool {
	w.mu.Lock()
	started := w.ctl.PointerDown(ev)
	var evts []events.Event
	if started && ev.Target == viewport.TargetResizeHandle {
		if n, ok := w.canvas.Node(ev.NodeID); ok {
			evts = append(evts, nodeEvent(events.NodeUpdated, n))
		}
	}
	w.mu.Unlock()
	w.publish(evts...)
	return started
}

// PointerMove advances the interaction in progress and announces the change.
func (w *Workspace) PointerMove(ev viewport.PointerEvent) (viewport.Change, error) {
	w.mu.Lock()
	change, err := w.ctl.PointerMove(ev)
	var evts []events.Event
	if change.View {
		evts = append(evts, w.viewEvent())
	}
	if change.NodeID != "" {
		if n, ok := w.canvas.Node(change.NodeID); ok {
			evts = append(evts, nodeEvent(events.NodeUpdated, n))
		}
	}
	w.mu.Unlock()
	w.publish(evts...)
	return change, err
}

// PointerUp ends the interaction in progress and saves its result.
func (w *Workspace) PointerUp(ctx context.Context, ev viewport.PointerEvent) (viewport.Mode, error) {
	var ended viewport.Mode
	err := w.update(ctx, func() ([]events.Event, error) {
		ended = w.ctl.PointerUp(ev)
		return nil, nil
	})
	return ended, err
}

// ZoomIn zooms one step around the viewport centre.
func (w *Workspace) ZoomIn(ctx context.Context) (viewport.View, error) {
	return w.changeView(ctx, func(v *viewport.View) { v.ZoomIn() })
}

// ZoomOut zooms out one step around the viewport centre.
func (w *Workspace) ZoomOut(ctx context.Context) (viewport.View, error) {
	return w.changeView(ctx, func(v *viewport.View) { v.ZoomOut() })
}

// Scroll zooms around the pointer.
func (w *Workspace) Scroll(ctx context.Context, pointer canvas.Point, deltaY float64) (viewport.View, error) {
	return w.changeView(ctx, func(v *viewport.View) { v.Scroll(pointer, deltaY) })
}

// ResizeViewport records the client's viewport size.
func (w *Workspace) ResizeViewport(ctx context.Context, width, height float64) (viewport.View, error) {
	return w.changeView(ctx, func(v *viewport.View) {
		if width > 0 && height > 0 {
			v.Resize(width, height)
		}
	})
}

// Fit zooms and pans so that every node is visible.
func (w *Workspace) Fit(ctx context.Context) (viewport.View, error) {
	return w.changeView(ctx, func(v *viewport.View) { v.Fit(w.canvas.Nodes()) })
}

// CenterOn pans the view so id is in the middle of the viewport.
func (w *Workspace) CenterOn(ctx context.Context, id string) (viewport.View, error) {
	var out viewport.View
	err := w.update(ctx, func() ([]events.Event, error) {
		n, ok := w.canvas.Node(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, id)
		}
		w.view.CenterOn(n)
		out = *w.view
		return []events.Event{w.viewEvent()}, nil
	})
	return out, err
}

func (w *Workspace) changeView(ctx context.Context, fn func(v *viewport.View)) (viewport.View, error) {
	var out viewport.View
	err := w.update(ctx, func() ([]events.Event, error) {
		fn(w.view)
		out = *w.view
		return []events.Event{w.viewEvent()}, nil
	})
	return out, err
}
