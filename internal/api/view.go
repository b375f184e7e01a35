package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
	"github.com/ziadkadry99/branch-canvas/internal/viewport"
	"github.com/ziadkadry99/branch-canvas/internal/workspace"
)

func (h *handlers) handleView(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.View())
}

func (h *handlers) handleViewportSize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Width <= 0 || body.Height <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "width and height must be positive"})
		return
	}
	h.changeView(w, r, func(ws *workspace.Workspace) (viewport.View, error) {
		return ws.ResizeViewport(r.Context(), body.Width, body.Height)
	})
}

func (h *handlers) handleZoomIn(w http.ResponseWriter, r *http.Request) {
	h.changeView(w, r, func(ws *workspace.Workspace) (viewport.View, error) {
		return ws.ZoomIn(r.Context())
	})
}

func (h *handlers) handleZoomOut(w http.ResponseWriter, r *http.Request) {
	h.changeView(w, r, func(ws *workspace.Workspace) (viewport.View, error) {
		return ws.ZoomOut(r.Context())
	})
}

func (h *handlers) handleScroll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		DeltaY float64 `json:"deltaY"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.changeView(w, r, func(ws *workspace.Workspace) (viewport.View, error) {
		return ws.Scroll(r.Context(), canvas.Point{X: body.X, Y: body.Y}, body.DeltaY)
	})
}

func (h *handlers) handleFit(w http.ResponseWriter, r *http.Request) {
	h.changeView(w, r, func(ws *workspace.Workspace) (viewport.View, error) {
		return ws.Fit(r.Context())
	})
}

func (h *handlers) handleCenter(w http.ResponseWriter, r *http.Request) {
	h.changeView(w, r, func(ws *workspace.Workspace) (viewport.View, error) {
		return ws.CenterOn(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *handlers) changeView(w http.ResponseWriter, r *http.Request, fn func(ws *workspace.Workspace) (viewport.View, error)) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	v, err := fn(ws)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
