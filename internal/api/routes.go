// Package api exposes the canvas of the caller's session over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
	"github.com/ziadkadry99/branch-canvas/internal/llm"
	"github.com/ziadkadry99/branch-canvas/internal/render"
	"github.com/ziadkadry99/branch-canvas/internal/session"
	"github.com/ziadkadry99/branch-canvas/internal/workspace"
)

// maxImportSize bounds uploaded canvas files.
const maxImportSize = 32 << 20

// RegisterRoutes mounts the canvas API routes.
func RegisterRoutes(r chi.Router, mgr *workspace.Manager, renderer *render.Renderer) {
	h := &handlers{mgr: mgr, renderer: renderer}

	r.Route("/api", func(r chi.Router) {
		r.Use(Sessions)

		r.Get("/canvas", h.handleCanvas)
		r.Post("/canvas/reset", h.handleReset)
		r.Post("/canvas/roots", h.handleNewRoot)

		r.Route("/nodes/{id}", func(r chi.Router) {
			r.Get("/", h.handleNode)
			r.Delete("/", h.handleDelete)
			r.Post("/branch", h.handleBranch)
			r.Put("/title", h.handleRename)
			r.Put("/input", h.handleInput)
			r.Put("/position", h.handleMove)
			r.Put("/size", h.handleResize)
			r.Get("/context", h.handleContext)
			r.Get("/messages", h.handleMessages)
			r.Post("/messages", h.handleSend)
		})

		r.Route("/view", func(r chi.Router) {
			r.Get("/", h.handleView)
			r.Put("/size", h.handleViewportSize)
			r.Post("/zoom-in", h.handleZoomIn)
			r.Post("/zoom-out", h.handleZoomOut)
			r.Post("/scroll", h.handleScroll)
			r.Post("/fit", h.handleFit)
			r.Post("/center/{id}", h.handleCenter)
		})

		r.Get("/preferences", h.handlePreferences)
		r.Put("/preferences", h.handleSetPreferences)

		r.Get("/export", h.handleExport)
		r.Post("/import", h.handleImport)

		r.Get("/render/styles.css", h.handleStyles)
	})
}

type handlers struct {
	mgr      *workspace.Manager
	renderer *render.Renderer
}

func (h *handlers) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := h.mgr.Open(r.Context(), SessionID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	return ws, true
}

// recoverWorkspace opens the session's workspace, dropping a saved canvas
// that cannot be read. Reset and import use it to replace such a canvas.
func (h *handlers) recoverWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ctx := r.Context()
	sid := SessionID(ctx)
	ws, err := h.mgr.Open(ctx, sid)
	var loadErr *session.LoadError
	if errors.As(err, &loadErr) {
		if err = h.mgr.Discard(ctx, sid); err == nil {
			ws, err = h.mgr.Open(ctx, sid)
		}
	}
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	return ws, true
}

func (h *handlers) handleCanvas(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (h *handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.recoverWorkspace(w, r)
	if !ok {
		return
	}
	root, err := ws.Reset(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

func (h *handlers) handleNewRoot(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	root, err := ws.NewRoot(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, root)
}

func (h *handlers) handleNode(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	n, err := ws.Node(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *handlers) handleBranch(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	child, err := ws.Branch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

func (h *handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "Are you sure you want to delete this chat and all its children?",
		})
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	removed, err := ws.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"removed": removed})
}

func (h *handlers) handleRename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	h.editNode(w, r, &body, func(ws *workspace.Workspace, id string) (*session.SnapshotNode, error) {
		return ws.Rename(r.Context(), id, body.Title)
	})
}

func (h *handlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Input string `json:"input"`
	}
	h.editNode(w, r, &body, func(ws *workspace.Workspace, id string) (*session.SnapshotNode, error) {
		return ws.SetInput(r.Context(), id, body.Input)
	})
}

func (h *handlers) handleMove(w http.ResponseWriter, r *http.Request) {
	var body canvas.Point
	h.editNode(w, r, &body, func(ws *workspace.Workspace, id string) (*session.SnapshotNode, error) {
		return ws.Move(r.Context(), id, body.X, body.Y)
	})
}

func (h *handlers) handleResize(w http.ResponseWriter, r *http.Request) {
	var body canvas.Size
	h.editNode(w, r, &body, func(ws *workspace.Workspace, id string) (*session.SnapshotNode, error) {
		return ws.Resize(r.Context(), id, body.Width, body.Height)
	})
}

func (h *handlers) editNode(w http.ResponseWriter, r *http.Request, body any,
	edit func(ws *workspace.Workspace, id string) (*session.SnapshotNode, error)) {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	n, err := edit(ws, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *handlers) handleContext(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	msgs, err := ws.Context(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if msgs == nil {
		msgs = []canvas.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// renderedMessage is a chat message with its display HTML.
type renderedMessage struct {
	Role    canvas.Role   `json:"role"`
	Content string        `json:"content"`
	HTML    template.HTML `json:"html"`
}

func (h *handlers) handleMessages(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	n, err := ws.Node(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	out := make([]renderedMessage, 0, len(n.Messages))
	for _, m := range n.Messages {
		html, err := h.renderer.Message(m)
		if err != nil {
			WriteError(w, err)
			return
		}
		out = append(out, renderedMessage{Role: m.Role, Content: m.Content, HTML: html})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) handleSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := ws.Send(r.Context(), id, body.Message); err != nil {
		WriteError(w, err)
		return
	}
	n, err := ws.Node(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, n)
}

// preferencesView hides API keys, reporting only whether they are set.
type preferencesView struct {
	Provider         llm.Kind `json:"provider"`
	GeminiAPIVersion string   `json:"geminiApiVersion"`
	GeminiModel      string   `json:"geminiModel"`
	HasOpenAIKey     bool     `json:"hasOpenaiApiKey"`
	HasGeminiKey     bool     `json:"hasGeminiApiKey"`
}

func viewPreferences(p session.Preferences) preferencesView {
	return preferencesView{
		Provider:         p.Provider,
		GeminiAPIVersion: p.GeminiVersion,
		GeminiModel:      p.GeminiModel,
		HasOpenAIKey:     p.OpenAIKey != "",
		HasGeminiKey:     p.GeminiKey != "",
	}
}

func (h *handlers) handlePreferences(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewPreferences(ws.Preferences()))
}

func (h *handlers) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	// Omitted fields keep their current value; an empty key clears it.
	var body struct {
		Provider         *string `json:"provider"`
		OpenAIKey        *string `json:"openaiApiKey"`
		GeminiKey        *string `json:"geminiApiKey"`
		GeminiAPIVersion *string `json:"geminiApiVersion"`
		GeminiModel      *string `json:"geminiModel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	p := ws.Preferences()
	if body.Provider != nil {
		kind, err := llm.ParseKind(*body.Provider)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		p.Provider = kind
	}
	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&p.OpenAIKey, body.OpenAIKey)
	assign(&p.GeminiKey, body.GeminiKey)
	assign(&p.GeminiVersion, body.GeminiAPIVersion)
	assign(&p.GeminiModel, body.GeminiModel)

	saved, err := ws.SetPreferences(r.Context(), p)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPreferences(saved))
}

func (h *handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	data, err := ws.Export()
	if err != nil {
		WriteError(w, err)
		return
	}
	name := session.ExportFileName(r.URL.Query().Get("filename"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading upload: " + err.Error()})
		return
	}
	if _, err := session.Import(data); err != nil {
		WriteError(w, err)
		return
	}
	ws, ok := h.recoverWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.Import(r.Context(), data); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (h *handlers) handleStyles(w http.ResponseWriter, r *http.Request) {
	css, err := h.renderer.Stylesheet()
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write([]byte(css))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps domain errors onto HTTP statuses and writes them as JSON.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var loadErr *session.LoadError
	switch {
	case errors.Is(err, canvas.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, canvas.ErrNodeInactive), errors.Is(err, canvas.ErrNodeLoading):
		status = http.StatusConflict
	case errors.Is(err, canvas.ErrEmptyMessage), errors.As(err, &loadErr):
		status = http.StatusBadRequest
	default:
		log.Error().Err(err).Msg("api request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
