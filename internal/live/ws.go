// Package live streams canvas changes to browsers over a WebSocket and
// accepts their pointer, wheel and zoom input.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/branch-canvas/internal/api"
	"github.com/ziadkadry99/branch-canvas/internal/canvas"
	"github.com/ziadkadry99/branch-canvas/internal/events"
	"github.com/ziadkadry99/branch-canvas/internal/session"
	"github.com/ziadkadry99/branch-canvas/internal/viewport"
	"github.com/ziadkadry99/branch-canvas/internal/workspace"
)

// writeWait bounds each write to the peer.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is an input event sent by the browser.
type clientMessage struct {
	Type string `json:"type"` // pointerdown, pointermove, pointerup, wheel, zoomin, zoomout, resize, fit
	viewport.PointerEvent
	DeltaY float64 `json:"deltaY,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// serverMessage is sent to the browser.
type serverMessage struct {
	Type      string            `json:"type"` // state, event, pointer or error
	State     *session.Snapshot `json:"state,omitempty"`
	Event     *events.Event     `json:"event,omitempty"`
	Mode      string            `json:"mode,omitempty"`
	Capturing bool              `json:"capturing,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Handler serves the live canvas socket.
type Handler struct {
	mgr    *workspace.Manager
	logger zerolog.Logger
}

// RegisterRoutes mounts /ws/canvas.
func RegisterRoutes(r chi.Router, mgr *workspace.Manager, logger zerolog.Logger) {
	h := &Handler{mgr: mgr, logger: logger}
	r.With(api.Sessions).Get("/ws/canvas", h.ServeHTTP)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := api.SessionID(r.Context())
	ws, err := h.mgr.Open(r.Context(), sessionID)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, err := h.mgr.Bus().Subscribe(ctx, sessionID)
	if err != nil {
		h.logger.Error().Err(err).Msg("subscribing to canvas events")
		return
	}

	out := make(chan serverMessage, 32)
	go h.writeLoop(ctx, cancel, conn, out)
	go func() {
		// The bus ends the stream when this client falls behind; closing
		// the socket makes the browser reconnect and reload the state.
		defer conn.Close()
		defer cancel()
		for e := range changes {
			select {
			case out <- serverMessage{Type: "event", Event: &e}:
			case <-ctx.Done():
				return
			}
		}
	}()

	send := func(m serverMessage) {
		select {
		case out <- m:
		case <-ctx.Done():
		}
	}
	send(serverMessage{Type: "state", State: ws.Snapshot()})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("session", sessionID).Msg("websocket read")
			}
			return
		}

		var req clientMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			send(serverMessage{Type: "error", Error: "invalid message format"})
			continue
		}
		if reply, ok := h.apply(ctx, ws, req); ok {
			send(reply)
		}
	}
}

// apply runs one client input against the workspace. It returns a message
// for the client when the input needs a direct answer.
func (h *Handler) apply(ctx context.Context, ws *workspace.Workspace, req clientMessage) (serverMessage, bool) {
	var err error
	switch req.Type {
	case "pointerdown":
		started := ws.PointerDown(req.PointerEvent)
		return serverMessage{Type: "pointer", Mode: ws.Mode().String(), Capturing: started}, true
	case "pointermove":
		_, err = ws.PointerMove(req.PointerEvent)
	case "pointerup":
		var ended viewport.Mode
		ended, err = ws.PointerUp(ctx, req.PointerEvent)
		if err == nil {
			return serverMessage{Type: "pointer", Mode: ended.String()}, true
		}
	case "wheel":
		_, err = ws.Scroll(ctx, canvas.Point{X: req.X, Y: req.Y}, req.DeltaY)
	case "zoomin":
		_, err = ws.ZoomIn(ctx)
	case "zoomout":
		_, err = ws.ZoomOut(ctx)
	case "resize":
		_, err = ws.ResizeViewport(ctx, req.Width, req.Height)
	case "fit":
		_, err = ws.Fit(ctx)
	default:
		return serverMessage{Type: "error", Error: "unknown message type: " + req.Type}, true
	}
	if err != nil {
		return serverMessage{Type: "error", Error: err.Error()}, true
	}
	return serverMessage{}, false
}

func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan serverMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				h.logger.Debug().Err(err).Msg("websocket write")
				cancel()
				return
			}
		}
	}
}
