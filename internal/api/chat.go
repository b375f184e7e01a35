package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/branch-canvas/internal/llm"
)

// ProviderSource returns the provider used by the chat endpoints.
type ProviderSource func() (llm.Provider, error)

// RegisterChatRoutes mounts the stateless chat endpoints used by clients
// configured with the "backend" provider: POST /chat and /chat/{nodeId}
// take {message, context} and answer {response} or {error}.
func RegisterChatRoutes(r chi.Router, providers ProviderSource) {
	h := handleChat(providers)
	r.Post("/chat", h)
	r.Post("/chat/{nodeId}", h)
}

func handleChat(providers ProviderSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req llm.BackendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, llm.BackendResponse{Error: "invalid request body"})
			return
		}
		if req.Message == "" {
			writeJSON(w, http.StatusBadRequest, llm.BackendResponse{Error: "No message provided"})
			return
		}

		provider, err := providers()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, llm.BackendResponse{Error: err.Error()})
			return
		}

		msgs := append(req.Context, llm.Message{Role: llm.RoleUser, Content: req.Message})
		resp, err := provider.Complete(r.Context(), llm.CompletionRequest{
			Messages: msgs,
			NodeID:   chi.URLParam(r, "nodeId"),
		})
		if err != nil {
			log.Error().Err(err).Str("provider", provider.Name()).Msg("chat completion failed")
			writeJSON(w, http.StatusInternalServerError, llm.BackendResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, llm.BackendResponse{Response: resp.Content})
	}
}
