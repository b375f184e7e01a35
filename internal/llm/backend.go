package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBackendURL is the address of the locally-run chat backend.
const DefaultBackendURL = "http://localhost:5000"

// BackendProvider posts the assembled context to a chat backend exposing
// POST /chat/{nodeId} with a {message, context} body.
type BackendProvider struct {
	baseURL string
	client  *http.Client
}

// NewBackendProvider creates a provider for the chat backend at baseURL.
func NewBackendProvider(baseURL string) *BackendProvider {
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}
	return &BackendProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (p *BackendProvider) Name() string {
	return string(KindBackend)
}

// BackendRequest is the body accepted by the chat backend.
type BackendRequest struct {
	Message string    `json:"message"`
	Context []Message `json:"context"`
}

// BackendResponse is the body returned by the chat backend.
type BackendResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (p *BackendProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	history, message := splitLast(req.Messages)
	if history == nil {
		history = []Message{}
	}

	body, err := json.Marshal(BackendRequest{Message: message, Context: history})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backend request: %w", err)
	}

	endpoint := p.baseURL + "/chat"
	if req.NodeID != "" {
		endpoint += "/" + url.PathEscape(req.NodeID)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	var out BackendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("backend returned status %d: %s", httpResp.StatusCode, string(respBody))
		}
		return nil, fmt.Errorf("failed to unmarshal backend response: %w", err)
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d", httpResp.StatusCode)
	}

	return &CompletionResponse{Content: replyOrPlaceholder(out.Response)}, nil
}
