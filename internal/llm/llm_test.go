package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{Content: "mock response", Model: "mock-model"},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func TestFactoryReturnsMissingKeyError(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindOpenAI, "Please enter your OpenAI API key."},
		{"", "Please enter your OpenAI API key."},
		{KindGemini, "Please enter your Gemini API key."},
	}
	for _, tt := range tests {
		_, err := NewProvider(Settings{Kind: tt.kind})
		var missing *MissingKeyError
		if !errors.As(err, &missing) {
			t.Fatalf("kind %q: expected MissingKeyError, got %v", tt.kind, err)
		}
		if err.Error() != tt.want {
			t.Errorf("kind %q: message = %q, want %q", tt.kind, err.Error(), tt.want)
		}
	}
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	if _, err := NewProvider(Settings{Kind: "unknown", APIKey: "k"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := ParseKind("claude"); err == nil {
		t.Error("expected ParseKind error")
	}
}

func TestFactoryCreatesBackendWithoutAPIKey(t *testing.T) {
	provider, err := NewProvider(Settings{Kind: KindBackend})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := provider.(*BackendProvider)
	if !ok {
		t.Fatalf("expected *BackendProvider, got %T", provider)
	}
	if b.baseURL != DefaultBackendURL {
		t.Errorf("baseURL = %q, want %q", b.baseURL, DefaultBackendURL)
	}
}

func TestFactoryWrapsRateLimiter(t *testing.T) {
	provider, err := NewProvider(Settings{Kind: KindOpenAI, APIKey: "k", RequestsPerMinute: 30, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := provider.(*RateLimitedProvider); !ok {
		t.Errorf("expected *RateLimitedProvider, got %T", provider)
	}
	if provider.Name() != "openai" {
		t.Errorf("Name() = %q", provider.Name())
	}
}

func TestRateLimitedProviderDelegates(t *testing.T) {
	mock := NewMockProvider("test")
	limited := NewRateLimitedProvider(mock, 600)

	for i := 0; i < 3; i++ {
		if _, err := limited.Complete(context.Background(), CompletionRequest{}); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRateLimitedProviderHonoursContext(t *testing.T) {
	mock := NewMockProvider("test")
	limited := NewRateLimitedProvider(mock, 1)
	if _, err := limited.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("first Complete: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := limited.Complete(ctx, CompletionRequest{}); err == nil {
		t.Error("expected the second call to be limited")
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestGeminiProviderRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi "},{"text":"there"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":2}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("secret", "gemini-test", "v1", srv.URL)
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "Branch name: Root"},
			{Role: RoleUser, Content: "q1"},
			{Role: RoleAssistant, Content: "a1"},
			{Role: RoleUser, Content: "q2"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotPath != "/v1/models/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("key = %q", gotKey)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "Branch name: Root" {
		t.Errorf("system instruction = %+v", got.SystemInstruction)
	}
	wantRoles := []string{"user", "model", "user"}
	if len(got.Contents) != len(wantRoles) {
		t.Fatalf("contents = %+v", got.Contents)
	}
	for i, role := range wantRoles {
		if got.Contents[i].Role != role {
			t.Errorf("contents[%d].role = %q, want %q", i, got.Contents[i].Role, role)
		}
	}
	if resp.Content != "Hi there" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 5 || resp.OutputTokens != 2 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGeminiProviderPlaceholderAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	resp, err := NewGeminiProvider("k", "", "", srv.URL).Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != NoReply {
		t.Errorf("content = %q, want placeholder", resp.Content)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer failing.Close()

	_, err = NewGeminiProvider("bad", "", "", failing.URL).Complete(context.Background(), CompletionRequest{})
	if err == nil || err.Error() != "gemini API error (INVALID_ARGUMENT): API key not valid" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBackendProvider(t *testing.T) {
	var gotPath string
	var got BackendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(BackendResponse{Response: "pong"})
	}))
	defer srv.Close()

	resp, err := NewBackendProvider(srv.URL).Complete(context.Background(), CompletionRequest{
		NodeID: "n1",
		Messages: []Message{
			{Role: RoleUser, Content: "earlier"},
			{Role: RoleAssistant, Content: "reply"},
			{Role: RoleUser, Content: "ping"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotPath != "/chat/n1" {
		t.Errorf("path = %q", gotPath)
	}
	if got.Message != "ping" || len(got.Context) != 2 {
		t.Errorf("request = %+v", got)
	}
	if resp.Content != "pong" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestBackendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(BackendResponse{Error: "model overloaded"})
	}))
	defer srv.Close()

	_, err := NewBackendProvider(srv.URL).Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil || err.Error() != "model overloaded" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpenAIProvider(t *testing.T) {
	var gotModel string
	var gotMessages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Model    string            `json:"model"`
			Messages []json.RawMessage `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		gotMessages = len(body.Messages)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","model":"gpt-3.5-turbo",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hello back"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("key", "", srv.URL)
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleSystem, Content: "s"}, {Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotModel != DefaultOpenAIModel {
		t.Errorf("model = %q", gotModel)
	}
	if gotMessages != 2 {
		t.Errorf("messages = %d", gotMessages)
	}
	if resp.Content != "hello back" || resp.FinishReason != "stop" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSplitLast(t *testing.T) {
	history, last := splitLast([]Message{{Role: RoleAssistant, Content: "a"}})
	if last != "" || len(history) != 1 {
		t.Errorf("got %v %q", history, last)
	}
	history, last = splitLast(nil)
	if last != "" || history != nil {
		t.Errorf("got %v %q", history, last)
	}
}
