package llm

import (
	"fmt"
	"time"
)

// Kind identifies a provider variant.
type Kind string

const (
	KindOpenAI  Kind = "openai"
	KindGemini  Kind = "gemini"
	KindBackend Kind = "backend"
)

// DisplayName is the user-facing name of the provider.
func (k Kind) DisplayName() string {
	switch k {
	case KindOpenAI:
		return "OpenAI"
	case KindGemini:
		return "Gemini"
	case KindBackend:
		return "chat backend"
	default:
		return string(k)
	}
}

// ParseKind validates a provider name. Empty selects OpenAI.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return KindOpenAI, nil
	case KindOpenAI, KindGemini, KindBackend:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unsupported provider type: %s", s)
	}
}

// MissingKeyError is returned when a provider needs an API key that has not
// been supplied. Its message is shown to the user as-is.
type MissingKeyError struct {
	Kind Kind
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("Please enter your %s API key.", e.Kind.DisplayName())
}

// Settings selects and configures a provider.
type Settings struct {
	Kind       Kind
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
	// RequestsPerMinute wraps the provider in a rate limiter when positive.
	RequestsPerMinute int
	// Timeout bounds each request when positive.
	Timeout time.Duration
}

// NewProvider creates a provider for the given settings. Providers that call
// a public API return a *MissingKeyError when no key is set, before any
// network I/O.
func NewProvider(s Settings) (Provider, error) {
	var p Provider
	switch s.Kind {
	case KindOpenAI, "":
		if s.APIKey == "" {
			return nil, &MissingKeyError{Kind: KindOpenAI}
		}
		p = NewOpenAIProvider(s.APIKey, s.Model, s.BaseURL)
	case KindGemini:
		if s.APIKey == "" {
			return nil, &MissingKeyError{Kind: KindGemini}
		}
		p = NewGeminiProvider(s.APIKey, s.Model, s.APIVersion, s.BaseURL)
	case KindBackend:
		p = NewBackendProvider(s.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", s.Kind)
	}

	if s.Timeout > 0 {
		p = WithTimeout(p, s.Timeout)
	}
	if s.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, s.RequestsPerMinute)
	}
	return p, nil
}
