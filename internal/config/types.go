package config

import (
	"time"

	"github.com/ziadkadry99/branch-canvas/internal/llm"
)

// Config is the top-level configuration stored in .branchcanvas.yml.
type Config struct {
	Server ServerConfig `yaml:"server" koanf:"server"`
	// DataDir holds the session database.
	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	// Provider answers the backend-compatible /chat endpoint. Sessions
	// choose their own provider.
	Provider llm.Kind `yaml:"provider" koanf:"provider"`

	OpenAI  OpenAIConfig  `yaml:"openai" koanf:"openai"`
	Gemini  GeminiConfig  `yaml:"gemini" koanf:"gemini"`
	Backend BackendConfig `yaml:"backend" koanf:"backend"`

	// RequestsPerMinute limits calls per provider. Zero means unlimited.
	RequestsPerMinute int `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	// TimeoutSeconds bounds each completion. Zero means no timeout.
	TimeoutSeconds int `yaml:"timeout_seconds" koanf:"timeout_seconds"`

	Viewport ViewportConfig `yaml:"viewport" koanf:"viewport"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string `yaml:"host" koanf:"host"`
	Port            int    `yaml:"port" koanf:"port"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// OpenAIConfig holds OpenAI settings. APIKey is a server-wide fallback for
// sessions that have not stored their own key.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty" koanf:"api_key"`
	Model   string `yaml:"model" koanf:"model"`
	BaseURL string `yaml:"base_url,omitempty" koanf:"base_url"`
}

// GeminiConfig holds Gemini settings.
type GeminiConfig struct {
	APIKey     string `yaml:"api_key,omitempty" koanf:"api_key"`
	Model      string `yaml:"model" koanf:"model"`
	APIVersion string `yaml:"api_version" koanf:"api_version"`
	BaseURL    string `yaml:"base_url,omitempty" koanf:"base_url"`
}

// BackendConfig points at the self-hosted chat backend.
type BackendConfig struct {
	URL string `yaml:"url" koanf:"url"`
}

// ViewportConfig is the view size assumed until a client reports its own.
type ViewportConfig struct {
	Width  float64 `yaml:"width" koanf:"width"`
	Height float64 `yaml:"height" koanf:"height"`
}

// Timeout returns TimeoutSeconds as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
