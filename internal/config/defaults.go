package config

import (
	"github.com/ziadkadry99/branch-canvas/internal/llm"
	"github.com/ziadkadry99/branch-canvas/internal/workspace"
)

// FileName is the configuration file written by the init wizard.
const FileName = ".branchcanvas.yml"

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		DataDir:  ".branchcanvas",
		Provider: llm.KindOpenAI,
		OpenAI: OpenAIConfig{
			Model: llm.DefaultOpenAIModel,
		},
		Gemini: GeminiConfig{
			Model:      llm.DefaultGeminiModel,
			APIVersion: llm.DefaultGeminiVersion,
		},
		Backend: BackendConfig{
			URL: llm.DefaultBackendURL,
		},
		TimeoutSeconds: 120,
		Viewport: ViewportConfig{
			Width:  workspace.DefaultViewportWidth,
			Height: workspace.DefaultViewportHeight,
		},
	}
}
