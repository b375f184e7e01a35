package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/branch-canvas/internal/llm"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: BRANCHCANVAS_SERVER__PORT sets server.port.
const EnvPrefix = "BRANCHCANVAS_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BRANCHCANVAS_*). API keys that are still
// empty are taken from the provider's conventional variable.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv(APIKeyEnvVar(llm.KindOpenAI))
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv(APIKeyEnvVar(llm.KindGemini))
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path. API keys are
// never written.
func (c *Config) Save(path string) error {
	out := *c
	out.OpenAI.APIKey = ""
	out.Gemini.APIKey = ""
	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if _, err := llm.ParseKind(string(c.Provider)); err != nil {
		return fmt.Errorf("invalid provider: %w", err)
	}
	if c.Provider == llm.KindBackend {
		return fmt.Errorf("provider %q cannot answer /chat: it would call itself", c.Provider)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be non-negative")
	}
	if c.Viewport.Width < 0 || c.Viewport.Height < 0 {
		return fmt.Errorf("viewport size must be non-negative")
	}
	return nil
}

// DatabasePath returns the location of the session database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

// ProviderSettings returns the server-wide settings of the given provider.
func (c *Config) ProviderSettings(kind llm.Kind) llm.Settings {
	s := llm.Settings{
		Kind:              kind,
		RequestsPerMinute: c.RequestsPerMinute,
		Timeout:           c.Timeout(),
	}
	switch kind {
	case llm.KindGemini:
		s.APIKey = c.Gemini.APIKey
		s.Model = c.Gemini.Model
		s.APIVersion = c.Gemini.APIVersion
		s.BaseURL = c.Gemini.BaseURL
	case llm.KindBackend:
		s.BaseURL = c.Backend.URL
	default:
		s.APIKey = c.OpenAI.APIKey
		s.Model = c.OpenAI.Model
		s.BaseURL = c.OpenAI.BaseURL
	}
	return s
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(kind llm.Kind) string {
	switch kind {
	case llm.KindOpenAI:
		return "OPENAI_API_KEY"
	case llm.KindGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
