package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/branch-canvas/internal/llm"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != llm.KindOpenAI {
		t.Errorf("expected default provider %q, got %q", llm.KindOpenAI, cfg.Provider)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.DataDir != ".branchcanvas" {
		t.Errorf("expected default data_dir %q, got %q", ".branchcanvas", cfg.DataDir)
	}
	if cfg.Gemini.APIVersion != "v1beta" {
		t.Errorf("expected default gemini api version v1beta, got %q", cfg.Gemini.APIVersion)
	}
	if cfg.Timeout() != 2*time.Minute {
		t.Errorf("expected default timeout 2m, got %s", cfg.Timeout())
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "test.branchcanvas.yml")

	original := DefaultConfig()
	original.Provider = llm.KindGemini
	original.Gemini.Model = "gemini-1.5-pro"
	original.Gemini.APIVersion = "v1"
	original.Server.Port = 9090
	original.DataDir = "state"
	original.RequestsPerMinute = 20
	original.Viewport.Width = 1440

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Gemini.Model != original.Gemini.Model {
		t.Errorf("gemini model: got %q, want %q", loaded.Gemini.Model, original.Gemini.Model)
	}
	if loaded.Gemini.APIVersion != original.Gemini.APIVersion {
		t.Errorf("gemini api version: got %q, want %q", loaded.Gemini.APIVersion, original.Gemini.APIVersion)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("port: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.DataDir != "state" {
		t.Errorf("data_dir: got %q, want %q", loaded.DataDir, "state")
	}
	if loaded.RequestsPerMinute != 20 {
		t.Errorf("requests_per_minute: got %d, want 20", loaded.RequestsPerMinute)
	}
	if loaded.Viewport.Width != 1440 {
		t.Errorf("viewport width: got %v, want 1440", loaded.Viewport.Width)
	}
}

func TestSaveOmitsAPIKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yml")
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk-secret"
	cfg.Gemini.APIKey = "gm-secret"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Errorf("saved config contains an API key:\n%s", data)
	}
	if cfg.OpenAI.APIKey != "sk-secret" {
		t.Error("Save must not clear the in-memory key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != llm.KindOpenAI {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("BRANCHCANVAS_PROVIDER", "gemini")
	t.Setenv("BRANCHCANVAS_SERVER__PORT", "9191")
	t.Setenv("BRANCHCANVAS_GEMINI__MODEL", "gemini-2.0-flash")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != llm.KindGemini {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, llm.KindGemini)
	}
	if loaded.Server.Port != 9191 {
		t.Errorf("nested env override failed: got %d, want 9191", loaded.Server.Port)
	}
	if loaded.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("gemini model: got %q", loaded.Gemini.Model)
	}
}

func TestLoadConventionalKeyVars(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("BRANCHCANVAS_GEMINI__API_KEY", "gm-prefixed")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("openai key: got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Gemini.APIKey != "gm-prefixed" {
		t.Errorf("gemini key: got %q", cfg.Gemini.APIKey)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "invalid" }},
		{"backend provider", func(c *Config) { c.Provider = llm.KindBackend }},
		{"negative port", func(c *Config) { c.Server.Port = -1 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"negative rate", func(c *Config) { c.RequestsPerMinute = -1 }},
		{"negative timeout", func(c *Config) { c.TimeoutSeconds = -1 }},
		{"negative viewport", func(c *Config) { c.Viewport.Height = -10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestProviderSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk"
	cfg.Gemini.APIKey = "gm"
	cfg.Backend.URL = "http://backend:5000"
	cfg.RequestsPerMinute = 10

	s := cfg.ProviderSettings(llm.KindOpenAI)
	if s.APIKey != "sk" || s.Model != llm.DefaultOpenAIModel || s.RequestsPerMinute != 10 {
		t.Errorf("openai settings: %+v", s)
	}
	s = cfg.ProviderSettings(llm.KindGemini)
	if s.APIKey != "gm" || s.APIVersion != "v1beta" || s.Model != llm.DefaultGeminiModel {
		t.Errorf("gemini settings: %+v", s)
	}
	s = cfg.ProviderSettings(llm.KindBackend)
	if s.APIKey != "" || s.BaseURL != "http://backend:5000" {
		t.Errorf("backend settings: %+v", s)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "data"
	if got := cfg.DatabasePath(); got != filepath.Join("data", "sessions.db") {
		t.Errorf("DatabasePath() = %q", got)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		kind llm.Kind
		want string
	}{
		{llm.KindOpenAI, "OPENAI_API_KEY"},
		{llm.KindGemini, "GEMINI_API_KEY"},
		{llm.KindBackend, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.kind)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"BRANCHCANVAS_PROVIDER":            "provider",
		"BRANCHCANVAS_SERVER__PORT":        "server.port",
		"BRANCHCANVAS_REQUESTS_PER_MINUTE": "requests_per_minute",
		"BRANCHCANVAS_OPENAI__API_KEY":     "openai.api_key",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
