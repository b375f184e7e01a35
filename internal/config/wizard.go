package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/branch-canvas/internal/llm"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to branchcanvas! Let's configure the server.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider for the /chat endpoint.
	kinds := []llm.Kind{llm.KindOpenAI, llm.KindGemini}
	items := make([]string, len(kinds))
	for i, k := range kinds {
		items[i] = k.DisplayName()
	}
	providerPrompt := promptui.Select{
		Label: "Select the provider that answers /chat",
		Items: items,
	}
	idx, _, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = kinds[idx]

	// 2. Model.
	if cfg.Provider == llm.KindGemini {
		versionPrompt := promptui.Select{
			Label: "Gemini API version",
			Items: []string{"v1beta", "v1"},
		}
		_, cfg.Gemini.APIVersion, err = versionPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("api version: %w", err)
		}
		cfg.Gemini.Model, err = prompt("Gemini model", cfg.Gemini.Model, nonEmpty)
	} else {
		cfg.OpenAI.Model, err = prompt("OpenAI model", cfg.OpenAI.Model, nonEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Listener.
	if cfg.Server.Host, err = prompt("Listen host", cfg.Server.Host, nil); err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	portStr, err := prompt("Listen port", strconv.Itoa(cfg.Server.Port), validPort)
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 4. Storage.
	if cfg.DataDir, err = prompt("Data directory", cfg.DataDir, nonEmpty); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 5. Self-hosted backend, offered to sessions as a third provider.
	if cfg.Backend.URL, err = prompt("Chat backend URL", cfg.Backend.URL, nil); err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: set %s before running branchcanvas server, or enter a key in the browser.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func prompt(label, def string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
	}
	return p.Run()
}

func nonEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func validPort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("port must be a number between 0 and 65535")
	}
	return nil
}
