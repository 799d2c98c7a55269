package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it. newKey generates a fresh encryption key when the user
// asks for one.
func RunWizard(path string, newKey func() (string, error)) (*Config, error) {
	fmt.Println("Welcome to pdfchat! Let's configure your server.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Default LLM provider for new credentials.
	providerPrompt := promptui.Select{
		Label: "Default LLM provider for new API keys",
		Items: []string{"groq", "openai", "openrouter", "anthropic", "google"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(providerStr)
	cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)

	// 2. Embedding backend.
	embeddingPrompt := promptui.Select{
		Label: "Embedding backend",
		Items: []string{
			"fastembed - local all-MiniLM-L6-v2 (needs cgo + onnxruntime)",
			"openai    - text-embedding-3-small (needs OPENAI_API_KEY)",
			"ollama    - local Ollama server",
			"google    - text-embedding-004 (needs GOOGLE_API_KEY)",
			"hashing   - offline feature hashing, for development",
		},
	}
	embIdx, _, err := embeddingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding selection: %w", err)
	}
	backends := []EmbeddingProviderType{EmbeddingFastEmbed, EmbeddingOpenAI, EmbeddingOllama, EmbeddingGoogle, EmbeddingHashing}
	cfg.Embedding.Provider = backends[embIdx]
	cfg.Embedding.Model = DefaultEmbeddingModel(cfg.Embedding.Provider)

	// 3. Listener port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("invalid port")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 4. Database location.
	dbPrompt := promptui.Prompt{
		Label:   "SQLite database path",
		Default: cfg.Database.Path,
	}
	if cfg.Database.Path, err = dbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}

	// 5. Allowed CORS origins.
	originsPrompt := promptui.Prompt{
		Label:   "Allowed CORS origins (comma-separated)",
		Default: strings.Join(cfg.Server.AllowedOrigins, ","),
	}
	originsStr, err := originsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("allowed origins: %w", err)
	}
	cfg.Server.AllowedOrigins = splitAndTrim(originsStr)

	// 6. Encryption key for stored API keys.
	keyPrompt := promptui.Select{
		Label: "Encryption key for stored API keys",
		Items: []string{"generate and store in config", "read from PDFCHAT_ENCRYPTION_KEY at runtime"},
	}
	keyIdx, _, err := keyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if keyIdx == 0 {
		if cfg.EncryptionKey, err = newKey(); err != nil {
			return nil, fmt.Errorf("generating encryption key: %w", err)
		}
	}

	if envVar := APIKeyEnvVar(cfg.Embedding.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running pdfchat server.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace,
// dropping empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
