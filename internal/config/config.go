package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides. Nested keys use a
// double underscore: PDFCHAT_LLM__MODEL -> llm.model.
const EnvPrefix = "PDFCHAT_"

// legacyKeyEnv is honoured when neither the file nor PDFCHAT_ENCRYPTION_KEY
// sets a key, so existing deployments keep decrypting stored credentials.
const legacyKeyEnv = "ENCRYPTION_KEY"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PDFCHAT_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
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

	if cfg.EncryptionKey == "" {
		cfg.EncryptionKey = os.Getenv(legacyKeyEnv)
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultEmbeddingModel(cfg.Embedding.Provider)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderGroq:       true,
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderAnthropic:  true,
	ProviderGoogle:     true,
}

var validEmbeddingProviders = map[EmbeddingProviderType]bool{
	EmbeddingFastEmbed: true,
	EmbeddingOpenAI:    true,
	EmbeddingOllama:    true,
	EmbeddingGoogle:    true,
	EmbeddingHashing:   true,
}

// ValidProvider reports whether p names a supported LLM provider.
func ValidProvider(p ProviderType) bool {
	return validProviders[p]
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.UserHeader == "" {
		return fmt.Errorf("server.user_header is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of groq, openai, openrouter, anthropic, google", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must be non-negative")
	}

	if !validEmbeddingProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of fastembed, openai, ollama, google, hashing", c.Embedding.Provider)
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, size)")
	}

	if c.Retrieval.K <= 0 || c.Retrieval.SummaryK <= 0 {
		return fmt.Errorf("retrieval.k and retrieval.summary_k must be positive")
	}

	if c.Conversation.MaxTurns <= 0 {
		return fmt.Errorf("conversation.max_turns must be positive")
	}
	if c.Conversation.MaxHistoryTokens < 0 {
		return fmt.Errorf("conversation.max_history_tokens must be non-negative")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.Upload.MinTextChars < 0 {
		return fmt.Errorf("upload.min_text_chars must be non-negative")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format %q: must be json or console", c.Log.Format)
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given embedding backend, or "" when none is needed.
func APIKeyEnvVar(p EmbeddingProviderType) string {
	switch p {
	case EmbeddingOpenAI:
		return "OPENAI_API_KEY"
	case EmbeddingGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
