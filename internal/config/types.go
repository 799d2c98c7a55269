package config

import "time"

// ProviderType identifies a hosted LLM backend a credential can target.
type ProviderType string

const (
	ProviderGroq       ProviderType = "groq"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderGoogle     ProviderType = "google"
)

// EmbeddingProviderType identifies the process-wide embedding backend.
type EmbeddingProviderType string

const (
	EmbeddingFastEmbed EmbeddingProviderType = "fastembed"
	EmbeddingOpenAI    EmbeddingProviderType = "openai"
	EmbeddingOllama    EmbeddingProviderType = "ollama"
	EmbeddingGoogle    EmbeddingProviderType = "google"
	EmbeddingHashing   EmbeddingProviderType = "hashing"
)

// Config is the top-level pdfchat configuration, corresponding to .pdfchat.yml.
type Config struct {
	Server        ServerConfig       `yaml:"server" koanf:"server"`
	Database      DatabaseConfig     `yaml:"database" koanf:"database"`
	EncryptionKey string             `yaml:"encryption_key,omitempty" koanf:"encryption_key"`
	LLM           LLMConfig          `yaml:"llm" koanf:"llm"`
	Embedding     EmbeddingConfig    `yaml:"embedding" koanf:"embedding"`
	Chunking      ChunkingConfig     `yaml:"chunking" koanf:"chunking"`
	Retrieval     RetrievalConfig    `yaml:"retrieval" koanf:"retrieval"`
	Conversation  ConversationConfig `yaml:"conversation" koanf:"conversation"`
	Session       SessionConfig      `yaml:"session" koanf:"session"`
	Upload        UploadConfig       `yaml:"upload" koanf:"upload"`
	Log           LogConfig          `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int           `yaml:"port" koanf:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	UserHeader     string        `yaml:"user_header" koanf:"user_header"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// LLMConfig controls chat completions. The provider named here is only the
// default for credentials added without one.
type LLMConfig struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Model             string        `yaml:"model" koanf:"model"`
	Temperature       float32       `yaml:"temperature" koanf:"temperature"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout" koanf:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// EmbeddingConfig selects the shared embedding backend.
type EmbeddingConfig struct {
	Provider EmbeddingProviderType `yaml:"provider" koanf:"provider"`
	Model    string                `yaml:"model" koanf:"model"`
	BaseURL  string                `yaml:"base_url,omitempty" koanf:"base_url"`
	CacheDir string                `yaml:"cache_dir,omitempty" koanf:"cache_dir"`
}

// ChunkingConfig holds chunk size and overlap in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// RetrievalConfig holds the number of passages retrieved per question.
type RetrievalConfig struct {
	K        int `yaml:"k" koanf:"k"`
	SummaryK int `yaml:"summary_k" koanf:"summary_k"`
}

// ConversationConfig bounds the rolling history kept per user.
type ConversationConfig struct {
	MaxTurns         int `yaml:"max_turns" koanf:"max_turns"`
	MaxHistoryTokens int `yaml:"max_history_tokens" koanf:"max_history_tokens"`
}

// SessionConfig controls idle eviction of per-user registry entries.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" koanf:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" koanf:"sweep_interval"`
}

// UploadConfig limits accepted documents.
type UploadConfig struct {
	MaxBytes     int64 `yaml:"max_bytes" koanf:"max_bytes"`
	MinTextChars int   `yaml:"min_text_chars" koanf:"min_text_chars"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
