package config

import "time"

// defaultModels maps each provider to the model used when a credential does
// not override it.
var defaultModels = map[ProviderType]string{
	ProviderGroq:       "llama-3.3-70b-versatile",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOpenRouter: "meta-llama/llama-3.3-70b-instruct",
	ProviderAnthropic:  "claude-haiku-4-5-20251001",
	ProviderGoogle:     "gemini-2.0-flash",
}

// defaultEmbeddingModels maps each embedding backend to its default model.
var defaultEmbeddingModels = map[EmbeddingProviderType]string{
	EmbeddingFastEmbed: "sentence-transformers/all-MiniLM-L6-v2",
	EmbeddingOpenAI:    "text-embedding-3-small",
	EmbeddingOllama:    "nomic-embed-text",
	EmbeddingGoogle:    "text-embedding-004",
	EmbeddingHashing:   "hashing-384",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           5000,
			RequestTimeout: 120 * time.Second,
			AllowedOrigins: []string{"*"},
			UserHeader:     "X-User-ID",
		},
		Database: DatabaseConfig{
			Path: "data/pdfchat.db",
		},
		LLM: LLMConfig{
			Provider:          ProviderGroq,
			Model:             defaultModels[ProviderGroq],
			Temperature:       0.7,
			MaxTokens:         2048,
			Timeout:           60 * time.Second,
			RequestsPerMinute: 30,
		},
		Embedding: EmbeddingConfig{
			Provider: EmbeddingFastEmbed,
			Model:    defaultEmbeddingModels[EmbeddingFastEmbed],
		},
		Chunking: ChunkingConfig{
			Size:    1200,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			K:        8,
			SummaryK: 20,
		},
		Conversation: ConversationConfig{
			MaxTurns:         20,
			MaxHistoryTokens: 6000,
		},
		Session: SessionConfig{
			IdleTTL:       2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Upload: UploadConfig{
			MaxBytes:     16 << 20,
			MinTextChars: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultModel returns the default chat model for a provider, falling back
// to the Groq default for unknown providers.
func DefaultModel(p ProviderType) string {
	if m, ok := defaultModels[p]; ok {
		return m
	}
	return defaultModels[ProviderGroq]
}

// DefaultEmbeddingModel returns the default model for an embedding backend.
func DefaultEmbeddingModel(p EmbeddingProviderType) string {
	return defaultEmbeddingModels[p]
}
