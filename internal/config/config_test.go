package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 1200, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 8, cfg.Retrieval.K)
	assert.Equal(t, 20, cfg.Retrieval.SummaryK)
	assert.Equal(t, int64(16<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 100, cfg.Upload.MinTextChars)
	require.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pdfchat.yml")

	original := DefaultConfig()
	original.LLM.Provider = ProviderOpenAI
	original.LLM.Model = "gpt-4o"
	original.LLM.Timeout = 90 * time.Second
	original.Server.AllowedOrigins = []string{"https://a.example", "https://b.example"}
	original.Retrieval.K = 5
	original.EncryptionKey = "k"

	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, original.LLM.Provider, loaded.LLM.Provider)
	assert.Equal(t, original.LLM.Model, loaded.LLM.Model)
	assert.Equal(t, original.LLM.Timeout, loaded.LLM.Timeout)
	assert.Equal(t, original.Server.AllowedOrigins, loaded.Server.AllowedOrigins)
	assert.Equal(t, 5, loaded.Retrieval.K)
	assert.Equal(t, "k", loaded.EncryptionKey)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	require.NoError(t, err, "loading a missing file should return defaults")
	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("PDFCHAT_LLM__MODEL", "llama-3.1-8b-instant")
	t.Setenv("PDFCHAT_SERVER__PORT", "9090")
	t.Setenv("PDFCHAT_ENCRYPTION_KEY", "from-env")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", loaded.LLM.Model)
	assert.Equal(t, 9090, loaded.Server.Port)
	assert.Equal(t, "from-env", loaded.EncryptionKey)
}

func TestLoadLegacyEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "legacy")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.EncryptionKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.LLM.Provider = "invalid" }},
		{"empty model", func(c *Config) { c.LLM.Model = "" }},
		{"bad embedding", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"overlap >= size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"zero size", func(c *Config) { c.Chunking.Size = 0 }},
		{"zero k", func(c *Config) { c.Retrieval.K = 0 }},
		{"zero turns", func(c *Config) { c.Conversation.MaxTurns = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no db path", func(c *Config) { c.Database.Path = "" }},
		{"no timeout", func(c *Config) { c.LLM.Timeout = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero max bytes", func(c *Config) { c.Upload.MaxBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "llama-3.3-70b-versatile", DefaultModel(ProviderGroq))
	assert.Equal(t, "gpt-4o-mini", DefaultModel(ProviderOpenAI))
	assert.Equal(t, "llama-3.3-70b-versatile", DefaultModel("unknown"))
}

func TestAPIKeyEnvVar(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnvVar(EmbeddingOpenAI))
	assert.Equal(t, "GOOGLE_API_KEY", APIKeyEnvVar(EmbeddingGoogle))
	assert.Empty(t, APIKeyEnvVar(EmbeddingFastEmbed))
	assert.Empty(t, APIKeyEnvVar(EmbeddingHashing))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitAndTrim(" a , b ,c "))
	assert.Nil(t, splitAndTrim("  ,  , "))
	assert.Nil(t, splitAndTrim(""))
}
