package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ziadkadry99/pdfchat/internal/chatlog"
	"github.com/ziadkadry99/pdfchat/internal/chunker"
	"github.com/ziadkadry99/pdfchat/internal/config"
	"github.com/ziadkadry99/pdfchat/internal/conversation"
	"github.com/ziadkadry99/pdfchat/internal/credentials"
	"github.com/ziadkadry99/pdfchat/internal/db"
	"github.com/ziadkadry99/pdfchat/internal/documents"
	"github.com/ziadkadry99/pdfchat/internal/embeddings"
	"github.com/ziadkadry99/pdfchat/internal/extract"
	"github.com/ziadkadry99/pdfchat/internal/index"
	"github.com/ziadkadry99/pdfchat/internal/library"
	"github.com/ziadkadry99/pdfchat/internal/llm"
	"github.com/ziadkadry99/pdfchat/internal/logging"
	"github.com/ziadkadry99/pdfchat/internal/session"
)

// app holds every service built from one config. The HTTP server, the MCP
// server and the import command share it.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	db          *db.DB
	embedder    *embeddings.Shared
	documents   *documents.Store
	chatLog     *chatlog.Store
	credentials *credentials.Manager
	registry    *session.Registry
	engine      *conversation.Engine
	library     *library.Service
}

// newApp opens the database and wires the services. Call close when done.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	cipher, err := newCipher(cfg, logger)
	if err != nil {
		return nil, err
	}

	chunks, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		db:        database,
		embedder:  createEmbedder(cfg.Embedding),
		documents: documents.NewStore(database),
		chatLog:   chatlog.NewStore(database),
	}

	builder := index.NewBuilder(chunks, a.embedder, logger.Named("index"))
	a.registry = session.NewRegistry(builder, cfg.Session.IdleTTL, logger.Named("session"))
	a.credentials = credentials.NewManager(
		credentials.NewStore(database, cipher, cfg.LLM.Provider),
		a.registry.DropConversation,
		logger.Named("credentials"),
	)
	a.engine = conversation.NewEngine(a.registry, a.credentials, a.documents, a.chatLog, providerFactory(cfg.LLM), conversation.Options{
		K:                 cfg.Retrieval.K,
		SummaryK:          cfg.Retrieval.SummaryK,
		MaxTurns:          cfg.Conversation.MaxTurns,
		MaxHistoryTokens:  cfg.Conversation.MaxHistoryTokens,
		Temperature:       float64(cfg.LLM.Temperature),
		MaxTokens:         cfg.LLM.MaxTokens,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, logger.Named("engine"))
	a.library = library.NewService(a.documents, a.registry, extract.NewPDF(), library.Limits{
		MaxBytes:     cfg.Upload.MaxBytes,
		MinTextChars: cfg.Upload.MinTextChars,
	}, logger.Named("library"))

	return a, nil
}

func (a *app) close() {
	if err := a.embedder.Close(); err != nil {
		a.logger.Warn("closing embedder", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
}

// newCipher uses the configured key. Without one it generates a key for this
// process only, so stored credentials will not survive a restart.
func newCipher(cfg *config.Config, logger *zap.Logger) (*credentials.Cipher, error) {
	key := cfg.EncryptionKey
	if key == "" {
		generated, err := credentials.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generating encryption key: %w", err)
		}
		logger.Warn("no encryption_key configured; using an ephemeral key, stored API keys will be unreadable after restart",
			zap.String("hint", "run `pdfchat keygen` and set PDFCHAT_ENCRYPTION_KEY"))
		key = generated
	}
	cipher, err := credentials.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption_key: %w", err)
	}
	return cipher, nil
}

// providerFactory builds the LLM client for a credential. The configured
// model only applies to credentials for the configured provider; others get
// their provider's default.
func providerFactory(cfg config.LLMConfig) conversation.ProviderFactory {
	return func(c *credentials.Credential) (llm.Provider, error) {
		model := ""
		if c.Provider == cfg.Provider {
			model = cfg.Model
		}
		return llm.NewProvider(c.Provider, c.Secret, model, "")
	}
}

// createEmbedder returns the process-wide embedder. The backend is created
// on first use so commands that never embed do not pay for a model load.
func createEmbedder(cfg config.EmbeddingConfig) *embeddings.Shared {
	model := cfg.Model
	if model == "" {
		model = config.DefaultEmbeddingModel(cfg.Provider)
	}

	switch cfg.Provider {
	case config.EmbeddingOpenAI:
		return embeddings.Lazy("openai/"+model, 0, func() (embeddings.Embedder, error) {
			apiKey := os.Getenv(config.APIKeyEnvVar(config.EmbeddingOpenAI))
			if apiKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
			}
			return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model), cfg.BaseURL), nil
		})
	case config.EmbeddingGoogle:
		return embeddings.Lazy("google/"+model, 0, func() (embeddings.Embedder, error) {
			apiKey := os.Getenv(config.APIKeyEnvVar(config.EmbeddingGoogle))
			if apiKey == "" {
				return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
			}
			return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(model)), nil
		})
	case config.EmbeddingOllama:
		return embeddings.Lazy("ollama/"+model, 768, func() (embeddings.Embedder, error) {
			return embeddings.NewOllamaEmbedder(model, 768, cfg.BaseURL), nil
		})
	case config.EmbeddingHashing:
		return embeddings.Lazy("hashing", 384, func() (embeddings.Embedder, error) {
			return embeddings.NewHashingEmbedder(384), nil
		})
	default:
		return embeddings.Lazy("fastembed/"+model, 384, func() (embeddings.Embedder, error) {
			return embeddings.NewFastEmbedder(model, cfg.CacheDir)
		})
	}
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `pdfchat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Everything logs to stderr so the MCP
// command keeps stdout for the protocol.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log, verbose, zapcore.Lock(os.Stderr))
}
