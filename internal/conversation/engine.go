// Package conversation answers user messages, either grounded in the user's
// active document or as general chat, and keeps per-user multi-turn memory.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/chatlog"
	"github.com/ziadkadry99/pdfchat/internal/credentials"
	"github.com/ziadkadry99/pdfchat/internal/documents"
	"github.com/ziadkadry99/pdfchat/internal/embeddings"
	"github.com/ziadkadry99/pdfchat/internal/index"
	"github.com/ziadkadry99/pdfchat/internal/llm"
	"github.com/ziadkadry99/pdfchat/internal/logging"
	"github.com/ziadkadry99/pdfchat/internal/metrics"
	"github.com/ziadkadry99/pdfchat/internal/session"
)

// CredentialSource yields the user's active credential with its secret.
type CredentialSource interface {
	Active(ctx context.Context, userID string) (*credentials.Credential, error)
}

// DocumentSource yields the user's active document. ActiveID is the cheap
// check run on every request; Active loads the text for a rebuild.
type DocumentSource interface {
	ActiveID(ctx context.Context, userID string) (string, error)
	Active(ctx context.Context, userID string) (*documents.Document, error)
}

// ChatLog persists answered turns.
type ChatLog interface {
	Append(ctx context.Context, msgs ...chatlog.Message) error
}

// ProviderFactory creates an LLM client for a credential.
type ProviderFactory func(c *credentials.Credential) (llm.Provider, error)

// Options tune retrieval, history and model calls.
type Options struct {
	K                int
	SummaryK         int
	MaxTurns         int
	MaxHistoryTokens int
	Temperature      float64
	MaxTokens        int
	Timeout          time.Duration
	// RequestsPerMinute limits model calls per user; zero disables it.
	RequestsPerMinute int
}

// Reply is the outcome of one answered message.
type Reply struct {
	Answer         string       `json:"response"`
	Mode           session.Mode `json:"mode"`
	DocumentName   string       `json:"pdf_name,omitempty"`
	Language       string       `json:"language"`
	Retrieved      int          `json:"retrieved"`
	SummaryRequest bool         `json:"summary_request"`
}

// HasDocument reports whether the reply was grounded in a document.
func (r *Reply) HasDocument() bool { return r.Mode == session.ModeDocument }

// Engine answers chat messages.
type Engine struct {
	registry  *session.Registry
	creds     CredentialSource
	docs      DocumentSource
	log       ChatLog
	providers ProviderFactory
	limiters  *llm.UserLimiters
	opts      Options
	logger    *zap.Logger
}

// NewEngine wires an Engine.
func NewEngine(registry *session.Registry, creds CredentialSource, docs DocumentSource, log ChatLog, providers ProviderFactory, opts Options, logger *zap.Logger) *Engine {
	if opts.K <= 0 {
		opts.K = 8
	}
	if opts.SummaryK <= 0 {
		opts.SummaryK = 20
	}
	return &Engine{
		registry:  registry,
		creds:     creds,
		docs:      docs,
		log:       log,
		providers: providers,
		limiters:  llm.NewUserLimiters(opts.RequestsPerMinute),
		opts:      opts,
		logger:    logging.OrNop(logger),
	}
}

// Forget drops per-user state the engine keeps outside the registry.
func (e *Engine) Forget(userID string) {
	e.limiters.Forget(userID)
}

// Respond answers message for userID in the requested language. A failed
// model call persists nothing and leaves the conversation history as it
// was, so the user can retry.
func (e *Engine) Respond(ctx context.Context, userID, message, language string) (reply *Reply, err error) {
	mode := "none"
	defer func() {
		metrics.ObserveChat(mode, err)
	}()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", apperr.ErrBadRequest)
	}

	cred, err := e.creds.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, apperr.ErrNoCredential
	}
	provider, err := e.providers(cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrModelInvocation, err)
	}
	provider = llm.WithLimiter(provider, e.limiters.For(userID))

	lang := LookupLanguage(language)

	err = e.registry.WithUserContext(ctx, userID, func(entry *session.Entry) error {
		if err := e.ensureIndex(ctx, userID, entry); err != nil {
			return err
		}

		conv := e.conversationFor(userID, entry, session.Key{
			DocumentID:   documentID(entry.Index()),
			Language:     lang.Name,
			CredentialID: cred.ID,
		}, lang)
		mode = string(conv.Mode)

		r := &Reply{Mode: conv.Mode, Language: lang.Name, SummaryRequest: IsSummaryRequest(message)}

		var passages []string
		if conv.Mode == session.ModeDocument {
			r.DocumentName = entry.DocumentName()
			k := e.opts.K
			if r.SummaryRequest {
				k = e.opts.SummaryK
			}
			matches, err := e.retrieve(ctx, entry.Index(), message, k)
			if err != nil {
				return err
			}
			passages = index.Texts(matches)
			r.Retrieved = len(matches)
		}

		resp, err := llm.Invoke(ctx, provider, llm.CompletionRequest{
			Messages:    buildMessages(conv, passages, message),
			MaxTokens:   e.opts.MaxTokens,
			Temperature: e.opts.Temperature,
			JSONMode:    conv.Mode == session.ModeDocument,
		}, e.opts.Timeout)
		if err != nil {
			return err
		}

		if conv.Mode == session.ModeDocument {
			r.Answer = parseAnswer(resp.Content)
		} else {
			r.Answer = strings.TrimSpace(resp.Content)
		}

		if err := e.log.Append(ctx,
			chatlog.Message{UserID: userID, Role: chatlog.RoleUser, Content: message, Language: lang.Name, DocumentName: r.DocumentName},
			chatlog.Message{UserID: userID, Role: chatlog.RoleAssistant, Content: r.Answer, Language: lang.Name, DocumentName: r.DocumentName},
		); err != nil {
			return fmt.Errorf("saving chat turn: %w", err)
		}

		conv.Append(session.Turn{Question: message, Answer: r.Answer})
		conv.Trim(e.opts.MaxTurns, e.opts.MaxHistoryTokens, turnTokens)

		e.logger.Info("chat answered",
			zap.String("user_id", userID),
			zap.String("mode", mode),
			zap.String("language", lang.Name),
			zap.Bool("summary", r.SummaryRequest),
			zap.Int("retrieved", r.Retrieved),
			zap.Int("history_turns", len(conv.History)),
			zap.Int("input_tokens", resp.InputTokens),
			zap.Int("output_tokens", resp.OutputTokens),
			zap.Float64("cost_usd", llm.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)))
		reply = r
		return nil
	})
	if err != nil {
		e.logger.Warn("chat failed", zap.String("user_id", userID), zap.String("mode", mode), zap.Error(err))
		return nil, err
	}
	return reply, nil
}

// Search retrieves the k passages of the user's active document closest to
// query, without calling the language model.
func (e *Engine) Search(ctx context.Context, userID, query string, k int) ([]index.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrBadRequest)
	}
	if k <= 0 {
		k = e.opts.K
	}

	var matches []index.Match
	err := e.registry.WithUserContext(ctx, userID, func(entry *session.Entry) error {
		if err := e.ensureIndex(ctx, userID, entry); err != nil {
			return err
		}
		if entry.Index() == nil {
			return fmt.Errorf("%w: no active document", apperr.ErrNotFound)
		}
		var err error
		matches, err = e.retrieve(ctx, entry.Index(), query, k)
		return err
	})
	return matches, err
}

// ensureIndex makes the cached index match the document store's active
// document. Another process sharing the database (import, MCP) may have
// changed it, and a restart or eviction leaves nothing cached.
func (e *Engine) ensureIndex(ctx context.Context, userID string, entry *session.Entry) error {
	activeID, err := e.docs.ActiveID(ctx, userID)
	if err != nil {
		return err
	}
	cached := documentID(entry.Index())
	if cached == activeID {
		return nil
	}
	if cached != "" {
		e.logger.Info("cached index is stale",
			zap.String("user_id", userID),
			zap.String("cached_document_id", cached),
			zap.String("active_document_id", activeID))
		entry.Clear()
	}
	if activeID == "" {
		return nil
	}

	doc, err := e.docs.Active(ctx, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	e.logger.Info("rebuilding index from stored text",
		zap.String("user_id", userID),
		zap.String("document_id", doc.ID))
	return entry.RebuildFromText(ctx, doc.ID, doc.Filename, doc.Text)
}

// conversationFor returns the cached conversation if it was created for
// key, otherwise replaces it with a fresh one.
func (e *Engine) conversationFor(userID string, entry *session.Entry, key session.Key, lang Language) *session.Conversation {
	if conv := entry.Conversation(); conv != nil && conv.Key == key {
		return conv
	}
	conv := newConversation(key, lang)
	entry.SetConversation(conv)
	e.logger.Debug("conversation created",
		zap.String("user_id", userID),
		zap.String("mode", string(conv.Mode)),
		zap.String("language", key.Language))
	return conv
}

func (e *Engine) retrieve(ctx context.Context, ix *index.Index, query string, k int) ([]index.Match, error) {
	vec, err := embeddings.Single(ctx, e.registry.Builder().Embedder(), query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding question: %v", apperr.ErrModelInvocation, err)
	}
	matches, err := ix.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrModelInvocation, err)
	}
	return matches, nil
}

func documentID(ix *index.Index) string {
	if ix == nil {
		return ""
	}
	return ix.DocumentID()
}
