// Package session keeps each user's in-memory similarity index and
// conversation. Entries are volatile: the document store is the source of
// truth and any entry can be rebuilt from it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/index"
	"github.com/ziadkadry99/pdfchat/internal/logging"
	"github.com/ziadkadry99/pdfchat/internal/metrics"
)

// Entry is one user's cached state. Its methods must only be called from
// inside Registry.WithUser, which holds the user's lock.
type Entry struct {
	builder      *index.Builder
	index        *index.Index
	documentName string
	conversation *Conversation
	touched      time.Time
}

// Index returns the cached index or nil.
func (e *Entry) Index() *index.Index { return e.index }

// DocumentName returns the filename of the document the index was built from.
func (e *Entry) DocumentName() string { return e.documentName }

// SetIndex installs ix and discards the conversation, since the document it
// was grounded in has changed.
func (e *Entry) SetIndex(ix *index.Index, documentName string) {
	e.index = ix
	e.documentName = documentName
	e.conversation = nil
}

// RebuildFromText builds an index from stored text and installs it. On
// failure the entry is left as it was.
func (e *Entry) RebuildFromText(ctx context.Context, docID, documentName, text string) error {
	ix, err := e.builder.Build(ctx, docID, text)
	if err != nil {
		return err
	}
	e.SetIndex(ix, documentName)
	return nil
}

// Conversation returns the cached conversation or nil.
func (e *Entry) Conversation() *Conversation { return e.conversation }

// SetConversation replaces the cached conversation.
func (e *Entry) SetConversation(c *Conversation) { e.conversation = c }

// DropConversation discards the conversation, keeping the index.
func (e *Entry) DropConversation() { e.conversation = nil }

// Clear discards both the index and the conversation.
func (e *Entry) Clear() {
	e.index = nil
	e.documentName = ""
	e.conversation = nil
}

func (e *Entry) empty() bool {
	return e.index == nil && e.conversation == nil
}

// slot guards one entry. lock has capacity one so waiting can be abandoned
// when the caller's context ends.
type slot struct {
	lock  chan struct{}
	refs  int
	entry Entry
}

// Registry maps user ids to entries. Operations on one user serialize on
// that user's lock; different users only share the short map lock.
type Registry struct {
	mu      sync.Mutex
	slots   map[string]*slot
	builder *index.Builder
	idleTTL time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewRegistry creates an empty registry. Entries untouched for idleTTL are
// removed by Sweep; zero disables eviction.
func NewRegistry(builder *index.Builder, idleTTL time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		slots:   make(map[string]*slot),
		builder: builder,
		idleTTL: idleTTL,
		now:     time.Now,
		logger:  logging.OrNop(logger),
	}
}

// Builder returns the index builder entries rebuild with.
func (r *Registry) Builder() *index.Builder { return r.builder }

func (r *Registry) acquire(ctx context.Context, userID string) (*slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrBusy, err)
	}

	r.mu.Lock()
	s, ok := r.slots[userID]
	if !ok {
		s = &slot{lock: make(chan struct{}, 1), entry: Entry{builder: r.builder}}
		r.slots[userID] = s
	}
	s.refs++
	r.mu.Unlock()

	select {
	case s.lock <- struct{}{}:
		return s, nil
	case <-ctx.Done():
		r.mu.Lock()
		s.refs--
		// refs == 0 means nobody holds the lock, so the entry is safe to read.
		if s.refs == 0 && s.entry.empty() {
			delete(r.slots, userID)
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", apperr.ErrBusy, ctx.Err())
	}
}

func (r *Registry) release(userID string, s *slot) {
	s.entry.touched = r.now()
	empty := s.entry.empty()
	<-s.lock

	r.mu.Lock()
	s.refs--
	if s.refs == 0 && empty {
		delete(r.slots, userID)
	}
	metrics.ActiveSessions.Set(float64(len(r.slots)))
	r.mu.Unlock()
}

// WithUser runs fn while holding userID's lock and returns its error.
func (r *Registry) WithUser(userID string, fn func(*Entry) error) error {
	return r.WithUserContext(context.Background(), userID, fn)
}

// WithUserContext is WithUser, but gives up waiting for the lock when ctx
// is done. The error then wraps apperr.ErrBusy and ctx.Err().
func (r *Registry) WithUserContext(ctx context.Context, userID string, fn func(*Entry) error) error {
	s, err := r.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer r.release(userID, s)
	return fn(&s.entry)
}

// GetIndex returns the user's cached index or nil.
func (r *Registry) GetIndex(userID string) *index.Index {
	var ix *index.Index
	r.WithUser(userID, func(e *Entry) error {
		ix = e.Index()
		return nil
	})
	return ix
}

// SetIndex installs ix for the user, replacing any previous index and
// conversation.
func (r *Registry) SetIndex(userID string, ix *index.Index, documentName string) {
	r.WithUser(userID, func(e *Entry) error {
		e.SetIndex(ix, documentName)
		return nil
	})
}

// RebuildFromText builds an index from stored text and installs it for the
// user. The previous entry is untouched when the build fails.
func (r *Registry) RebuildFromText(ctx context.Context, userID, docID, documentName, text string) error {
	return r.WithUserContext(ctx, userID, func(e *Entry) error {
		return e.RebuildFromText(ctx, docID, documentName, text)
	})
}

// Clear removes the user's index and conversation together.
func (r *Registry) Clear(userID string) {
	r.WithUser(userID, func(e *Entry) error {
		e.Clear()
		return nil
	})
}

// DropConversation discards the user's conversation, keeping the index.
func (r *Registry) DropConversation(userID string) {
	r.WithUser(userID, func(e *Entry) error {
		e.DropConversation()
		return nil
	})
}

// Discard removes everything held for the user, as on logout.
func (r *Registry) Discard(userID string) {
	r.Clear(userID)
	r.logger.Debug("session discarded", zap.String("user_id", userID))
}

// Len returns the number of users with an entry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Sweep removes entries not used since now-idleTTL and returns how many
// were evicted. Entries currently in use are skipped.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for user, s := range r.slots {
		// refs == 0 means no goroutine holds or waits for the slot.
		if s.refs > 0 || s.entry.touched.After(cutoff) {
			continue
		}
		delete(r.slots, user)
		evicted++
	}
	metrics.ActiveSessions.Set(float64(len(r.slots)))
	if evicted > 0 {
		r.logger.Info("evicted idle sessions", zap.Int("count", evicted), zap.Int("remaining", len(r.slots)))
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			r.Sweep(t)
		}
	}
}
