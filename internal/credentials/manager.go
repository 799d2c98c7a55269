package credentials

import (
	"context"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/config"
	"github.com/ziadkadry99/pdfchat/internal/logging"
)

// Manager applies credential changes and notifies a hook whenever a user's
// active credential changes, so cached conversations bound to the old key
// can be dropped.
type Manager struct {
	store    *Store
	onChange func(userID string)
	logger   *zap.Logger
}

// NewManager wraps store. onChange may be nil.
func NewManager(store *Store, onChange func(userID string), logger *zap.Logger) *Manager {
	if onChange == nil {
		onChange = func(string) {}
	}
	return &Manager{store: store, onChange: onChange, logger: logging.OrNop(logger)}
}

// Add stores a credential; if it became active the hook fires.
func (m *Manager) Add(ctx context.Context, userID, label string, provider config.ProviderType, secret string) (*Credential, error) {
	c, err := m.store.Add(ctx, userID, label, provider, secret)
	if err != nil {
		return nil, err
	}
	m.logger.Info("credential added",
		zap.String("user_id", userID),
		zap.String("credential_id", c.ID),
		zap.String("provider", string(c.Provider)),
		logging.RedactedString("secret", secret),
		zap.Bool("active", c.IsActive))
	if c.IsActive {
		m.onChange(userID)
	}
	return c, nil
}

// List returns the user's masked credentials.
func (m *Manager) List(ctx context.Context, userID string) ([]Credential, error) {
	return m.store.List(ctx, userID)
}

// Active returns the user's active credential or nil.
func (m *Manager) Active(ctx context.Context, userID string) (*Credential, error) {
	return m.store.Active(ctx, userID)
}

// Activate switches the active credential and fires the hook.
func (m *Manager) Activate(ctx context.Context, userID, id string) error {
	if err := m.store.Activate(ctx, userID, id); err != nil {
		return err
	}
	m.logger.Info("credential activated", zap.String("user_id", userID), zap.String("credential_id", id))
	m.onChange(userID)
	return nil
}

// Delete removes a credential and fires the hook if the active one changed.
func (m *Manager) Delete(ctx context.Context, userID, id string) error {
	changed, err := m.store.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	m.logger.Info("credential deleted", zap.String("user_id", userID), zap.String("credential_id", id), zap.Bool("active_changed", changed))
	if changed {
		m.onChange(userID)
	}
	return nil
}
