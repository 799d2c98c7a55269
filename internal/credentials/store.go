// Package credentials stores per-user LLM API keys encrypted at rest, with
// at most one active key per user.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/config"
	"github.com/ziadkadry99/pdfchat/internal/db"
)

// Store manages persistence of credentials.
type Store struct {
	db              *db.DB
	cipher          *Cipher
	defaultProvider config.ProviderType
}

// NewStore creates a credential store. Credentials added without a provider
// use defaultProvider.
func NewStore(database *db.DB, cipher *Cipher, defaultProvider config.ProviderType) *Store {
	if defaultProvider == "" {
		defaultProvider = config.ProviderGroq
	}
	return &Store{db: database, cipher: cipher, defaultProvider: defaultProvider}
}

// Add encrypts and stores a new credential. It becomes active when the user
// has no active credential yet.
func (s *Store) Add(ctx context.Context, userID, label string, provider config.ProviderType, secret string) (*Credential, error) {
	label = strings.TrimSpace(label)
	secret = strings.TrimSpace(secret)
	if label == "" || secret == "" {
		return nil, fmt.Errorf("%w: key name and key value are required", apperr.ErrBadRequest)
	}
	if provider == "" {
		provider = s.defaultProvider
	}
	if !config.ValidProvider(provider) {
		return nil, fmt.Errorf("%w: unsupported provider %q", apperr.ErrBadRequest, provider)
	}

	token, err := s.cipher.Encrypt(secret)
	if err != nil {
		return nil, err
	}

	c := &Credential{
		ID:        uuid.New().String(),
		UserID:    userID,
		Label:     label,
		Provider:  provider,
		Masked:    Mask(secret),
		CreatedAt: time.Now().UTC(),
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		var active int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM credentials WHERE user_id = ? AND is_active = 1`, userID,
		).Scan(&active); err != nil {
			return fmt.Errorf("counting active credentials: %w", err)
		}
		c.IsActive = active == 0

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (id, user_id, label, provider, secret, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.UserID, c.Label, string(c.Provider), token, c.IsActive, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting credential: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the user's credentials, oldest first, with masked secrets.
func (s *Store) List(ctx context.Context, userID string) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, label, provider, secret, is_active, created_at
		 FROM credentials WHERE user_id = ? ORDER BY created_at, rowid`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		c, token, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		c.Masked = "****"
		if secret, err := s.cipher.Decrypt(token); err == nil {
			c.Masked = Mask(secret)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Active returns the user's active credential with its decrypted secret, or
// nil when the user has none.
func (s *Store) Active(ctx context.Context, userID string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, label, provider, secret, is_active, created_at
		 FROM credentials WHERE user_id = ? AND is_active = 1`, userID,
	)
	c, token, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	secret, err := s.cipher.Decrypt(token)
	if err != nil {
		return nil, fmt.Errorf("credential %s: %w", c.ID, err)
	}
	c.Secret = secret
	c.Masked = Mask(secret)
	return c, nil
}

// Activate makes id the user's only active credential.
func (s *Store) Activate(ctx context.Context, userID, id string) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := ownedBy(ctx, tx, userID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE credentials SET is_active = 0 WHERE user_id = ? AND is_active = 1`, userID,
		); err != nil {
			return fmt.Errorf("deactivating credentials: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE credentials SET is_active = 1 WHERE id = ?`, id,
		); err != nil {
			return fmt.Errorf("activating credential: %w", err)
		}
		return nil
	})
}

// Delete removes a credential. When it was the active one, the user's
// oldest remaining credential is promoted. activeChanged reports whether
// the user's active credential is now different.
func (s *Store) Delete(ctx context.Context, userID, id string) (activeChanged bool, err error) {
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		var wasActive bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_active FROM credentials WHERE id = ? AND user_id = ?`, id, userID,
		).Scan(&wasActive)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: credential %s", apperr.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("loading credential: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting credential: %w", err)
		}
		if !wasActive {
			return nil
		}
		activeChanged = true

		var next string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM credentials WHERE user_id = ? ORDER BY created_at, rowid LIMIT 1`, userID,
		).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("finding credential to promote: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE credentials SET is_active = 1 WHERE id = ?`, next); err != nil {
			return fmt.Errorf("promoting credential: %w", err)
		}
		return nil
	})
	return activeChanged, err
}

func ownedBy(ctx context.Context, tx *sql.Tx, userID, id string) error {
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credentials WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&n); err != nil {
		return fmt.Errorf("checking credential: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: credential %s", apperr.ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*Credential, string, error) {
	var c Credential
	var provider, token string
	if err := row.Scan(&c.ID, &c.UserID, &c.Label, &provider, &token, &c.IsActive, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("scanning credential: %w", err)
	}
	c.Provider = config.ProviderType(provider)
	return &c, token, nil
}
