// Package documents persists uploaded documents and their extracted text,
// with at most one active document per user.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/db"
)

// Document is a stored upload. Text is only loaded by Get and GetText.
type Document struct {
	ID               string     `json:"id"`
	UserID           string     `json:"-"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	FileSize         int64      `json:"file_size"`
	PageCount        int        `json:"page_count"`
	IsActive         bool       `json:"is_active"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	LastAccessed     *time.Time `json:"last_accessed,omitempty"`
	Text             string     `json:"-"`
}

// Store manages document persistence.
type Store struct {
	db *db.DB
}

// NewStore creates a document store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save inserts doc as the user's active document, deactivating any other.
// ID, timestamps and IsActive are filled in.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	doc.UploadedAt = now
	doc.LastAccessed = &now
	doc.IsActive = true

	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET is_active = 0 WHERE user_id = ? AND is_active = 1`, doc.UserID,
		); err != nil {
			return fmt.Errorf("deactivating documents: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, user_id, filename, original_filename, file_size, page_count, text_content, is_active, uploaded_at, last_accessed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			doc.ID, doc.UserID, doc.Filename, doc.OriginalFilename, doc.FileSize, doc.PageCount, doc.Text, now, now,
		); err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
		return nil
	})
}

// Get returns a document owned by userID, including its text.
func (s *Store) Get(ctx context.Context, userID, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, filename, original_filename, file_size, page_count, is_active, uploaded_at, last_accessed, text_content
		 FROM documents WHERE id = ? AND user_id = ?`, id, userID,
	)
	var d Document
	var last sql.NullTime
	err := row.Scan(&d.ID, &d.UserID, &d.Filename, &d.OriginalFilename, &d.FileSize, &d.PageCount,
		&d.IsActive, &d.UploadedAt, &last, &d.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	if last.Valid {
		t := last.Time
		d.LastAccessed = &t
	}
	return &d, nil
}

// GetText returns the stored text of a document owned by userID.
func (s *Store) GetText(ctx context.Context, userID, id string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT text_content FROM documents WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("loading document text: %w", err)
	}
	return text, nil
}

// SetActive makes id the user's only active document and touches its
// last_accessed time.
func (s *Store) SetActive(ctx context.Context, userID, id string) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents WHERE id = ? AND user_id = ?`, id, userID,
		).Scan(&n); err != nil {
			return fmt.Errorf("checking document: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET is_active = 0 WHERE user_id = ? AND is_active = 1`, userID,
		); err != nil {
			return fmt.Errorf("deactivating documents: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET is_active = 1, last_accessed = ? WHERE id = ?`, time.Now().UTC(), id,
		); err != nil {
			return fmt.Errorf("activating document: %w", err)
		}
		return nil
	})
}

// Active returns the user's active document with its text, or nil.
func (s *Store) Active(ctx context.Context, userID string) (*Document, error) {
	id, err := s.ActiveID(ctx, userID)
	if err != nil || id == "" {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// ActiveID returns the id of the user's active document, or "" when none.
func (s *Store) ActiveID(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE user_id = ? AND is_active = 1`, userID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading active document: %w", err)
	}
	return id, nil
}

// List returns the user's documents, newest first, without text.
func (s *Store) List(ctx context.Context, userID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, filename, original_filename, file_size, page_count, is_active, uploaded_at, last_accessed
		 FROM documents WHERE user_id = ? ORDER BY uploaded_at DESC, rowid DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var last sql.NullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.Filename, &d.OriginalFilename, &d.FileSize, &d.PageCount,
			&d.IsActive, &d.UploadedAt, &last); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if last.Valid {
			t := last.Time
			d.LastAccessed = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes a document owned by userID and reports whether it was the
// active one.
func (s *Store) Delete(ctx context.Context, userID, id string) (wasActive bool, err error) {
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT is_active FROM documents WHERE id = ? AND user_id = ?`, id, userID,
		).Scan(&wasActive)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("loading document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		return nil
	})
	return wasActive, err
}

// DeactivateAll clears the user's active document flag.
func (s *Store) DeactivateAll(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE documents SET is_active = 0 WHERE user_id = ? AND is_active = 1`, userID,
	); err != nil {
		return fmt.Errorf("deactivating documents: %w", err)
	}
	return nil
}
