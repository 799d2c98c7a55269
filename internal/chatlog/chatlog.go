// Package chatlog is the append-only per-user chat history.
package chatlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/pdfchat/internal/db"
)

// Role of a persisted message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// Message is one persisted chat turn half.
type Message struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Role         Role      `json:"role"`
	Content      string    `json:"content"`
	Language     string    `json:"language"`
	DocumentName string    `json:"pdf_name,omitempty"`
	CreatedAt    time.Time `json:"timestamp"`
}

// Page is one page of history, newest first.
type Page struct {
	Messages    []Message `json:"messages"`
	Total       int       `json:"total"`
	Pages       int       `json:"pages"`
	CurrentPage int       `json:"current_page"`
}

// Store persists chat messages.
type Store struct {
	db *db.DB
}

// NewStore creates a chat log store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Append writes all messages in a single transaction. Missing IDs and
// timestamps are filled in; timestamps increase so a turn keeps its order.
func (s *Store) Append(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO chat_messages (id, user_id, role, content, language, document_name, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i := range msgs {
			m := &msgs[i]
			if m.ID == "" {
				m.ID = uuid.New().String()
			}
			if m.CreatedAt.IsZero() {
				m.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
			}
			if m.Language == "" {
				m.Language = "English"
			}
			var docName sql.NullString
			if m.DocumentName != "" {
				docName = sql.NullString{String: m.DocumentName, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, m.ID, m.UserID, string(m.Role), m.Content, m.Language, docName, m.CreatedAt); err != nil {
				return fmt.Errorf("inserting chat message: %w", err)
			}
		}
		return nil
	})
}

// List returns one page of the user's history, newest first. page defaults
// to 1 and perPage to DefaultPerPage, capped at MaxPerPage.
func (s *Store) List(ctx context.Context, userID string, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting chat messages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, language, document_name, created_at
		 FROM chat_messages WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		userID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	out := &Page{Messages: []Message{}, Total: total, CurrentPage: page, Pages: (total + perPage - 1) / perPage}
	for rows.Next() {
		var m Message
		var role string
		var docName sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &role, &m.Content, &m.Language, &docName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		m.Role = Role(role)
		m.DocumentName = docName.String
		out.Messages = append(out.Messages, m)
	}
	return out, rows.Err()
}

// Clear deletes all of the user's messages and returns how many were removed.
func (s *Store) Clear(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing chat messages: %w", err)
	}
	return res.RowsAffected()
}
