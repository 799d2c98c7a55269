// Package library orchestrates the document lifecycle: upload, selection,
// clearing and deletion, keeping the stored active flag and the in-memory
// index in step.
package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/documents"
	"github.com/ziadkadry99/pdfchat/internal/extract"
	"github.com/ziadkadry99/pdfchat/internal/logging"
	"github.com/ziadkadry99/pdfchat/internal/metrics"
	"github.com/ziadkadry99/pdfchat/internal/session"
)

// Limits bound accepted uploads.
type Limits struct {
	MaxBytes     int64
	MinTextChars int
}

// Service manages a user's documents.
type Service struct {
	docs      *documents.Store
	registry  *session.Registry
	extractor extract.Extractor
	limits    Limits
	logger    *zap.Logger
}

// NewService wires a Service.
func NewService(docs *documents.Store, registry *session.Registry, extractor extract.Extractor, limits Limits, logger *zap.Logger) *Service {
	return &Service{
		docs:      docs,
		registry:  registry,
		extractor: extractor,
		limits:    limits,
		logger:    logging.OrNop(logger),
	}
}

// Upload extracts and indexes a PDF and makes it the user's active
// document. The index is built before anything is stored, so a failed
// build leaves the previous active document and index in place.
func (s *Service) Upload(ctx context.Context, userID, filename string, data []byte) (doc *documents.Document, err error) {
	defer func() {
		metrics.ObserveUpload(err)
		if err != nil {
			s.logger.Warn("upload failed", zap.String("user_id", userID), zap.String("filename", filename), zap.Error(err))
		}
	}()

	if err := s.validate(filename, data); err != nil {
		return nil, err
	}

	res, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(res.Text)
	if utf8.RuneCountInString(text) < s.limits.MinTextChars {
		return nil, fmt.Errorf("%w: could not extract enough text from the PDF", apperr.ErrExtraction)
	}

	doc = &documents.Document{
		ID:               uuid.New().String(),
		UserID:           userID,
		Filename:         SafeFilename(filename),
		OriginalFilename: filename,
		FileSize:         int64(len(data)),
		PageCount:        res.Pages,
		Text:             text,
	}

	err = s.registry.WithUserContext(ctx, userID, func(e *session.Entry) error {
		ix, err := s.registry.Builder().Build(ctx, doc.ID, doc.Text)
		if err != nil {
			return err
		}
		if err := s.docs.Save(ctx, doc); err != nil {
			return err
		}
		e.SetIndex(ix, doc.Filename)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document uploaded",
		zap.String("user_id", userID),
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int("pages", doc.PageCount),
		zap.Int("text_chars", utf8.RuneCountInString(doc.Text)))
	return doc, nil
}

func (s *Service) validate(filename string, data []byte) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: no file selected", apperr.ErrBadRequest)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return fmt.Errorf("%w: only PDF files are allowed", apperr.ErrBadRequest)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: file is empty", apperr.ErrBadRequest)
	}
	if s.limits.MaxBytes > 0 && int64(len(data)) > s.limits.MaxBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", apperr.ErrBadRequest, s.limits.MaxBytes)
	}
	return nil
}

// Select rebuilds the index of a previously uploaded document from its
// stored text and makes it active. On a build failure nothing changes.
func (s *Service) Select(ctx context.Context, userID, docID string) (*documents.Document, error) {
	var doc *documents.Document
	err := s.registry.WithUserContext(ctx, userID, func(e *session.Entry) error {
		var err error
		doc, err = s.docs.Get(ctx, userID, docID)
		if err != nil {
			return err
		}
		ix, err := s.registry.Builder().Build(ctx, doc.ID, doc.Text)
		if err != nil {
			return err
		}
		if err := s.docs.SetActive(ctx, userID, doc.ID); err != nil {
			return err
		}
		doc.IsActive = true
		e.SetIndex(ix, doc.Filename)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("document selected", zap.String("user_id", userID), zap.String("document_id", docID))
	return doc, nil
}

// Clear deactivates the user's documents and drops the cached index and
// conversation.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.registry.WithUserContext(ctx, userID, func(e *session.Entry) error {
		if err := s.docs.DeactivateAll(ctx, userID); err != nil {
			return err
		}
		e.Clear()
		return nil
	})
}

// Delete removes a document. If it was active the cached index and
// conversation go with it.
func (s *Service) Delete(ctx context.Context, userID, docID string) error {
	return s.registry.WithUserContext(ctx, userID, func(e *session.Entry) error {
		wasActive, err := s.docs.Delete(ctx, userID, docID)
		if err != nil {
			return err
		}
		if wasActive || (e.Index() != nil && e.Index().DocumentID() == docID) {
			e.Clear()
		}
		s.logger.Info("document deleted",
			zap.String("user_id", userID),
			zap.String("document_id", docID),
			zap.Bool("was_active", wasActive))
		return nil
	})
}

// List returns the user's documents, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]documents.Document, error) {
	return s.docs.List(ctx, userID)
}

// SafeFilename reduces name to a base name of letters, digits, dots,
// dashes and underscores.
func SafeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('_')
		}
	}
	out := strings.Trim(sb.String(), "._")
	if out == "" {
		return "document.pdf"
	}
	return out
}
