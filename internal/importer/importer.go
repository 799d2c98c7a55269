package importer

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/documents"
	"github.com/ziadkadry99/pdfchat/internal/logging"
	"github.com/ziadkadry99/pdfchat/internal/progress"
)

// Uploader stores one PDF for a user. *library.Service satisfies it.
type Uploader interface {
	Upload(ctx context.Context, userID, filename string, data []byte) (*documents.Document, error)
}

// Failure records a file that could not be imported.
type Failure struct {
	Path string
	Err  error
}

// Summary is the outcome of one Import call.
type Summary struct {
	Imported []*documents.Document
	Failed   []Failure
}

// Importer feeds files from disk through an Uploader.
type Importer struct {
	uploader Uploader
	reporter progress.Reporter
	logger   *zap.Logger
}

// New creates an Importer. A nil reporter disables progress output.
func New(uploader Uploader, reporter progress.Reporter, logger *zap.Logger) *Importer {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Importer{uploader: uploader, reporter: reporter, logger: logging.OrNop(logger)}
}

// Import uploads every file for userID in order. A failing file is recorded
// and skipped; only context cancellation aborts the run. The last file
// imported successfully ends up as the user's active document.
func (im *Importer) Import(ctx context.Context, userID string, files []File) (*Summary, error) {
	summary := &Summary{}
	im.reporter.Start(len(files))
	defer im.reporter.Finish()

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		im.reporter.Update(i, f.Name)

		doc, err := im.importFile(ctx, userID, f.Path)
		if err != nil {
			im.logger.Warn("import failed", zap.String("path", f.Path), zap.Error(err))
			summary.Failed = append(summary.Failed, Failure{Path: f.Path, Err: err})
			continue
		}
		im.logger.Info("imported pdf",
			zap.String("user", userID),
			zap.String("path", f.Path),
			zap.String("document_id", doc.ID),
			zap.Int("pages", doc.PageCount))
		summary.Imported = append(summary.Imported, doc)
	}
	im.reporter.Update(len(files), "done")
	return summary, nil
}

func (im *Importer) importFile(ctx context.Context, userID, path string) (*documents.Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := im.uploader.Upload(ctx, userID, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
