package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long a file must go without write events before it
// is imported.
const DefaultSettle = 500 * time.Millisecond

// Watch imports every PDF created or rewritten in dir until ctx is done.
// Writes are coalesced: a file is imported once it has been quiet for
// settle. onImport, when non-nil, receives the result of each attempt.
func (im *Importer) Watch(ctx context.Context, userID, dir string, settle time.Duration, onImport func(path string, err error)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	im.logger.Info("watching for pdfs", zap.String("dir", dir), zap.String("user", userID))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !IsPDF(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Warn("watcher error", zap.Error(err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)
				_, err := im.importFile(ctx, userID, path)
				if err != nil {
					im.logger.Warn("import failed", zap.String("path", path), zap.Error(err))
				} else {
					im.logger.Info("imported pdf", zap.String("user", userID), zap.String("path", path))
				}
				if onImport != nil {
					onImport(path, err)
				}
			}
		}
	}
}
