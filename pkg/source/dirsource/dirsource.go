// Package dirsource implements a Source that reads saved receipt emails
// from a local directory, mainly for testing against cached mail.
package dirsource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

// Source yields one raw message per regular file in a directory.
type Source struct {
	path   string
	logger *slog.Logger
}

// New creates a directory source for the given path.
func New(path string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{path: path, logger: logger}
}

// Fetch reads every regular file under the directory, whole, in
// directory order. Unreadable files are skipped with a warning.
func (s *Source) Fetch(ctx context.Context, out chan<- api.RawMessage) error {
	defer close(out)

	s.logger.Info("reading receipts from directory", "path", s.path)

	entries, err := os.ReadDir(s.path)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", s.path, err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.path, entry.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable file", "file", entry.Name(), "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- api.RawMessage{ID: entry.Name(), Body: string(data)}:
		}
	}

	return nil
}
