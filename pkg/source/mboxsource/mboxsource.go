// Package mboxsource implements a Source that reads receipt emails from
// an mbox archive, the format most mail clients export to.
package mboxsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/emersion/go-mbox"

	"github.com/pkarlsson/appreceipts/pkg/api"
)

// Source yields one raw message per mbox entry.
type Source struct {
	path   string
	logger *slog.Logger
}

// New creates an mbox source for the given file.
func New(path string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{path: path, logger: logger}
}

// Fetch streams every message in the archive in file order.
func (s *Source) Fetch(ctx context.Context, out chan<- api.RawMessage) error {
	defer close(out)

	s.logger.Info("reading receipts from mbox", "path", s.path)

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("opening mbox %s: %w", s.path, err)
	}
	defer f.Close()

	name := filepath.Base(s.path)
	reader := mbox.NewReader(f)

	for n := 0; ; n++ {
		msg, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading mbox %s: %w", s.path, err)
		}

		data, err := io.ReadAll(msg)
		if err != nil {
			s.logger.Warn("skipping unreadable mbox message", "index", n, "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- api.RawMessage{ID: fmt.Sprintf("%s#%d", name, n), Body: string(data)}:
		}
	}
}
