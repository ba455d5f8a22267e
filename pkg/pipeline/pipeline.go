// Package pipeline wires a message source to the catalog: raw bodies in,
// classified items out. Parsing failures are per-message; the single
// collector loop keeps ingestion ordered.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pkarlsson/appreceipts/pkg/api"
	"github.com/pkarlsson/appreceipts/pkg/catalog"
	"github.com/pkarlsson/appreceipts/pkg/receipt"
)

// ErrNoData is returned when a run produced zero parsed receipts.
var ErrNoData = errors.New("no receipt data could be found")

// Result summarizes one pipeline run.
type Result struct {
	// Receipts is the number of successfully parsed messages.
	Receipts int
	// Skipped is the number of messages rejected as malformed.
	Skipped int
}

// Run fetches every message from the source, parses and classifies it,
// and ingests the resulting items into the catalog. Malformed messages
// are counted and skipped. A run that ends with zero receipts returns
// ErrNoData.
func Run(ctx context.Context, src api.Source, cat *catalog.Catalog, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	messages := make(chan api.RawMessage, 100)

	fetchDone := make(chan error, 1)
	go func() {
		fetchDone <- src.Fetch(ctx, messages)
	}()

	var res Result
	for msg := range messages {
		rec, err := receipt.Parse(msg.Body)
		if err != nil {
			res.Skipped++
			logger.Warn("skipping message", "message", msg.ID, "error", err)
			continue
		}

		items := make([]api.Item, 0, len(rec.Rows))
		for _, row := range rec.Rows {
			items = append(items, receipt.Classify(row, rec.Date))
		}
		cat.Ingest(items...)
		res.Receipts++

		logger.Debug("parsed receipt",
			"message", msg.ID,
			"date", rec.Date.Format("2006-01-02"),
			"items", len(items),
		)
	}

	if err := <-fetchDone; err != nil {
		return res, err
	}

	if res.Receipts == 0 {
		return res, ErrNoData
	}

	logger.Info("run complete", "receipts", res.Receipts, "skipped", res.Skipped, "items", cat.Len())
	return res, nil
}
