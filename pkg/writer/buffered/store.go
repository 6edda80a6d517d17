package buffered

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/momoledger/smsledger/pkg/api"
)

// StoreWriter appends records to a Store in batches.
// Each flush loads the full collection, appends the batch and saves it back.
type StoreWriter struct {
	store    api.Store
	buffered *Writer
}

// NewStoreWriter creates a Writer that appends to store.
// The store is closed when Write returns.
func NewStoreWriter(store api.Store, cfg Config, logger *slog.Logger) *StoreWriter {
	w := &StoreWriter{store: store}
	w.buffered = New(w.appendBatch, cfg, logger)
	return w
}

// Write consumes records from in and appends them to the store.
func (w *StoreWriter) Write(ctx context.Context, in <-chan api.Record) error {
	defer w.store.Close()
	return w.buffered.Write(ctx, in)
}

func (w *StoreWriter) appendBatch(ctx context.Context, batch []api.Record) error {
	records, err := w.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	records = append(records, batch...)
	if err := w.store.SaveAll(ctx, records); err != nil {
		return fmt.Errorf("saving records: %w", err)
	}
	return nil
}
