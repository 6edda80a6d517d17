// Package pipeline runs one ingest: a reader feeding a writer through the
// plugin registry, with a per-type tally of everything that passes through.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/momoledger/smsledger/internal/plugins"
	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/config"
	"github.com/momoledger/smsledger/pkg/ledger"
)

// channelSize is the buffer between pipeline stages.
const channelSize = 100

// Result summarizes one run.
type Result struct {
	IngestID uuid.UUID
	Records  int
	ByType   map[string]int
	Duration time.Duration
}

// Runner wires plugins together for an ingest run.
type Runner struct {
	registry   *plugins.Registry
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new pipeline runner. httpClient is handed to writers that
// call remote APIs and may be nil.
func New(registry *plugins.Registry, httpClient *http.Client, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		registry:   registry,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Run builds the configured reader and writer and runs them to completion.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (Result, error) {
	if cfg.ReaderPlugin == "" {
		return Result{}, errors.New("SMSLEDGER_READER is required")
	}
	if cfg.WriterPlugin == "" {
		return Result{}, errors.New("SMSLEDGER_WRITER is required")
	}

	readerCfg, err := cfg.ReaderPluginConfig()
	if err != nil {
		return Result{}, err
	}
	writerCfg, err := cfg.WriterPluginConfig()
	if err != nil {
		return Result{}, err
	}

	reader, err := r.registry.CreateReader(
		cfg.ReaderPlugin,
		readerCfg,
		r.logger.With("component", "reader", "plugin", cfg.ReaderPlugin),
	)
	if err != nil {
		return Result{}, fmt.Errorf("creating reader: %w", err)
	}

	writer, err := r.registry.CreateWriter(
		cfg.WriterPlugin,
		r.httpClient,
		writerCfg,
		r.logger.With("component", "writer", "plugin", cfg.WriterPlugin),
	)
	if err != nil {
		return Result{}, fmt.Errorf("creating writer: %w", err)
	}

	return r.Pipe(ctx, reader, writer)
}

// Pipe streams every record from reader to writer and tallies them by type.
// It returns once both sides have finished.
func (r *Runner) Pipe(ctx context.Context, reader api.Reader, writer api.Writer) (Result, error) {
	start := time.Now()
	result := Result{
		IngestID: uuid.New(),
		ByType:   make(map[string]int),
	}
	logger := r.logger.With("ingest_id", result.IngestID)
	logger.Info("ingest started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan api.Record, channelSize)
	forward := make(chan api.Record, channelSize)

	writerDone := make(chan error, 1)
	go func() {
		err := writer.Write(ctx, forward)
		writerDone <- err
		if err != nil {
			// Unblock the tally and the reader.
			cancel()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(forward)
		for rec := range records {
			if ctx.Err() != nil {
				continue
			}
			result.Records++
			result.ByType[ledger.TypeOf(rec)]++
			select {
			case forward <- rec:
			case <-ctx.Done():
			}
		}
	}()

	readErr := reader.Read(ctx, records)
	wg.Wait()
	writeErr := <-writerDone

	result.Duration = time.Since(start)

	if writeErr != nil && errors.Is(readErr, context.Canceled) {
		readErr = nil
	}
	if readErr != nil {
		readErr = fmt.Errorf("reading records: %w", readErr)
	}
	if writeErr != nil {
		writeErr = fmt.Errorf("writing records: %w", writeErr)
	}
	if err := errors.Join(readErr, writeErr); err != nil {
		logger.Error("ingest failed", "error", err, "records", result.Records)
		return result, err
	}

	logger.Info("ingest completed",
		"records", result.Records,
		"by_type", result.ByType,
		"duration", result.Duration,
	)
	return result, nil
}
