package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/momoledger/smsledger/internal/pipeline"
	"github.com/momoledger/smsledger/internal/plugins"
	"github.com/momoledger/smsledger/pkg/client"
	"github.com/momoledger/smsledger/pkg/config"
)

func runIngest(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	source := fs.String("source", "", "SMS backup XML file (overrides SMSLEDGER_SOURCE)")
	writer := fs.String("writer", "", "writer plugin (overrides SMSLEDGER_WRITER)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *source != "" {
		cfg.Source = *source
	}
	if *writer != "" {
		cfg.WriterPlugin = *writer
	}

	registry, err := plugins.Builtin()
	if err != nil {
		return fmt.Errorf("registering plugins: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := writerClient(ctx, registry, cfg)
	if err != nil {
		return err
	}

	logger.Info("starting ingest",
		"source", cfg.Source,
		"reader", cfg.ReaderPlugin,
		"writer", cfg.WriterPlugin,
	)

	result, err := pipeline.New(registry, httpClient, logger).Run(ctx, cfg)
	if err != nil {
		return err
	}

	printTally(result)
	return nil
}

// writerClient returns an authenticated client when the writer needs OAuth
// scopes, nil otherwise.
func writerClient(ctx context.Context, registry *plugins.Registry, cfg config.Config) (*http.Client, error) {
	scopes, err := registry.WriterScopes(cfg.WriterPlugin)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, nil
	}

	httpClient, err := client.New(ctx, cfg.CredentialsFile, scopes...)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}
	return httpClient, nil
}

func printTally(result pipeline.Result) {
	fmt.Printf("Ingest %s: %d records in %s\n", result.IngestID, result.Records, result.Duration.Round(time.Millisecond))

	types := make([]string, 0, len(result.ByType))
	for t := range result.ByType {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		fmt.Printf("  %-12s %d\n", t, result.ByType[t])
	}
}
