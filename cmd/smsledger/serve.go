package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/momoledger/smsledger/internal/plugins"
	"github.com/momoledger/smsledger/pkg/config"
	"github.com/momoledger/smsledger/pkg/ledger"
	"github.com/momoledger/smsledger/pkg/server"
)

func runServe(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	addr := fs.String("addr", "", "listen address (overrides SMSLEDGER_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	registry, err := plugins.Builtin()
	if err != nil {
		return fmt.Errorf("registering plugins: %w", err)
	}

	storeCfg, err := cfg.StorePluginConfig()
	if err != nil {
		return err
	}
	store, err := registry.CreateStore(cfg.StorePlugin, storeCfg, logger.With("component", "store", "plugin", cfg.StorePlugin))
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(
		ledger.New(store, logger.With("component", "ledger")),
		server.Config{
			Addr:           cfg.Addr,
			AllowedOrigins: cfg.AllowedOrigins(),
		},
		logger,
	)

	logger.Info("serving ledger", "addr", cfg.Addr, "store", cfg.StorePlugin)
	return srv.ListenAndServe(ctx)
}
