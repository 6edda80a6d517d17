// Package sqlite provides a plugin wrapper for the SQLite store.
package sqlite

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/writer/buffered"
	sqlitestore "github.com/momoledger/smsledger/pkg/writer/sqlite"
)

// Plugin implements the WriterPlugin and StorePlugin interfaces for SQLite.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "sqlite"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Keep SMS records in a local SQLite database file"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the database file, or :memory:",
			},
			"batchSize": map[string]any{
				"type":        "integer",
				"description": "Number of records to buffer before writing (default: 100)",
				"default":     100,
			},
			"flushInterval": map[string]any{
				"type":        "integer",
				"description": "Interval in seconds between automatic flushes (default: 30)",
				"default":     30,
			},
		},
		"required": []string{"path"},
	}
}

// Config represents the SQLite store configuration.
type Config struct {
	Path          string `json:"path"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"` // in seconds
}

func parseConfig(configData json.RawMessage) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling sqlite config: %w", err)
	}
	if cfg.Path == "" {
		return cfg, fmt.Errorf("path is required")
	}
	return cfg, nil
}

// NewStore opens the SQLite store.
func (p *Plugin) NewStore(configData json.RawMessage, logger *slog.Logger) (api.Store, error) {
	cfg, err := parseConfig(configData)
	if err != nil {
		return nil, err
	}
	return sqlitestore.New(sqlitestore.Config{Path: cfg.Path}, logger)
}

// NewWriter creates a writer that appends to the SQLite store.
func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	cfg, err := parseConfig(configData)
	if err != nil {
		return nil, err
	}
	store, err := sqlitestore.New(sqlitestore.Config{Path: cfg.Path}, logger)
	if err != nil {
		return nil, err
	}
	return buffered.NewStoreWriter(store, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushInterval) * time.Second,
	}, logger), nil
}
