// Package json provides a plugin wrapper for the JSON file store.
package json

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/writer/buffered"
	jsonstore "github.com/momoledger/smsledger/pkg/writer/json"
)

// Plugin implements the WriterPlugin and StorePlugin interfaces for JSON files.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "json"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Keep SMS records in an indented JSON array file"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	// JSON store doesn't need OAuth scopes
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filePath": map[string]any{
				"type":        "string",
				"description": "Path to the JSON records file",
			},
			"batchSize": map[string]any{
				"type":        "integer",
				"description": "Number of records to buffer before writing (default: 100)",
				"default":     buffered.DefaultBatchSize,
			},
			"flushInterval": map[string]any{
				"type":        "integer",
				"description": "Interval in seconds between automatic flushes (default: 30)",
				"default":     30,
			},
		},
		"required": []string{"filePath"},
	}
}

// Config represents the JSON store configuration.
type Config struct {
	FilePath      string `json:"filePath"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"` // in seconds
}

func parseConfig(configData json.RawMessage) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling json config: %w", err)
	}
	if cfg.FilePath == "" {
		return cfg, fmt.Errorf("filePath is required")
	}
	return cfg, nil
}

// NewStore creates a new JSON store instance.
func (p *Plugin) NewStore(configData json.RawMessage, logger *slog.Logger) (api.Store, error) {
	cfg, err := parseConfig(configData)
	if err != nil {
		return nil, err
	}
	return jsonstore.New(jsonstore.Config{FilePath: cfg.FilePath}, logger)
}

// NewWriter creates a writer that appends to the JSON store.
func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	cfg, err := parseConfig(configData)
	if err != nil {
		return nil, err
	}
	store, err := jsonstore.New(jsonstore.Config{FilePath: cfg.FilePath}, logger)
	if err != nil {
		return nil, err
	}
	return buffered.NewStoreWriter(store, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushInterval) * time.Second,
	}, logger), nil
}
