// Package postgres provides a plugin wrapper for the PostgreSQL store.
package postgres

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/writer/buffered"
	pgstore "github.com/momoledger/smsledger/pkg/writer/postgres"
)

// Plugin implements the WriterPlugin and StorePlugin interfaces for PostgreSQL.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "postgres"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Keep SMS records in a PostgreSQL table as JSONB payloads"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
// PostgreSQL doesn't require OAuth scopes.
func (p *Plugin) RequiredScopes() []string {
	return []string{}
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"host": map[string]any{
				"type":        "string",
				"description": "PostgreSQL host address",
				"default":     "localhost",
			},
			"port": map[string]any{
				"type":        "integer",
				"description": "PostgreSQL port",
				"default":     5432,
			},
			"database": map[string]any{
				"type":        "string",
				"description": "Database name",
				"default":     "smsledger",
			},
			"user": map[string]any{
				"type":        "string",
				"description": "Database user",
			},
			"password": map[string]any{
				"type":        "string",
				"description": "Database password",
			},
			"sslmode": map[string]any{
				"type":        "string",
				"description": "SSL mode (disable, require, verify-ca, verify-full)",
				"default":     "disable",
				"enum":        []string{"disable", "require", "verify-ca", "verify-full"},
			},
			"dsn": map[string]any{
				"type":        "string",
				"description": "Connection string; overrides the individual fields",
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
			"maxPoolSize": map[string]any{
				"type":        "integer",
				"description": "Maximum number of connections in the pool (default: 10)",
				"default":     10,
			},
		},
	}
}

// Config represents the PostgreSQL store configuration.
type Config struct {
	Host          string `json:"host"`
	Port          int    `json:"port,omitempty"`
	Database      string `json:"database"`
	User          string `json:"user"`
	Password      string `json:"password"`
	SSLMode       string `json:"sslmode,omitempty"`
	DSN           string `json:"dsn,omitempty"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"` // in seconds
	MaxPoolSize   int    `json:"maxPoolSize,omitempty"`
}

func parseConfig(configData json.RawMessage) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling postgres config: %w", err)
	}
	if cfg.DSN != "" {
		return cfg, nil
	}

	if cfg.Host == "" {
		return cfg, fmt.Errorf("host is required")
	}
	if cfg.Database == "" {
		return cfg, fmt.Errorf("database is required")
	}
	if cfg.User == "" {
		return cfg, fmt.Errorf("user is required")
	}
	if cfg.Password == "" {
		return cfg, fmt.Errorf("password is required")
	}
	return cfg, nil
}

func (c Config) storeConfig() pgstore.Config {
	return pgstore.Config{
		Host:        c.Host,
		Port:        c.Port,
		Database:    c.Database,
		User:        c.User,
		Password:    c.Password,
		SSLMode:     c.SSLMode,
		DSN:         c.DSN,
		MaxPoolSize: c.MaxPoolSize,
	}
}

// NewStore connects to PostgreSQL.
func (p *Plugin) NewStore(configData json.RawMessage, logger *slog.Logger) (api.Store, error) {
	cfg, err := parseConfig(configData)
	if err != nil {
		return nil, err
	}
	return pgstore.New(cfg.storeConfig(), logger)
}

// NewWriter creates a writer that appends to the PostgreSQL store.
// Note: httpClient is ignored as PostgreSQL doesn't need OAuth.
func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	cfg, err := parseConfig(configData)
	if err != nil {
		return nil, err
	}
	store, err := pgstore.New(cfg.storeConfig(), logger)
	if err != nil {
		return nil, err
	}
	return buffered.NewStoreWriter(store, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushInterval) * time.Second,
	}, logger), nil
}
