// Package smsxml provides a plugin wrapper for the SMS backup XML reader.
package smsxml

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/momoledger/smsledger/pkg/api"
	xmlreader "github.com/momoledger/smsledger/pkg/reader/smsxml"
)

// Plugin implements the ReaderPlugin interface for SMS backup exports.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "smsxml"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Read mobile-money notifications from an SMS backup XML export"
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
			"filePath": map[string]any{
				"type":        "string",
				"description": "Path to the XML export (root element with repeated sms children)",
			},
		},
		"required": []string{"filePath"},
	}
}

// Config represents the reader configuration.
type Config struct {
	FilePath string `json:"filePath"`
}

// NewReader creates a new XML reader instance.
func (p *Plugin) NewReader(configData json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling smsxml config: %w", err)
	}
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	return xmlreader.New(xmlreader.Config{Path: cfg.FilePath}, logger)
}
