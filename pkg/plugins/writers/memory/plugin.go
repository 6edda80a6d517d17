// Package memory provides a plugin wrapper for the in-process store.
package memory

import (
	"encoding/json"
	"log/slog"

	"github.com/momoledger/smsledger/pkg/api"
	memstore "github.com/momoledger/smsledger/pkg/writer/memory"
)

// Plugin implements the StorePlugin interface for an in-memory collection.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "memory"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Keep SMS records in memory; contents are lost on exit"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return nil
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// NewStore creates an empty in-memory store.
func (p *Plugin) NewStore(_ json.RawMessage, _ *slog.Logger) (api.Store, error) {
	return memstore.New(), nil
}
