// Package plugins provides a plugin registry for readers, writers and stores.
package plugins

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/momoledger/smsledger/pkg/api"
)

// Plugin is the metadata every plugin exposes.
type Plugin interface {
	// Name returns the plugin name (e.g., "smsxml", "json").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// RequiredScopes returns the OAuth scopes needed by this plugin.
	RequiredScopes() []string
	// ConfigSchema returns a JSON schema describing the plugin's configuration.
	ConfigSchema() map[string]any
}

// ReaderPlugin creates record readers.
type ReaderPlugin interface {
	Plugin
	// NewReader creates a new reader instance with the given config.
	NewReader(config json.RawMessage, logger *slog.Logger) (api.Reader, error)
}

// WriterPlugin creates record writers.
type WriterPlugin interface {
	Plugin
	// NewWriter creates a new writer instance with the given config.
	// httpClient is only used by plugins that call remote APIs and may be nil otherwise.
	NewWriter(httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Writer, error)
}

// StorePlugin creates full-collection stores for the CRUD API.
type StorePlugin interface {
	Plugin
	// NewStore creates a new store instance with the given config.
	NewStore(config json.RawMessage, logger *slog.Logger) (api.Store, error)
}

// Registry manages available plugins.
type Registry struct {
	readers map[string]ReaderPlugin
	writers map[string]WriterPlugin
	stores  map[string]StorePlugin
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]ReaderPlugin),
		writers: make(map[string]WriterPlugin),
		stores:  make(map[string]StorePlugin),
	}
}

// RegisterReader registers a reader plugin.
func (r *Registry) RegisterReader(plugin ReaderPlugin) error {
	return register(r.readers, "reader", plugin)
}

// RegisterWriter registers a writer plugin.
func (r *Registry) RegisterWriter(plugin WriterPlugin) error {
	return register(r.writers, "writer", plugin)
}

// RegisterStore registers a store plugin.
func (r *Registry) RegisterStore(plugin StorePlugin) error {
	return register(r.stores, "store", plugin)
}

func register[P Plugin](m map[string]P, kind string, plugin P) error {
	name := plugin.Name()
	if _, exists := m[name]; exists {
		return fmt.Errorf("%s plugin %q already registered", kind, name)
	}
	m[name] = plugin
	return nil
}

// GetReader returns a reader plugin by name.
func (r *Registry) GetReader(name string) (ReaderPlugin, error) {
	return lookup(r.readers, "reader", name)
}

// GetWriter returns a writer plugin by name.
func (r *Registry) GetWriter(name string) (WriterPlugin, error) {
	return lookup(r.writers, "writer", name)
}

// GetStore returns a store plugin by name.
func (r *Registry) GetStore(name string) (StorePlugin, error) {
	return lookup(r.stores, "store", name)
}

func lookup[P Plugin](m map[string]P, kind, name string) (P, error) {
	plugin, exists := m[name]
	if !exists {
		var zero P
		return zero, fmt.Errorf("%s plugin %q not found", kind, name)
	}
	return plugin, nil
}

// ListReaders returns all registered reader plugins sorted by name.
func (r *Registry) ListReaders() []ReaderPlugin {
	return sorted(r.readers)
}

// ListWriters returns all registered writer plugins sorted by name.
func (r *Registry) ListWriters() []WriterPlugin {
	return sorted(r.writers)
}

// ListStores returns all registered store plugins sorted by name.
func (r *Registry) ListStores() []StorePlugin {
	return sorted(r.stores)
}

func sorted[P Plugin](m map[string]P) []P {
	plugins := make([]P, 0, len(m))
	for _, plugin := range m {
		plugins = append(plugins, plugin)
	}
	slices.SortFunc(plugins, func(a, b P) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return plugins
}

// WriterScopes returns the OAuth scopes the named writer needs.
func (r *Registry) WriterScopes(name string) ([]string, error) {
	writer, err := r.GetWriter(name)
	if err != nil {
		return nil, err
	}
	return writer.RequiredScopes(), nil
}

// CreateReader creates a reader instance from a plugin.
func (r *Registry) CreateReader(name string, config json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	plugin, err := r.GetReader(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewReader(config, logger)
}

// CreateWriter creates a writer instance from a plugin.
func (r *Registry) CreateWriter(name string, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	plugin, err := r.GetWriter(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewWriter(httpClient, config, logger)
}

// CreateStore creates a store instance from a plugin.
func (r *Registry) CreateStore(name string, config json.RawMessage, logger *slog.Logger) (api.Store, error) {
	plugin, err := r.GetStore(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewStore(config, logger)
}
