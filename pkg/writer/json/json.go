// Package json implements a Store that keeps records in a JSON array file.
package json

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/momoledger/smsledger/pkg/api"
)

// Store reads and rewrites the whole JSON file on every operation
// (JSON doesn't support appending).
type Store struct {
	filePath string
	logger   *slog.Logger
}

// Config holds configuration for the JSON store.
type Config struct {
	// FilePath is the path to the JSON records file.
	FilePath string
}

// New creates a new JSON store. The file and its directory are created on
// the first save.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, errors.New("file path is required")
	}

	logger.Debug("json store initialized", "file", cfg.FilePath)
	return &Store{
		filePath: cfg.FilePath,
		logger:   logger,
	}, nil
}

// LoadAll reads the collection. A missing or empty file is an empty collection.
func (s *Store) LoadAll(_ context.Context) ([]api.Record, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []api.Record{}, nil
		}
		return nil, fmt.Errorf("reading json file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []api.Record{}, nil
	}

	var records []api.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding json file: %w", err)
	}
	if records == nil {
		records = []api.Record{}
	}
	return records, nil
}

// SaveAll writes the whole collection, indented, through a temp file that is
// renamed over the target.
func (s *Store) SaveAll(_ context.Context, records []api.Record) error {
	if records == nil {
		records = []api.Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating json directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing json file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing json file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		return fmt.Errorf("replacing json file: %w", err)
	}

	s.logger.Debug("wrote records to json", "file", s.filePath, "total_count", len(records))
	return nil
}

// Close is a no-op; the file is not held open between operations.
func (s *Store) Close() error { return nil }

// FilePath returns the path of the backing file.
func (s *Store) FilePath() string {
	return s.filePath
}
