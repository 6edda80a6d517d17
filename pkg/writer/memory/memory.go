// Package memory implements an in-process Store, useful for ephemeral servers and tests.
package memory

import (
	"context"
	"sync"

	"github.com/momoledger/smsledger/pkg/api"
)

// Store keeps the record collection in memory. Records are copied on the way
// in and out so callers never share maps with the store.
type Store struct {
	mu      sync.Mutex
	records []api.Record
}

// New creates a store seeded with records.
func New(records ...api.Record) *Store {
	return &Store{records: cloneAll(records)}
}

// LoadAll returns a copy of the collection.
func (s *Store) LoadAll(_ context.Context) ([]api.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.records), nil
}

// SaveAll replaces the collection.
func (s *Store) SaveAll(_ context.Context, records []api.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cloneAll(records)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneAll(records []api.Record) []api.Record {
	out := make([]api.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
