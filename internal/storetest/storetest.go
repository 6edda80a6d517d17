// Package storetest provides an api.Store wrapper for tests that counts
// successful saves and can be told to fail them.
package storetest

import (
	"context"
	"sync"

	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/writer/memory"
)

// Store wraps another Store.
type Store struct {
	api.Store

	mu      sync.Mutex
	saves   int
	saveErr error
}

// Wrap returns a Store that delegates to s.
func Wrap(s api.Store) *Store {
	return &Store{Store: s}
}

// New wraps an in-memory store seeded with records.
func New(records ...api.Record) *Store {
	return Wrap(memory.New(records...))
}

// SaveAll delegates unless a failure has been set with FailSaves.
func (s *Store) SaveAll(ctx context.Context, records []api.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if err := s.Store.SaveAll(ctx, records); err != nil {
		return err
	}
	s.saves++
	return nil
}

// Saves returns how many times SaveAll succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FailSaves makes every following SaveAll return err. A nil err clears it.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}
