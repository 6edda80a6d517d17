package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/momoledger/smsledger/pkg/api"
)

func TestStore_CountsAndFailsSaves(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.SaveAll(ctx, []api.Record{{}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if s.Saves() != 1 {
		t.Errorf("saves: got %d, want 1", s.Saves())
	}

	s.FailSaves(errors.New("read-only"))
	if err := s.SaveAll(ctx, nil); err == nil {
		t.Error("expected injected error")
	}
	records, _ := s.LoadAll(ctx)
	if len(records) != 1 || s.Saves() != 1 {
		t.Errorf("failed save changed state: %d records, %d saves", len(records), s.Saves())
	}

	s.FailSaves(nil)
	if err := s.SaveAll(ctx, nil); err != nil {
		t.Errorf("save after clearing failure: %v", err)
	}
}
