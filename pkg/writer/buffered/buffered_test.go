package buffered

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/momoledger/smsledger/internal/storetest"
	"github.com/momoledger/smsledger/pkg/api"
)

func record(id string) api.Record {
	r := api.Record{}
	r.Set(api.FieldTransactionID, id)
	return r
}

type recordingFlusher struct {
	mu      sync.Mutex
	batches [][]api.Record
	err     error
}

func (f *recordingFlusher) flush(_ context.Context, records []api.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, records)
	return nil
}

func TestWrite_FlushesInBatches(t *testing.T) {
	f := &recordingFlusher{}
	w := New(f.flush, Config{BatchSize: 2, FlushInterval: time.Hour}, nil)

	in := make(chan api.Record, 5)
	for i := range 5 {
		in <- record(fmt.Sprint(i))
	}
	close(in)

	if err := w.Write(context.Background(), in); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if len(f.batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(f.batches))
	}
	sizes := []int{len(f.batches[0]), len(f.batches[1]), len(f.batches[2])}
	if sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("batch sizes: got %v, want [2 2 1]", sizes)
	}
	if got := f.batches[2][0].TransactionID(); got != "4" {
		t.Errorf("last record: got %q, want 4", got)
	}
	if w.Flushed() != 5 {
		t.Errorf("flushed: got %d, want 5", w.Flushed())
	}
	if w.BufferLen() != 0 {
		t.Errorf("buffer not drained: %d", w.BufferLen())
	}
}

func TestWrite_ReturnsFlushError(t *testing.T) {
	f := &recordingFlusher{err: errors.New("disk full")}
	w := New(f.flush, Config{BatchSize: 1}, nil)

	in := make(chan api.Record, 1)
	in <- record("1")

	err := w.Write(context.Background(), in)
	if err == nil || err.Error() != "disk full" {
		t.Errorf("expected flush error, got %v", err)
	}
}

func TestWrite_FlushesOnCancel(t *testing.T) {
	f := &recordingFlusher{}
	w := New(f.flush, Config{BatchSize: 10, FlushInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan api.Record)

	done := make(chan error, 1)
	go func() { done <- w.Write(ctx, in) }()

	in <- record("1")
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop after cancel")
	}

	if len(f.batches) != 1 || len(f.batches[0]) != 1 {
		t.Errorf("expected the buffered record to be flushed on shutdown, got %v", f.batches)
	}
}

func TestWrite_DefaultsApplied(t *testing.T) {
	w := New(nil, Config{}, nil)
	if w.config.BatchSize != DefaultBatchSize {
		t.Errorf("batch size: got %d, want %d", w.config.BatchSize, DefaultBatchSize)
	}
	if w.config.FlushInterval != DefaultFlushInterval {
		t.Errorf("flush interval: got %v, want %v", w.config.FlushInterval, DefaultFlushInterval)
	}
}

func TestStoreWriter_AppendsToExisting(t *testing.T) {
	store := storetest.New(record("existing"))
	w := NewStoreWriter(store, Config{BatchSize: 2}, nil)

	in := make(chan api.Record, 3)
	in <- record("a")
	in <- record("b")
	in <- record("c")
	close(in)

	if err := w.Write(context.Background(), in); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	records, _ := store.LoadAll(context.Background())
	var ids []string
	for _, r := range records {
		ids = append(ids, r.TransactionID())
	}
	want := []string{"existing", "a", "b", "c"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("stored ids: got %v, want %v", ids, want)
	}
	if store.Saves() != 2 {
		t.Errorf("saves: got %d, want 2", store.Saves())
	}
}

func TestStoreWriter_SaveFailure(t *testing.T) {
	store := storetest.New()
	store.FailSaves(errors.New("read-only"))
	w := NewStoreWriter(store, Config{BatchSize: 1}, nil)

	in := make(chan api.Record, 1)
	in <- record("a")
	close(in)

	if err := w.Write(context.Background(), in); err == nil {
		t.Error("expected save error")
	}
}
