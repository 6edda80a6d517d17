package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momoledger/smsledger/internal/plugins"
	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/config"
	"github.com/momoledger/smsledger/pkg/reader/smsxml"
	jsonstore "github.com/momoledger/smsledger/pkg/writer/json"
)

const document = `<?xml version="1.0"?>
<smses>
  <sms protocol="0" address="M-Money" body="You have received 2000 RWF from Jane Smith (*013) at 2024-05-10 16:30:51." />
  <sms protocol="0" address="M-Money" body="TxId: 111. Your payment of 1,000 RWF to Jane Smith 12845 has been completed." />
  <sms protocol="0" address="M-Money" body="Your balance is low." />
</smses>`

type sliceReader struct {
	records []api.Record
	err     error
}

func (r *sliceReader) Read(ctx context.Context, out chan<- api.Record) error {
	defer close(out)
	for _, rec := range r.records {
		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.err
}

type collectWriter struct {
	got []api.Record
	err error
}

func (w *collectWriter) Write(_ context.Context, in <-chan api.Record) error {
	if w.err != nil {
		return w.err
	}
	for rec := range in {
		w.got = append(w.got, rec)
	}
	return nil
}

func typed(t string) api.Record {
	r := api.Record{}
	r.Set(api.FieldTransactionType, t)
	return r
}

func TestPipe_TalliesAndForwards(t *testing.T) {
	reader := &sliceReader{records: []api.Record{typed("credit"), typed("debit"), typed("debit"), {}}}
	writer := &collectWriter{}

	result, err := New(nil, nil, nil).Pipe(context.Background(), reader, writer)
	if err != nil {
		t.Fatalf("pipe failed: %v", err)
	}

	if result.Records != 4 || len(writer.got) != 4 {
		t.Errorf("records: got %d counted, %d written", result.Records, len(writer.got))
	}
	if result.ByType["debit"] != 2 || result.ByType["credit"] != 1 || result.ByType["other"] != 1 {
		t.Errorf("by type: got %v", result.ByType)
	}
}

func TestPipe_ReaderError(t *testing.T) {
	reader := &sliceReader{err: smsxml.ErrMalformedDocument}

	_, err := New(nil, nil, nil).Pipe(context.Background(), reader, &collectWriter{})
	if !errors.Is(err, smsxml.ErrMalformedDocument) {
		t.Errorf("expected reader error, got %v", err)
	}
}

func TestPipe_WriterErrorDoesNotHang(t *testing.T) {
	records := make([]api.Record, 500)
	for i := range records {
		records[i] = typed("credit")
	}
	reader := &sliceReader{records: records}
	writer := &collectWriter{err: errors.New("disk full")}

	done := make(chan error, 1)
	go func() {
		_, err := New(nil, nil, nil).Pipe(context.Background(), reader, writer)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil || errors.Is(err, context.Canceled) {
			t.Errorf("expected only the writer error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline hung after writer failure")
	}
}

func TestRun_XMLToJSON(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "export.xml")
	if err := os.WriteFile(source, []byte(document), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Source = source
	cfg.JSONPath = filepath.Join(dir, "processed", "records.json")

	registry, err := plugins.Builtin()
	if err != nil {
		t.Fatal(err)
	}

	result, err := New(registry, nil, nil).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Records != 3 || result.ByType["other"] != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	store, err := jsonstore.New(jsonstore.Config{FilePath: cfg.JSONPath}, nil)
	if err != nil {
		t.Fatal(err)
	}
	records, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[1].TransactionID() != "111" {
		t.Errorf("unexpected stored records: %v", records)
	}
}

func TestRun_UnknownWriter(t *testing.T) {
	cfg := config.Default()
	cfg.WriterPlugin = "kafka"
	cfg.WriterConfig = `{}`

	registry, err := plugins.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(registry, nil, nil).Run(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown writer")
	}
}
