package json

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/momoledger/smsledger/pkg/api"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{FilePath: filepath.Join(t.TempDir(), "processed", "sms_records.json")}, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestLoadAll_MissingFile(t *testing.T) {
	s := newStore(t)

	records, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty collection, got %v", records)
	}
}

func TestLoadAll_EmptyFile(t *testing.T) {
	s := newStore(t)
	if err := os.MkdirAll(filepath.Dir(s.FilePath()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.FilePath(), []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	records, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty collection, got %d records", len(records))
	}
}

func TestLoadAll_CorruptFile(t *testing.T) {
	s := newStore(t)
	if err := os.MkdirAll(filepath.Dir(s.FilePath()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.FilePath(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadAll(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestSaveAll_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := api.Record{api.FieldSubject: nil}
	first.Set(api.FieldAddress, "M-Money")
	first.Set(api.FieldBody, "You have received 500 RWF from Émile (2507) <ok>")
	first.Set(api.FieldTransactionID, "1")

	second := api.Record{}
	second.Set(api.FieldTransactionID, "2")

	if err := s.SaveAll(ctx, []api.Record{first, second}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if !got[0].Equal(first) || !got[1].Equal(second) {
		t.Errorf("round trip mismatch: %v", got)
	}
	if v, present := got[0][api.FieldSubject]; !present || v != nil {
		t.Errorf("null field not preserved: %v", v)
	}

	raw, err := os.ReadFile(s.FilePath())
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.Contains(text, "\n  {") {
		t.Error("expected indented output")
	}
	if !strings.Contains(text, "Émile") || !strings.Contains(text, "<ok>") {
		t.Errorf("expected unescaped text in output: %s", text)
	}
}

func TestSaveAll_EmptyCollection(t *testing.T) {
	s := newStore(t)

	if err := s.SaveAll(context.Background(), nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	raw, err := os.ReadFile(s.FilePath())
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Errorf("got %q, want []", raw)
	}
}

func TestSaveAll_LeavesNoTempFiles(t *testing.T) {
	s := newStore(t)
	for range 3 {
		if err := s.SaveAll(context.Background(), []api.Record{{}}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(s.FilePath()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the records file, found %d entries", len(entries))
	}
}

func TestNew_RequiresPath(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected error for empty file path")
	}
}
