package csv

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/momoledger/smsledger/pkg/api"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	return rows
}

func writeAll(t *testing.T, path string, records ...api.Record) {
	t.Helper()
	w, err := New(Config{FilePath: path, BatchSize: 2}, nil)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	in := make(chan api.Record, len(records))
	for _, r := range records {
		in <- r
	}
	close(in)

	if err := w.Write(context.Background(), in); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestWrite_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "records.csv")

	rec := api.Record{api.FieldSubject: nil}
	rec.Set(api.FieldAddress, "M-Money")
	rec.Set(api.FieldBody, "payment of 1,000 RWF to Jane, ok")
	rec.Set(api.FieldAmount, "1000")

	writeAll(t, path, rec, api.Record{})

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	cols := api.Columns()
	if len(rows[0]) != len(cols) || rows[0][0] != cols[0] {
		t.Errorf("unexpected header: %v", rows[0])
	}

	index := map[string]int{}
	for i, c := range rows[0] {
		index[c] = i
	}
	if got := rows[1][index[api.FieldBody]]; got != "payment of 1,000 RWF to Jane, ok" {
		t.Errorf("body: got %q", got)
	}
	if got := rows[1][index[api.FieldAmount]]; got != "1000" {
		t.Errorf("amount: got %q", got)
	}
	if got := rows[1][index[api.FieldSubject]]; got != "" {
		t.Errorf("null subject should be empty, got %q", got)
	}
}

func TestWrite_AppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")

	first := api.Record{}
	first.Set(api.FieldTransactionID, "1")
	second := api.Record{}
	second.Set(api.FieldTransactionID, "2")

	writeAll(t, path, first)
	writeAll(t, path, second)

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2", len(rows))
	}
}

func TestRow_Order(t *testing.T) {
	rec := api.Record{}
	rec.Set("b", "2")
	rec.Set("a", "1")

	row := Row([]string{"a", "missing", "b"}, rec)
	if row[0] != "1" || row[1] != "" || row[2] != "2" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestNew_RequiresPath(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected error for empty path")
	}
}
