package smsxml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/momoledger/smsledger/pkg/api"
)

func str(s string) *string { return &s }

func TestParseDocument_EndToEnd(t *testing.T) {
	doc := `<smses><sms protocol="0" address="M-Money" body="You have received 10000 RWF from John Doe (250788123456) . Your new balance: 25000 RWF. TxId: 987654. 2024-01-15 10:30:00" /></smses>`

	records, err := ParseDocument([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	want := map[string]string{
		api.FieldAmount:          "10000",
		api.FieldTransactionType: "credit",
		api.FieldBalance:         "25000",
		api.FieldCounterparty:    "John Doe",
		api.FieldTransactionID:   "987654",
		api.FieldTransactionDate: "2024-01-15 10:30:00",
		api.FieldAddress:         "M-Money",
		api.FieldProtocol:        "0",
	}
	for key, wantVal := range want {
		got, ok := records[0].Get(key)
		if !ok || got != wantVal {
			t.Errorf("%s: got %q (set=%v), want %q", key, got, ok, wantVal)
		}
	}
}

func TestParseDocument_Fixture(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "sample.xml"))
	if err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}

	records, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (non-sms elements are skipped)", len(records))
	}

	tests := []struct {
		name         string
		rec          api.Record
		amount       string
		txType       string
		balance      string
		counterparty string
		txID         string
	}{
		{"incoming", records[0], "2000", "credit", "2000", "Jane Smith", ""},
		{"payment", records[1], "1000", "debit", "1000", "Jane Smith", "73214484437"},
		{"deposit", records[2], "40000", "deposit", "40400", "your mobile money account at", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			check := func(key, want string) {
				got, _ := tc.rec.Get(key)
				if got != want {
					t.Errorf("%s: got %q, want %q", key, got, want)
				}
			}
			check(api.FieldAmount, tc.amount)
			check(api.FieldTransactionType, tc.txType)
			check(api.FieldBalance, tc.balance)
			check(api.FieldCounterparty, tc.counterparty)
			check(api.FieldTransactionID, tc.txID)
		})
	}

	if got := records[1].TransactionID(); got != "73214484437" {
		t.Errorf("order not preserved: second record id %q", got)
	}
}

func TestParseDocument_MissingAttributesAreNull(t *testing.T) {
	records, err := ParseDocument([]byte(`<smses><sms address="M-Money" body="hello" /></smses>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := records[0]
	for _, field := range api.RawFields {
		v, present := rec[field]
		if !present {
			t.Errorf("%s: raw field missing from record", field)
			continue
		}
		switch field {
		case api.FieldAddress, api.FieldBody:
			if v == nil {
				t.Errorf("%s: expected value, got null", field)
			}
		default:
			if v != nil {
				t.Errorf("%s: expected null, got %q", field, *v)
			}
		}
	}

	if _, present := rec[api.FieldAmount]; present {
		t.Error("amount: expected absent key")
	}
	if v, _ := rec.Get(api.FieldTransactionType); v != "other" {
		t.Errorf("transaction_type: got %q, want other", v)
	}
}

func TestNormalize_PreservesRawFields(t *testing.T) {
	raw := RawMessage{
		Protocol:     str("0"),
		Address:      str("M-Money"),
		Date:         str("1715351317000"),
		Type:         str("1"),
		Body:         str("You have received 500 RWF from Ann (2507). TxId: 11"),
		ReadableDate: str("10 May 2024 4:30:58 PM"),
		ContactName:  str("(Unknown)"),
	}

	rec := Normalize(raw)

	if !raw.attributes().Equal(pick(rec, api.RawFields)) {
		t.Errorf("raw fields changed by normalization: %v", rec)
	}
	if got := rec.TransactionID(); got != "11" {
		t.Errorf("transaction_id: got %q, want 11", got)
	}

	// The record does not alias the message.
	rec.Set(api.FieldAddress, "changed")
	if *raw.Address != "M-Money" {
		t.Error("normalized record aliases raw message storage")
	}
}

func TestNormalize_NilBody(t *testing.T) {
	rec := Normalize(RawMessage{Address: str("M-Money")})

	if v, present := rec[api.FieldBody]; !present || v != nil {
		t.Errorf("body: expected null value, got %v", v)
	}
	if v, _ := rec.Get(api.FieldTransactionType); v != "other" {
		t.Errorf("transaction_type: got %q, want other", v)
	}
}

func TestParseDocument_Malformed(t *testing.T) {
	tests := map[string]string{
		"unclosed tag":        `<smses><sms body="You have received 500 RWF" />`,
		"empty input":         ``,
		"junk after root":     `<smses></smses><smses></smses>`,
		"text after root":     `<smses></smses>trailing`,
		"unterminated attr":   `<smses><sms body="x /></smses>`,
		"mismatched end tags": `<smses><sms></smss></smses>`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			records, err := ParseDocument([]byte(doc))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("expected ErrMalformedDocument, got %v", err)
			}
			if records != nil {
				t.Errorf("expected no records, got %d", len(records))
			}
		})
	}
}

func TestParseDocument_DeclaredEncodings(t *testing.T) {
	for _, enc := range []string{"UTF-8", "utf-8", "UTF8", "US-ASCII", "ISO-8859-1", "windows-1252"} {
		t.Run(enc, func(t *testing.T) {
			doc := `<?xml version="1.0" encoding="` + enc + `"?><smses><sms address="M-Money" body="You have received 500 RWF" /></smses>`

			records, err := ParseDocument([]byte(doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if v, _ := records[0].Get(api.FieldAmount); v != "500" {
				t.Errorf("amount: got %q, want 500", v)
			}
		})
	}
}

func TestParseDocument_Latin1Body(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><smses><sms body=\"You have received 500 RWF from Ren\xe9 (2507)\" /></smses>")

	records, err := ParseDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := records[0].Get(api.FieldCounterparty); v != "René" {
		t.Errorf("counterparty: got %q, want René", v)
	}
}

func TestParseDocument_UnknownEncoding(t *testing.T) {
	doc := `<?xml version="1.0" encoding="x-no-such-charset"?><smses><sms body="x" /></smses>`

	records, err := ParseDocument([]byte(doc))
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument, got %v", err)
	}
	if records != nil {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestParseDocument_AttributeWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantBody string
		amount   string
	}{
		{
			name:     "literal newline",
			body:     "TxId: 5. 1,000 RWF transferred to Ann\n 250 for 2,000 RWF",
			wantBody: "TxId: 5. 1,000 RWF transferred to Ann  250 for 2,000 RWF",
			amount:   "2000",
		},
		{
			name:     "crlf and tab",
			body:     "You have\r\nreceived\t700 RWF",
			wantBody: "You have received 700 RWF",
		},
		{
			name:     "character reference kept",
			body:     "You have received 700 RWF&#10;Thanks",
			wantBody: "You have received 700 RWF\nThanks",
			amount:   "700",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "<smses>\n  <sms address=\"M-Money\" body=\"" + tt.body + "\" />\n</smses>"

			records, err := ParseDocument([]byte(doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if v, _ := records[0].Get(api.FieldBody); v != tt.wantBody {
				t.Errorf("body: got %q, want %q", v, tt.wantBody)
			}
			if tt.amount != "" {
				if v, _ := records[0].Get(api.FieldAmount); v != tt.amount {
					t.Errorf("amount: got %q, want %q", v, tt.amount)
				}
			}
		})
	}
}

func TestNormalizeAttributeWhitespace_LeavesMarkupAlone(t *testing.T) {
	in := "<?xml version=\"1.0\"?>\n<!-- a\tcomment -->\n<smses>\n\t<sms body=\"a\tb\" note='c\nd'/>\n</smses>\n"
	want := "<?xml version=\"1.0\"?>\n<!-- a\tcomment -->\n<smses>\n\t<sms body=\"a b\" note='c d'/>\n</smses>\n"

	if got := string(normalizeAttributeWhitespace([]byte(in))); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseDocument_TrailingCommentAllowed(t *testing.T) {
	records, err := ParseDocument([]byte("<smses><sms body=\"x\"/></smses>\n<!-- end -->\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestReader_Read(t *testing.T) {
	reader, err := New(Config{Path: filepath.Join("testdata", "sample.xml")}, nil)
	if err != nil {
		t.Fatalf("failed to create reader: %v", err)
	}

	out := make(chan api.Record, 10)
	if err := reader.Read(context.Background(), out); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var got []api.Record
	for rec := range out {
		got = append(got, rec)
	}
	if len(got) != 3 {
		t.Errorf("got %d records, want 3", len(got))
	}
}

func TestReader_ReadMalformed(t *testing.T) {
	reader, err := New(Config{Path: filepath.Join("testdata", "malformed.xml")}, nil)
	if err != nil {
		t.Fatalf("failed to create reader: %v", err)
	}

	out := make(chan api.Record, 10)
	err = reader.Read(context.Background(), out)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}

	count := 0
	for range out {
		count++
	}
	if count != 0 {
		t.Errorf("malformed document emitted %d records", count)
	}
}

func TestReader_MissingFile(t *testing.T) {
	reader, err := New(Config{Path: filepath.Join(t.TempDir(), "missing.xml")}, nil)
	if err != nil {
		t.Fatalf("failed to create reader: %v", err)
	}

	out := make(chan api.Record)
	if err := reader.Read(context.Background(), out); err == nil {
		t.Error("expected error for missing file")
	}
	if _, open := <-out; open {
		t.Error("output channel not closed")
	}
}

func TestNew_RequiresPath(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected error for empty path")
	}
}

func pick(rec api.Record, keys []string) api.Record {
	out := api.Record{}
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			out[k] = v
		}
	}
	return out
}
