// Package ledger provides create, read, update and delete access to the
// persisted record collection, plus XML ingest and per-type summaries.
//
// Every operation loads the full collection, changes it and saves it back
// while holding one lock, so concurrent callers never lose updates.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/extract"
	"github.com/momoledger/smsledger/pkg/reader/smsxml"
)

var (
	// ErrNotFound is returned when no record carries the requested transaction id.
	ErrNotFound = errors.New("transaction not found")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a payload that lacks a required field.
type ValidationError struct {
	// Field is the first missing field, empty when the payload is not an object.
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "record must be a JSON object"
	}
	return "missing field: " + e.Field
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Type    string
	Address string
}

func (f Filter) match(rec api.Record) bool {
	if f.Type != "" {
		if v, _ := rec.Get(api.FieldTransactionType); v != f.Type {
			return false
		}
	}
	if f.Address != "" {
		if v, _ := rec.Get(api.FieldAddress); v != f.Address {
			return false
		}
	}
	return true
}

// IngestResult describes one ingest run.
type IngestResult struct {
	IngestID uuid.UUID      `json:"ingest_id"`
	Records  int            `json:"records"`
	ByType   map[string]int `json:"by_type"`
}

// TypeSummary aggregates the records of one transaction type.
type TypeSummary struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Summary aggregates the whole collection.
type Summary struct {
	Records int                    `json:"records"`
	ByType  map[string]TypeSummary `json:"by_type"`
	// Unparsed counts records whose amount is set but not a number.
	Unparsed int `json:"unparsed"`
}

// Ledger serializes access to a Store.
type Ledger struct {
	mu     sync.Mutex
	store  api.Store
	logger *slog.Logger
}

// New creates a ledger over store.
func New(store api.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  store,
		logger: logger.With("component", "ledger"),
	}
}

// List returns the records matching f in stored order.
func (l *Ledger) List(ctx context.Context, f Filter) ([]api.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	out := make([]api.Record, 0, len(records))
	for _, rec := range records {
		if f.match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Get returns the first record whose transaction id equals id.
func (l *Ledger) Get(ctx context.Context, id string) (api.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	i := indexOf(records, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return records[i], nil
}

// Create validates rec and appends it to the collection.
func (l *Ledger) Create(ctx context.Context, rec api.Record) (api.Record, error) {
	if err := validate(rec); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	created := rec.Clone()
	if err := l.store.SaveAll(ctx, append(records, created)); err != nil {
		return nil, fmt.Errorf("saving records: %w", err)
	}

	l.logger.Info("record created", "transaction_id", created.TransactionID(), "total", len(records)+1)
	return created, nil
}

// Update validates rec and merges it into the first record matching id.
// Keys present in rec overwrite the stored values; extraction is not re-run.
func (l *Ledger) Update(ctx context.Context, id string, rec api.Record) (api.Record, error) {
	if err := validate(rec); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	i := indexOf(records, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	updated := records[i].Clone()
	updated.Merge(rec)
	records[i] = updated

	if err := l.store.SaveAll(ctx, records); err != nil {
		return nil, fmt.Errorf("saving records: %w", err)
	}

	l.logger.Info("record updated", "transaction_id", id)
	return updated, nil
}

// Delete removes the first record matching id and returns it.
// When nothing matches, the store is not written.
func (l *Ledger) Delete(ctx context.Context, id string) (api.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	i := indexOf(records, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	deleted := records[i]
	remaining := append(records[:i:i], records[i+1:]...)
	if err := l.store.SaveAll(ctx, remaining); err != nil {
		return nil, fmt.Errorf("saving records: %w", err)
	}

	l.logger.Info("record deleted", "transaction_id", id)
	return deleted, nil
}

// Ingest parses an XML export and appends every message as a record.
// A malformed document writes nothing.
func (l *Ledger) Ingest(ctx context.Context, document []byte) (IngestResult, error) {
	parsed, err := smsxml.ParseDocument(document)
	if err != nil {
		return IngestResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("loading records: %w", err)
	}

	if err := l.store.SaveAll(ctx, append(records, parsed...)); err != nil {
		return IngestResult{}, fmt.Errorf("saving records: %w", err)
	}

	result := IngestResult{
		IngestID: uuid.New(),
		Records:  len(parsed),
		ByType:   CountByType(parsed),
	}
	l.logger.Info("ingest completed",
		"ingest_id", result.IngestID,
		"records", result.Records,
		"by_type", result.ByType,
	)
	return result, nil
}

// Summary counts records and sums amounts per transaction type.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	l.mu.Lock()
	records, err := l.store.LoadAll(ctx)
	l.mu.Unlock()
	if err != nil {
		return Summary{}, fmt.Errorf("loading records: %w", err)
	}

	s := Summary{Records: len(records), ByType: map[string]TypeSummary{}}
	for _, rec := range records {
		typ := TypeOf(rec)
		ts := s.ByType[typ]
		ts.Count++
		if raw, ok := rec.Get(api.FieldAmount); ok {
			amount, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				s.Unparsed++
			} else {
				ts.Total = ts.Total.Add(amount)
			}
		}
		s.ByType[typ] = ts
	}
	return s, nil
}

// CountByType tallies records per transaction type. Records without a type
// count as "other".
func CountByType(records []api.Record) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[TypeOf(rec)]++
	}
	return counts
}

// TypeOf returns the record's transaction type, or "other" when it has none.
func TypeOf(rec api.Record) string {
	if v, ok := rec.Get(api.FieldTransactionType); ok && v != "" {
		return v
	}
	return string(extract.TypeOther)
}

func indexOf(records []api.Record, id string) int {
	for i, rec := range records {
		if v, ok := rec.Get(api.FieldTransactionID); ok && v == id {
			return i
		}
	}
	return -1
}

func validate(rec api.Record) error {
	if rec == nil {
		return &ValidationError{}
	}
	if missing := rec.Missing(api.RawFields); len(missing) > 0 {
		return &ValidationError{Field: missing[0]}
	}
	return nil
}
