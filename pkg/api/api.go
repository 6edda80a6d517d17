// Package api defines the core interfaces and data structures for smsledger.
package api

import (
	"context"
	"maps"
)

// Raw message attribute names, as they appear on an sms element of the export.
const (
	FieldProtocol      = "protocol"
	FieldAddress       = "address"
	FieldDate          = "date"
	FieldType          = "type"
	FieldSubject       = "subject"
	FieldBody          = "body"
	FieldTOA           = "toa"
	FieldSCTOA         = "sc_toa"
	FieldServiceCenter = "service_center"
	FieldRead          = "read"
	FieldStatus        = "status"
	FieldLocked        = "locked"
	FieldDateSent      = "date_sent"
	FieldSubID         = "sub_id"
	FieldReadableDate  = "readable_date"
	FieldContactName   = "contact_name"
)

// Extracted field names, derived from the message body.
const (
	FieldAmount          = "amount"
	FieldTransactionType = "transaction_type"
	FieldBalance         = "balance"
	FieldCounterparty    = "counterparty"
	FieldTransactionID   = "transaction_id"
	FieldTransactionDate = "transaction_date"
)

// RawFields lists the raw attribute names in export order.
// Create and update payloads must carry every one of them.
var RawFields = []string{
	FieldProtocol, FieldAddress, FieldDate, FieldType, FieldSubject, FieldBody,
	FieldTOA, FieldSCTOA, FieldServiceCenter, FieldRead, FieldStatus, FieldLocked,
	FieldDateSent, FieldSubID, FieldReadableDate, FieldContactName,
}

// ExtractedFields lists the derived field names in column order.
var ExtractedFields = []string{
	FieldAmount, FieldTransactionType, FieldBalance,
	FieldCounterparty, FieldTransactionID, FieldTransactionDate,
}

// Columns returns raw and extracted field names in a stable order for tabular sinks.
func Columns() []string {
	cols := make([]string, 0, len(RawFields)+len(ExtractedFields))
	cols = append(cols, RawFields...)
	return append(cols, ExtractedFields...)
}

// Record is one normalized message: raw attributes merged with extracted fields.
//
// A raw attribute missing from the source element is present with a nil value
// (serialized as null). An extracted field that could not be found is absent.
type Record map[string]*string

// Get returns the value for key and whether it is set to a non-null value.
func (r Record) Get(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Set stores value under key.
func (r Record) Set(key, value string) {
	r[key] = &value
}

// TransactionID returns the record's external identifier, or "" if it has none.
func (r Record) TransactionID() string {
	id, _ := r.Get(FieldTransactionID)
	return id
}

// Merge overwrites r's keys with every key of other.
func (r Record) Merge(other Record) {
	for k, v := range other {
		if v == nil {
			r[k] = nil
			continue
		}
		val := *v
		r[k] = &val
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	out.Merge(r)
	return out
}

// Missing returns the names in keys that are not present in r at all.
// A key present with a null value is not missing.
func (r Record) Missing(keys []string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := r[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Equal reports whether r and other hold the same keys and values.
func (r Record) Equal(other Record) bool {
	return maps.EqualFunc(r, other, func(a, b *string) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	})
}

// Reader reads records from a source and sends them to the provided channel.
// Implementations close the channel when done or on error.
type Reader interface {
	Read(ctx context.Context, out chan<- Record) error
}

// Writer consumes records from a channel and writes them to a destination.
// It returns once the channel is closed and everything received is written.
type Writer interface {
	Write(ctx context.Context, in <-chan Record) error
}

// Store persists the full record collection. Both operations work on the whole
// collection, preserving order.
type Store interface {
	LoadAll(ctx context.Context) ([]Record, error)
	SaveAll(ctx context.Context, records []Record) error
	Close() error
}
