// Package smsxml implements a Reader that normalizes an SMS backup XML export
// into transaction records.
package smsxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/extract"
)

// ErrMalformedDocument is returned when the export is not well-formed XML.
var ErrMalformedDocument = errors.New("malformed sms document")

// RawMessage holds the attributes of one sms element. A nil field means the
// attribute was not present.
type RawMessage struct {
	Protocol      *string `xml:"protocol,attr"`
	Address       *string `xml:"address,attr"`
	Date          *string `xml:"date,attr"`
	Type          *string `xml:"type,attr"`
	Subject       *string `xml:"subject,attr"`
	Body          *string `xml:"body,attr"`
	TOA           *string `xml:"toa,attr"`
	SCTOA         *string `xml:"sc_toa,attr"`
	ServiceCenter *string `xml:"service_center,attr"`
	Read          *string `xml:"read,attr"`
	Status        *string `xml:"status,attr"`
	Locked        *string `xml:"locked,attr"`
	DateSent      *string `xml:"date_sent,attr"`
	SubID         *string `xml:"sub_id,attr"`
	ReadableDate  *string `xml:"readable_date,attr"`
	ContactName   *string `xml:"contact_name,attr"`
}

type document struct {
	Messages []RawMessage `xml:"sms"`
}

// attributes returns the raw fields keyed by attribute name.
func (m RawMessage) attributes() api.Record {
	return api.Record{
		api.FieldProtocol:      m.Protocol,
		api.FieldAddress:       m.Address,
		api.FieldDate:          m.Date,
		api.FieldType:          m.Type,
		api.FieldSubject:       m.Subject,
		api.FieldBody:          m.Body,
		api.FieldTOA:           m.TOA,
		api.FieldSCTOA:         m.SCTOA,
		api.FieldServiceCenter: m.ServiceCenter,
		api.FieldRead:          m.Read,
		api.FieldStatus:        m.Status,
		api.FieldLocked:        m.Locked,
		api.FieldDateSent:      m.DateSent,
		api.FieldSubID:         m.SubID,
		api.FieldReadableDate:  m.ReadableDate,
		api.FieldContactName:   m.ContactName,
	}
}

// Normalize merges the raw attributes of m with the fields extracted from its
// body. Extracted fields win on key collision.
func Normalize(m RawMessage) api.Record {
	rec := m.attributes().Clone()

	var body string
	if m.Body != nil {
		body = *m.Body
	}
	extract.Extract(body).Apply(rec)

	return rec
}

// ParseDocument decodes an export and normalizes every direct sms child of
// the root element, in document order. If the document is not well-formed no
// records are returned.
func ParseDocument(data []byte) ([]api.Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(normalizeAttributeWhitespace(data)))
	dec.CharsetReader = charsetReader

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := checkTrailing(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	records := make([]api.Record, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		records = append(records, Normalize(m))
	}
	return records, nil
}

// charsetReader decodes documents that declare an encoding other than UTF-8.
// IANA names are tried first so ISO-8859-1 maps to Latin-1 exactly; WHATWG
// labels cover spellings such as "UTF8" and "US-ASCII".
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	var enc encoding.Encoding
	if e, err := ianaindex.IANA.Encoding(label); err == nil && e != nil {
		enc = e
	} else if e, err := htmlindex.Get(label); err == nil {
		enc = e
	} else {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// normalizeAttributeWhitespace replaces literal tabs, carriage returns and
// newlines inside quoted attribute values with spaces, as XML attribute-value
// normalization requires. A CRLF pair becomes one space. Character references
// such as &#10; are untouched, so encoded newlines survive decoding.
// Comments, CDATA sections, processing instructions and declarations are
// copied as they are.
func normalizeAttributeWhitespace(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if data[i] != '<' {
			out = append(out, data[i])
			i++
			continue
		}

		rest := data[i:]
		var end []byte
		switch {
		case bytes.HasPrefix(rest, []byte("<!--")):
			end = []byte("-->")
		case bytes.HasPrefix(rest, []byte("<![CDATA[")):
			end = []byte("]]>")
		case bytes.HasPrefix(rest, []byte("<?")):
			end = []byte("?>")
		case bytes.HasPrefix(rest, []byte("<!")):
			end = []byte(">")
		}
		if end != nil {
			n := bytes.Index(rest, end)
			if n < 0 {
				return append(out, rest...)
			}
			n += len(end)
			out = append(out, rest[:n]...)
			i += n
			continue
		}

		out, i = copyTag(out, data, i)
	}
	return out
}

// copyTag copies the tag starting at data[i] up to and including its closing
// '>', rewriting whitespace inside quoted values. It returns the index just
// past the tag.
func copyTag(out, data []byte, i int) ([]byte, int) {
	var quote byte
	for ; i < len(data); i++ {
		c := data[i]
		switch {
		case quote == 0 && c == '>':
			return append(out, c), i + 1
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0 && c == '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			c = ' '
		case quote != 0 && (c == '\n' || c == '\t'):
			c = ' '
		}
		out = append(out, c)
	}
	return out, i
}

// checkTrailing rejects anything but whitespace, comments and processing
// instructions after the root element.
func checkTrailing(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("junk after document element: <%s>", t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return errors.New("junk after document element")
			}
		}
	}
}

// Config holds configuration for the XML reader.
type Config struct {
	// Path is the XML export to read.
	Path string
}

// Reader reads one XML export and emits its records.
type Reader struct {
	path   string
	logger *slog.Logger
}

// New creates a new XML reader.
func New(cfg Config, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("path is required")
	}

	return &Reader{
		path:   cfg.Path,
		logger: logger,
	}, nil
}

// Read parses the whole export before emitting anything, so a malformed
// document produces no records at all. The output channel is always closed.
func (r *Reader) Read(ctx context.Context, out chan<- api.Record) error {
	defer close(out)

	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("reading sms export: %w", err)
	}

	records, err := ParseDocument(data)
	if err != nil {
		r.logger.Error("failed to parse sms export", "path", r.path, "error", err)
		return err
	}

	r.logger.Info("parsed sms export", "path", r.path, "count", len(records))

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- rec:
		}
	}

	return nil
}
