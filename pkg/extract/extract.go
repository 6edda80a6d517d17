// Package extract derives transaction fields from mobile-money notification text.
//
// Each field category is an ordered list of rules evaluated until the first
// match. Categories are independent of each other: failing to find one field
// never prevents extracting another, and no input makes Extract fail.
package extract

import (
	"regexp"
	"strings"

	"github.com/momoledger/smsledger/pkg/api"
)

// TransactionType classifies a notification.
type TransactionType string

// Transaction types, in classifier priority order.
const (
	TypeCredit     TransactionType = "credit"
	TypeDebit      TransactionType = "debit"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeOther      TransactionType = "other"
)

// Fields holds the attributes extracted from one message body.
// A nil pointer means the field was not found.
type Fields struct {
	Amount          *string
	Type            TransactionType
	Balance         *string
	Counterparty    *string
	TransactionID   *string
	TransactionDate *string
}

// Apply copies the found fields into rec. Type is always written.
func (f Fields) Apply(rec api.Record) {
	setIf := func(key string, v *string) {
		if v != nil {
			rec.Set(key, *v)
		}
	}
	setIf(api.FieldAmount, f.Amount)
	rec.Set(api.FieldTransactionType, string(f.Type))
	setIf(api.FieldBalance, f.Balance)
	setIf(api.FieldCounterparty, f.Counterparty)
	setIf(api.FieldTransactionID, f.TransactionID)
	setIf(api.FieldTransactionDate, f.TransactionDate)
}

// captureRule extracts one field from the first capture group of a pattern.
type captureRule struct {
	pattern *regexp.Regexp
	clean   func(string) string
}

// keywordRule assigns a type when any keyword occurs in the lowercased body.
type keywordRule struct {
	keywords []string
	result   TransactionType
}

func stripSeparators(s string) string { return strings.ReplaceAll(s, ",", "") }

var (
	amountRules = []captureRule{
		{regexp.MustCompile(`received (\d+) RWF`), stripSeparators},
		{regexp.MustCompile(`payment of (\d+[,]?\d*) RWF`), stripSeparators},
		{regexp.MustCompile(`deposit of (\d+[,]?\d*) RWF`), stripSeparators},
		{regexp.MustCompile(`transferred to.*?(\d+[,]?\d*) RWF`), stripSeparators},
	}

	typeRules = []keywordRule{
		{[]string{"received"}, TypeCredit},
		{[]string{"payment", "transferred"}, TypeDebit},
		{[]string{"deposit"}, TypeDeposit},
		{[]string{"withdrawn"}, TypeWithdrawal},
	}

	balanceRules = []captureRule{
		{regexp.MustCompile(`(?i)balance[:\s]*([\d,]+)`), stripSeparators},
	}

	counterpartyRules = []captureRule{
		{regexp.MustCompile(`to (.*?) \d`), strings.TrimSpace},
		{regexp.MustCompile(`from (.*?) \(`), strings.TrimSpace},
		{regexp.MustCompile(`received.*?from (.*?) \(`), strings.TrimSpace},
	}

	transactionIDRules = []captureRule{
		{regexp.MustCompile(`(?i)txid:?\s*(\d+)`), nil},
	}

	transactionDateRules = []captureRule{
		{regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`), nil},
	}
)

// Extract returns the transaction fields found in body.
func Extract(body string) Fields {
	return Fields{
		Amount:          firstCapture(amountRules, body),
		Type:            classify(body),
		Balance:         firstCapture(balanceRules, body),
		Counterparty:    firstCapture(counterpartyRules, body),
		TransactionID:   firstCapture(transactionIDRules, body),
		TransactionDate: firstCapture(transactionDateRules, body),
	}
}

func firstCapture(rules []captureRule, body string) *string {
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(body)
		if len(m) < 2 {
			continue
		}
		v := m[1]
		if r.clean != nil {
			v = r.clean(v)
		}
		return &v
	}
	return nil
}

func classify(body string) TransactionType {
	lower := strings.ToLower(body)
	for _, r := range typeRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.result
			}
		}
	}
	return TypeOther
}

// RuleSet describes the patterns of one field category, in evaluation order.
type RuleSet struct {
	Field    string
	Patterns []string
}

// Rules returns the rule tables in evaluation order, for diagnostics.
func Rules() []RuleSet {
	patterns := func(rules []captureRule) []string {
		out := make([]string, len(rules))
		for i, r := range rules {
			out[i] = r.pattern.String()
		}
		return out
	}

	keywords := make([]string, 0, len(typeRules))
	for _, r := range typeRules {
		keywords = append(keywords, strings.Join(r.keywords, "|")+" => "+string(r.result))
	}

	return []RuleSet{
		{Field: api.FieldAmount, Patterns: patterns(amountRules)},
		{Field: api.FieldTransactionType, Patterns: keywords},
		{Field: api.FieldBalance, Patterns: patterns(balanceRules)},
		{Field: api.FieldCounterparty, Patterns: patterns(counterpartyRules)},
		{Field: api.FieldTransactionID, Patterns: patterns(transactionIDRules)},
		{Field: api.FieldTransactionDate, Patterns: patterns(transactionDateRules)},
	}
}
