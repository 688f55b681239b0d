package rules

import (
	"strings"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

const metadataPrefix = "metadata."

type accessor func(tx *domain.TransactionRecord) (domain.Value, bool)

func stringField(get func(*domain.TransactionRecord) string) accessor {
	return func(tx *domain.TransactionRecord) (domain.Value, bool) {
		s := get(tx)
		if s == "" {
			return domain.Value{}, false
		}
		return domain.StringValue(s), true
	}
}

// fields is the closed set of record attributes a condition may reference.
var fields = map[string]accessor{
	"description": stringField(func(tx *domain.TransactionRecord) string { return tx.Description }),
	"reference":   stringField(func(tx *domain.TransactionRecord) string { return tx.Reference }),
	"contactId":   stringField(func(tx *domain.TransactionRecord) string { return tx.ContactID }),
	"contactName": stringField(func(tx *domain.TransactionRecord) string { return tx.ContactName }),
	"accountId":   stringField(func(tx *domain.TransactionRecord) string { return tx.AccountID }),
	"accountCode": stringField(func(tx *domain.TransactionRecord) string { return tx.AccountCode }),
	"accountName": stringField(func(tx *domain.TransactionRecord) string { return tx.AccountName }),
	"externalId":  stringField(func(tx *domain.TransactionRecord) string { return tx.ExternalID }),
	"type":        stringField(func(tx *domain.TransactionRecord) string { return string(tx.Type) }),
	"status":      stringField(func(tx *domain.TransactionRecord) string { return string(tx.Status) }),
	"amount": func(tx *domain.TransactionRecord) (domain.Value, bool) {
		return domain.NumberValue(tx.Amount.InexactFloat64()), true
	},
	"isReconciled": func(tx *domain.TransactionRecord) (domain.Value, bool) {
		return domain.BoolValue(tx.IsReconciled), true
	},
	"date": func(tx *domain.TransactionRecord) (domain.Value, bool) {
		if tx.Date.IsZero() {
			return domain.Value{}, false
		}
		return domain.StringValue(tx.Date.Format(domain.DateLayout)), true
	},
}

// ResolveField looks up a condition field on the record: a known attribute
// or a "metadata.<key>[.<key>...]" path. Missing or null values yield false.
func ResolveField(tx *domain.TransactionRecord, field string) (domain.Value, bool) {
	if tx == nil {
		return domain.Value{}, false
	}
	if strings.HasPrefix(field, metadataPrefix) {
		path := strings.Split(strings.TrimPrefix(field, metadataPrefix), ".")
		return tx.Metadata.Get(path...)
	}
	get, ok := fields[field]
	if !ok {
		return domain.Value{}, false
	}
	return get(tx)
}

// KnownField reports whether field can ever resolve.
func KnownField(field string) bool {
	if strings.HasPrefix(field, metadataPrefix) {
		return len(field) > len(metadataPrefix)
	}
	_, ok := fields[field]
	return ok
}
