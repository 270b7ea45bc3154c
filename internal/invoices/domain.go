package invoices

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/store"
)

// Collection is the record store collection invoices live in.
const Collection = "invoices"

// Invoice statuses.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusPaid     = "paid"
	StatusArchived = "archived"
)

// Invoice is one customer invoice. Amounts are kept in minor units.
type Invoice struct {
	ID           int64
	CompanyID    int64
	CustomerName string
	Reference    string
	Status       string
	AmountCents  int64
	IssuedAt     time.Time
}

func toRecord(inv Invoice) store.Record {
	return store.Record{
		"customer_name": inv.CustomerName,
		"reference":     inv.Reference,
		"status":        inv.Status,
		"amount_cents":  inv.AmountCents,
		"issued_at":     inv.IssuedAt,
	}
}

func fromRecord(rec store.Record) Invoice {
	inv := Invoice{
		CustomerName: asString(rec["customer_name"]),
		Reference:    asString(rec["reference"]),
		Status:       asString(rec["status"]),
	}
	if v, ok := rec["id"].(int64); ok {
		inv.ID = v
	}
	if v, ok := rec[store.TenantField].(int64); ok {
		inv.CompanyID = v
	}
	switch v := rec["amount_cents"].(type) {
	case int64:
		inv.AmountCents = v
	case int:
		inv.AmountCents = int64(v)
	case float64:
		inv.AmountCents = int64(v)
	}
	if v, ok := rec["issued_at"].(time.Time); ok {
		inv.IssuedAt = v
	}
	return inv
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
