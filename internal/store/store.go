// Package store provides a generic record-oriented data access layer and the
// tenant-isolating decorator every request-scoped caller goes through.
package store

import "context"

// TenantField is the record field carrying tenant ownership.
const TenantField = "company_id"

// IDField is the record field carrying the primary key.
const IDField = "id"

// Record is a single stored row keyed by column name.
type Record map[string]any

// Clone returns an independent shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter matches records whose fields equal every entry.
type Filter map[string]any

// Clone returns an independent shallow copy.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Store is the primitive record interface implemented by backends. Backends
// add no tenant awareness of their own; isolation is the Scoped decorator's
// job.
type Store interface {
	Select(ctx context.Context, collection string, filter Filter) ([]Record, error)
	SelectOne(ctx context.Context, collection string, id int64) (Record, error)
	SelectBy(ctx context.Context, collection, field string, value any) ([]Record, error)
	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	InsertMany(ctx context.Context, collection string, recs []Record) ([]Record, error)
	Update(ctx context.Context, collection string, id int64, changes Record) (Record, error)
	UpdateMany(ctx context.Context, collection string, filter Filter, changes Record) (int64, error)
	Delete(ctx context.Context, collection string, id int64) error
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
}
