package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// Postgres is a pgx-backed Store. Collections map one-to-one onto tables and
// must be registered up front; table and column names are never taken from
// request input.
type Postgres struct {
	pool        *pgxpool.Pool
	collections map[string]struct{}
}

// NewPostgres constructs a Postgres store restricted to the given
// collections.
func NewPostgres(pool *pgxpool.Pool, collections ...string) *Postgres {
	allowed := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		allowed[c] = struct{}{}
	}
	return &Postgres{pool: pool, collections: allowed}
}

func (p *Postgres) table(collection string) (string, error) {
	if _, ok := p.collections[collection]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return pgx.Identifier{collection}.Sanitize(), nil
}

// Select returns all records matching the filter, ordered by id.
func (p *Postgres) Select(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	table, err := p.table(collection)
	if err != nil {
		return nil, err
	}
	where, args := buildWhere(filter, 1)
	query := fmt.Sprintf("SELECT * FROM %s%s ORDER BY id", table, where)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rowsToRecords(rows)
}

// SelectOne returns the record with the given id.
func (p *Postgres) SelectOne(ctx context.Context, collection string, id int64) (Record, error) {
	table, err := p.table(collection)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs, err := rowsToRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

// SelectBy returns all records whose field equals value.
func (p *Postgres) SelectBy(ctx context.Context, collection, field string, value any) ([]Record, error) {
	return p.Select(ctx, collection, Filter{field: value})
}

// Insert stores a new record and returns it as persisted.
func (p *Postgres) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	table, err := p.table(collection)
	if err != nil {
		return nil, err
	}
	cols, placeholders, args := buildInsert(rec)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *", table, cols, placeholders)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs, err := rowsToRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("store: insert returned no row")
	}
	return recs[0], nil
}

// InsertMany stores a batch of records inside one transaction.
func (p *Postgres) InsertMany(ctx context.Context, collection string, recs []Record) ([]Record, error) {
	table, err := p.table(collection)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(recs))
	err = db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		for _, rec := range recs {
			cols, placeholders, args := buildInsert(rec)
			query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *", table, cols, placeholders)
			rows, err := tx.Query(ctx, query, args...)
			if err != nil {
				return err
			}
			inserted, err := rowsToRecords(rows)
			rows.Close()
			if err != nil {
				return err
			}
			out = append(out, inserted...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update merges changes into the record with the given id.
func (p *Postgres) Update(ctx context.Context, collection string, id int64, changes Record) (Record, error) {
	table, err := p.table(collection)
	if err != nil {
		return nil, err
	}
	set, args := buildSet(changes, 1)
	if set == "" {
		return p.SelectOne(ctx, collection, id)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *", table, set, len(args))
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs, err := rowsToRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

// UpdateMany merges changes into every record matching the filter.
func (p *Postgres) UpdateMany(ctx context.Context, collection string, filter Filter, changes Record) (int64, error) {
	table, err := p.table(collection)
	if err != nil {
		return 0, err
	}
	set, args := buildSet(changes, 1)
	if set == "" {
		return 0, nil
	}
	where, whereArgs := buildWhere(filter, len(args)+1)
	args = append(args, whereArgs...)
	tag, err := p.pool.Exec(ctx, fmt.Sprintf("UPDATE %s SET %s%s", table, set, where), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes the record with the given id.
func (p *Postgres) Delete(ctx context.Context, collection string, id int64) error {
	table, err := p.table(collection)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes every record matching the filter.
func (p *Postgres) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	table, err := p.table(collection)
	if err != nil {
		return 0, err
	}
	where, args := buildWhere(filter, 1)
	tag, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s%s", table, where), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildWhere(filter Filter, firstArg int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	keys := sortedKeys(filter)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", pgx.Identifier{k}.Sanitize(), firstArg+i))
		args = append(args, filter[k])
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildSet(changes Record, firstArg int) (string, []any) {
	keys := sortedKeys(changes)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	n := firstArg
	for _, k := range keys {
		if k == IDField {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", pgx.Identifier{k}.Sanitize(), n))
		args = append(args, changes[k])
		n++
	}
	return strings.Join(clauses, ", "), args
}

func buildInsert(rec Record) (cols string, placeholders string, args []any) {
	keys := sortedKeys(rec)
	colNames := make([]string, 0, len(keys))
	ph := make([]string, 0, len(keys))
	args = make([]any, 0, len(keys))
	n := 1
	for _, k := range keys {
		if k == IDField && toInt64(rec[k]) == 0 {
			continue
		}
		colNames = append(colNames, pgx.Identifier{k}.Sanitize())
		ph = append(ph, fmt.Sprintf("$%d", n))
		args = append(args, rec[k])
		n++
	}
	return strings.Join(colNames, ", "), strings.Join(ph, ", "), args
}

func rowsToRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec := make(Record, len(fields))
		for i, fd := range fields {
			rec[string(fd.Name)] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
