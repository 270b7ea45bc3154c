package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is a map-backed Store used in tests and local development.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[int64]Record
	nextID      map[string]int64
}

// NewMemory returns an empty in-memory store. Collections are created on
// first use.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[int64]Record),
		nextID:      make(map[string]int64),
	}
}

func (m *Memory) collection(name string) map[int64]Record {
	coll, ok := m.collections[name]
	if !ok {
		coll = make(map[int64]Record)
		m.collections[name] = coll
	}
	return coll
}

// Select returns all records matching the filter, ordered by id.
func (m *Memory) Select(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.collections[collection] {
		if matches(rec, filter) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return toInt64(out[i][IDField]) < toInt64(out[j][IDField])
	})
	return out, nil
}

// SelectOne returns the record with the given id.
func (m *Memory) SelectOne(ctx context.Context, collection string, id int64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// SelectBy returns all records whose field equals value.
func (m *Memory) SelectBy(ctx context.Context, collection, field string, value any) ([]Record, error) {
	return m.Select(ctx, collection, Filter{field: value})
}

// Insert stores a new record, assigning an id when none is supplied.
func (m *Memory) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(collection, rec), nil
}

// InsertMany stores a batch of records.
func (m *Memory) InsertMany(ctx context.Context, collection string, recs []Record) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, m.insertLocked(collection, rec))
	}
	return out, nil
}

func (m *Memory) insertLocked(collection string, rec Record) Record {
	coll := m.collection(collection)
	stored := rec.Clone()
	id := toInt64(stored[IDField])
	if id == 0 {
		m.nextID[collection]++
		id = m.nextID[collection]
	} else if id > m.nextID[collection] {
		m.nextID[collection] = id
	}
	stored[IDField] = id
	coll[id] = stored
	return stored.Clone()
}

// Update merges changes into the record with the given id.
func (m *Memory) Update(ctx context.Context, collection string, id int64, changes Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range changes {
		if k == IDField {
			continue
		}
		rec[k] = v
	}
	return rec.Clone(), nil
}

// UpdateMany merges changes into every record matching the filter and
// returns the number of records touched.
func (m *Memory) UpdateMany(ctx context.Context, collection string, filter Filter, changes Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, rec := range m.collections[collection] {
		if !matches(rec, filter) {
			continue
		}
		for k, v := range changes {
			if k == IDField {
				continue
			}
			rec[k] = v
		}
		count++
	}
	return count, nil
}

// Delete removes the record with the given id.
func (m *Memory) Delete(ctx context.Context, collection string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collections[collection]
	if _, ok := coll[id]; !ok {
		return ErrNotFound
	}
	delete(coll, id)
	return nil
}

// DeleteMany removes every record matching the filter and returns the number
// removed.
func (m *Memory) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collections[collection]
	var count int64
	for id, rec := range coll {
		if matches(rec, filter) {
			delete(coll, id)
			count++
		}
	}
	return count, nil
}

func matches(rec Record, filter Filter) bool {
	for field, want := range filter {
		if !equalValues(rec[field], want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ai, aok := asInt64(a); aok {
		if bi, bok := asInt64(b); bok {
			return ai == bi
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toInt64(v any) int64 {
	n, _ := asInt64(v)
	return n
}
