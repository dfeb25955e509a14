package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Store used by tests and by callers that do not
// need durability. It honors the same collection and index definitions as
// the SQLite implementation.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]Record

	// FailPut, when set, is returned by Put for matching ids. Lets tests
	// exercise partial-failure paths.
	FailPut func(collection, id string) error
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	data := make(map[string]map[string]Record, len(collections))
	for name := range collections {
		data[name] = make(map[string]Record)
	}
	return &Memory{data: data}
}

func (m *Memory) coll(collection string) (map[string]Record, error) {
	c, ok := m.data[collection]
	if !ok {
		return nil, fmt.Errorf("store: unknown collection %q", collection)
	}
	return c, nil
}

// GetAll returns every record, ordered by id.
func (m *Memory) GetAll(_ context.Context, collection string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.coll(collection)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(c))
	for _, rec := range c {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByKey returns the record or nil when absent.
func (m *Memory) GetByKey(_ context.Context, collection, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.coll(collection)
	if err != nil {
		return nil, err
	}
	rec, ok := c[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetByIndex scans the collection for records whose indexed field equals value.
func (m *Memory) GetByIndex(_ context.Context, collection, index, value string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.coll(collection)
	if err != nil {
		return nil, err
	}
	idx, ok := collections[collection].indexes[index]
	if !ok {
		return nil, fmt.Errorf("store: unknown index %q on %s", index, collection)
	}
	out := []Record{}
	for _, rec := range c {
		if vals := indexValues(rec.Doc, []indexSpec{idx}); vals[0] == value {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Put upserts a record by id.
func (m *Memory) Put(_ context.Context, collection string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.coll(collection)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("store: put %s: empty id", collection)
	}
	if m.FailPut != nil {
		if err := m.FailPut(collection, rec.ID); err != nil {
			return err
		}
	}
	c[rec.ID] = rec
	return nil
}

// Delete removes a record; absent ids are a no-op.
func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.coll(collection)
	if err != nil {
		return err
	}
	delete(c, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
