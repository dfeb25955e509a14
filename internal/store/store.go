// Package store provides the durable local record store backing the app:
// named collections of JSON documents with a primary key and secondary
// indexes, persisted in SQLite with a versioned schema.
package store

import (
	"context"
	"encoding/json"
)

// Collection names.
const (
	Stacks = "stacks"
	Decks  = "decks"
)

// Record is one document in a collection. Doc holds the full JSON document;
// ID duplicates its "id" field as the primary key.
type Record struct {
	ID  string
	Doc json.RawMessage
}

// Store is the local persistence contract. Consumers should depend on this
// interface rather than the concrete *DB type so tests can substitute the
// in-memory implementation.
type Store interface {
	// GetAll returns every record in the collection. Empty slice if none;
	// no ordering guarantee beyond stable iteration.
	GetAll(ctx context.Context, collection string) ([]Record, error)
	// GetByKey returns the record with the given id, or nil if absent.
	// Absence is not an error.
	GetByKey(ctx context.Context, collection, id string) (*Record, error)
	// GetByIndex returns all records whose indexed field equals value.
	GetByIndex(ctx context.Context, collection, index, value string) ([]Record, error)
	// Put upserts a record by primary key, atomically per record.
	Put(ctx context.Context, collection string, rec Record) error
	// Delete removes the record with the given id. No-op if absent.
	Delete(ctx context.Context, collection, id string) error
	// Close releases the underlying resources.
	Close() error
}

// indexSpec ties a secondary index name to the table column holding the
// extracted value and the top-level JSON field it is extracted from.
type indexSpec struct {
	column string
	field  string
}

type collectionSpec struct {
	table   string
	indexes map[string]indexSpec
}

// collections is the closed set of record collections and their indexes.
var collections = map[string]collectionSpec{
	Stacks: {
		table: "stacks",
		indexes: map[string]indexSpec{
			"name": {column: "name", field: "name"},
		},
	},
	Decks: {
		table: "decks",
		indexes: map[string]indexSpec{
			"stackId": {column: "stack_id", field: "stackId"},
			"title":   {column: "title", field: "title"},
		},
	},
}

// indexValues extracts the indexed string fields from doc, in the iteration
// order of specs. Missing or non-string fields index as the empty string.
func indexValues(doc json.RawMessage, specs []indexSpec) []string {
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(doc, &fields)

	out := make([]string, len(specs))
	for i, spec := range specs {
		raw, ok := fields[spec.field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[i] = s
		}
	}
	return out
}
