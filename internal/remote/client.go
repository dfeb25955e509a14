// Package remote provides the client for the hosted document-database
// collaborator. Documents are loosely typed on the wire; callers map them to
// closed domain types at the repository boundary.
package remote

import (
	"context"
	"time"
)

// Remote collection names and their document fields, mirroring the hosted
// schema: cards carry decks/front/back/order/missed, decks carry
// stacks/title, stacks carry name/description.
const (
	StacksCollection = "stacks"
	DecksCollection  = "decks"
	CardsCollection  = "cards"
)

// Filter is an equality constraint on a document field.
type Filter struct {
	Field string
	Value string
}

// Document is one record returned by the service. ID and CreatedAt are
// server-assigned; Fields holds the collection-specific attributes.
type Document struct {
	ID        string
	CreatedAt time.Time
	Fields    map[string]any
}

// Client is the operation surface the core needs from the service.
type Client interface {
	// List returns documents matching every filter, optionally ordered by a
	// field ascending and capped at limit (0 means no explicit limit).
	List(ctx context.Context, collection string, filters []Filter, orderBy string, limit int) ([]Document, error)
	// Create stores a new document under the caller-supplied id.
	Create(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	// Update merges partial fields into an existing document. Fails with
	// apperr.ErrNotFound if the document is absent.
	Update(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	// Delete removes a document. Idempotent: deleting an absent document
	// succeeds.
	Delete(ctx context.Context, collection, id string) error
}

// Nop is the offline client: every operation succeeds without doing
// anything. Used when remote mode is disabled.
type Nop struct{}

var _ Client = Nop{}

func (Nop) List(context.Context, string, []Filter, string, int) ([]Document, error) {
	return nil, nil
}

func (Nop) Create(_ context.Context, _ string, id string, fields map[string]any) (Document, error) {
	return Document{ID: id, CreatedAt: time.Now(), Fields: fields}, nil
}

func (Nop) Update(_ context.Context, _ string, id string, fields map[string]any) (Document, error) {
	return Document{ID: id, Fields: fields}, nil
}

func (Nop) Delete(context.Context, string, string) error { return nil }
