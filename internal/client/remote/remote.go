// Package remote defines the client's view of the remote document store:
// per-user collections of JSON documents with create/merge/delete/read,
// an emptiness probe for the migration gate, and collection-scoped live
// change feeds.
package remote

import (
	"context"
	"encoding/json"
)

// ChangeType classifies a change-feed notification.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Event is one per-document notification. Doc carries the full document body
// (id included) for added/modified and is empty for removed.
type Event struct {
	Type ChangeType      `json:"type"`
	ID   string          `json:"id"`
	Doc  json.RawMessage `json:"doc,omitempty"`
}

// Store is the remote document store collaborator.
//
// Writes stamp a server-assigned updatedAt that is monotonic per document;
// Update merges at field level, so concurrent writers touching disjoint
// fields both survive. Create must receive a caller-minted id embedded in
// the document body.
type Store interface {
	// Create stores a new document under collection/id.
	Create(ctx context.Context, collection, id string, doc any) error

	// Update merges patch into the document's fields.
	Update(ctx context.Context, collection, id string, patch map[string]any) error

	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Get reads one document, shared.ErrNotFound when absent.
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)

	// IsEmpty reports whether the user's namespace holds no goals yet.
	// The migration gate keys off this.
	IsEmpty(ctx context.Context) (bool, error)

	// Watch opens a live subscription on one collection. Existing documents
	// are delivered first as added events, then changes stream in commit
	// order per document. onError is invoked once if the subscription dies;
	// the core does not retry. The returned func cancels the subscription.
	Watch(ctx context.Context, collection string, onEvent func(Event), onError func(error)) (func(), error)
}
