// Package store persists per-user document collections with field-merge
// updates and monotonic per-document timestamps. Two implementations share
// the same semantics: Postgres for real deployments and an in-memory map
// for tests and local runs.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// User is an account row.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Document is one stored document with its server timestamp already
// injected into the body.
type Document struct {
	ID   string
	Body json.RawMessage
}

// Store is the full persistence surface of the server. Every write
// publishes a change event to the feed hub before the call returns.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	DeleteUser(ctx context.Context, userID string) error

	// Put replaces the whole document, creating it if absent.
	Put(ctx context.Context, userID, collection, docID string, body json.RawMessage) error
	// Patch merges the given top-level fields into the document.
	Patch(ctx context.Context, userID, collection, docID string, patch json.RawMessage) error
	// Delete removes the document; deleting a missing document is a no-op.
	Delete(ctx context.Context, userID, collection, docID string) error

	Get(ctx context.Context, userID, collection, docID string) (json.RawMessage, error)
	List(ctx context.Context, userID, collection string) ([]Document, error)
	// IsEmpty reports whether the user has any goals.
	IsEmpty(ctx context.Context, userID string) (bool, error)

	Close() error
}

// injectTimestamp returns body with the server-assigned updatedAt field
// set. The timestamp travels inside the body so clients cache the document
// byte-for-byte.
func injectTimestamp(body json.RawMessage, ts time.Time) (json.RawMessage, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("invalid document body: %w", err)
	}
	fields["updatedAt"] = ts.UTC().Format(time.RFC3339Nano)
	return json.Marshal(fields)
}
