package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/server/feed"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/google/uuid"
)

type memDoc struct {
	fields    map[string]any
	updatedAt time.Time
}

// Memory implements Store on plain maps. It backs handler tests and local
// runs without Postgres. Events are published while the store lock is
// held, so subscribers observe writes in commit order.
type Memory struct {
	hub *feed.Hub

	mu      sync.Mutex
	users   map[string]*User
	byEmail map[string]string
	docs    map[string]map[string]map[string]*memDoc
}

func NewMemory(hub *feed.Hub) *Memory {
	return &Memory{
		hub:     hub,
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		docs:    make(map[string]map[string]map[string]*memDoc),
	}
}

func (m *Memory) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[email]; ok {
		return nil, shared.ErrEmailAlreadyExists
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.ID] = u
	m.byEmail[email] = u.ID
	return u, nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	u := *m.users[id]
	return &u, nil
}

func (m *Memory) DeleteUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.byEmail, u.Email)
	delete(m.users, userID)
	delete(m.docs, userID) // cascade
	return nil
}

func (m *Memory) collection(userID, collection string) map[string]*memDoc {
	if m.docs[userID] == nil {
		m.docs[userID] = make(map[string]map[string]*memDoc)
	}
	if m.docs[userID][collection] == nil {
		m.docs[userID][collection] = make(map[string]*memDoc)
	}
	return m.docs[userID][collection]
}

// nextTimestamp keeps the per-document clock strictly monotonic even when
// wall time does not advance between writes.
func nextTimestamp(prev time.Time) time.Time {
	now := time.Now().UTC()
	if floor := prev.Add(time.Microsecond); now.Before(floor) {
		return floor
	}
	return now
}

func (m *Memory) Put(ctx context.Context, userID, collection, docID string, body json.RawMessage) error {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("invalid document body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(userID, collection)
	prev, existed := c[docID]

	var ts time.Time
	if existed {
		ts = nextTimestamp(prev.updatedAt)
	} else {
		ts = nextTimestamp(time.Time{})
	}
	fields["updatedAt"] = ts.Format(time.RFC3339Nano)
	c[docID] = &memDoc{fields: fields, updatedAt: ts}

	typ := feed.TypeAdded
	if existed {
		typ = feed.TypeModified
	}
	m.publish(userID, collection, typ, docID, fields)
	return nil
}

func (m *Memory) Patch(ctx context.Context, userID, collection, docID string, patch json.RawMessage) error {
	var fields map[string]any
	if err := json.Unmarshal(patch, &fields); err != nil {
		return fmt.Errorf("invalid patch body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(userID, collection)
	doc, ok := c[docID]
	if !ok {
		return shared.ErrNotFound
	}

	// top-level field merge, last writer wins per field
	for k, v := range fields {
		doc.fields[k] = v
	}
	doc.updatedAt = nextTimestamp(doc.updatedAt)
	doc.fields["updatedAt"] = doc.updatedAt.Format(time.RFC3339Nano)

	m.publish(userID, collection, feed.TypeModified, docID, doc.fields)
	return nil
}

func (m *Memory) Delete(ctx context.Context, userID, collection, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(userID, collection)
	if _, ok := c[docID]; !ok {
		return nil
	}
	delete(c, docID)
	m.hub.Publish(userID, collection, feed.Event{Type: feed.TypeRemoved, ID: docID})
	return nil
}

func (m *Memory) Get(ctx context.Context, userID, collection, docID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collection(userID, collection)[docID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return json.Marshal(doc.fields)
}

func (m *Memory) List(ctx context.Context, userID, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(userID, collection)
	out := make([]Document, 0, len(c))
	for id, doc := range c {
		body, err := json.Marshal(doc.fields)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: id, Body: body})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) IsEmpty(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collection(userID, "goals")) == 0, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) publish(userID, collection, typ, docID string, fields map[string]any) {
	body, err := json.Marshal(fields)
	if err != nil {
		return
	}
	m.hub.Publish(userID, collection, feed.Event{Type: typ, ID: docID, Doc: body})
}
