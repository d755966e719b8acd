// Package remotetest provides an in-memory remote.Store with synchronous
// change-feed delivery, used to test the sync engine deterministically:
// by the time a write call returns, every live watcher has observed it.
package remotetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
)

type subscriber struct {
	id         int
	collection string
	onEvent    func(remote.Event)
}

// Fake is an in-memory document store with field-merge updates, monotonic
// per-write timestamps and inline feed fanout.
type Fake struct {
	mu     sync.Mutex
	docs   map[string]map[string]map[string]any
	subs   map[int]*subscriber
	nextID int
	now    time.Time

	// writeErr, when set, makes every write fail with it.
	writeErr error

	// Writes counts create/update/delete calls, for migration-gate tests.
	Writes int
}

// NewFake returns an empty store with the three goalkeeper collections.
func NewFake() *Fake {
	return &Fake{
		docs: map[string]map[string]map[string]any{
			models.CollectionAccounts: {},
			models.CollectionGoals:    {},
			models.CollectionDeposits: {},
		},
		subs: make(map[int]*subscriber),
		now:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

// SetWriteErr makes subsequent writes fail with err (nil to restore).
func (f *Fake) SetWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *Fake) col(collection string) (map[string]map[string]any, error) {
	c, ok := f.docs[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownCollection, collection)
	}
	return c, nil
}

// nextTimestamp is monotonic across the store, which is strictly stronger
// than the per-document guarantee the interface requires.
func (f *Fake) nextTimestamp() time.Time {
	f.now = f.now.Add(time.Millisecond)
	return f.now
}

func toFields(doc any) (map[string]any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (f *Fake) emit(collection string, ev remote.Event) {
	for _, s := range f.sortedSubs() {
		if s.collection == collection {
			s.onEvent(ev)
		}
	}
}

func (f *Fake) sortedSubs() []*subscriber {
	out := make([]*subscriber, 0, len(f.subs))
	for _, s := range f.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (f *Fake) body(collection, id string) json.RawMessage {
	b, _ := json.Marshal(f.docs[collection][id])
	return b
}

func (f *Fake) Create(ctx context.Context, collection, id string, doc any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	c, err := f.col(collection)
	if err != nil {
		return err
	}
	fields, err := toFields(doc)
	if err != nil {
		return err
	}
	fields["id"] = id
	fields["updatedAt"] = f.nextTimestamp().Format(time.RFC3339Nano)

	_, existed := c[id]
	c[id] = fields
	f.Writes++

	typ := remote.ChangeAdded
	if existed {
		typ = remote.ChangeModified
	}
	f.emit(collection, remote.Event{Type: typ, ID: id, Doc: f.body(collection, id)})
	return nil
}

func (f *Fake) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	c, err := f.col(collection)
	if err != nil {
		return err
	}
	doc, ok := c[id]
	if !ok {
		return shared.ErrNotFound
	}

	// field-level merge: only the patched fields change
	normalized, err := toFields(patch)
	if err != nil {
		return err
	}
	for k, v := range normalized {
		doc[k] = v
	}
	doc["updatedAt"] = f.nextTimestamp().Format(time.RFC3339Nano)
	f.Writes++

	f.emit(collection, remote.Event{Type: remote.ChangeModified, ID: id, Doc: f.body(collection, id)})
	return nil
}

func (f *Fake) Delete(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	c, err := f.col(collection)
	if err != nil {
		return err
	}
	if _, ok := c[id]; !ok {
		return nil
	}
	delete(c, id)
	f.Writes++
	f.emit(collection, remote.Event{Type: remote.ChangeRemoved, ID: id})
	return nil
}

func (f *Fake) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.col(collection)
	if err != nil {
		return nil, err
	}
	if _, ok := c[id]; !ok {
		return nil, shared.ErrNotFound
	}
	return f.body(collection, id), nil
}

func (f *Fake) IsEmpty(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[models.CollectionGoals]) == 0, nil
}

// Watch snapshots the collection as added events (inline, sorted by id) and
// then delivers every subsequent committed write synchronously.
func (f *Fake) Watch(ctx context.Context, collection string, onEvent func(remote.Event), onError func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.col(collection)
	if err != nil {
		return nil, err
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = &subscriber{id: id, collection: collection, onEvent: onEvent}

	ids := make([]string, 0, len(c))
	for docID := range c {
		ids = append(ids, docID)
	}
	sort.Strings(ids)
	for _, docID := range ids {
		onEvent(remote.Event{Type: remote.ChangeAdded, ID: docID, Doc: f.body(collection, docID)})
	}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}, nil
}

// Doc decodes one stored document into out, for assertions.
func (f *Fake) Doc(collection, id string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[collection][id]; !ok {
		return shared.ErrNotFound
	}
	return json.Unmarshal(f.body(collection, id), out)
}

// Len reports the number of documents in a collection.
func (f *Fake) Len(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[collection])
}

// IDs lists the document ids of a collection, sorted.
func (f *Fake) IDs(collection string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.docs[collection]))
	for id := range f.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
