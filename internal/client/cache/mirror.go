// Package cache implements the local cache mirror: an embedded SQLite store
// holding denormalized copies of the remote account, goal and deposit
// documents, keyed by document id.
//
// The mirror is the only resource shared between the change-feed subscriber
// (its single writer) and concurrently running derived queries. Upsert and
// remove are idempotent and applied atomically per document; reads never
// touch the network and may be momentarily stale relative to the remote
// store.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/goalkeeper/internal/client/cache/migrations"
	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/dbx"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Mirror is a lifecycle-scoped cache instance. It is owned by the current
// session: opened on sign-in, closed on sign-out, never shared across users.
type Mirror struct {
	db *sql.DB

	mu       sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

// Open opens (or creates) the cache database at dsn and migrates the schema.
func Open(ctx context.Context, dsn string) (*Mirror, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache open error: %w", err)
	}

	// modernc.org/sqlite serializes access through a single connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache migration error: %w", err)
	}

	return &Mirror{db: db, watchers: make(map[int]chan struct{})}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close releases the underlying database handle.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// Upsert applies an added/modified change-feed document to the mirror.
// Applying the same document twice is a no-op in effect.
func (m *Mirror) Upsert(ctx context.Context, collection string, body json.RawMessage) error {
	var err error
	switch collection {
	case models.CollectionAccounts:
		var a models.Account
		if err = json.Unmarshal(body, &a); err == nil {
			err = m.UpsertAccount(ctx, a)
		}
	case models.CollectionGoals:
		var g models.Goal
		if err = json.Unmarshal(body, &g); err == nil {
			err = m.UpsertGoal(ctx, g)
		}
	case models.CollectionDeposits:
		var d models.Deposit
		if err = json.Unmarshal(body, &d); err == nil {
			err = m.UpsertDeposit(ctx, d)
		}
	default:
		return fmt.Errorf("%w: %q", shared.ErrUnknownCollection, collection)
	}
	return err
}

// Remove applies a removed change-feed document. Removing a missing id is a
// no-op.
func (m *Mirror) Remove(ctx context.Context, collection, id string) error {
	switch collection {
	case models.CollectionAccounts:
		return m.RemoveAccount(ctx, id)
	case models.CollectionGoals:
		return m.RemoveGoal(ctx, id)
	case models.CollectionDeposits:
		return m.RemoveDeposit(ctx, id)
	}
	return fmt.Errorf("%w: %q", shared.ErrUnknownCollection, collection)
}

// Purge empties all mirrored collections, keeping metadata. Used on user
// switches so a previous user's rows can never bleed into a new session.
// The deletes run in one transaction: a query must never observe a
// half-purged cache.
func (m *Mirror) Purge(ctx context.Context) error {
	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"deposits", "goals", "accounts"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("failed to purge %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.notify()
	return nil
}

// Subscribe registers a watcher that is signalled (coalesced) after every
// mirror mutation, so derived views know to recompute. The returned cancel
// func must be called to release the watcher.
func (m *Mirror) Subscribe() (<-chan struct{}, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan struct{}, 1)
	m.watchers[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.watchers, id)
	}
}

func (m *Mirror) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default: // a pending signal already covers this change
		}
	}
}
