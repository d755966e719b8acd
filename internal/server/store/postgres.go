package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/server/feed"
	"github.com/dmitrijs2005/goalkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const pgUniqueViolation = "23505"

// Postgres implements Store on a documents table with jsonb bodies. The
// field merge and the monotonic timestamp bump both happen inside the
// UPDATE statement, so concurrent writers to the same document converge
// field-wise last-writer-wins without a transaction around read and write.
type Postgres struct {
	db  *sql.DB
	hub *feed.Hub
}

func NewPostgres(ctx context.Context, dsn string, hub *feed.Hub) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	p := &Postgres{db: db, hub: hub}
	if err := p.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return p, nil
}

func (p *Postgres) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, p.db, ".")
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	query :=
		`INSERT INTO users (email, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at
		 `

	u := &User{Email: email, PasswordHash: passwordHash}
	err := p.db.QueryRowContext(ctx, query, email, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, shared.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return u, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*User, error) {
	query :=
		`SELECT id, email, password_hash, created_at FROM users
		 WHERE email = $1
		 `

	u := &User{}
	err := p.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return u, nil
}

// DeleteUser removes the user row; the documents cascade in the schema.
func (p *Postgres) DeleteUser(ctx context.Context, userID string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (p *Postgres) Put(ctx context.Context, userID, collection, docID string, body json.RawMessage) error {
	query :=
		`INSERT INTO documents (user_id, collection, doc_id, body, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, now())
		 ON CONFLICT (user_id, collection, doc_id) DO UPDATE SET
		   body = EXCLUDED.body,
		   updated_at = GREATEST(now(), documents.updated_at + interval '1 microsecond')
		 RETURNING body, updated_at, (xmax = 0) AS inserted
		 `

	var stored []byte
	var ts time.Time
	var inserted bool
	err := p.db.QueryRowContext(ctx, query, userID, collection, docID, []byte(body)).
		Scan(&stored, &ts, &inserted)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	typ := feed.TypeAdded
	if !inserted {
		typ = feed.TypeModified
	}
	return p.publish(userID, collection, typ, docID, stored, ts)
}

func (p *Postgres) Patch(ctx context.Context, userID, collection, docID string, patch json.RawMessage) error {
	// jsonb || merges top-level fields, last writer wins per field
	query :=
		`UPDATE documents SET
		   body = body || $4::jsonb,
		   updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
		 WHERE user_id = $1 AND collection = $2 AND doc_id = $3
		 RETURNING body, updated_at
		 `

	var stored []byte
	var ts time.Time
	err := p.db.QueryRowContext(ctx, query, userID, collection, docID, []byte(patch)).
		Scan(&stored, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return p.publish(userID, collection, feed.TypeModified, docID, stored, ts)
}

func (p *Postgres) Delete(ctx context.Context, userID, collection, docID string) error {
	query :=
		`DELETE FROM documents
		 WHERE user_id = $1 AND collection = $2 AND doc_id = $3
		 `

	res, err := p.db.ExecContext(ctx, query, userID, collection, docID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	p.hub.Publish(userID, collection, feed.Event{Type: feed.TypeRemoved, ID: docID})
	return nil
}

func (p *Postgres) Get(ctx context.Context, userID, collection, docID string) (json.RawMessage, error) {
	query :=
		`SELECT body, updated_at FROM documents
		 WHERE user_id = $1 AND collection = $2 AND doc_id = $3
		 `

	var body []byte
	var ts time.Time
	err := p.db.QueryRowContext(ctx, query, userID, collection, docID).Scan(&body, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return injectTimestamp(body, ts)
}

func (p *Postgres) List(ctx context.Context, userID, collection string) ([]Document, error) {
	query :=
		`SELECT doc_id, body, updated_at FROM documents
		 WHERE user_id = $1 AND collection = $2
		 ORDER BY doc_id
		 `

	rows, err := p.db.QueryContext(ctx, query, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var id string
		var body []byte
		var ts time.Time
		if err := rows.Scan(&id, &body, &ts); err != nil {
			return nil, err
		}
		withTS, err := injectTimestamp(body, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: id, Body: withTS})
	}
	return out, rows.Err()
}

func (p *Postgres) IsEmpty(ctx context.Context, userID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM documents
		   WHERE user_id = $1 AND collection = 'goals'
		 )`

	var exists bool
	if err := p.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return !exists, nil
}

func (p *Postgres) publish(userID, collection, typ, docID string, body []byte, ts time.Time) error {
	withTS, err := injectTimestamp(body, ts)
	if err != nil {
		return err
	}
	p.hub.Publish(userID, collection, feed.Event{Type: typ, ID: docID, Doc: withTS})
	return nil
}
