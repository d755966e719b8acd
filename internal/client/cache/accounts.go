package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
)

// UpsertAccount inserts or replaces an account row by id.
func (m *Mirror) UpsertAccount(ctx context.Context, a models.Account) error {
	query := `INSERT INTO accounts (id, name, initial_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			initial_balance = excluded.initial_balance,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`
	_, err := m.db.ExecContext(ctx, query,
		a.ID, a.Name, a.InitialBalance, timeToDB(a.CreatedAt), timeToDB(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	m.notify()
	return nil
}

// RemoveAccount deletes an account row; missing ids are a no-op.
func (m *Mirror) RemoveAccount(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	m.notify()
	return nil
}

func scanAccount(row interface{ Scan(...any) error }) (models.Account, error) {
	var a models.Account
	var createdAt, updatedAt sql.NullString
	if err := row.Scan(&a.ID, &a.Name, &a.InitialBalance, &createdAt, &updatedAt); err != nil {
		return a, err
	}
	a.CreatedAt = timeFromDB(createdAt)
	a.UpdatedAt = timeFromDB(updatedAt)
	return a, nil
}

// Accounts lists all cached accounts sorted by name.
func (m *Mirror) Accounts(ctx context.Context) ([]models.Account, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, name, initial_balance, created_at, updated_at FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Account returns one account by id, or shared.ErrNotFound.
func (m *Mirror) Account(ctx context.Context, id string) (*models.Account, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT id, name, initial_balance, created_at, updated_at FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select account: %w", err)
	}
	return &a, nil
}
