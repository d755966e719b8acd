package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
)

// UpsertGoal inserts or replaces a goal row by id. The denominations slice
// is stored as a JSON column; NULL for normal-mode goals.
func (m *Mirror) UpsertGoal(ctx context.Context, g models.Goal) error {
	var denoms any
	if g.Denominations != nil {
		b, err := json.Marshal(g.Denominations)
		if err != nil {
			return fmt.Errorf("failed to encode denominations: %w", err)
		}
		denoms = string(b)
	}

	query := `INSERT INTO goals (id, name, emoji, mode, total_amount, target_date, account_id,
			created_at, updated_at, is_completed, completed_at, is_archived, archived_at, denominations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			emoji = excluded.emoji,
			mode = excluded.mode,
			total_amount = excluded.total_amount,
			target_date = excluded.target_date,
			account_id = excluded.account_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			is_completed = excluded.is_completed,
			completed_at = excluded.completed_at,
			is_archived = excluded.is_archived,
			archived_at = excluded.archived_at,
			denominations = excluded.denominations`
	_, err := m.db.ExecContext(ctx, query,
		g.ID, g.Name, g.Emoji, string(g.Mode), g.TotalAmount, g.TargetDate, g.AccountID,
		timeToDB(g.CreatedAt), timeToDB(g.UpdatedAt),
		g.IsCompleted, timePtrToDB(g.CompletedAt),
		g.IsArchived, timePtrToDB(g.ArchivedAt), denoms)
	if err != nil {
		return fmt.Errorf("failed to upsert goal: %w", err)
	}
	m.notify()
	return nil
}

// RemoveGoal deletes a goal row; missing ids are a no-op.
func (m *Mirror) RemoveGoal(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove goal: %w", err)
	}
	m.notify()
	return nil
}

const goalColumns = `id, name, emoji, mode, total_amount, target_date, account_id,
	created_at, updated_at, is_completed, completed_at, is_archived, archived_at, denominations`

func scanGoal(row interface{ Scan(...any) error }) (models.Goal, error) {
	var g models.Goal
	var mode string
	var createdAt, updatedAt, completedAt, archivedAt, denoms sql.NullString
	err := row.Scan(&g.ID, &g.Name, &g.Emoji, &mode, &g.TotalAmount, &g.TargetDate, &g.AccountID,
		&createdAt, &updatedAt, &g.IsCompleted, &completedAt, &g.IsArchived, &archivedAt, &denoms)
	if err != nil {
		return g, err
	}
	g.Mode = models.GoalMode(mode)
	g.CreatedAt = timeFromDB(createdAt)
	g.UpdatedAt = timeFromDB(updatedAt)
	g.CompletedAt = timePtrFromDB(completedAt)
	g.ArchivedAt = timePtrFromDB(archivedAt)
	if denoms.Valid && denoms.String != "" {
		if err := json.Unmarshal([]byte(denoms.String), &g.Denominations); err != nil {
			return g, fmt.Errorf("failed to decode denominations: %w", err)
		}
	}
	return g, nil
}

// Goals lists all cached goals, oldest first.
func (m *Mirror) Goals(ctx context.Context) ([]models.Goal, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select goals: %w", err)
	}
	defer rows.Close()

	var result []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// Goal returns one goal by id, or shared.ErrNotFound.
func (m *Mirror) Goal(ctx context.Context, id string) (*models.Goal, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select goal: %w", err)
	}
	return &g, nil
}

// GoalsByAccount lists goals referencing the given funding account.
func (m *Mirror) GoalsByAccount(ctx context.Context, accountID string) ([]models.Goal, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE account_id = ? ORDER BY created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select goals by account: %w", err)
	}
	defer rows.Close()

	var result []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}
