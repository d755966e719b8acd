package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
)

// UpsertDeposit inserts or replaces a deposit row by id.
func (m *Mirror) UpsertDeposit(ctx context.Context, d models.Deposit) error {
	query := `INSERT INTO deposits (id, goal_id, amount, date, denomination_value, quantity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET goal_id = excluded.goal_id,
			amount = excluded.amount,
			date = excluded.date,
			denomination_value = excluded.denomination_value,
			quantity = excluded.quantity,
			updated_at = excluded.updated_at`
	_, err := m.db.ExecContext(ctx, query,
		d.ID, d.GoalID, d.Amount, timeToDB(d.Date), d.DenominationValue, d.Quantity, timeToDB(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert deposit: %w", err)
	}
	m.notify()
	return nil
}

// RemoveDeposit deletes a deposit row; missing ids are a no-op.
func (m *Mirror) RemoveDeposit(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM deposits WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove deposit: %w", err)
	}
	m.notify()
	return nil
}

const depositColumns = `id, goal_id, amount, date, denomination_value, quantity, updated_at`

func scanDeposit(row interface{ Scan(...any) error }) (models.Deposit, error) {
	var d models.Deposit
	var date, updatedAt sql.NullString
	var denomValue sql.NullFloat64
	var qty sql.NullInt64
	if err := row.Scan(&d.ID, &d.GoalID, &d.Amount, &date, &denomValue, &qty, &updatedAt); err != nil {
		return d, err
	}
	d.Date = timeFromDB(date)
	d.UpdatedAt = timeFromDB(updatedAt)
	d.DenominationValue = denomValue.Float64
	d.Quantity = qty.Int64
	return d, nil
}

// Deposits lists every cached deposit, oldest first.
func (m *Mirror) Deposits(ctx context.Context) ([]models.Deposit, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+depositColumns+` FROM deposits ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to select deposits: %w", err)
	}
	defer rows.Close()
	return collectDeposits(rows)
}

// DepositsByGoal lists the deposits of one goal sorted by date.
func (m *Mirror) DepositsByGoal(ctx context.Context, goalID string) ([]models.Deposit, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE goal_id = ? ORDER BY date`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to select deposits by goal: %w", err)
	}
	defer rows.Close()
	return collectDeposits(rows)
}

func collectDeposits(rows *sql.Rows) ([]models.Deposit, error) {
	var result []models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// Deposit returns one deposit by id, or shared.ErrNotFound.
func (m *Mirror) Deposit(ctx context.Context, id string) (*models.Deposit, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = ?`, id)
	d, err := scanDeposit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select deposit: %w", err)
	}
	return &d, nil
}
