package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/derive"
	"github.com/dmitrijs2005/goalkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateDepositParams are the caller-supplied deposit fields. For challenge
// goals, DenominationValue and Quantity are required and Amount is derived;
// for normal goals, Amount is required and the denomination fields must be
// absent.
type CreateDepositParams struct {
	GoalID            string `validate:"required"`
	Amount            float64
	Date              time.Time
	DenominationValue float64
	Quantity          int64
}

func challengeAmount(value float64, qty int64) float64 {
	f, _ := decimal.NewFromFloat(value).Mul(decimal.NewFromInt(qty)).Round(2).Float64()
	return f
}

// CreateDeposit validates against the cached goal, mints the deposit id and
// enqueues the write. For challenge goals the enqueued job first patches the
// goal's denomination counters, then writes the deposit. Two separate
// remote requests, in that order, not atomic.
func (p *Pipeline) CreateDeposit(ctx context.Context, params CreateDepositParams) (string, error) {
	if err := p.validate.Struct(params); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	goal, err := p.mirror.Goal(ctx, params.GoalID)
	if err != nil {
		return "", err
	}

	dep := models.Deposit{
		ID:     uuid.NewString(),
		GoalID: params.GoalID,
		Date:   params.Date,
	}
	if dep.Date.IsZero() {
		dep.Date = time.Now().UTC()
	}

	if goal.IsChallenge() {
		if params.DenominationValue <= 0 || params.Quantity <= 0 {
			return "", fmt.Errorf("%w: challenge deposit needs denominationValue and quantity", shared.ErrValidation)
		}
		if !hasDenomination(goal.Denominations, params.DenominationValue) {
			return "", fmt.Errorf("%w: %v", shared.ErrUnknownDenomination, params.DenominationValue)
		}
		dep.DenominationValue = params.DenominationValue
		dep.Quantity = params.Quantity
		dep.Amount = challengeAmount(params.DenominationValue, params.Quantity)
	} else {
		if params.DenominationValue != 0 || params.Quantity != 0 {
			return "", fmt.Errorf("%w: denomination fields are only valid on challenge goals", shared.ErrValidation)
		}
		if params.Amount <= 0 {
			return "", fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
		}
		dep.Amount = derive.Round2(params.Amount)
	}

	p.enqueue("createDeposit", func(ctx context.Context) error {
		if dep.IsChallenge() {
			if err := p.patchLedger(ctx, dep.GoalID, func(denoms []models.Denomination) []models.Denomination {
				return ledger.Add(denoms, dep.DenominationValue, dep.Quantity)
			}); err != nil {
				return err
			}
		}
		return p.remote.Create(ctx, models.CollectionDeposits, dep.ID, dep)
	})
	return dep.ID, nil
}

// DepositUpdate lists the editable deposit fields; nil means unchanged.
type DepositUpdate struct {
	Amount            *float64
	Date              *time.Time
	DenominationValue *float64
	Quantity          *int64
}

// UpdateDeposit enqueues an edit. For challenge deposits the job undoes the
// old contribution and applies the new one against a single read of the
// goal, then patches the deposit itself.
func (p *Pipeline) UpdateDeposit(ctx context.Context, id string, upd DepositUpdate) error {
	if upd.Amount != nil && *upd.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	if upd.Quantity != nil && *upd.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if upd.DenominationValue != nil && *upd.DenominationValue <= 0 {
		return fmt.Errorf("%w: denominationValue must be positive", shared.ErrValidation)
	}

	p.enqueue("updateDeposit", func(ctx context.Context) error {
		old, err := p.remoteDeposit(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil // edit of a vanished deposit is dropped, like the feed would
			}
			return err
		}

		patch := map[string]any{}
		if upd.Date != nil {
			patch["date"] = upd.Date.UTC()
		}

		newValue := old.DenominationValue
		newQty := old.Quantity
		if upd.DenominationValue != nil {
			newValue = *upd.DenominationValue
		}
		if upd.Quantity != nil {
			newQty = *upd.Quantity
		}

		if old.IsChallenge() {
			if err := p.patchLedger(ctx, old.GoalID, func(denoms []models.Denomination) []models.Denomination {
				return ledger.Move(denoms, old.DenominationValue, old.Quantity, newValue, newQty)
			}); err != nil {
				return err
			}
			patch["denominationValue"] = newValue
			patch["quantity"] = newQty
			patch["amount"] = challengeAmount(newValue, newQty)
		} else if upd.Amount != nil {
			patch["amount"] = derive.Round2(*upd.Amount)
		}

		if len(patch) == 0 {
			return nil
		}
		return p.remote.Update(ctx, models.CollectionDeposits, id, patch)
	})
	return nil
}

// DeleteDeposit enqueues the removal; the challenge goal's counter is
// decremented (floored at zero) before the deposit document is deleted.
func (p *Pipeline) DeleteDeposit(ctx context.Context, id string) error {
	p.enqueue("deleteDeposit", func(ctx context.Context) error {
		old, err := p.remoteDeposit(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}

		if old.IsChallenge() {
			if err := p.patchLedger(ctx, old.GoalID, func(denoms []models.Denomination) []models.Denomination {
				return ledger.Subtract(denoms, old.DenominationValue, old.Quantity)
			}); err != nil {
				return err
			}
		}
		return p.remote.Delete(ctx, models.CollectionDeposits, id)
	})
	return nil
}

// patchLedger is the ledger read-modify-write: one remote read of the goal,
// one field patch of its denominations. Normal-mode goals pass through
// untouched.
func (p *Pipeline) patchLedger(ctx context.Context, goalID string, apply func([]models.Denomination) []models.Denomination) error {
	raw, err := p.remote.Get(ctx, models.CollectionGoals, goalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	var goal models.Goal
	if err := json.Unmarshal(raw, &goal); err != nil {
		return fmt.Errorf("failed to decode goal %s: %w", goalID, err)
	}
	if !goal.IsChallenge() {
		return nil
	}
	return p.remote.Update(ctx, models.CollectionGoals, goalID, map[string]any{
		"denominations": apply(goal.Denominations),
	})
}

func (p *Pipeline) remoteDeposit(ctx context.Context, id string) (*models.Deposit, error) {
	raw, err := p.remote.Get(ctx, models.CollectionDeposits, id)
	if err != nil {
		return nil, err
	}
	var d models.Deposit
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode deposit %s: %w", id, err)
	}
	return &d, nil
}

func hasDenomination(denoms []models.Denomination, value float64) bool {
	for _, d := range denoms {
		if d.Value == value {
			return true
		}
	}
	return false
}

// SyncCompletion re-derives a goal's completion state from the reconciled
// cache and issues a goal patch only on a false→true or true→false
// transition, never redundantly. Invoked by the subscriber after every
// deposit change notification.
func (p *Pipeline) SyncCompletion(ctx context.Context, goalID string) {
	goal, err := p.mirror.Goal(ctx, goalID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			p.log.Error(ctx, "completion sync: goal read failed", "goal", goalID, "error", err)
		}
		return
	}
	deposits, err := p.mirror.DepositsByGoal(ctx, goalID)
	if err != nil {
		p.log.Error(ctx, "completion sync: deposit read failed", "goal", goalID, "error", err)
		return
	}

	reached := derive.Completed(goal.TotalAmount, derive.TotalSaved(deposits))
	switch {
	case reached && !goal.IsCompleted:
		now := time.Now().UTC()
		p.enqueue("completeGoal", func(ctx context.Context) error {
			return p.remote.Update(ctx, models.CollectionGoals, goalID, map[string]any{
				"isCompleted": true,
				"completedAt": now,
			})
		})
	case !reached && goal.IsCompleted:
		p.enqueue("uncompleteGoal", func(ctx context.Context) error {
			return p.remote.Update(ctx, models.CollectionGoals, goalID, map[string]any{
				"isCompleted": false,
				"completedAt": nil,
			})
		})
	}
}
