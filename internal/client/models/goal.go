package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/shopspring/decimal"
)

// GoalMode discriminates the two goal variants. Go has no sum types, so the
// normal/challenge split is carried by Mode plus constructor enforcement:
// NewGoal and NewChallengeGoal are the only intended ways to build a Goal,
// and they keep the denominations/totalAmount invariants in one place.
type GoalMode string

const (
	// ModeNormal tracks a goal purely by cumulative currency amount.
	ModeNormal GoalMode = "normal"
	// ModeChallenge additionally tracks target quantities of fixed
	// denomination values.
	ModeChallenge GoalMode = "challenge"
)

// DefaultEmoji is used when a goal is created without one.
const DefaultEmoji = "🎯"

// Denomination is one fixed currency-unit value a challenge goal saves in.
// CurrentQty is a denormalized counter patched incrementally by the
// denomination ledger; it never goes below zero but may exceed TargetQty
// (over-saving surfaces as early completion).
type Denomination struct {
	Value      float64 `json:"value"`
	TargetQty  int64   `json:"targetQty"`
	CurrentQty int64   `json:"currentQty"`
}

// Goal is a savings goal linked to a funding account.
type Goal struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Emoji       string   `json:"emoji,omitempty"`
	Mode        GoalMode `json:"mode"`
	TotalAmount float64  `json:"totalAmount"`

	// TargetDate is a date-only string, YYYY-MM-DD.
	TargetDate string `json:"targetDate"`

	AccountID string `json:"accountId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`

	// IsCompleted is maintained by the completion-sync step; it flips
	// automatically in both directions as totalSaved crosses TotalAmount.
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	IsArchived bool       `json:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt"`

	// Denominations is present only when Mode is ModeChallenge.
	Denominations []Denomination `json:"denominations,omitempty"`
}

// TargetDateLayout is the time layout for Goal.TargetDate.
const TargetDateLayout = "2006-01-02"

// NewGoal builds a normal-mode goal. The id must be minted by the caller
// before the create payload is constructed.
func NewGoal(id, name, emoji string, totalAmount float64, targetDate, accountID string, now time.Time) (*Goal, error) {
	if emoji == "" {
		emoji = DefaultEmoji
	}
	g := &Goal{
		ID:          id,
		Name:        name,
		Emoji:       emoji,
		Mode:        ModeNormal,
		TotalAmount: totalAmount,
		TargetDate:  targetDate,
		AccountID:   accountID,
		CreatedAt:   now.UTC(),
		IsArchived:  false,
		ArchivedAt:  nil,
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewChallengeGoal builds a challenge-mode goal. TotalAmount is derived from
// the denominations (sum of targetQty*value), never taken from the caller.
func NewChallengeGoal(id, name, emoji string, targetDate, accountID string, denominations []Denomination, now time.Time) (*Goal, error) {
	if len(denominations) == 0 {
		return nil, fmt.Errorf("%w: challenge goal needs at least one denomination", shared.ErrValidation)
	}
	if emoji == "" {
		emoji = DefaultEmoji
	}
	denoms := make([]Denomination, len(denominations))
	copy(denoms, denominations)
	for i := range denoms {
		if denoms[i].Value <= 0 || denoms[i].TargetQty <= 0 {
			return nil, fmt.Errorf("%w: denomination value and targetQty must be positive", shared.ErrValidation)
		}
		denoms[i].CurrentQty = 0
	}
	g := &Goal{
		ID:            id,
		Name:          name,
		Emoji:         emoji,
		Mode:          ModeChallenge,
		TotalAmount:   DenominationsTotal(denoms),
		TargetDate:    targetDate,
		AccountID:     accountID,
		CreatedAt:     now.UTC(),
		IsArchived:    false,
		ArchivedAt:    nil,
		Denominations: denoms,
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Goal) validate() error {
	switch {
	case g.Name == "":
		return fmt.Errorf("%w: goal name is required", shared.ErrValidation)
	case g.TotalAmount <= 0:
		return fmt.Errorf("%w: totalAmount must be positive", shared.ErrValidation)
	case g.AccountID == "":
		return fmt.Errorf("%w: accountId is required", shared.ErrValidation)
	}
	if _, err := time.Parse(TargetDateLayout, g.TargetDate); err != nil {
		return fmt.Errorf("%w: targetDate must be YYYY-MM-DD", shared.ErrValidation)
	}
	return nil
}

// IsChallenge reports whether the goal keeps a denomination ledger.
func (g *Goal) IsChallenge() bool {
	return g.Mode == ModeChallenge
}

// DenominationsTotal sums targetQty*value over the given denominations,
// rounding to 2 decimal places after each accumulation step.
func DenominationsTotal(denoms []Denomination) float64 {
	sum := decimal.Zero
	for _, d := range denoms {
		v := decimal.NewFromFloat(d.Value).Mul(decimal.NewFromInt(d.TargetQty))
		sum = sum.Add(v).Round(2)
	}
	f, _ := sum.Float64()
	return f
}
