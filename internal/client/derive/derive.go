// Package derive implements the aggregation engine: pure, side-effect-free
// functions that compute a goal's financial state from its live deposit set.
// It is re-run on every cache change and never mutates the goal document.
//
// Rounding policy: currency arithmetic goes through shopspring/decimal and
// rounds to 2 decimal places after each accumulation step, not only at the
// final display step, so drift cannot build up across many small deposits.
package derive

import (
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/shopspring/decimal"
)

// Round2 rounds a currency amount to 2 decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// TotalSaved sums the deposit amounts, rounding after each step.
func TotalSaved(deposits []models.Deposit) float64 {
	sum := decimal.Zero
	for _, d := range deposits {
		sum = sum.Add(decimal.NewFromFloat(d.Amount)).Round(2)
	}
	f, _ := sum.Float64()
	return f
}

// Remaining is the amount still to be saved, never negative.
func Remaining(totalAmount, totalSaved float64) float64 {
	r := decimal.NewFromFloat(totalAmount).Sub(decimal.NewFromFloat(totalSaved)).Round(2)
	if r.IsNegative() {
		return 0
	}
	f, _ := r.Float64()
	return f
}

// ProgressPercent is totalSaved/totalAmount*100 capped at 100, or 0 when the
// goal has no target amount.
func ProgressPercent(totalAmount, totalSaved float64) float64 {
	if totalAmount <= 0 {
		return 0
	}
	p := totalSaved / totalAmount * 100
	if p > 100 {
		return 100
	}
	return p
}

// Completed reports whether the saved total has reached the target.
func Completed(totalAmount, totalSaved float64) bool {
	return decimal.NewFromFloat(totalSaved).GreaterThanOrEqual(decimal.NewFromFloat(totalAmount))
}

// DaysRemaining counts whole days from now until the target date, truncating
// both ends at midnight. The result is negative once the date has passed.
// A malformed target date counts as due today.
func DaysRemaining(targetDate string, now time.Time) int {
	target, err := time.ParseInLocation(models.TargetDateLayout, targetDate, now.Location())
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(target.Sub(today).Hours() / 24)
}

// DailyRequired is how much must be saved per remaining day; 0 when the
// target date is today or has passed.
func DailyRequired(remaining float64, daysRemaining int) float64 {
	if daysRemaining <= 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(remaining).
		Div(decimal.NewFromInt(int64(daysRemaining))).
		Round(2).
		Float64()
	return f
}

// Extend derives the full read model for one goal from its deposit set.
// The embedded IsCompleted is the freshly derived value, which may differ
// from the persisted flag until completion sync catches up.
func Extend(g models.Goal, deposits []models.Deposit, accountName string, now time.Time) models.GoalExtended {
	totalSaved := TotalSaved(deposits)
	remaining := Remaining(g.TotalAmount, totalSaved)
	daysRemaining := DaysRemaining(g.TargetDate, now)

	ext := models.GoalExtended{
		Goal:            g,
		TotalSaved:      totalSaved,
		Remaining:       remaining,
		ProgressPercent: ProgressPercent(g.TotalAmount, totalSaved),
		DaysRemaining:   daysRemaining,
		DailyRequired:   DailyRequired(remaining, daysRemaining),
		AccountName:     accountName,
	}
	ext.IsCompleted = Completed(g.TotalAmount, totalSaved)
	return ext
}

// Dashboard is the derived top-level view: goals split by archive state and
// deposit totals for the current and previous calendar month (active goals
// only).
type Dashboard struct {
	Active   []models.GoalExtended
	Archived []models.GoalExtended

	ThisMonthTotal float64
	LastMonthTotal float64
}

// BuildDashboard assembles the dashboard from full cache snapshots.
func BuildDashboard(goals []models.Goal, deposits []models.Deposit, accounts []models.Account, now time.Time) Dashboard {
	accountNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}

	byGoal := make(map[string][]models.Deposit)
	for _, d := range deposits {
		byGoal[d.GoalID] = append(byGoal[d.GoalID], d)
	}

	active := make(map[string]bool, len(goals))
	for _, g := range goals {
		active[g.ID] = !g.IsArchived
	}

	var dash Dashboard

	thisMonth := decimal.Zero
	lastMonth := decimal.Zero
	prev := now.AddDate(0, -1, 0)
	for _, d := range deposits {
		if !active[d.GoalID] {
			continue
		}
		switch {
		case d.Date.Year() == now.Year() && d.Date.Month() == now.Month():
			thisMonth = thisMonth.Add(decimal.NewFromFloat(d.Amount)).Round(2)
		case d.Date.Year() == prev.Year() && d.Date.Month() == prev.Month():
			lastMonth = lastMonth.Add(decimal.NewFromFloat(d.Amount)).Round(2)
		}
	}
	dash.ThisMonthTotal, _ = thisMonth.Float64()
	dash.LastMonthTotal, _ = lastMonth.Float64()

	for _, g := range goals {
		name, ok := accountNames[g.AccountID]
		if !ok {
			name = "?"
		}
		ext := Extend(g, byGoal[g.ID], name, now)
		if g.IsArchived {
			dash.Archived = append(dash.Archived, ext)
		} else {
			dash.Active = append(dash.Active, ext)
		}
	}

	return dash
}
