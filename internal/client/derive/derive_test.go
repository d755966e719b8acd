package derive

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deposits(amounts ...float64) []models.Deposit {
	ds := make([]models.Deposit, 0, len(amounts))
	for i, a := range amounts {
		ds = append(ds, models.Deposit{ID: string(rune('a' + i)), GoalID: "g1", Amount: a})
	}
	return ds
}

func TestTotalSaved(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []float64{100}, 100},
		{"sum", []float64{20000, 20000, 10000}, 50000},
		{"rounds each step", []float64{0.1, 0.2}, 0.3},
		{"many small deposits do not drift", []float64{0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalSaved(deposits(tt.amounts...)))
		})
	}
}

func TestTotalSaved_Monotonic(t *testing.T) {
	ds := deposits(10.55, 20.45, 0.33)
	prev := 0.0
	for i := 1; i <= len(ds); i++ {
		cur := TotalSaved(ds[:i])
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	// removing deposits is non-increasing
	for i := len(ds); i >= 0; i-- {
		cur := TotalSaved(ds[:i])
		require.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 500.0, Remaining(1000, 500))
	assert.Equal(t, 0.0, Remaining(1000, 1000))
	assert.Equal(t, 0.0, Remaining(1000, 1500)) // over-saving clamps at 0
	assert.Equal(t, 0.01, Remaining(1000, 999.99))
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 50.0, ProgressPercent(1000, 500))
	assert.Equal(t, 100.0, ProgressPercent(1000, 2000)) // capped
	assert.Equal(t, 0.0, ProgressPercent(0, 500))       // no target amount
}

func TestCompleted(t *testing.T) {
	assert.False(t, Completed(1000, 999.99))
	assert.True(t, Completed(1000, 1000))
	assert.True(t, Completed(1000, 1000.01))
	// the canonical near-miss: two deposits that sum exactly to the target
	assert.True(t, Completed(1000, TotalSaved(deposits(999.99, 0.01))))
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"tomorrow", "2025-03-11", 1},
		{"today counts as zero", "2025-03-10", 0},
		{"overdue is negative", "2025-03-08", -2},
		{"far future", "2025-04-09", 30},
		{"malformed date", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysRemaining(tt.target, now))
		})
	}
}

func TestDailyRequired(t *testing.T) {
	assert.Equal(t, 100.0, DailyRequired(1000, 10))
	assert.Equal(t, 333.33, DailyRequired(1000, 3))
	assert.Equal(t, 0.0, DailyRequired(1000, 0))
	assert.Equal(t, 0.0, DailyRequired(1000, -5))
}

func TestExtend_LaptopScenario(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := models.Goal{
		ID:          "g1",
		Name:        "Laptop",
		Mode:        models.ModeNormal,
		TotalAmount: 50000,
		TargetDate:  "2025-12-31",
		AccountID:   "acc1",
	}
	ds := deposits(20000, 20000, 10000)

	ext := Extend(g, ds, "GCash", now)

	assert.Equal(t, 50000.0, ext.TotalSaved)
	assert.Equal(t, 0.0, ext.Remaining)
	assert.Equal(t, 100.0, ext.ProgressPercent)
	assert.True(t, ext.IsCompleted)
	assert.Equal(t, 0.0, ext.DailyRequired)
	assert.Equal(t, "GCash", ext.AccountName)
}

func TestExtend_IsPure(t *testing.T) {
	now := time.Now()
	g := models.Goal{ID: "g1", TotalAmount: 100, TargetDate: "2099-01-01", AccountID: "a"}
	ds := deposits(10, 20)

	first := Extend(g, ds, "Cash", now)
	second := Extend(g, ds, "Cash", now)

	assert.Equal(t, first, second)
	assert.False(t, g.IsCompleted, "derivation must not mutate the goal")
}

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	goals := []models.Goal{
		{ID: "g1", Name: "Laptop", TotalAmount: 1000, TargetDate: "2025-12-31", AccountID: "a1"},
		{ID: "g2", Name: "Old", TotalAmount: 500, TargetDate: "2024-12-31", AccountID: "a1", IsArchived: true},
	}
	accounts := []models.Account{{ID: "a1", Name: "GCash"}}
	ds := []models.Deposit{
		{ID: "d1", GoalID: "g1", Amount: 100, Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "d2", GoalID: "g1", Amount: 50, Date: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)},
		// archived goal deposits are excluded from monthly totals
		{ID: "d3", GoalID: "g2", Amount: 500, Date: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)},
	}

	dash := BuildDashboard(goals, ds, accounts, now)

	require.Len(t, dash.Active, 1)
	require.Len(t, dash.Archived, 1)
	assert.Equal(t, 100.0, dash.ThisMonthTotal)
	assert.Equal(t, 50.0, dash.LastMonthTotal)
	assert.Equal(t, 150.0, dash.Active[0].TotalSaved)
	assert.Equal(t, "GCash", dash.Active[0].AccountName)
	// unknown accounts surface as "?" rather than failing the whole view
	dash2 := BuildDashboard([]models.Goal{{ID: "g3", TotalAmount: 10, TargetDate: "2025-12-31", AccountID: "missing"}}, nil, accounts, now)
	assert.Equal(t, "?", dash2.Active[0].AccountName)
}
