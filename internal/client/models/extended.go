package models

// GoalExtended is a goal plus its derived financial state. It is recomputed
// from the live deposit set on every read and never persisted.
type GoalExtended struct {
	Goal

	TotalSaved      float64 `json:"totalSaved"`
	Remaining       float64 `json:"remaining"`
	ProgressPercent float64 `json:"progressPercent"`

	// DaysRemaining counts whole days until TargetDate, truncated at
	// midnight boundaries. Negative when the goal is overdue.
	DaysRemaining int `json:"daysRemaining"`

	// DailyRequired is how much must be saved per remaining day to reach
	// TotalAmount in time; 0 once the target date has passed.
	DailyRequired float64 `json:"dailyRequired"`

	AccountName string `json:"accountName"`
}
