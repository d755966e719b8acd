package cli

import (
	"context"
	"fmt"
)

func (a *App) dashboard(ctx context.Context) {
	d, err := a.session.Dashboard(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("Saved this month: %.2f (last month: %.2f)\n\n", d.ThisMonthTotal, d.LastMonthTotal)

	if len(d.Active) == 0 && len(d.Archived) == 0 {
		fmt.Println("No goals yet. Create one with 'addgoal'.")
		return
	}

	for _, g := range d.Active {
		status := ""
		if g.IsCompleted {
			status = " ✓"
		}
		fmt.Printf("%s %s%s\n", g.Emoji, g.Name, status)
		fmt.Printf("   %.2f / %.2f (%.1f%%), account %s\n",
			g.TotalSaved, g.TotalAmount, g.ProgressPercent, g.AccountName)
		if g.DaysRemaining >= 0 {
			fmt.Printf("   %d days left, %.2f/day needed\n", g.DaysRemaining, g.DailyRequired)
		} else {
			fmt.Printf("   overdue by %d days\n", -g.DaysRemaining)
		}
	}

	if len(d.Archived) > 0 {
		fmt.Printf("\nArchived: %d goal(s)\n", len(d.Archived))
	}
}

// watch re-renders the dashboard whenever the cache changes, until the user
// presses Enter.
func (a *App) watch(ctx context.Context) {
	mirror, err := a.session.Mirror()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	ch, cancel := mirror.Subscribe()
	defer cancel()

	fmt.Println("Watching dashboard, press Enter to stop")
	a.dashboard(ctx)

	stop := make(chan struct{})
	go func() {
		_, _ = a.reader.ReadString('\n')
		close(stop)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			a.dashboard(ctx)
		}
	}
}
