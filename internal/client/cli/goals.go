package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/goalkeeper/internal/client/engine"
	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
)

func (a *App) listGoals(ctx context.Context) {
	mirror, err := a.session.Mirror()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	goals, err := mirror.Goals(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(goals) == 0 {
		fmt.Println("No goals yet")
		return
	}
	for _, g := range goals {
		flags := ""
		if g.IsCompleted {
			flags += " [done]"
		}
		if g.IsArchived {
			flags += " [archived]"
		}
		fmt.Printf("%s  %s %-20s target %.2f by %s%s\n", g.ID, g.Emoji, g.Name, g.TotalAmount, g.TargetDate, flags)
	}
}

func (a *App) addGoal(ctx context.Context) {
	pipeline, err := a.session.Pipeline()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	name, err := GetSimpleText(a.reader, "Goal name", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	emoji, _ := GetSimpleText(a.reader, "Emoji (empty for default)", os.Stdout)
	targetDate, err := GetSimpleText(a.reader, "Target date (YYYY-MM-DD)", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	accountID, err := GetSimpleText(a.reader, "Account id", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	mode, err := GetSimpleText(a.reader, "Mode (normal/challenge)", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	params := engine.CreateGoalParams{
		Name:       name,
		Emoji:      emoji,
		TargetDate: targetDate,
		AccountID:  accountID,
	}

	switch mode {
	case "challenge":
		params.Mode = models.ModeChallenge
		denoms, err := a.readDenominations()
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		params.Denominations = denoms
	default:
		params.Mode = models.ModeNormal
		amount, err := GetAmount(a.reader, "Target amount", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		params.TotalAmount = amount
	}

	id, err := pipeline.CreateGoal(ctx, params)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Goal created:", id)
}

// readDenominations parses "value x quantity" lines, e.g. "100 x 10",
// until an empty line.
func (a *App) readDenominations() ([]models.Denomination, error) {
	fmt.Println("Enter denominations as 'value x targetQty', one per line (empty line to finish)")

	var denoms []models.Denomination
	for {
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		parts := strings.SplitN(line, "x", 2)
		if len(parts) != 2 {
			fmt.Println("Expected 'value x targetQty', got:", line)
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			fmt.Println("Bad value:", parts[0])
			continue
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			fmt.Println("Bad quantity:", parts[1])
			continue
		}
		denoms = append(denoms, models.Denomination{Value: value, TargetQty: qty})
	}
	return denoms, nil
}

func (a *App) editGoal(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: editgoal <goal-id>")
		return
	}
	pipeline, err := a.session.Pipeline()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	mirror, err := a.session.Mirror()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	goal, err := mirror.Goal(ctx, args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	upd := engine.GoalUpdate{}

	name, err := GetSimpleText(a.reader, "Name (empty to keep)", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if name != "" {
		upd.Name = &name
	}
	emoji, err := GetSimpleText(a.reader, "Emoji (empty to keep)", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if emoji != "" {
		upd.Emoji = &emoji
	}
	targetDate, err := GetSimpleText(a.reader, "Target date YYYY-MM-DD (empty to keep)", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if targetDate != "" {
		upd.TargetDate = &targetDate
	}

	if goal.IsChallenge() {
		answer, err := GetSimpleText(a.reader, "Re-enter denominations? (y/n)", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		if answer == "y" {
			denoms, err := a.readDenominations()
			if err != nil {
				fmt.Println("Error:", err)
				return
			}
			upd.Denominations = &denoms
		}
	} else {
		amountStr, err := GetSimpleText(a.reader, "Target amount (empty to keep)", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		if amountStr != "" {
			amount, err := strconv.ParseFloat(amountStr, 64)
			if err != nil {
				fmt.Println("Not a number:", amountStr)
				return
			}
			upd.TotalAmount = &amount
		}
	}

	if err := pipeline.UpdateGoal(ctx, args[0], upd); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("OK")
}

func (a *App) archiveGoal(ctx context.Context, args []string, archive bool) {
	usage := "Usage: archive <goal-id>"
	if !archive {
		usage = "Usage: restore <goal-id>"
	}
	if len(args) == 0 {
		fmt.Println(usage)
		return
	}
	pipeline, err := a.session.Pipeline()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if archive {
		err = pipeline.ArchiveGoal(ctx, args[0])
	} else {
		err = pipeline.RestoreGoal(ctx, args[0])
	}
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("OK")
}

func (a *App) deleteGoal(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: delgoal <goal-id>")
		return
	}
	pipeline, err := a.session.Pipeline()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if err := pipeline.DeleteGoal(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Goal and its deposits deleted")
}
