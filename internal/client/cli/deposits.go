package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/goalkeeper/internal/client/engine"
)

func (a *App) listDeposits(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: deposits <goal-id>")
		return
	}
	mirror, err := a.session.Mirror()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	deposits, err := mirror.DepositsByGoal(ctx, args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(deposits) == 0 {
		fmt.Println("No deposits yet")
		return
	}
	for _, d := range deposits {
		if d.IsChallenge() {
			fmt.Printf("%s  %s  %.2f (%.2f x %d)\n",
				d.ID, d.Date.Format("2006-01-02"), d.Amount, d.DenominationValue, d.Quantity)
		} else {
			fmt.Printf("%s  %s  %.2f\n", d.ID, d.Date.Format("2006-01-02"), d.Amount)
		}
	}
}

func (a *App) addDeposit(ctx context.Context) {
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

	goalID, err := GetSimpleText(a.reader, "Goal id", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	goal, err := mirror.Goal(ctx, goalID)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	params := engine.CreateDepositParams{GoalID: goalID}
	if goal.IsChallenge() {
		value, err := GetAmount(a.reader, "Denomination value", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		qty, err := GetInt(a.reader, "Quantity", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		params.DenominationValue = value
		params.Quantity = qty
	} else {
		amount, err := GetAmount(a.reader, "Amount", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		params.Amount = amount
	}

	id, err := pipeline.CreateDeposit(ctx, params)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Deposit recorded:", id)
}

func (a *App) editDeposit(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: editdeposit <deposit-id>")
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
	dep, err := mirror.Deposit(ctx, args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	upd := engine.DepositUpdate{}
	if dep.IsChallenge() {
		value, err := GetAmount(a.reader, "Denomination value", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		qty, err := GetInt(a.reader, "Quantity", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		upd.DenominationValue = &value
		upd.Quantity = &qty
	} else {
		amount, err := GetAmount(a.reader, "Amount", os.Stdout)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		upd.Amount = &amount
	}

	if err := pipeline.UpdateDeposit(ctx, args[0], upd); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("OK")
}

func (a *App) deleteDeposit(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: deldeposit <deposit-id>")
		return
	}
	pipeline, err := a.session.Pipeline()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if err := pipeline.DeleteDeposit(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Deposit deleted")
}
