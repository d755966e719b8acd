package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/goalkeeper/internal/client/engine"
)

func (a *App) listAccounts(ctx context.Context) {
	mirror, err := a.session.Mirror()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	accounts, err := mirror.Accounts(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts yet")
		return
	}
	for _, acc := range accounts {
		fmt.Printf("%s  %-20s balance %.2f\n", acc.ID, acc.Name, acc.InitialBalance)
	}
}

func (a *App) addAccount(ctx context.Context) {
	pipeline, err := a.session.Pipeline()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	name, err := GetSimpleText(a.reader, "Account name", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	balance, err := GetAmount(a.reader, "Initial balance", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	id, err := pipeline.CreateAccount(ctx, engine.CreateAccountParams{
		Name:           name,
		InitialBalance: balance,
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Account created:", id)
}

func (a *App) deleteAccount(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: delaccount <id>")
		return
	}
	pipeline, err := a.session.Pipeline()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if err := pipeline.DeleteAccount(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Account deleted")
}
