package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if u := a.auth.Current(); u != nil {
		return fmt.Sprintf("(%s)", u.Email)
	}
	return ""
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to goalkeeper CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("gk %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: dashboard, watch, accounts, addaccount, delaccount,")
				fmt.Println("  goals, addgoal, editgoal, archive, restore, delgoal,")
				fmt.Println("  deposits, adddeposit, editdeposit, deldeposit, logout, deleteuser, exit")
			} else {
				fmt.Println("Available commands: register, login, exit")
			}

		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "logout":
			a.logout()
		case "deleteuser":
			a.deleteUser(ctx)

		case "dashboard":
			a.dashboard(ctx)
		case "watch":
			a.watch(ctx)
		case "accounts":
			a.listAccounts(ctx)
		case "addaccount":
			a.addAccount(ctx)
		case "delaccount":
			a.deleteAccount(ctx, args)
		case "goals":
			a.listGoals(ctx)
		case "addgoal":
			a.addGoal(ctx)
		case "editgoal":
			a.editGoal(ctx, args)
		case "archive":
			a.archiveGoal(ctx, args, true)
		case "restore":
			a.archiveGoal(ctx, args, false)
		case "delgoal":
			a.deleteGoal(ctx, args)
		case "deposits":
			a.listDeposits(ctx, args)
		case "adddeposit":
			a.addDeposit(ctx)
		case "editdeposit":
			a.editDeposit(ctx, args)
		case "deldeposit":
			a.deleteDeposit(ctx, args)

		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
