package cli

import (
	"context"
	"fmt"
	"os"
)

func (a *App) register(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	if err := a.auth.SignUp(ctx, email, password); err != nil {
		fmt.Println("Registration failed:", err)
		return
	}
	fmt.Println("Registered and signed in as", email)
}

func (a *App) login(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	if err := a.auth.SignIn(ctx, email, password); err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	fmt.Println("Signed in as", email)
}

func (a *App) logout() {
	a.auth.SignOut()
	fmt.Println("Signed out")
}

func (a *App) deleteUser(ctx context.Context) {
	confirm, err := GetSimpleText(a.reader,
		"Delete the account and ALL its data? Type 'yes' to confirm", os.Stdout)
	if err != nil || confirm != "yes" {
		fmt.Println("Cancelled")
		return
	}
	if err := a.auth.DeleteUser(ctx); err != nil {
		fmt.Println("Delete failed:", err)
		return
	}
	fmt.Println("Account deleted")
}
