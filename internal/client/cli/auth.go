package cli

import (
	"context"
	"fmt"
	"time"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// SignUp prompts for an email and password and creates an account. On
// success the client is signed in.
func (a *App) SignUp(ctx context.Context) error {
	return a.withCredentials(ctx, a.api.SignUp)
}

// SignIn prompts for credentials and authenticates.
func (a *App) SignIn(ctx context.Context) error {
	return a.withCredentials(ctx, a.api.SignIn)
}

func (a *App) withCredentials(ctx context.Context, call func(context.Context, string, []byte) error) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	if err := call(ctx, email, password); err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Refresh rotates the current token pair.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.api.Refresh(ctx); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

// Logout ends the session on the server and locally.
func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// WhoAmI prints the identity carried by the current access token.
func (a *App) WhoAmI(context.Context) error {
	id, err := a.api.Identity()
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "user %s <%s>, access token valid until %s\n",
		id.UserID, id.Email, id.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func (a *App) fail(err error) error {
	fmt.Fprintf(a.out, "Error: %v\n", err)
	return err
}
