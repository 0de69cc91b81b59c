package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/pingate/internal/client/gate"
	"github.com/dmitrijs2005/pingate/internal/common"
)

// Foreground re-evaluates the stored session the way an app resume does,
// locking an unlocked session. When the gate ends up asking for the
// passcode the user is prompted once.
func (a *App) Foreground(ctx context.Context) error {
	err := a.gate.Foreground(ctx)
	a.report(err)
	if err != nil {
		return err
	}

	a.render()
	if a.kind() == gate.KindEnteringPasscode {
		return a.Unlock(ctx)
	}
	return nil
}

// Login runs the device-code login and, on success, goes straight to
// passcode creation or entry. Ctrl-C while waiting cancels the login only.
func (a *App) Login(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if a.loginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.loginTimeout)
		defer cancel()
	}

	err := a.gate.Login(ctx)
	a.report(err)
	if err != nil {
		return err
	}

	switch a.kind() {
	case gate.KindCreatingPasscode:
		return a.CreatePasscode(ctx)
	case gate.KindEnteringPasscode:
		return a.Unlock(ctx)
	}
	return nil
}

// CreatePasscode asks for a new passcode twice and hands both to the gate.
func (a *App) CreatePasscode(ctx context.Context) error {
	prompt := fmt.Sprintf("Choose a %d-digit passcode", a.gate.PasscodeLength())
	value, err := getPassword(a.out, prompt)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(value)

	confirmation, err := getPassword(a.out, "Repeat passcode")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirmation)

	err = a.gate.CreatePasscode(ctx, string(value), string(confirmation))
	a.report(err)
	if err == nil {
		a.render()
	}
	return err
}

// Unlock asks for the passcode once.
func (a *App) Unlock(ctx context.Context) error {
	value, err := getPassword(a.out, "Enter passcode")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(value)

	err = a.gate.SubmitPasscode(ctx, string(value))
	a.report(err)
	if err == nil {
		a.render()
	}
	return err
}

// Presence re-offers the presence challenge on the passcode screen.
func (a *App) Presence(ctx context.Context) error {
	err := a.gate.RequestBiometric(ctx)
	a.report(err)
	if err == nil {
		a.render()
	}
	return err
}

// Whoami prints the signed-in user's profile.
func (a *App) Whoami(context.Context) error {
	li, ok := a.gate.State().(gate.LoggedIn)
	if !ok {
		printlnFn("Not logged in")
		return nil
	}

	u := li.User
	printlnFn("User:    ", u.DisplayName())
	printlnFn("ID:      ", u.ID)
	if u.Email != "" {
		verified := "unverified"
		if u.EmailVerified {
			verified = "verified"
		}
		printlnFn("Email:   ", fmt.Sprintf("%s (%s)", u.Email, verified))
	}
	if !li.Credentials.Expiry.IsZero() {
		printlnFn("Session: ", "expires "+li.Credentials.Expiry.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// Logout ends the remote session and forgets the local secrets.
func (a *App) Logout(ctx context.Context) error {
	err := a.gate.Logout(ctx)
	a.report(err)
	if err == nil {
		a.render()
	}
	return err
}

// EnrollPresence registers a new authenticator for presence challenges. It
// needs an unlocked session.
func (a *App) EnrollPresence(ctx context.Context) error {
	if a.presence == nil {
		printlnFn("Presence challenges are disabled")
		return nil
	}
	if a.kind() != gate.KindLoggedIn {
		printlnFn("Unlock first")
		return nil
	}

	key, err := a.presence.Enroll(ctx)
	if err != nil {
		a.log.Error(ctx, "presence enrollment failed", "error", err)
		printlnFn("Enrollment failed:", err)
		return err
	}

	printlnFn("Add this key to your authenticator app:")
	printlnFn("  secret:", key.Secret())
	printlnFn("  url:   ", key.URL())
	return nil
}

// UnenrollPresence removes the authenticator enrollment.
func (a *App) UnenrollPresence(ctx context.Context) error {
	if a.presence == nil {
		printlnFn("Presence challenges are disabled")
		return nil
	}
	if a.kind() != gate.KindLoggedIn {
		printlnFn("Unlock first")
		return nil
	}

	if err := a.presence.Unenroll(ctx); err != nil {
		printlnFn("Could not remove enrollment:", err)
		return err
	}
	printlnFn("Authenticator removed")
	return nil
}
