package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/pingate/internal/client/biometric"
	"github.com/dmitrijs2005/pingate/internal/client/gate"
	"github.com/dmitrijs2005/pingate/internal/client/remote"
	"github.com/dmitrijs2005/pingate/internal/client/secrets"
)

// status is the prompt label for the current state.
func (a *App) status() string {
	switch s := a.gate.State().(type) {
	case gate.LoggedIn:
		return fmt.Sprintf("(%s)", s.User.DisplayName())
	case gate.EnteringPasscode:
		return "(locked)"
	case gate.CreatingPasscode:
		return "(new passcode)"
	default:
		return "(logged out)"
	}
}

// render prints what the user can do in the current state.
func (a *App) render() {
	switch s := a.gate.State().(type) {
	case gate.LoggedOut:
		printlnFn("You are logged out. Type 'login' to sign in.")
	case gate.CreatingPasscode:
		printlnFn("Type 'passcode' to choose a passcode for this device.")
	case gate.EnteringPasscode:
		if s.LastAttemptFailed {
			printlnFn("Type 'unlock' to try again.")
		} else {
			printlnFn("Session locked.")
		}
	case gate.LoggedIn:
		printlnFn("Welcome, " + s.User.DisplayName() + "!")
	}
}

// report prints err, if any, as a user-facing message.
func (a *App) report(err error) {
	if err == nil {
		return
	}
	printlnFn(a.message(err))
}

// message maps gate and adapter errors to what the user is told.
func (a *App) message(err error) string {
	var (
		rae *gate.RemoteAuthError
		se  *secrets.StoreError
	)

	switch {
	case errors.Is(err, remote.ErrCanceled):
		return "Login canceled."
	case errors.Is(err, remote.ErrTimeout):
		return "Login timed out, please try again."
	case errors.As(err, &rae):
		return "Could not reach the identity provider, please try again."
	case errors.Is(err, gate.ErrPasscodeMismatch):
		if left := a.gate.AttemptsRemaining(); left > 0 {
			return fmt.Sprintf("Wrong passcode. %d attempt(s) left.", left)
		}
		return "Wrong passcode."
	case errors.Is(err, gate.ErrTooManyAttempts):
		return "Too many wrong passcodes. Please log in again."
	case errors.Is(err, gate.ErrInvalidPasscode):
		return fmt.Sprintf("The passcode must be exactly %d digits.", a.gate.PasscodeLength())
	case errors.Is(err, gate.ErrConfirmationMismatch):
		return "Passcodes do not match."
	case errors.Is(err, gate.ErrSessionExpired):
		return "Your session expired. Run 'lock' to renew it or 'login' to sign in again."
	case errors.Is(err, gate.ErrNoCredentials):
		return "No saved session. Please log in again."
	case errors.Is(err, gate.ErrBusy):
		return "Another request is still in progress."
	case errors.Is(err, gate.ErrUnexpectedEvent):
		return "That command is not available right now."
	case errors.As(err, &se):
		return "Secure storage error: " + se.Err.Error()
	default:
		return "Error: " + err.Error()
	}
}

// PrintDeviceCode returns a notifier that shows the device-flow verification
// instructions on w.
func PrintDeviceCode(w io.Writer) remote.DeviceCodeNotifier {
	return func(resp *oauth2.DeviceAuthResponse) {
		if resp.VerificationURIComplete != "" {
			fmt.Fprintf(w, "Open %s to sign in.\n", resp.VerificationURIComplete)
		} else {
			fmt.Fprintf(w, "Open %s and enter code %s\n", resp.VerificationURI, resp.UserCode)
		}
		fmt.Fprintln(w, "Waiting for confirmation...")
	}
}

// PresencePrompt returns the prompt used by the authenticator-code presence
// challenge. An empty answer skips the challenge.
func PresencePrompt(reader *bufio.Reader, w io.Writer) biometric.PromptFunc {
	return func(_ context.Context, reason string) (string, error) {
		return getSimpleText(reader, reason+" (authenticator code, Enter to skip)", w)
	}
}
