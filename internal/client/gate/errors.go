package gate

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pingate/internal/client/secrets"
	"github.com/dmitrijs2005/pingate/internal/common"
)

var (
	ErrPasscodeMismatch     = errors.New("passcode mismatch")
	ErrInvalidPasscode      = fmt.Errorf("%w: passcode format", common.ErrInvalidInput)
	ErrConfirmationMismatch = fmt.Errorf("%w: passcode confirmation does not match", common.ErrInvalidInput)
	ErrTooManyAttempts      = errors.New("too many failed passcode attempts")
	ErrNoCredentials        = errors.New("no stored credentials")
	ErrSessionExpired       = errors.New("session expired while locked")
	ErrBusy                 = errors.New("operation already in progress")
	ErrUnexpectedEvent      = errors.New("event not allowed in current state")
)

// StoreError is re-exported so UI code can match it without importing the
// storage package.
type StoreError = secrets.StoreError

// RemoteAuthError wraps a failed call to the identity provider. It is shown
// to the user as a generic "try again" message and never retried
// automatically.
type RemoteAuthError struct {
	Op  string
	Err error
}

func (e *RemoteAuthError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteAuthError) Unwrap() error { return e.Err }

func unexpected(event string, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrUnexpectedEvent, event, s.Kind())
}
