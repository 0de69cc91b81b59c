// Package remote talks to the OIDC identity provider: interactive login,
// token refresh and session termination.
//
// # Error Handling
//
// Failures are mapped onto sentinel errors that callers match with
// errors.Is: ErrCanceled, ErrTimeout, ErrUnavailable, ErrUnauthorized,
// ErrProtocol.
package remote

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pingate/internal/client/models"
)

var (
	// ErrCanceled reports a login the user abandoned or denied.
	ErrCanceled = errors.New("login canceled")

	// ErrTimeout reports a login that ran out of time, either on the caller's
	// deadline or because the device code expired.
	ErrTimeout = errors.New("login timed out")

	// ErrUnavailable reports a provider that could not be reached.
	ErrUnavailable = errors.New("identity provider unavailable")

	// ErrUnauthorized reports credentials the provider rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrProtocol reports a response that violates the expected protocol.
	ErrProtocol = errors.New("unexpected provider response")
)

// Client is the remote authentication contract.
type Client interface {
	// InteractiveLogin runs a user-driven login and blocks until it
	// completes, fails or ctx is cancelled.
	InteractiveLogin(ctx context.Context) (models.Credentials, error)

	// ClearSession terminates the remote session the credentials belong to.
	ClearSession(ctx context.Context, creds models.Credentials) error
}

// Refresher is implemented by clients that can renew expired credentials
// without user interaction.
type Refresher interface {
	Refresh(ctx context.Context, creds models.Credentials) (models.Credentials, error)
}
