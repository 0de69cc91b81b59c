// Package gate implements the session gate: the state machine that decides,
// on every foreground and after every remote login, whether the user must
// enter a passcode, may pass a presence challenge, must create a passcode,
// or must log in remotely again.
//
// # Events
//
// Every exported mutating method is one event. It returns an error which is
// also kept as the gate's side-channel error, readable through LastError
// until the next event replaces it.
//
// # Concurrency
//
// The gate lock is never held across a call that waits on the user or the
// network (interactive login, logout, token refresh, presence challenge).
// At most one of each is outstanding at a time.
package gate

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/pingate/internal/client/biometric"
	"github.com/dmitrijs2005/pingate/internal/client/idtoken"
	"github.com/dmitrijs2005/pingate/internal/client/models"
	"github.com/dmitrijs2005/pingate/internal/client/remote"
	"github.com/dmitrijs2005/pingate/internal/client/secrets"
	"github.com/dmitrijs2005/pingate/internal/common"
	"github.com/dmitrijs2005/pingate/internal/logging"
)

// Gate is the session gate. Use New to construct one.
type Gate struct {
	store    secrets.Store
	presence biometric.Gate
	remote   remote.Client
	decode   idtoken.Decoder
	log      logging.Logger
	now      func() time.Time

	passcodeLength  int
	maxAttempts     int
	expiryLeeway    time.Duration
	refreshTimeout  time.Duration
	autoBiometric   bool
	biometricReason string

	mu      sync.Mutex
	state   State
	lastErr error
	// pending holds the credentials of the session being unlocked, from the
	// latest remote login or foreground check.
	pending     *models.Credentials
	failures    int
	remoteBusy  bool
	challenging bool
}

// New returns a gate in the LoggedOut state. A nil presence gate is treated
// as biometric.Disabled.
func New(store secrets.Store, presence biometric.Gate, rc remote.Client, opts ...Option) *Gate {
	if presence == nil {
		presence = biometric.Disabled{}
	}

	g := &Gate{
		store:           store,
		presence:        presence,
		remote:          rc,
		decode:          idtoken.Decode,
		log:             logging.NewNop(),
		now:             time.Now,
		passcodeLength:  DefaultPasscodeLength,
		maxAttempts:     DefaultMaxAttempts,
		expiryLeeway:    DefaultExpiryLeeway,
		refreshTimeout:  DefaultRefreshTimeout,
		autoBiometric:   true,
		biometricReason: DefaultBiometricReason,
		state:           LoggedOut{},
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastError returns the error produced by the most recent event, or nil.
func (g *Gate) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// AttemptsRemaining returns how many passcode mismatches are left before the
// stored session is dropped, or -1 when there is no limit.
func (g *Gate) AttemptsRemaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.maxAttempts == 0 {
		return -1
	}
	return g.maxAttempts - g.failures
}

// PasscodeLength returns the number of digits a passcode must have.
func (g *Gate) PasscodeLength() int {
	return g.passcodeLength
}

// Foreground handles the app coming to the foreground.
//
// From LoggedOut or LoggedIn it re-evaluates the stored session: valid
// credentials with a passcode lead to EnteringPasscode and an automatic
// presence challenge, anything else to LoggedOut. Expired credentials are
// refreshed silently when the remote client supports it; the gate reads
// LoggedOut while the refresh is outstanding.
func (g *Gate) Foreground(ctx context.Context) error {
	g.mu.Lock()

	if g.challenging || g.remoteBusy {
		err := g.finish(nil)
		g.mu.Unlock()
		return err
	}

	switch g.state.(type) {
	case CreatingPasscode:
		err := g.finish(nil)
		g.mu.Unlock()
		return err
	case EnteringPasscode:
		g.finish(nil)
		g.mu.Unlock()
		if g.autoBiometric {
			return g.RequestBiometric(ctx)
		}
		return nil
	}

	creds, ok, err := g.storedCredentialsLocked(ctx)
	if err != nil || !ok {
		g.mu.Unlock()
		return err
	}

	if !creds.Valid(g.now(), g.expiryLeeway) {
		r, canRefresh := g.remote.(remote.Refresher)
		if !canRefresh || !creds.CanRefresh() {
			g.log.Info(ctx, "stored credentials expired")
			g.resetLocked(ctx)
			err := g.finish(nil)
			g.mu.Unlock()
			return err
		}

		g.resetLocked(ctx)
		g.remoteBusy = true
		g.mu.Unlock()

		fresh, err := g.refresh(ctx, r, creds)

		g.mu.Lock()
		g.remoteBusy = false
		if _, ok := g.state.(LoggedOut); !ok {
			// Another event moved the gate while the refresh was outstanding.
			g.log.Info(ctx, "refresh result discarded", "state", g.state.Kind().String())
			g.mu.Unlock()
			return nil
		}
		if err == nil {
			err = secrets.SaveCredentials(ctx, g.store, fresh)
		}
		if err != nil {
			err = g.finish(err)
			g.mu.Unlock()
			return err
		}
		g.log.Info(ctx, "credentials refreshed")
		creds = fresh
	}

	err = g.lockStoredSessionLocked(ctx, creds)
	_, locked := g.state.(EnteringPasscode)
	g.mu.Unlock()

	if err != nil || !locked || !g.autoBiometric {
		return err
	}
	return g.RequestBiometric(ctx)
}

// storedCredentialsLocked reads the stored credentials. ok is false when the
// gate has been moved to LoggedOut instead.
func (g *Gate) storedCredentialsLocked(ctx context.Context) (models.Credentials, bool, error) {
	creds, err := secrets.LoadCredentials(ctx, g.store)
	if errors.Is(err, secrets.ErrNotFound) {
		g.resetLocked(ctx)
		return models.Credentials{}, false, g.finish(nil)
	}
	if err != nil {
		g.resetLocked(ctx)
		return models.Credentials{}, false, g.finish(err)
	}
	return creds, true, nil
}

// lockStoredSessionLocked moves to EnteringPasscode when a passcode exists
// for creds, and to LoggedOut otherwise.
func (g *Gate) lockStoredSessionLocked(ctx context.Context, creds models.Credentials) error {
	has, err := secrets.HasPasscode(ctx, g.store)
	if err != nil {
		g.resetLocked(ctx)
		return g.finish(err)
	}
	if !has {
		g.resetLocked(ctx)
		return g.finish(nil)
	}

	g.pending = &creds
	g.setStateLocked(ctx, EnteringPasscode{})
	return g.finish(nil)
}

// refresh renews expired credentials. It must be called without g.mu held.
func (g *Gate) refresh(ctx context.Context, r remote.Refresher, creds models.Credentials) (models.Credentials, error) {
	rctx, cancel := context.WithTimeout(ctx, g.refreshTimeout)
	defer cancel()

	fresh, err := r.Refresh(rctx, creds)
	if err != nil {
		g.log.Warn(ctx, "credential refresh failed", "error", err)
		return models.Credentials{}, &RemoteAuthError{Op: "refresh", Err: err}
	}
	return fresh, nil
}

// RequestBiometric runs one presence challenge when the gate is in
// EnteringPasscode and no challenge is already outstanding. The result is
// applied through BiometricResult.
func (g *Gate) RequestBiometric(ctx context.Context) error {
	g.mu.Lock()
	if _, ok := g.state.(EnteringPasscode); !ok || g.challenging {
		err := g.finish(nil)
		g.mu.Unlock()
		return err
	}
	g.challenging = true
	g.mu.Unlock()

	result := biometric.Unavailable
	if g.presence.IsAvailable(ctx) {
		result = g.presence.Challenge(ctx, g.biometricReason)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.challenging = false

	return g.biometricResultLocked(ctx, result)
}

// BiometricResult applies the outcome of a presence challenge. It is ignored
// unless the gate is in EnteringPasscode.
func (g *Gate) BiometricResult(ctx context.Context, result biometric.Result) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.biometricResultLocked(ctx, result)
}

func (g *Gate) biometricResultLocked(ctx context.Context, result biometric.Result) error {
	if _, ok := g.state.(EnteringPasscode); !ok {
		g.log.Debug(ctx, "stale presence result ignored", "result", result.String())
		return g.finish(nil)
	}

	if result != biometric.Success {
		g.log.Info(ctx, "presence challenge not passed", "result", result.String())
		return g.finish(nil)
	}

	creds, err := secrets.LoadCredentials(ctx, g.store)
	if errors.Is(err, secrets.ErrNotFound) {
		g.resetLocked(ctx)
		return g.finish(ErrNoCredentials)
	}
	if err != nil {
		return g.finish(err)
	}

	has, err := secrets.HasPasscode(ctx, g.store)
	if err != nil {
		return g.finish(err)
	}
	if !has {
		g.pending = &creds
		g.setStateLocked(ctx, CreatingPasscode{})
		return g.finish(nil)
	}

	return g.enterLocked(ctx, creds)
}

// Login runs an interactive remote login. It is only allowed in LoggedOut.
//
// A login the user cancels leaves the gate unchanged, writes nothing and
// records no error. A second call while one is outstanding returns ErrBusy.
func (g *Gate) Login(ctx context.Context) error {
	g.mu.Lock()
	if g.remoteBusy {
		g.mu.Unlock()
		return ErrBusy
	}
	if _, ok := g.state.(LoggedOut); !ok {
		err := g.finish(unexpected("login", g.state))
		g.mu.Unlock()
		return err
	}
	g.remoteBusy = true
	g.mu.Unlock()

	log := g.log.With("login_id", uuid.NewString())
	log.Info(ctx, "remote login started")

	creds, err := g.remote.InteractiveLogin(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.remoteBusy = false

	if err != nil {
		if errors.Is(err, remote.ErrCanceled) || errors.Is(err, context.Canceled) {
			log.Info(ctx, "remote login canceled")
			g.finish(nil)
			return err
		}
		log.Warn(ctx, "remote login failed", "error", err)
		return g.loginFailedLocked(err)
	}

	log.Info(ctx, "remote login succeeded")
	return g.loginSucceededLocked(ctx, creds)
}

// LoginSucceeded applies credentials obtained by a remote login. The
// credentials are written to the store before the state changes; a write
// failure leaves the gate where it was.
func (g *Gate) LoginSucceeded(ctx context.Context, creds models.Credentials) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.loginSucceededLocked(ctx, creds)
}

func (g *Gate) loginSucceededLocked(ctx context.Context, creds models.Credentials) error {
	if err := secrets.SaveCredentials(ctx, g.store, creds); err != nil {
		g.log.Error(ctx, "failed to store credentials", "error", err)
		return g.finish(err)
	}

	has, err := secrets.HasPasscode(ctx, g.store)
	if err != nil {
		return g.finish(err)
	}

	g.pending = &creds
	g.failures = 0

	if has {
		g.setStateLocked(ctx, EnteringPasscode{})
	} else {
		g.setStateLocked(ctx, CreatingPasscode{})
	}
	return g.finish(nil)
}

// LoginFailed records a failed remote login. The state is left unchanged.
func (g *Gate) LoginFailed(err error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.loginFailedLocked(err)
}

func (g *Gate) loginFailedLocked(err error) error {
	var rae *RemoteAuthError
	if !errors.As(err, &rae) {
		err = &RemoteAuthError{Op: "login", Err: err}
	}
	return g.finish(err)
}

// CreatePasscode sets the passcode after a remote login. value must be
// exactly PasscodeLength digits and equal confirmation; otherwise it is
// rejected without any state change.
func (g *Gate) CreatePasscode(ctx context.Context, value, confirmation string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.state.(CreatingPasscode); !ok {
		return g.finish(unexpected("create passcode", g.state))
	}

	if len(value) != g.passcodeLength || !common.IsDigits(value) {
		return g.finish(ErrInvalidPasscode)
	}
	if subtle.ConstantTimeCompare([]byte(value), []byte(confirmation)) != 1 {
		return g.finish(ErrConfirmationMismatch)
	}

	creds, err := g.sessionCredentialsLocked(ctx)
	if err != nil {
		return g.finish(err)
	}
	if err := g.checkExpiryLocked(ctx, creds); err != nil {
		return g.finish(err)
	}

	// Decode before writing so a bad token does not leave a passcode behind.
	user, err := g.decode(creds.IDToken)
	if err != nil {
		return g.finish(err)
	}

	if err := g.store.Set(ctx, secrets.NamePasscode, []byte(value)); err != nil {
		g.log.Error(ctx, "failed to store passcode", "error", err)
		return g.finish(err)
	}

	g.log.Info(ctx, "passcode created")
	g.loggedInLocked(ctx, creds, user)
	return g.finish(nil)
}

// SubmitPasscode checks value against the stored passcode.
func (g *Gate) SubmitPasscode(ctx context.Context, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.state.(EnteringPasscode); !ok {
		return g.finish(unexpected("submit passcode", g.state))
	}

	stored, err := g.store.Get(ctx, secrets.NamePasscode)
	if errors.Is(err, secrets.ErrNotFound) {
		if _, err := g.sessionCredentialsLocked(ctx); err != nil {
			return g.finish(err)
		}
		g.setStateLocked(ctx, CreatingPasscode{})
		return g.finish(nil)
	}
	if err != nil {
		return g.finish(err)
	}
	defer common.WipeByteArray(stored)

	if subtle.ConstantTimeCompare([]byte(value), stored) != 1 {
		return g.mismatchLocked(ctx)
	}

	creds, err := g.sessionCredentialsLocked(ctx)
	if err != nil {
		return g.finish(err)
	}
	return g.enterLocked(ctx, creds)
}

func (g *Gate) mismatchLocked(ctx context.Context) error {
	g.failures++
	g.log.Warn(ctx, "passcode mismatch", "failures", g.failures)

	if g.maxAttempts == 0 || g.failures < g.maxAttempts {
		g.setStateLocked(ctx, EnteringPasscode{LastAttemptFailed: true})
		return g.finish(ErrPasscodeMismatch)
	}

	g.log.Warn(ctx, "passcode attempts exhausted, dropping stored session")
	err := g.store.Delete(ctx, secrets.NameCredentials)
	g.resetLocked(ctx)
	if err != nil {
		return g.finish(errors.Join(ErrTooManyAttempts, err))
	}
	return g.finish(ErrTooManyAttempts)
}

// Logout clears the remote session and then both local secrets. If the
// remote call fails nothing local is touched and the gate stays LoggedIn.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	if g.remoteBusy {
		g.mu.Unlock()
		return ErrBusy
	}
	li, ok := g.state.(LoggedIn)
	if !ok {
		err := g.finish(unexpected("logout", g.state))
		g.mu.Unlock()
		return err
	}
	g.remoteBusy = true
	g.mu.Unlock()

	err := g.remote.ClearSession(ctx, li.Credentials)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.remoteBusy = false

	if err != nil {
		g.log.Warn(ctx, "remote logout failed", "error", err)
		return g.finish(&RemoteAuthError{Op: "logout", Err: err})
	}

	err = secrets.DeleteMany(ctx, g.store, secrets.NameCredentials, secrets.NamePasscode)
	g.resetLocked(ctx)
	if err != nil {
		g.log.Error(ctx, "failed to delete local secrets", "error", err)
		return g.finish(err)
	}

	g.log.Info(ctx, "logged out")
	return g.finish(nil)
}

// sessionCredentialsLocked returns the credentials being unlocked, falling
// back to the store. Missing credentials move the gate to LoggedOut.
func (g *Gate) sessionCredentialsLocked(ctx context.Context) (models.Credentials, error) {
	if g.pending != nil {
		return *g.pending, nil
	}

	creds, err := secrets.LoadCredentials(ctx, g.store)
	if errors.Is(err, secrets.ErrNotFound) {
		g.resetLocked(ctx)
		return models.Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return models.Credentials{}, err
	}

	g.pending = &creds
	return creds, nil
}

// enterLocked decodes the user and moves to LoggedIn.
func (g *Gate) enterLocked(ctx context.Context, creds models.Credentials) error {
	if err := g.checkExpiryLocked(ctx, creds); err != nil {
		return g.finish(err)
	}

	user, err := g.decode(creds.IDToken)
	if err != nil {
		g.log.Warn(ctx, "cannot decode id token", "error", err)
		return g.finish(err)
	}

	g.loggedInLocked(ctx, creds, user)
	return g.finish(nil)
}

// checkExpiryLocked refuses to unlock credentials that expired while the
// gate was locked. The stored bundle is kept so the next Foreground can
// refresh it.
func (g *Gate) checkExpiryLocked(ctx context.Context, creds models.Credentials) error {
	if creds.Valid(g.now(), g.expiryLeeway) {
		return nil
	}
	g.log.Info(ctx, "session expired while locked")
	g.resetLocked(ctx)
	return ErrSessionExpired
}

func (g *Gate) loggedInLocked(ctx context.Context, creds models.Credentials, user models.User) {
	g.pending = nil
	g.failures = 0
	g.setStateLocked(ctx, LoggedIn{Credentials: creds, User: user})
}

func (g *Gate) resetLocked(ctx context.Context) {
	g.pending = nil
	g.failures = 0
	g.setStateLocked(ctx, LoggedOut{})
}

func (g *Gate) setStateLocked(ctx context.Context, next State) {
	if g.state.Kind() != next.Kind() {
		g.log.Info(ctx, "gate transition", "from", g.state.Kind().String(), "to", next.Kind().String())
	}
	g.state = next
}

func (g *Gate) finish(err error) error {
	g.lastErr = err
	return err
}
