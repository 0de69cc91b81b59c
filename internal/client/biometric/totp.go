package biometric

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pingate/internal/client/secrets"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// PromptFunc asks the user for an authenticator code. An error or an empty
// answer counts as cancellation.
type PromptFunc func(ctx context.Context, reason string) (string, error)

var validateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// TOTPGate performs the presence check with a time-based one-time code from
// an authenticator app enrolled on this device. The shared secret lives in
// the secret store under secrets.NamePresenceSecret.
type TOTPGate struct {
	store   secrets.Store
	prompt  PromptFunc
	issuer  string
	account string
	now     func() time.Time
}

func NewTOTPGate(store secrets.Store, prompt PromptFunc, issuer, account string) *TOTPGate {
	return &TOTPGate{store: store, prompt: prompt, issuer: issuer, account: account, now: time.Now}
}

func (g *TOTPGate) secret(ctx context.Context) (string, bool) {
	raw, err := g.store.Get(ctx, secrets.NamePresenceSecret)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

func (g *TOTPGate) IsAvailable(ctx context.Context) bool {
	_, ok := g.secret(ctx)
	return ok
}

func (g *TOTPGate) Challenge(ctx context.Context, reason string) Result {
	secret, ok := g.secret(ctx)
	if !ok {
		return Unavailable
	}

	code, err := g.prompt(ctx, reason)
	if err != nil || ctx.Err() != nil {
		return Failure
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return Failure
	}

	valid, err := totp.ValidateCustom(code, secret, g.now().UTC(), validateOpts)
	if err != nil || !valid {
		return Failure
	}
	return Success
}

// Enroll generates a new authenticator secret, stores it and returns the key
// so its otpauth:// URL can be shown to the user.
func (g *TOTPGate) Enroll(ctx context.Context) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: g.account,
		Period:      validateOpts.Period,
		Digits:      validateOpts.Digits,
		Algorithm:   validateOpts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	if err := g.store.Set(ctx, secrets.NamePresenceSecret, []byte(key.Secret())); err != nil {
		return nil, err
	}
	return key, nil
}

// Unenroll removes the authenticator secret. It is idempotent.
func (g *TOTPGate) Unenroll(ctx context.Context) error {
	err := g.store.Delete(ctx, secrets.NamePresenceSecret)
	if errors.Is(err, secrets.ErrNotFound) {
		return nil
	}
	return err
}
