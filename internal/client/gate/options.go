package gate

import (
	"time"

	"github.com/dmitrijs2005/pingate/internal/client/idtoken"
	"github.com/dmitrijs2005/pingate/internal/logging"
)

const (
	DefaultPasscodeLength  = 4
	DefaultMaxAttempts     = 5
	DefaultExpiryLeeway    = 30 * time.Second
	DefaultRefreshTimeout  = 15 * time.Second
	DefaultBiometricReason = "Authenticate to retrieve token"
)

// Option configures a Gate.
type Option func(*Gate)

// WithPasscodeLength sets the exact number of digits a passcode must have.
func WithPasscodeLength(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.passcodeLength = n
		}
	}
}

// WithMaxAttempts sets how many consecutive mismatches are tolerated before
// the stored credentials are dropped and a remote login is required.
// 0 disables the limit.
func WithMaxAttempts(n int) Option {
	return func(g *Gate) {
		if n >= 0 {
			g.maxAttempts = n
		}
	}
}

// WithExpiryLeeway treats credentials expiring within d as already expired.
func WithExpiryLeeway(d time.Duration) Option {
	return func(g *Gate) {
		if d >= 0 {
			g.expiryLeeway = d
		}
	}
}

// WithRefreshTimeout bounds the silent token refresh done on foreground.
func WithRefreshTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.refreshTimeout = d
		}
	}
}

// WithAutoBiometric controls whether Foreground offers a presence challenge
// on its own.
func WithAutoBiometric(enabled bool) Option {
	return func(g *Gate) {
		g.autoBiometric = enabled
	}
}

// WithBiometricReason sets the text shown with a presence challenge.
func WithBiometricReason(reason string) Option {
	return func(g *Gate) {
		if reason != "" {
			g.biometricReason = reason
		}
	}
}

func WithDecoder(d idtoken.Decoder) Option {
	return func(g *Gate) {
		if d != nil {
			g.decode = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}
