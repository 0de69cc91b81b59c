// Package secrets persists the small set of named, opaque secrets the session
// gate relies on: the passcode, the remote credential bundle and the presence
// challenge enrollment.
//
// Every operation is fallible. A missing entry is reported as ErrNotFound;
// any other failure is a *StoreError.
package secrets

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pingate/internal/common"
)

// Well-known secret names.
const (
	NamePasscode       = "passcode"
	NameCredentials    = "credentials"
	NamePresenceSecret = "presence_totp"
)

// ErrNotFound is returned by Get when no secret is stored under the name.
var ErrNotFound = fmt.Errorf("secret %w", common.ErrNotFound)

// Store is the secret-store contract.
//
// Delete and DeleteAll are idempotent: removing an absent entry is not an
// error.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context) error
}

// BatchDeleter is implemented by stores that can remove several entries
// atomically.
type BatchDeleter interface {
	DeleteMany(ctx context.Context, names ...string) error
}

// StoreError describes a failed store operation.
type StoreError struct {
	Op   string
	Name string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("secret store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("secret store %s[%s]: %v", e.Op, e.Name, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DeleteMany removes all names from s, atomically when s supports it.
func DeleteMany(ctx context.Context, s Store, names ...string) error {
	if b, ok := s.(BatchDeleter); ok {
		return b.DeleteMany(ctx, names...)
	}
	for _, name := range names {
		if err := s.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
