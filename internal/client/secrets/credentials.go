package secrets

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/pingate/internal/client/models"
)

// LoadCredentials reads and decodes the credential bundle.
func LoadCredentials(ctx context.Context, s Store) (models.Credentials, error) {
	var creds models.Credentials

	raw, err := s.Get(ctx, NameCredentials)
	if err != nil {
		return creds, err
	}

	if err := json.Unmarshal(raw, &creds); err != nil {
		return models.Credentials{}, &StoreError{Op: "decode", Name: NameCredentials, Err: err}
	}
	return creds, nil
}

// SaveCredentials encodes and writes the credential bundle.
func SaveCredentials(ctx context.Context, s Store, creds models.Credentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return &StoreError{Op: "encode", Name: NameCredentials, Err: err}
	}
	return s.Set(ctx, NameCredentials, raw)
}

// HasPasscode reports whether a passcode secret is stored.
func HasPasscode(ctx context.Context, s Store) (bool, error) {
	_, err := s.Get(ctx, NamePasscode)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
