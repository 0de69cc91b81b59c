package cryptox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/pingate/internal/common"
)

// deviceKeySalt domain-separates the device key from any other use of the
// key file contents.
var deviceKeySalt = []byte("pingate/secrets/v1")

// LoadOrCreateDeviceKey reads the random device secret stored at path,
// creating it with 0600 permissions on first use, and returns the AES key
// derived from it.
func LoadOrCreateDeviceKey(path string) ([]byte, error) {
	secret, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		secret = common.GenerateRandByteArray(KeySize)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, secret, 0o600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
	default:
		return nil, fmt.Errorf("read key file: %w", err)
	}
	defer common.WipeByteArray(secret)

	if len(secret) < KeySize {
		return nil, fmt.Errorf("key file %s: %w", path, ErrInvalidKey)
	}

	return DeriveKey(secret, deviceKeySalt), nil
}
