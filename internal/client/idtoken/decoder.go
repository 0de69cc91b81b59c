// Package idtoken projects an OIDC ID token payload into a models.User.
//
// Decoding is pure: the signature is not verified (the token was obtained
// from the identity provider over TLS and is only used for display), no
// network access happens and the input is never modified.
package idtoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pingate/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformed = errors.New("malformed id token")

// Decoder turns an ID token into a User. Decode is the default; tests may
// inject their own.
type Decoder func(idToken string) (models.User, error)

type claims struct {
	jwt.RegisteredClaims
	Name          string    `json:"name"`
	Nickname      string    `json:"nickname"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Picture       string    `json:"picture"`
	UpdatedAt     timestamp `json:"updated_at"`
}

// timestamp accepts both RFC 3339 strings and Unix seconds, since
// providers disagree on the updated_at encoding.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		t.Time = time.Time{}
	case float64:
		t.Time = time.Unix(int64(value), 0).UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return err
		}
		t.Time = parsed.UTC()
	default:
		return fmt.Errorf("unsupported updated_at %T", v)
	}
	return nil
}

// Decode parses the JWT payload without verifying it.
func Decode(idToken string) (models.User, error) {
	if strings.TrimSpace(idToken) == "" {
		return models.User{}, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	c := &claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, c); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if c.Subject == "" {
		return models.User{}, fmt.Errorf("%w: missing sub claim", ErrMalformed)
	}

	name := c.Name
	if name == "" {
		name = c.Nickname
	}

	return models.User{
		ID:            c.Subject,
		Name:          name,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Picture:       c.Picture,
		UpdatedAt:     c.UpdatedAt.Time,
	}, nil
}
