// Package models defines client-side data models used by the pingate CLI.
package models

import "time"

// Credentials is the token bundle obtained from a successful remote login.
// It is held in memory by the session gate and persisted only through the
// secret store.
type Credentials struct {
	// AccessToken authorizes calls against the remote API.
	AccessToken string `json:"access_token"`

	// IDToken is a signed JWT whose payload is projected into a User.
	IDToken string `json:"id_token"`

	// RefreshToken, when issued, allows renewing the access token without
	// an interactive login.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is usually "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// Expiry is the access token expiry in UTC. Zero means unknown.
	Expiry time.Time `json:"expiry,omitempty"`
}

// Valid reports whether the credentials carry an access token that does not
// expire within leeway of now. Credentials without a known expiry are valid.
func (c Credentials) Valid(now time.Time, leeway time.Duration) bool {
	if c.AccessToken == "" {
		return false
	}
	if c.Expiry.IsZero() {
		return true
	}
	return now.Add(leeway).Before(c.Expiry)
}

// CanRefresh reports whether a refresh token is available.
func (c Credentials) CanRefresh() bool {
	return c.RefreshToken != ""
}
