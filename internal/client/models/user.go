package models

import "time"

// User is the profile projection decoded from an ID token. It is derived,
// never stored.
type User struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	Picture       string
	UpdatedAt     time.Time
}

// DisplayName returns the best human-readable label for the user.
func (u User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}
