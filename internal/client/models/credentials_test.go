package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentials_Valid(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		creds  Credentials
		leeway time.Duration
		want   bool
	}{
		{name: "no access token", creds: Credentials{IDToken: "x"}, want: false},
		{name: "no expiry", creds: Credentials{AccessToken: "a"}, want: true},
		{name: "future expiry", creds: Credentials{AccessToken: "a", Expiry: now.Add(time.Hour)}, want: true},
		{name: "past expiry", creds: Credentials{AccessToken: "a", Expiry: now.Add(-time.Second)}, want: false},
		{name: "within leeway", creds: Credentials{AccessToken: "a", Expiry: now.Add(20 * time.Second)}, leeway: 30 * time.Second, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.Valid(now, tt.leeway))
		})
	}
}

func TestCredentials_CanRefresh(t *testing.T) {
	assert.False(t, Credentials{}.CanRefresh())
	assert.True(t, Credentials{RefreshToken: "r"}.CanRefresh())
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Alice", User{ID: "1", Name: "Alice", Email: "a@x"}.DisplayName())
	assert.Equal(t, "a@x", User{ID: "1", Email: "a@x"}.DisplayName())
	assert.Equal(t, "1", User{ID: "1"}.DisplayName())
}
