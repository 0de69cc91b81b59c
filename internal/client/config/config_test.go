package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, []string{"openid", "profile", "email", "offline_access"}, c.Scopes)
	assert.Equal(t, "~/.pingate", c.DataDir)
	assert.Equal(t, 4, c.PasscodeLength)
	assert.Equal(t, 5, c.MaxPasscodeAttempts)
	assert.Equal(t, 5*time.Minute, c.LoginTimeout)
	assert.Equal(t, 30*time.Second, c.ExpiryLeeway)
	assert.Equal(t, PresenceTOTP, c.Presence)
	assert.True(t, c.AutoPresence)
	assert.Equal(t, "info", c.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := defaults()
	valid.IssuerURL = "https://login.example.org/"
	valid.ClientID = "cli"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "no issuer", mutate: func(c *Config) { c.IssuerURL = "" }, wantErr: true},
		{name: "no client id", mutate: func(c *Config) { c.ClientID = "" }, wantErr: true},
		{name: "short passcode", mutate: func(c *Config) { c.PasscodeLength = 3 }, wantErr: true},
		{name: "long passcode", mutate: func(c *Config) { c.PasscodeLength = 13 }, wantErr: true},
		{name: "negative attempts", mutate: func(c *Config) { c.MaxPasscodeAttempts = -1 }, wantErr: true},
		{name: "unlimited attempts", mutate: func(c *Config) { c.MaxPasscodeAttempts = 0 }},
		{name: "zero login timeout", mutate: func(c *Config) { c.LoginTimeout = 0 }, wantErr: true},
		{name: "unknown presence", mutate: func(c *Config) { c.Presence = "face" }, wantErr: true},
		{name: "presence none", mutate: func(c *Config) { c.Presence = PresenceNone }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"issuer_url": "https://json.example.org/",
		"client_id": "json-client",
		"passcode_length": 6,
		"max_passcode_attempts": 3,
		"expiry_leeway": "1m"
	}`), 0o600))

	environ := map[string]string{
		"PINGATE_CLIENT_ID":       "env-client",
		"PINGATE_PASSCODE_LENGTH": "8",
		"PINGATE_SCOPES":          "openid,email",
	}
	args := []string{"-c", path, "-passcode-length", "5", "-unrelated", "x"}

	cfg, err := Load(args, environ)
	require.NoError(t, err)

	want := defaults()
	want.IssuerURL = "https://json.example.org/"
	want.ClientID = "env-client"
	want.PasscodeLength = 5
	want.MaxPasscodeAttempts = 3
	want.ExpiryLeeway = time.Minute
	want.Scopes = []string{"openid", "email"}

	assert.Empty(t, cmp.Diff(&want, cfg))
}

func TestLoad_InvalidResult(t *testing.T) {
	_, err := Load(nil, map[string]string{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_BadEnvironment(t *testing.T) {
	_, err := Load(nil, map[string]string{"PINGATE_MAX_PASSCODE_ATTEMPTS": "many"})
	assert.Error(t, err)
}

func TestLoad_BadFlag(t *testing.T) {
	environ := map[string]string{"PINGATE_ISSUER_URL": "https://x/", "PINGATE_CLIENT_ID": "c"}
	_, err := Load([]string{"-max-attempts", "abc"}, environ)
	assert.Error(t, err)
}
