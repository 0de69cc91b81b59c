package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Presence modes.
const (
	PresenceTOTP = "totp"
	PresenceNone = "none"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings for the pingate client.
type Config struct {
	IssuerURL string   `env:"ISSUER_URL"`
	ClientID  string   `env:"CLIENT_ID"`
	Audience  string   `env:"AUDIENCE"`
	Scopes    []string `env:"SCOPES" envSeparator:","`

	DataDir   string `env:"DATA_DIR"`
	Ephemeral bool   `env:"EPHEMERAL"`

	PasscodeLength      int `env:"PASSCODE_LENGTH"`
	MaxPasscodeAttempts int `env:"MAX_PASSCODE_ATTEMPTS"`

	LoginTimeout   time.Duration `env:"LOGIN_TIMEOUT"`
	RefreshTimeout time.Duration `env:"REFRESH_TIMEOUT"`
	ExpiryLeeway   time.Duration `env:"EXPIRY_LEEWAY"`

	Presence     string `env:"PRESENCE"`
	AutoPresence bool   `env:"AUTO_PRESENCE"`

	LogLevel string `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Scopes = []string{"openid", "profile", "email", "offline_access"}
	c.DataDir = "~/.pingate"
	c.PasscodeLength = 4
	c.MaxPasscodeAttempts = 5
	c.LoginTimeout = 5 * time.Minute
	c.RefreshTimeout = 15 * time.Second
	c.ExpiryLeeway = 30 * time.Second
	c.Presence = PresenceTOTP
	c.AutoPresence = true
	c.LogLevel = "info"
}

// Validate reports the first setting the client cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.IssuerURL == "":
		return fmt.Errorf("%w: issuer url is required", ErrInvalidConfig)
	case c.ClientID == "":
		return fmt.Errorf("%w: client id is required", ErrInvalidConfig)
	case c.PasscodeLength < 4 || c.PasscodeLength > 12:
		return fmt.Errorf("%w: passcode length must be between 4 and 12, got %d", ErrInvalidConfig, c.PasscodeLength)
	case c.MaxPasscodeAttempts < 0:
		return fmt.Errorf("%w: max passcode attempts must not be negative", ErrInvalidConfig)
	case c.LoginTimeout <= 0:
		return fmt.Errorf("%w: login timeout must be positive", ErrInvalidConfig)
	case c.Presence != PresenceTOTP && c.Presence != PresenceNone:
		return fmt.Errorf("%w: unknown presence mode %q", ErrInvalidConfig, c.Presence)
	}
	return nil
}

// LoadConfig builds a Config from defaults, then the JSON file, environment
// and command-line flags found in os.Args. Later sources take precedence.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], nil)
}

// Load is LoadConfig over explicit arguments. A nil environ reads the
// process environment.
func Load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
