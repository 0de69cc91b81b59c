package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/pingate/internal/flagx"
	"github.com/dmitrijs2005/pingate/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from zero so a partial file only overrides
// what it mentions.
type JsonConfig struct {
	IssuerURL           *string         `json:"issuer_url"`
	ClientID            *string         `json:"client_id"`
	Audience            *string         `json:"audience"`
	Scopes              []string        `json:"scopes"`
	DataDir             *string         `json:"data_dir"`
	Ephemeral           *bool           `json:"ephemeral"`
	PasscodeLength      *int            `json:"passcode_length"`
	MaxPasscodeAttempts *int            `json:"max_passcode_attempts"`
	LoginTimeout        *timex.Duration `json:"login_timeout"`
	RefreshTimeout      *timex.Duration `json:"refresh_timeout"`
	ExpiryLeeway        *timex.Duration `json:"expiry_leeway"`
	Presence            *string         `json:"presence"`
	AutoPresence        *bool           `json:"auto_presence"`
	LogLevel            *string         `json:"log_level"`
}

// parseJSON overlays cfg with the file named by -c/-config, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	setIf(&cfg.IssuerURL, jc.IssuerURL)
	setIf(&cfg.ClientID, jc.ClientID)
	setIf(&cfg.Audience, jc.Audience)
	if jc.Scopes != nil {
		cfg.Scopes = jc.Scopes
	}
	setIf(&cfg.DataDir, jc.DataDir)
	setIf(&cfg.Ephemeral, jc.Ephemeral)
	setIf(&cfg.PasscodeLength, jc.PasscodeLength)
	setIf(&cfg.MaxPasscodeAttempts, jc.MaxPasscodeAttempts)
	if jc.LoginTimeout != nil {
		cfg.LoginTimeout = jc.LoginTimeout.Duration
	}
	if jc.RefreshTimeout != nil {
		cfg.RefreshTimeout = jc.RefreshTimeout.Duration
	}
	if jc.ExpiryLeeway != nil {
		cfg.ExpiryLeeway = jc.ExpiryLeeway.Duration
	}
	setIf(&cfg.Presence, jc.Presence)
	setIf(&cfg.AutoPresence, jc.AutoPresence)
	setIf(&cfg.LogLevel, jc.LogLevel)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
