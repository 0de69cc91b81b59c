package config

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/pingate/internal/flagx"
)

var knownFlags = []string{
	"-issuer", "-client-id", "-audience", "-scopes", "-data-dir",
	"-passcode-length", "-max-attempts", "-login-timeout",
	"-presence", "-auto-presence", "-log-level", "-ephemeral",
}

// parseFlags populates Config fields from command-line flags. args is
// filtered with flagx.FilterArgs first so flags owned by other components
// do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("pingate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.IssuerURL, "issuer", cfg.IssuerURL, "OIDC issuer URL")
	fs.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "OAuth2 client id")
	fs.StringVar(&cfg.Audience, "audience", cfg.Audience, "API audience requested at login")
	scopes := fs.String("scopes", strings.Join(cfg.Scopes, ","), "comma-separated scopes")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	fs.IntVar(&cfg.PasscodeLength, "passcode-length", cfg.PasscodeLength, "number of passcode digits")
	fs.IntVar(&cfg.MaxPasscodeAttempts, "max-attempts", cfg.MaxPasscodeAttempts, "passcode attempts before the session is dropped")
	loginTimeout := fs.Int("login-timeout", int(cfg.LoginTimeout.Seconds()), "interactive login timeout (in seconds)")
	fs.StringVar(&cfg.Presence, "presence", cfg.Presence, "presence challenge: totp or none")
	fs.BoolVar(&cfg.AutoPresence, "auto-presence", cfg.AutoPresence, "offer the presence challenge on unlock")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.Ephemeral, "ephemeral", cfg.Ephemeral, "keep secrets in memory only")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Scopes = splitList(*scopes)
	cfg.LoginTimeout = time.Duration(*loginTimeout) * time.Second
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
