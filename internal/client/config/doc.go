// Package config loads runtime configuration for the pingate client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment variables prefixed with PINGATE_.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-issuer string         OIDC issuer URL
//	-client-id string      OAuth2 client id
//	-audience string       API audience requested at login
//	-scopes string         comma-separated scopes
//	-data-dir string       directory holding the secret store and device key
//	-passcode-length int   number of passcode digits
//	-max-attempts int      passcode attempts before the session is dropped (0 = unlimited)
//	-login-timeout int     interactive login timeout (seconds)
//	-presence string       presence challenge: "totp" or "none"
//	-auto-presence bool    offer the presence challenge on unlock
//	-log-level string      debug, info, warn or error
//	-ephemeral bool        keep secrets in memory only
//
// # JSON schema
//
// Durations accept strings like "30s" or integer nanoseconds:
//
//	{
//	  "issuer_url": "https://login.example.org/",
//	  "client_id": "pingate-cli",
//	  "scopes": ["openid", "profile", "email", "offline_access"],
//	  "data_dir": "~/.pingate",
//	  "passcode_length": 4,
//	  "max_passcode_attempts": 5,
//	  "login_timeout": "5m",
//	  "expiry_leeway": "30s",
//	  "presence": "totp"
//	}
package config
