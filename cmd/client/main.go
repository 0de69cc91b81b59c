package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/pingate/internal/buildinfo"
	"github.com/dmitrijs2005/pingate/internal/client/biometric"
	"github.com/dmitrijs2005/pingate/internal/client/cli"
	"github.com/dmitrijs2005/pingate/internal/client/config"
	"github.com/dmitrijs2005/pingate/internal/client/gate"
	"github.com/dmitrijs2005/pingate/internal/client/remote"
	"github.com/dmitrijs2005/pingate/internal/client/secrets"
	"github.com/dmitrijs2005/pingate/internal/cryptox"
	"github.com/dmitrijs2005/pingate/internal/filex"
	"github.com/dmitrijs2005/pingate/internal/logging"
	"github.com/dmitrijs2005/pingate/internal/netx"
)

const (
	presenceIssuer = "pingate"
	httpTimeout    = 30 * time.Second
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	ctx := context.Background()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "pingate stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	in := bufio.NewReader(os.Stdin)

	var (
		presence biometric.Gate = biometric.Disabled{}
		enroller cli.PresenceEnroller
	)
	if cfg.Presence == config.PresenceTOTP {
		totpGate := biometric.NewTOTPGate(store, cli.PresencePrompt(in, os.Stdout), presenceIssuer, account())
		presence = biometric.Serialize(totpGate)
		enroller = totpGate
	}

	rc := remote.NewOIDCClient(remote.OIDCConfig{
		Issuer:   cfg.IssuerURL,
		ClientID: cfg.ClientID,
		Audience: cfg.Audience,
		Scopes:   cfg.Scopes,
	}, cli.PrintDeviceCode(os.Stdout), netx.NewClient(httpTimeout, "pingate/"+buildinfo.Version()))

	g := gate.New(store, presence, rc,
		gate.WithLogger(logger),
		gate.WithPasscodeLength(cfg.PasscodeLength),
		gate.WithMaxAttempts(cfg.MaxPasscodeAttempts),
		gate.WithExpiryLeeway(cfg.ExpiryLeeway),
		gate.WithRefreshTimeout(cfg.RefreshTimeout),
		gate.WithAutoBiometric(cfg.AutoPresence),
	)

	app := cli.NewApp(in, os.Stdout, g, enroller, cfg.LoginTimeout, logger)
	app.Run(ctx)
	return nil
}

// openStore returns the secret store for cfg and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (secrets.Store, func(), error) {
	if cfg.Ephemeral {
		return secrets.NewMemoryStore(), func() {}, nil
	}

	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	key, err := cryptox.LoadOrCreateDeviceKey(filepath.Join(dir, "device.key"))
	if err != nil {
		return nil, nil, err
	}

	store, err := secrets.OpenSQLite(ctx, filepath.Join(dir, "secrets.db"), key)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func account() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "device"
}
