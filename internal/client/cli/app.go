package cli

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/pquerna/otp"

	"github.com/dmitrijs2005/pingate/internal/client/gate"
	"github.com/dmitrijs2005/pingate/internal/logging"
)

// SessionGate is the part of *gate.Gate the CLI drives.
type SessionGate interface {
	State() gate.State
	LastError() error
	AttemptsRemaining() int
	PasscodeLength() int

	Foreground(ctx context.Context) error
	RequestBiometric(ctx context.Context) error
	Login(ctx context.Context) error
	CreatePasscode(ctx context.Context, value, confirmation string) error
	SubmitPasscode(ctx context.Context, value string) error
	Logout(ctx context.Context) error
}

// PresenceEnroller manages the authenticator enrollment behind the presence
// challenge. *biometric.TOTPGate implements it.
type PresenceEnroller interface {
	IsAvailable(ctx context.Context) bool
	Enroll(ctx context.Context) (*otp.Key, error)
	Unenroll(ctx context.Context) error
}

type App struct {
	gate         SessionGate
	presence     PresenceEnroller
	loginTimeout time.Duration
	log          logging.Logger
	reader       *bufio.Reader
	out          io.Writer
}

// NewApp builds the CLI over g, reading commands from in and writing
// prompts to out. presence may be nil when presence challenges are disabled.
func NewApp(in *bufio.Reader, out io.Writer, g SessionGate, presence PresenceEnroller, loginTimeout time.Duration, log logging.Logger) *App {
	return &App{
		gate:         g,
		presence:     presence,
		loginTimeout: loginTimeout,
		log:          log,
		reader:       in,
		out:          out,
	}
}

func (a *App) kind() gate.Kind {
	return a.gate.State().Kind()
}

// Run resumes the stored session, if any, and then serves the REPL until
// the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to pingate (type 'help' for commands)")

	_ = a.Foreground(ctx)

	scanner := bufio.NewScanner(a.reader)
	runREPL(ctx, a, a.status, scanner)
}
