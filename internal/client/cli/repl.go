package cli

import (
	"bufio"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/pingate/internal/client/gate"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	kind() gate.Kind
	Foreground(ctx context.Context) error
	Login(ctx context.Context) error
	CreatePasscode(ctx context.Context) error
	Unlock(ctx context.Context) error
	Presence(ctx context.Context) error
	Whoami(ctx context.Context) error
	Logout(ctx context.Context) error
	EnrollPresence(ctx context.Context) error
	UnenrollPresence(ctx context.Context) error
}

type command struct {
	name    string
	aliases []string
	states  []gate.Kind
	run     func(execIface, context.Context) error
}

var commands = []command{
	{name: "login", states: []gate.Kind{gate.KindLoggedOut}, run: execIface.Login},
	{name: "passcode", states: []gate.Kind{gate.KindCreatingPasscode}, run: execIface.CreatePasscode},
	{name: "unlock", states: []gate.Kind{gate.KindEnteringPasscode}, run: execIface.Unlock},
	{name: "presence", states: []gate.Kind{gate.KindEnteringPasscode}, run: execIface.Presence},
	{name: "whoami", states: []gate.Kind{gate.KindLoggedIn}, run: execIface.Whoami},
	{name: "enroll", states: []gate.Kind{gate.KindLoggedIn}, run: execIface.EnrollPresence},
	{name: "unenroll", states: []gate.Kind{gate.KindLoggedIn}, run: execIface.UnenrollPresence},
	{name: "logout", states: []gate.Kind{gate.KindLoggedIn}, run: execIface.Logout},
	{name: "lock", aliases: []string{"foreground"}, run: execIface.Foreground},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name || slices.Contains(c.aliases, name) {
			return c, true
		}
	}
	return command{}, false
}

func (c command) allowed(k gate.Kind) bool {
	return len(c.states) == 0 || slices.Contains(c.states, k)
}

func available(k gate.Kind) []string {
	var names []string
	for _, c := range commands {
		if c.allowed(k) {
			names = append(names, c.name)
		}
	}
	return append(names, "help", "exit")
}

// runREPL starts a simple read–eval–print loop for the pingate CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a' when the command is valid in the
// current gate state. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands by state:
//
//	logged out:         login
//	creating passcode:  passcode
//	entering passcode:  unlock, presence
//	logged in:          whoami, enroll, unenroll, logout
//	any:                lock (foreground), help, exit | quit
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors to the user. This keeps the REPL loop resilient and
// focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pingate %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		name := parts[0]

		switch name {
		case "help":
			printlnFn("Available commands: " + strings.Join(available(a.kind()), ", "))
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		cmd, ok := lookup(name)
		switch {
		case !ok:
			printlnFn("Unknown command:", name)
		case !cmd.allowed(a.kind()):
			printlnFn("Command not available right now:", name)
		default:
			_ = cmd.run(a, ctx)
		}
	}
}
