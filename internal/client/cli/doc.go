// Package cli provides the interactive pingate command-line client.
//
// It is the presentation layer over the session gate: it renders the current
// gate state as a prompt, turns typed commands into gate events and maps the
// gate's side-channel error to a user-facing message.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
