// Package cli provides authctl, an interactive command-line client for the
// authkeeper HTTP API.
//
// It wires configuration, the API client and a small REPL. Typical flow:
// sign up or sign in, inspect the session with whoami, rotate tokens with
// refresh, and finally log out. A background watcher pings the server and
// shows online/offline state in the prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
