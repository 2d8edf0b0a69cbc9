// Package cli provides the filedash command-line client.
//
// It wires configuration, the local session database, the API client,
// the upload manager and the file services, and exposes them both as
// one-shot cobra subcommands and as an interactive shell. The shell runs
// a background connectivity watcher and shows the account and mode in
// its prompt.
package cli
