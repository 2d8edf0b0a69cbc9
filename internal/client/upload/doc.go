// Package upload drives a single file from the user's machine to the
// server: local validation, an advisory duplicate-name check, a streamed
// transfer with progress, and a terminal outcome. Active transfers are
// tracked in a Registry so they can be cancelled from anywhere.
package upload
