// Package client talks to the FileDash server.
//
// HTTPClient implements Client over the REST API. It attaches the access
// token from a TokenStore to every authenticated call and, when the server
// answers 401 "token expired", refreshes the pair once and retries. Uploads
// stream multipart bodies through an io.Pipe and report byte progress.
// Ping goes through the gRPC health service when an address is configured.
//
// Error responses are mapped to ErrUnauthorized, ErrNotFound and
// ErrUnavailable where possible and to *HTTPError otherwise.
package client
