// Package auth provides the HTTP authentication pieces of plantops-server.
//
// APIKeyMiddleware(mode, header, key) wraps an http.Handler and rejects
// requests whose named header does not carry the configured API key. When
// mode != "apikey" or key == "", all requests pass through (useful for local
// development with auth disabled).
//
// Supervisor verifies the out-of-band credential that unlocks edits of
// records older than the edit-lock window. Only a bcrypt hash of the
// credential is configured; the plain value never reaches the server config.
package auth
