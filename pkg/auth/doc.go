// Package auth provides user identity, password hashing, access token
// issuance and verification, and session resolution for HTTP handlers.
//
// Access tokens are HMAC-signed JWTs carrying the username as subject and
// the numeric user ID. Sessions reach the server either as an Authorization
// bearer header (API clients, hard failure on bad tokens) or as an HttpOnly
// cookie (browser clients, soft failure so anonymous pages still render).
package auth
