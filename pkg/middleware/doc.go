// Package middleware provides the HTTP security middleware chain: request
// size limiting, CSRF protection, rate limiting, security headers, and
// session loading.
//
// The chain order matters. Size limiting runs first so oversized bodies are
// rejected before anything reads them, security headers early so rejections
// also carry them, and audit outside the remaining stages so CSRF and rate
// limit rejections are recorded. The audit layer installs a user holder that
// the session loader fills, since context values set by inner layers are
// invisible to outer ones:
//
//	size limit -> security headers -> audit -> CSRF -> rate limit -> user context
package middleware
