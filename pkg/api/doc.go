// Package api implements the HTTP surface: authentication and account
// endpoints under /api/auth, task CRUD under /api/task, and the service
// info and health endpoints.
//
// Handlers accept sessions from either an Authorization bearer header or
// the session cookie loaded by the middleware chain. Bearer failures are
// hard 401s with a WWW-Authenticate challenge; cookie failures simply
// leave the request anonymous.
package api
