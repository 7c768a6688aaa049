// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains the authenticated *auth.User, or is absent for
	// anonymous requests.
	// Set by: middleware.UserContextMiddleware (pkg/middleware/usercontext.go)
	// Used by: route handlers
	UserKey Key = "current_user"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: audit middleware
	// Used by: logger, audit trail
	RequestIDKey Key = "request_id"

	// UserHolderKey contains the *UserHolder installed by the audit
	// middleware and filled by the session loader.
	UserHolderKey Key = "user_holder"
)

// UserHolder is a late-binding slot for the resolved user. Context values
// added by inner middleware layers are invisible to outer ones, so an outer
// layer that needs the resolved identity after the response installs a
// holder and lets the session loader fill it.
type UserHolder struct {
	User interface{}
}

// WithUser adds the authenticated user to the context.
func WithUser(ctx context.Context, user interface{}) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID from the context, or "" if unset.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserHolder installs a user holder into the context.
func WithUserHolder(ctx context.Context, holder *UserHolder) context.Context {
	return context.WithValue(ctx, UserHolderKey, holder)
}

// UserHolderFrom retrieves the user holder from the context, or nil.
func UserHolderFrom(ctx context.Context) *UserHolder {
	if holder, ok := ctx.Value(UserHolderKey).(*UserHolder); ok {
		return holder
	}
	return nil
}
