package middleware

import (
	"net/http"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/contextkeys"
)

// UserContextMiddleware resolves the session cookie into a user and
// attaches it to the request context. Resolution failures leave the
// request anonymous; handlers that need a user enforce that themselves.
type UserContextMiddleware struct {
	resolver *auth.Resolver
}

// NewUserContextMiddleware creates a user context middleware.
func NewUserContextMiddleware(resolver *auth.Resolver) *UserContextMiddleware {
	return &UserContextMiddleware{resolver: resolver}
}

// Handler wraps an HTTP handler with session loading.
func (m *UserContextMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.resolver.FromCookie(r.Context(), r); user != nil {
			r = r.WithContext(contextkeys.WithUser(r.Context(), user))
			// The audit layer runs outside this one and cannot see values
			// this middleware adds to the context, so it leaves a holder
			// to be filled here.
			if holder := contextkeys.UserHolderFrom(r.Context()); holder != nil {
				holder.User = user
			}
		}
		next.ServeHTTP(w, r)
	})
}
