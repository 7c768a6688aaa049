package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior
type Middleware interface {
	Handler(next http.Handler) http.Handler
}

// Chain applies middlewares to a handler in the order given: the first
// middleware sees the request first.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i].Handler(handler)
	}
	return handler
}
