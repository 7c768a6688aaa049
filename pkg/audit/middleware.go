package audit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/contextkeys"
	"github.com/taskforge/taskforge/pkg/observability"
)

// sensitivePathParts always trigger an audit entry, whatever the outcome.
var sensitivePathParts = []string{
	"/auth/login",
	"/auth/logout",
	"/auth/token",
	"/auth/register",
	"/auth/password-reset",
	"/auth/change-password",
	"/users/register",
	"/profile",
	"/admin",
}

// slowRequestThreshold marks requests worth auditing on latency alone.
const slowRequestThreshold = 5 * time.Second

// Middleware assigns request IDs and emits audit entries for sensitive,
// failed, or slow requests
type Middleware struct {
	logger  *Logger
	metrics *observability.Metrics

	// logAll audits every request, not just the interesting ones.
	logAll bool
}

// NewMiddleware creates the audit middleware. metrics may be nil when the
// metrics endpoint is disabled.
func NewMiddleware(logger *Logger, metrics *observability.Metrics, logAll bool) *Middleware {
	return &Middleware{
		logger:  logger,
		metrics: metrics,
		logAll:  logAll,
	}
}

// statusRecorder captures the response status for the audit entry
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Handler wraps an HTTP handler with audit logging.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		// The session loader runs inside this middleware and fills the
		// holder; reading the context after ServeHTTP would miss it.
		holder := &contextkeys.UserHolder{}
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		ctx = contextkeys.WithUserHolder(ctx, holder)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		duration := time.Since(start)

		if m.metrics != nil {
			m.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, recorder.status, duration)
		}

		sensitive := isSensitivePath(r.URL.Path)
		if !m.shouldLog(recorder.status, duration, sensitive) {
			return
		}

		actor := AnonymousActor
		if user, ok := holder.User.(*auth.User); ok && user != nil {
			actor = user.Username
		}

		m.logger.Log(Entry{
			RequestID: requestID,
			Timestamp: start,
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			Status:    recorder.status,
			Duration:  duration,
			ClientIP:  clientIP(r),
			UserAgent: r.UserAgent(),
			Actor:     actor,
			Sensitive: sensitive,
		})
	})
}

// shouldLog decides whether a request earns an audit entry
func (m *Middleware) shouldLog(status int, duration time.Duration, sensitive bool) bool {
	if m.logAll || sensitive {
		return true
	}
	if status >= 400 {
		return true
	}
	return duration > slowRequestThreshold
}

func isSensitivePath(path string) bool {
	for _, part := range sensitivePathParts {
		if strings.Contains(path, part) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
