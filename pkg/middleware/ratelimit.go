package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/taskforge/taskforge/pkg/observability"
)

// EndpointLimit defines the request budget for one endpoint class
type EndpointLimit struct {
	Requests int
	Window   time.Duration
}

// Endpoint classes, matched by path substring. Credential endpoints get
// tight budgets; everything else shares the default.
var (
	loginLimit    = EndpointLimit{Requests: 5, Window: 5 * time.Minute}
	registerLimit = EndpointLimit{Requests: 3, Window: time.Hour}
	defaultLimit  = EndpointLimit{Requests: 100, Window: time.Minute}
)

// classifyEndpoint returns the class name and budget for a request path.
func classifyEndpoint(path string) (string, EndpointLimit) {
	switch {
	case strings.Contains(path, "login") || strings.Contains(path, "/auth/token"):
		return "login", loginLimit
	case strings.Contains(path, "register") || strings.Contains(path, "password-reset"):
		return "register", registerLimit
	default:
		return "default", defaultLimit
	}
}

// ClientID derives the rate limit identity for a request: the forwarded
// client IP joined with a short hash of the user agent, so distinct clients
// behind one NAT do not share a budget.
func ClientID(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.UserAgent()))
	return getClientIP(r) + ":" + hex.EncodeToString(sum[:])[:8]
}

// getClientIP extracts the originating client IP, honoring proxy headers
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the original client.
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// CounterStore counts requests per key over a sliding window
type CounterStore interface {
	// Allow records one request and reports whether it fits the budget,
	// along with the remaining quota after this request.
	Allow(ctx context.Context, key string, limit EndpointLimit) (allowed bool, remaining int, err error)
}

// LocalCounterStore is an in-process sliding window counter. The key space
// is LRU-bounded so unauthenticated scanners cannot grow memory without
// bound.
type LocalCounterStore struct {
	mu      sync.Mutex
	entries *lru.Cache[string, []time.Time]
	now     func() time.Time
}

// NewLocalCounterStore creates a local counter store tracking at most
// maxKeys distinct clients.
func NewLocalCounterStore(maxKeys int) (*LocalCounterStore, error) {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	cache, err := lru.New[string, []time.Time](maxKeys)
	if err != nil {
		return nil, err
	}
	return &LocalCounterStore{
		entries: cache,
		now:     time.Now,
	}, nil
}

// Allow implements CounterStore with an in-memory sliding window.
func (s *LocalCounterStore) Allow(_ context.Context, key string, limit EndpointLimit) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-limit.Window)

	timestamps, _ := s.entries.Get(key)
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit.Requests {
		s.entries.Add(key, kept)
		return false, 0, nil
	}

	kept = append(kept, now)
	s.entries.Add(key, kept)
	return true, limit.Requests - len(kept), nil
}

// RateLimitMiddleware enforces per-client, per-endpoint-class request
// budgets. It prefers the shared counter store and falls back to the local
// one when the shared store errors, so a Redis outage degrades to
// per-instance limiting instead of an outage.
type RateLimitMiddleware struct {
	store    CounterStore
	fallback *LocalCounterStore
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewRateLimitMiddleware creates a rate limit middleware. store may equal
// fallback when no shared store is configured.
func NewRateLimitMiddleware(store CounterStore, fallback *LocalCounterStore, logger *observability.Logger, metrics *observability.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		store:    store,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with rate limiting.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class, limit := classifyEndpoint(r.URL.Path)
		// Windows are per (client, path); the class only selects the budget,
		// so traffic to one endpoint cannot exhaust another's.
		key := fmt.Sprintf("%s:%s", ClientID(r), r.URL.Path)

		backend := "shared"
		allowed, remaining, err := m.store.Allow(r.Context(), key, limit)
		if err != nil {
			m.logger.WithError(err).Warn("shared rate limit store unavailable, using local fallback")
			if m.metrics != nil {
				m.metrics.RateLimitFallbacks.Inc()
			}
			backend = "local"
			allowed, remaining, _ = m.fallback.Allow(r.Context(), key, limit)
		}

		if m.metrics != nil {
			outcome := "allowed"
			if !allowed {
				outcome = "rejected"
			}
			m.metrics.RateLimitDecisions.WithLabelValues(backend, outcome).Inc()
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(limit.Window).Unix(), 10))

		if !allowed {
			retryAfter := int(limit.Window.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			m.logger.WithFields(map[string]interface{}{
				"class": class,
				"path":  r.URL.Path,
			}).Warn("rate limit exceeded")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
