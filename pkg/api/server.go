package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/contextkeys"
	"github.com/taskforge/taskforge/pkg/httputil"
	"github.com/taskforge/taskforge/pkg/observability"
)

// ServiceName identifies the service in the root endpoint and logs.
const ServiceName = "taskforge"

// Server represents the API server
type Server struct {
	router   *mux.Router
	users    UserStore
	tasks    TaskStore
	resolver *auth.Resolver
	health   *observability.HealthChecker
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// ServerConfig carries the dependencies for a Server
type ServerConfig struct {
	Users        UserStore
	Tasks        TaskStore
	Resolver     *auth.Resolver
	TokenCodec   *auth.TokenCodec
	CookieSecure bool
	Health       *observability.HealthChecker
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		users:    cfg.Users,
		tasks:    cfg.Tasks,
		resolver: cfg.Resolver,
		health:   cfg.Health,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}

	authHandlers := NewAuthHandlers(cfg.Users, cfg.TokenCodec, s, cfg.CookieSecure, cfg.Logger, cfg.Metrics)
	authHandlers.RegisterRoutes(s.router)

	userHandlers := NewUserHandlers(cfg.Users, s, cfg.Logger)
	userHandlers.RegisterRoutes(s.router)

	taskHandlers := NewTaskHandlers(cfg.Tasks, s, cfg.Logger)
	taskHandlers.RegisterRoutes(s.router)

	s.router.HandleFunc("/", s.serviceInfo).Methods("GET")
	if s.health != nil {
		s.router.HandleFunc("/health", s.health.Readiness).Methods("GET")
	}

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// serviceInfo handles GET /
func (s *Server) serviceInfo(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{
		"service": ServiceName,
		"status":  "running",
	})
}

// CurrentUser resolves the caller for protected endpoints. A bearer header,
// when present, is authoritative and fails hard; otherwise the session
// loaded from the cookie by the middleware chain is used. Writes the error
// response and returns false when unauthenticated.
func (s *Server) CurrentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	if strings.TrimSpace(r.Header.Get("Authorization")) != "" {
		user, err := s.resolver.FromBearer(r.Context(), r)
		if err != nil {
			if !isAuthFailure(err) {
				// A store outage is not the caller's fault; never echo the
				// cause to them.
				s.logger.WithError(err).Error("bearer resolution failed")
				httputil.WriteInternalError(w)
				return nil, false
			}
			s.observeTokenVerification(err)
			httputil.WriteUnauthorizedBearer(w, err.Error())
			return nil, false
		}
		s.observeTokenVerification(nil)
		return user, true
	}

	if user, ok := r.Context().Value(contextkeys.UserKey).(*auth.User); ok && user != nil {
		return user, true
	}

	httputil.WriteUnauthorizedBearer(w, auth.ErrUnauthenticated.Error())
	return nil, false
}

// CurrentActiveUser resolves the caller and rejects disabled accounts.
func (s *Server) CurrentActiveUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := s.CurrentUser(w, r)
	if !ok {
		return nil, false
	}
	if err := auth.RequireActive(user); err != nil {
		httputil.WriteForbidden(w, err.Error())
		return nil, false
	}
	return user, true
}

// CurrentAdmin resolves the caller and requires an active admin.
func (s *Server) CurrentAdmin(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := s.CurrentUser(w, r)
	if !ok {
		return nil, false
	}
	if err := auth.RequireAdmin(user); err != nil {
		httputil.WriteForbidden(w, err.Error())
		return nil, false
	}
	return user, true
}

// isAuthFailure reports whether the resolution error is the credential's
// fault, as opposed to an infrastructure failure behind the user store.
func isAuthFailure(err error) bool {
	return errors.Is(err, auth.ErrUnauthenticated) ||
		errors.Is(err, auth.ErrTokenExpired) ||
		errors.Is(err, auth.ErrTokenMalformed)
}

func (s *Server) observeTokenVerification(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrTokenExpired):
		outcome = "expired"
	default:
		outcome = "malformed"
	}
	s.metrics.TokenVerifications.WithLabelValues(outcome).Inc()
}
