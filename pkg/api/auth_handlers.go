package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/httputil"
	"github.com/taskforge/taskforge/pkg/observability"
)

// dummyHash is a valid bcrypt hash of a throwaway string, compared against
// when the username does not exist so both failure paths cost a full hash.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthHandlers serves login, logout, and self-service account endpoints
type AuthHandlers struct {
	users        UserStore
	codec        *auth.TokenCodec
	server       *Server
	cookieSecure bool
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// NewAuthHandlers creates the auth handler group.
func NewAuthHandlers(users UserStore, codec *auth.TokenCodec, server *Server, cookieSecure bool, logger *observability.Logger, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		users:        users,
		codec:        codec,
		server:       server,
		cookieSecure: cookieSecure,
		logger:       logger,
		metrics:      metrics,
	}
}

// RegisterRoutes registers the auth routes.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/token", h.issueToken).Methods("POST")
	router.HandleFunc("/api/auth/token-cookie", h.issueTokenCookie).Methods("POST")
	router.HandleFunc("/api/auth/logout", h.logout).Methods("POST")
	router.HandleFunc("/api/auth/users/me", h.getProfile).Methods("GET")
	router.HandleFunc("/api/auth/users/me", h.updateProfile).Methods("PUT")
	router.HandleFunc("/api/auth/users/me/change-password", h.changePassword).Methods("POST")
}

// authenticate checks form credentials against the stored hash. A nil user
// means the credentials were wrong; the caller decides the response shape.
func (h *AuthHandlers) authenticate(r *http.Request) (*auth.User, error) {
	if err := r.ParseForm(); err != nil {
		return nil, nil
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		return nil, nil
	}

	normalized, err := NormalizeUsername(username)
	if err != nil {
		return nil, nil
	}

	user, err := h.users.FindByUsername(r.Context(), normalized)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Burn a comparison anyway so missing users cost the same as
			// wrong passwords.
			auth.VerifyPassword(password, dummyHash)
			return nil, nil
		}
		return nil, err
	}

	if !auth.VerifyPassword(password, user.HashedPassword) {
		return nil, nil
	}
	return user, nil
}

func (h *AuthHandlers) observeLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

// login runs the shared credential flow and returns the issued token.
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) (*auth.User, string, bool) {
	user, err := h.authenticate(r)
	if err != nil {
		h.logger.WithError(err).Error("credential check failed")
		httputil.WriteInternalError(w)
		return nil, "", false
	}
	if user == nil {
		h.observeLogin("bad_credentials")
		httputil.WriteUnauthorizedBearer(w, "incorrect username or password")
		return nil, "", false
	}
	if user.Disabled {
		h.observeLogin("disabled")
		httputil.WriteUnauthorizedBearer(w, auth.ErrAccountDisabled.Error())
		return nil, "", false
	}

	token, err := h.codec.Issue(user.Username, user.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to issue token")
		httputil.WriteInternalError(w)
		return nil, "", false
	}

	if err := h.users.UpdateLastLogin(r.Context(), user.ID, time.Now().UTC()); err != nil {
		// Login still succeeds; the timestamp is best effort.
		h.logger.WithError(err).WithField("user", user.Username).Warn("failed to record last login")
	}

	h.observeLogin("success")
	return user, token, true
}

// issueToken handles POST /api/auth/token (OAuth2 password form)
func (h *AuthHandlers) issueToken(w http.ResponseWriter, r *http.Request) {
	_, token, ok := h.login(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// issueTokenCookie handles POST /api/auth/token-cookie (browser login)
func (h *AuthHandlers) issueTokenCookie(w http.ResponseWriter, r *http.Request) {
	user, token, ok := h.login(w, r)
	if !ok {
		return
	}
	auth.SetSessionCookie(w, token, h.codec.TTL(), h.cookieSecure)
	httputil.WriteSuccessMessage(w, "login successful", map[string]string{
		"username": user.Username,
	})
}

// logout handles POST /api/auth/logout
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieSecure)
	httputil.WriteSuccessMessage(w, "logged out", nil)
}

// getProfile handles GET /api/auth/users/me
func (h *AuthHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, user)
}

// updateProfile handles PUT /api/auth/users/me
func (h *AuthHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}

	var req ProfileUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.Email != nil {
		if err := ValidateEmail(*req.Email); err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		if *req.Email != user.Email {
			if existing, err := h.users.GetUserByEmail(r.Context(), *req.Email); err == nil && existing.ID != user.ID {
				httputil.WriteBadRequest(w, ErrDuplicateEmail.Error())
				return
			}
			user.Email = *req.Email
		}
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}

	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.logger.WithError(err).Error("failed to update profile")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, user)
}

// changePassword handles POST /api/auth/users/me/change-password
func (h *AuthHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}

	var req PasswordChangeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if !auth.VerifyPassword(req.CurrentPassword, user.HashedPassword) {
		httputil.WriteBadRequest(w, "current password is incorrect")
		return
	}
	if req.NewPassword == req.CurrentPassword {
		httputil.WriteBadRequest(w, "new password must differ from the current password")
		return
	}
	if err := ValidatePassword(req.NewPassword); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}

	user.HashedPassword = hash
	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		h.logger.WithError(err).Error("failed to store new password")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccessMessage(w, "password changed", nil)
}
