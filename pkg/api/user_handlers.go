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

// UserHandlers serves registration and admin account management
type UserHandlers struct {
	users  UserStore
	server *Server
	logger *observability.Logger
}

// NewUserHandlers creates the user handler group.
func NewUserHandlers(users UserStore, server *Server, logger *observability.Logger) *UserHandlers {
	return &UserHandlers{
		users:  users,
		server: server,
		logger: logger,
	}
}

// RegisterRoutes registers the user management routes.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/users", h.register).Methods("POST")
	router.HandleFunc("/api/auth/users", h.listUsers).Methods("GET")
	router.HandleFunc("/api/auth/users/{id:[0-9]+}/toggle-status", h.toggleStatus).Methods("PATCH")
	router.HandleFunc("/api/auth/users/{id:[0-9]+}/toggle-admin", h.toggleAdmin).Methods("PATCH")
	router.HandleFunc("/api/auth/users/{id:[0-9]+}", h.deleteUser).Methods("DELETE")
}

// register handles POST /api/auth/users (public registration)
func (h *UserHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	username, err := NormalizeUsername(req.Username)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateEmail(req.Email); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidatePassword(req.Password); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}

	user := &auth.User{
		Username:       username,
		Email:          req.Email,
		FullName:       req.FullName,
		HashedPassword: hash,
		CreationDate:   time.Now().UTC(),
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateEmail) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.logger.WithError(err).Error("failed to create user")
		httputil.WriteInternalError(w)
		return
	}

	h.logger.WithField("user", user.Username).Info("user registered")
	httputil.WriteCreated(w, user)
}

// listUsers handles GET /api/auth/users (admin)
func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.server.CurrentAdmin(w, r); !ok {
		return
	}

	skip, limit := httputil.ParsePagination(r, 100, 1000)
	users, err := h.users.ListUsers(r.Context(), skip, limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list users")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, users)
}

// loadTarget fetches the target account of an admin operation, enforcing
// the self-protection rule.
func (h *UserHandlers) loadTarget(w http.ResponseWriter, r *http.Request, actor *auth.User) (*auth.User, bool) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return nil, false
	}

	if err := auth.CheckSelfTarget(actor, id); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}

	target, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			httputil.WriteNotFoundError(w, err.Error())
			return nil, false
		}
		h.logger.WithError(err).Error("failed to load user")
		httputil.WriteInternalError(w)
		return nil, false
	}
	return target, true
}

// toggleStatus handles PATCH /api/auth/users/{id}/toggle-status (admin)
func (h *UserHandlers) toggleStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.server.CurrentAdmin(w, r)
	if !ok {
		return
	}
	target, ok := h.loadTarget(w, r, actor)
	if !ok {
		return
	}

	target.Disabled = !target.Disabled
	if target.Disabled {
		now := time.Now().UTC()
		target.DisableDate = &now
	} else {
		target.DisableDate = nil
	}

	if err := h.users.UpdateUser(r.Context(), target); err != nil {
		h.logger.WithError(err).Error("failed to toggle user status")
		httputil.WriteInternalError(w)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"actor":    actor.Username,
		"target":   target.Username,
		"disabled": target.Disabled,
	}).Info("user status toggled")
	httputil.WriteSuccess(w, target)
}

// toggleAdmin handles PATCH /api/auth/users/{id}/toggle-admin (admin)
func (h *UserHandlers) toggleAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.server.CurrentAdmin(w, r)
	if !ok {
		return
	}
	target, ok := h.loadTarget(w, r, actor)
	if !ok {
		return
	}

	target.IsAdmin = !target.IsAdmin
	if err := h.users.UpdateUser(r.Context(), target); err != nil {
		h.logger.WithError(err).Error("failed to toggle admin role")
		httputil.WriteInternalError(w)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"actor":    actor.Username,
		"target":   target.Username,
		"is_admin": target.IsAdmin,
	}).Info("admin role toggled")
	httputil.WriteSuccess(w, target)
}

// deleteUser handles DELETE /api/auth/users/{id} (admin)
func (h *UserHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.server.CurrentAdmin(w, r)
	if !ok {
		return
	}
	target, ok := h.loadTarget(w, r, actor)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), target.ID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		h.logger.WithError(err).Error("failed to delete user")
		httputil.WriteInternalError(w)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"actor":  actor.Username,
		"target": target.Username,
	}).Info("user deleted")
	httputil.WriteSuccessMessage(w, "user deleted", nil)
}
