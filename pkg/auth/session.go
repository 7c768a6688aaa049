package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Resolver turns incoming requests into authenticated users
type Resolver struct {
	codec *TokenCodec
	users UserFinder
}

// NewResolver creates a session resolver backed by the given token codec
// and user store.
func NewResolver(codec *TokenCodec, users UserFinder) *Resolver {
	return &Resolver{
		codec: codec,
		users: users,
	}
}

// FromBearer resolves the user from the Authorization header. Any failure
// is hard: API clients sent a credential and it did not check out.
func (r *Resolver) FromBearer(ctx context.Context, req *http.Request) (*User, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return nil, ErrUnauthenticated
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrUnauthenticated
	}

	claims, err := r.codec.Verify(parts[1])
	if err != nil {
		return nil, err
	}

	user, err := r.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	return user, nil
}

// FromCookie resolves the user from the session cookie. Failures are soft:
// a missing, stale, or mismatched cookie yields an anonymous request, not
// an error, so public pages keep working.
//
// The token's subject and embedded user ID must both match the stored
// account; a token replayed against a recreated username is rejected.
func (r *Resolver) FromCookie(ctx context.Context, req *http.Request) *User {
	cookie, err := req.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := r.codec.Verify(cookie.Value)
	if err != nil {
		return nil
	}

	user, err := r.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil
	}
	if user.ID != claims.UserID {
		return nil
	}

	return user
}

// RequireActive returns ErrAccountDisabled when the account is disabled.
func RequireActive(user *User) error {
	if user.Disabled {
		return ErrAccountDisabled
	}
	return nil
}

// RequireAdmin returns an error unless the user is an active admin.
func RequireAdmin(user *User) error {
	if err := RequireActive(user); err != nil {
		return err
	}
	if !user.IsAdmin {
		return ErrInsufficientPrivilege
	}
	return nil
}
