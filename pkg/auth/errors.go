package auth

import "errors"

var (
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthenticated indicates missing or invalid credentials.
	ErrUnauthenticated = errors.New("could not validate credentials")

	// ErrTokenExpired indicates the access token's expiry has passed.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenMalformed indicates the token failed parsing or signature checks.
	ErrTokenMalformed = errors.New("token is malformed or has a bad signature")

	// ErrAccountDisabled indicates the account exists but is disabled.
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrInsufficientPrivilege indicates the caller lacks the admin role.
	ErrInsufficientPrivilege = errors.New("insufficient privileges")

	// ErrSelfOperation indicates an admin tried a protected action on
	// their own account.
	ErrSelfOperation = errors.New("cannot perform this operation on your own account")
)
