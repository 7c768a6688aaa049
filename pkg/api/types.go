package api

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/taskforge/taskforge/pkg/auth"
)

// Task represents a single task owned by a user
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Done        bool      `json:"done"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskStats summarizes task completion for a user or for the whole system
type TaskStats struct {
	Scope          string  `json:"scope"` // "user" or "all"
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completion_rate"` // percentage, one decimal
}

// Sentinel errors returned by the storage layer.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrDuplicateUsername = errors.New("username already registered")
	ErrDuplicateEmail    = errors.New("email already registered")
)

// UserStore defines persistence operations for user accounts. FindByUsername
// doubles as the auth.UserFinder implementation.
type UserStore interface {
	CreateUser(ctx context.Context, user *auth.User) error
	GetUserByID(ctx context.Context, id int64) (*auth.User, error)
	FindByUsername(ctx context.Context, username string) (*auth.User, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	ListUsers(ctx context.Context, skip, limit int) ([]*auth.User, error)
	UpdateUser(ctx context.Context, user *auth.User) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	DeleteUser(ctx context.Context, id int64) error
}

// TaskStore defines persistence operations for tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasksByUser(ctx context.Context, userID int64, skip, limit int) ([]*Task, error)
	ListAllTasks(ctx context.Context, skip, limit int) ([]*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id int64) error

	// Stats aggregates completion counts. userID 0 means all users.
	Stats(ctx context.Context, userID int64) (*TaskStats, error)
}

// TokenResponse is the OAuth2-style response from the token endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest is the payload for public registration and admin user creation
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// ProfileUpdateRequest is the payload for self-service profile edits
type ProfileUpdateRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
}

// PasswordChangeRequest is the payload for self-service password changes
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TaskCreateRequest is the payload for creating a task
type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TaskUpdateRequest is the payload for partial task updates
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Done        *bool   `json:"done"`
}

var (
	usernameRegexp = regexp.MustCompile(`^[a-z0-9_-]+$`)
	emailRegexp    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// NormalizeUsername lowercases and validates a username. Usernames are 3 to
// 50 characters of lowercase letters, digits, underscore, or hyphen.
func NormalizeUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) < 3 || len(username) > 50 {
		return "", fmt.Errorf("username must be between 3 and 50 characters")
	}
	if !usernameRegexp.MatchString(username) {
		return "", fmt.Errorf("username may only contain letters, digits, underscore, and hyphen")
	}
	return username, nil
}

// ValidatePassword enforces the password policy: at least 8 characters with
// an uppercase letter, a lowercase letter, and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("password must contain an uppercase letter, a lowercase letter, and a digit")
	}
	return nil
}

// ValidateEmail checks the address shape without attempting delivery checks.
func ValidateEmail(email string) error {
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidateTaskTitle enforces the 1 to 200 character title limit.
func ValidateTaskTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}
	if len(title) > 200 {
		return fmt.Errorf("title must be at most 200 characters")
	}
	return nil
}

// ValidateTaskDescription enforces the 1000 character description limit.
func ValidateTaskDescription(description string) error {
	if len(description) > 1000 {
		return fmt.Errorf("description must be at most 1000 characters")
	}
	return nil
}
