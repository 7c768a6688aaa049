// Package admin reconciles the bootstrap admin account on startup: it is
// created when missing, its password re-hashed when the configured one
// rotates, and its admin role and enabled state restored if something
// changed them. The reconcile is idempotent, so every boot runs it.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskforge/taskforge/pkg/api"
	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/config"
	"github.com/taskforge/taskforge/pkg/observability"
)

// ErrNoAdminPassword is returned when the admin account does not exist and
// no password is configured to create it with. The caller treats this as
// fatal: a deployment without any admin cannot be managed.
var ErrNoAdminPassword = errors.New("admin account does not exist and ADMIN_PASSWORD is not set")

// Bootstrap reconciles the admin account against the configuration.
func Bootstrap(ctx context.Context, users api.UserStore, cfg config.AdminConfig, logger *observability.Logger) error {
	logger = logger.WithField("admin", cfg.Username)

	user, err := users.FindByUsername(ctx, cfg.Username)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			return fmt.Errorf("failed to look up admin account: %w", err)
		}
		return createAdmin(ctx, users, cfg, logger)
	}

	changed := false

	// The configuration is authoritative for the admin account: a rotated
	// password, a stripped role, or a disabled flag are all repaired on
	// every boot.
	if cfg.Password != "" && !auth.VerifyPassword(cfg.Password, user.HashedPassword) {
		hash, err := auth.HashPassword(cfg.Password)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		user.HashedPassword = hash
		changed = true
		logger.Warn("admin password updated from configuration")
	}

	if !user.IsAdmin {
		user.IsAdmin = true
		changed = true
		logger.Warn("admin role was missing on the admin account; restored")
	}

	if user.Disabled {
		user.Disabled = false
		user.DisableDate = nil
		changed = true
		logger.Warn("admin account was disabled; re-enabled")
	}

	if !changed {
		logger.Info("admin account verified")
		return nil
	}

	if err := users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to reconcile admin account: %w", err)
	}
	logger.Info("admin account reconciled")
	return nil
}

func createAdmin(ctx context.Context, users api.UserStore, cfg config.AdminConfig, logger *observability.Logger) error {
	if cfg.Password == "" {
		return ErrNoAdminPassword
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	user := &auth.User{
		Username:       cfg.Username,
		Email:          cfg.Email,
		FullName:       cfg.FullName,
		HashedPassword: hash,
		IsAdmin:        true,
		CreationDate:   time.Now().UTC(),
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created")
	return nil
}
