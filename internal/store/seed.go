package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/wingsite/internal/model"
)

// Default admin credentials, used in development when none are configured.
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// SeedParams holds the initial data written on first start.
type SeedParams struct {
	AdminEmail        string
	AdminName         string
	AdminPasswordHash string // empty skips admin creation

	Settings []model.SettingKV
	Socials  []model.SocialLink
}

// Seed creates the initial admin when no users exist and the default site
// settings when none are stored. Existing data is never touched.
func Seed(ctx context.Context, s *Store, p SeedParams) error {
	users, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}

	switch {
	case users > 0:
		slog.Debug("users exist, skipping admin seed")
	case p.AdminPasswordHash == "" || p.AdminEmail == "":
		slog.Warn("no users and no admin credentials configured; set WINGS_ADMIN_EMAIL and WINGS_ADMIN_PASSWORD")
	default:
		name := p.AdminName
		if name == "" {
			name = DefaultAdminName
		}
		user, err := s.CreateUser(ctx, CreateUserParams{
			Email:        p.AdminEmail,
			PasswordHash: p.AdminPasswordHash,
			Name:         name,
			Role:         model.RoleAdmin,
		})
		if err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		slog.Info("created initial admin user", "id", user.ID, "email", user.Email)
	}

	empty, err := s.SettingsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty || (len(p.Settings) == 0 && len(p.Socials) == 0) {
		return nil
	}
	if err := s.SaveSettings(ctx, p.Settings, p.Socials); err != nil {
		return fmt.Errorf("seeding settings: %w", err)
	}
	slog.Info("seeded default site settings", "keys", len(p.Settings), "socials", len(p.Socials))

	return nil
}
