// Package bootstrap connects the runtime dependencies shared by the server
// and the operator commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"resort/internal/cache"
	"resort/internal/config"
	"resort/internal/database"
	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedIfEmpty fills an empty development database with demo data.
	SeedIfEmpty bool
}

// InitRuntime connects to DB and Redis, promotes the configured root admin,
// and optionally seeds.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// nil when Redis is unreachable
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureRootAdmin(ctx, db, cfg.RootAdminEmail); err != nil {
		return nil, nil, fmt.Errorf("root admin bootstrap: %w", err)
	}

	if opts.SeedIfEmpty && cfg.Env == "development" {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// EnsureRootAdmin gives the account registered with email the admin role.
// An empty email is a no-op; an unknown one is logged and skipped so the
// server can boot before the operator has signed up.
func EnsureRootAdmin(ctx context.Context, db *gorm.DB, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil
	}

	user, err := repository.NewUserRepository(db).GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.Profile == nil {
		middleware.Logger.Warn("ROOT_ADMIN_EMAIL has no account yet", slog.String("email", email))
		return nil
	}
	if user.Profile.Role == models.RoleAdmin {
		return nil
	}
	if err := repository.NewProfileRepository(db).SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return err
	}
	middleware.Logger.Info("Root admin promoted", slog.Uint64("profile_id", uint64(user.ID)), slog.String("email", email))
	return nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&models.Profile{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := seed.NewSeeder(db, seed.DefaultOptions()).Run(ctx)
	return err
}
