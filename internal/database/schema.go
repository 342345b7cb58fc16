package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"resort/internal/config"
	"resort/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what DB_SCHEMA_MODE resolves to for one environment.
type SchemaPlan struct {
	Mode string
	Env  string
	// SQL runs the embedded migrations.
	SQL bool
	// Auto runs GORM AutoMigrate over PersistentModels.
	Auto bool
}

// SchemaStatus is a SchemaPlan plus the migration state of a live database.
type SchemaStatus struct {
	SchemaPlan
	AppliedVersions   []int
	PendingMigrations []Migration
}

var protectedEnvs = []string{"production", "prod", "staging", "stage"}

// PlanSchema resolves the schema mode for cfg. AutoMigrate never runs in a
// protected environment unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE is set and the
// mode is explicitly auto.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{
		Mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		Env:  cfg.Env,
	}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	protected := slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeHybrid:
		plan.SQL = true
		plan.Auto = !protected
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto is refused in %q unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.Auto = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// ApplySchema brings db up to date according to PlanSchema(cfg).
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !plan.Auto {
		return nil
	}

	log := middleware.Logger.With(slog.String("mode", plan.Mode), slog.String("env", plan.Env))
	if plan.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
		log.Warn("AutoMigrate allowed in a protected environment; review the schema diff")
	}
	log.Info("Running GORM AutoMigrate", slog.Int("models", len(PersistentModels())))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the plan and, when SQL migrations are in play, which
// versions are applied or pending. It never writes.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.SQL {
		return status, nil
	}

	m := NewMigrator(db)
	if status.AppliedVersions, err = m.Applied(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = m.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
