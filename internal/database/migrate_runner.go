package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"resort/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one row of migration_logs, written when a script is applied.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Migrator applies and reverts versioned SQL scripts, tracking them in migration_logs.
type Migrator struct {
	db         *gorm.DB
	registered []Migration
}

// NewMigrator returns a Migrator over the embedded migrations.
func NewMigrator(db *gorm.DB) *Migrator {
	return newMigrator(db, migrations)
}

func newMigrator(db *gorm.DB, registered []Migration) *Migrator {
	return &Migrator{db: db, registered: registered}
}

// Applied lists recorded versions in ascending order. A missing log table
// means nothing has been applied yet.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	var versions []int
	err := m.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	switch {
	case err == nil:
		return versions, nil
	case errors.Is(err, gorm.ErrRecordNotFound), isMissingTableError(err):
		return []int{}, nil
	default:
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
}

// Pending returns registered migrations that have no log entry.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mig := range m.registered {
		if !slices.Contains(applied, mig.Version) {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration in version order and returns how many ran.
// It refuses to run against a database that has versions this build does not know.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return 0, fmt.Errorf("ensure migration_logs: %w", err)
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := checkKnownVersions(applied, m.registered); err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range m.registered {
		if slices.Contains(applied, mig.Version) {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	middleware.Logger.Info("Applying migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", mig.String(), err)
		}
		if err := tx.Create(&MigrationLog{Version: mig.Version, Name: mig.Name}).Error; err != nil {
			return fmt.Errorf("record %s: %w", mig.String(), err)
		}
		return nil
	})
}

// Down runs the down script for an applied version and drops its log entry.
func (m *Migrator) Down(ctx context.Context, version int) error {
	idx := slices.IndexFunc(m.registered, func(mig Migration) bool { return mig.Version == version })
	if idx < 0 {
		return fmt.Errorf("migration version %d not found", version)
	}
	mig := m.registered[idx]

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %s has not been applied", mig.String())
	}

	middleware.Logger.Info("Rolling back migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", mig.String(), err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	ran, err := NewMigrator(db).Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("SQL migrations up to date", slog.Int("applied_now", ran))
	return nil
}

// RollbackMigration reverts one embedded migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(db).Down(ctx, version)
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// checkKnownVersions fails when the log holds versions newer than this binary,
// which usually means a stale build is pointed at a newer database.
func checkKnownVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range applied {
		known := slices.ContainsFunc(registered, func(mig Migration) bool { return mig.Version == v })
		if !known {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("migration_logs has versions this build does not know: %s", strings.Join(unknown, ", "))
}
