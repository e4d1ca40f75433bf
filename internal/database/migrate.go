package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus describes the schema version after a migration run
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Changed bool
}

func newMigrate(databaseURL string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	closeFn := func() {
		_, _ = m.Close()
	}
	return m, closeFn, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(databaseURL string, logger *zap.Logger) (*MigrationStatus, error) {
	m, closeFn, err := newMigrate(databaseURL)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	changed := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		changed = false
	}

	return migrationStatus(m, changed, logger)
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(databaseURL string, steps int, logger *zap.Logger) (*MigrationStatus, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	m, closeFn, err := newMigrate(databaseURL)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	if err := m.Steps(-steps); err != nil {
		return nil, fmt.Errorf("failed to roll back migrations: %w", err)
	}

	return migrationStatus(m, true, logger)
}

func migrationStatus(m *migrate.Migrate, changed bool, logger *zap.Logger) (*MigrationStatus, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("migrations: database has no applied migrations")
		return &MigrationStatus{Changed: changed}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return nil, fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	if changed {
		logger.Info("migrations: applied successfully", zap.Uint("version", version))
	} else {
		logger.Info("migrations: database is up to date", zap.Uint("version", version))
	}

	return &MigrationStatus{Version: version, Dirty: dirty, Changed: changed}, nil
}
