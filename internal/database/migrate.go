package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/nizami/nizami-backend/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

//go:embed logs_migrations/*.sql
var logsMigrationsFS embed.FS

// RunMigrations runs all pending migrations on the primary database
func RunMigrations(cfg config.DatabaseConfig) error {
	return up(migrationsFS, "migrations", cfg)
}

// RunLogsMigrations runs all pending migrations on the LLM exchange log database
func RunLogsMigrations(cfg config.DatabaseConfig) error {
	return up(logsMigrationsFS, "logs_migrations", cfg)
}

// RollbackMigration rolls back the last migration on the primary database
func RollbackMigration(cfg config.DatabaseConfig) error {
	m, err := newMigrator(migrationsFS, "migrations", cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	return nil
}

func up(fsys embed.FS, dir string, cfg config.DatabaseConfig) error {
	m, err := newMigrator(fsys, dir, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func newMigrator(fsys embed.FS, dir string, cfg config.DatabaseConfig) (*migrate.Migrate, error) {
	// Create source from embedded files
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, GetDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}
