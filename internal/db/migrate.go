package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func newMigrator(config Config) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, config.MigrationURL())
	if err != nil {
		return nil, fmt.Errorf("failed to initialise migrator: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("failed to close migrator")
	}
}

// RunMigrations applies every pending up migration.
func RunMigrations(config Config) error {
	m, err := newMigrator(config)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database schema is up to date")
	return nil
}

// RollbackMigrations reverts the given number of applied migrations.
func RollbackMigrations(config Config, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	m, err := newMigrator(config)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back %d migrations: %w", steps, err)
	}
	return nil
}
