package database

import (
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// migrationLogger adapts ectologger.Logger to golang-migrate's verbose
// logger interface.
type migrationLogger struct {
	ectologger.Logger
}

func (l migrationLogger) Verbose() bool { return true }

func (l migrationLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

// MigrationConfig mirrors the teacher's migration config group
// (config.DatabaseMigrationFolderPath / ...AutoRollback).
type MigrationConfig struct {
	FolderPath   string
	AutoRollback bool
}

// Migrate applies every pending up migration in FolderPath against db. If a
// migration fails partway and AutoRollback is set, the database is forced
// back to the version it was at before this call.
func Migrate(db *sqlx.DB, logger ectologger.Logger, cfg MigrationConfig) error {
	if _, err := os.Stat(cfg.FolderPath); err != nil {
		return errors.Wrap(err, fmt.Sprintf("migration folder %s does not exist", cfg.FolderPath))
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.FolderPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = migrationLogger{Logger: logger}

	previousVersion, _, versionErr := m.Version()
	if versionErr != nil {
		previousVersion = 0
	}

	err = m.Up()
	if err == nil {
		logger.Info("database migrations applied")
		return nil
	}
	if err == migrate.ErrNoChange {
		logger.Info("no new database migrations to apply")
		return nil
	}

	logger.WithError(err).Error("database migration failed")

	if cfg.AutoRollback {
		_, dirty, verErr := m.Version()
		if verErr == nil && dirty {
			logger.Warnf("database left dirty, forcing back to version %d", previousVersion)
			if forceErr := m.Force(int(previousVersion)); forceErr != nil {
				return fmt.Errorf("rollback to version %d after failed migration: %w", previousVersion, forceErr)
			}
		}
	}

	return err
}
