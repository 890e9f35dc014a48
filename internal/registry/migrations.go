package registry

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	"github.com/nahidhasan98/review-relay/internal/logger"
)

//go:embed migrations/*.sql
var sqlSchemas embed.FS

// latestMigrationVersion must be bumped when a migration is added
const latestMigrationVersion uint = 1

// applyMigrations brings the schema up to the latest version
func applyMigrations(db *sql.DB, log *logger.Logger) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := httpfs.New(http.FS(sqlSchemas), "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("migrations", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	m.Log = log

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("registry database is dirty at version %d, manual intervention required", version)
	}
	if version > latestMigrationVersion {
		return fmt.Errorf("registry database version %d is newer than %d", version, latestMigrationVersion)
	}

	// m.Close is not called, it would close db
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.Debugf("Registry schema at version %d", latestMigrationVersion)
	return nil
}
