// Package database provides database migration tooling for the PostgreSQL store.
package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5 driver
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsFromSource returns a migration source driver from the embedded migrations.
func migrationsFromSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// Migrator is the interface for the migration tooling.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// NewFromConnectionString returns a new migration instance from a postgres:// connection string.
func NewFromConnectionString(connString string) (Migrator, error) {
	d, err := migrationsFromSource()
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", d, toMigrateURL(connString))
}

// MigrateUp applies every pending migration. An up-to-date schema is not an error.
func MigrateUp(connString string) error {
	return withMigrator(connString, func(m Migrator) error {
		return m.Up()
	})
}

// MigrateDown rolls back the given number of migrations, or all of them when steps is 0.
func MigrateDown(connString string, steps uint) error {
	return withMigrator(connString, func(m Migrator) error {
		if steps == 0 {
			return m.Down()
		}
		return m.Steps(-int(steps))
	})
}

// GetVersion returns the current schema version and whether it is dirty.
func GetVersion(connString string) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := withMigrator(connString, func(m Migrator) error {
		var err error
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

func withMigrator(connString string, fn func(Migrator) error) (err error) {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// toMigrateURL rewrites a postgres:// URL to the scheme the pgx v5 migrate driver registers.
func toMigrateURL(connString string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}
