// Package db holds the schema migrations and the runner that applies them.
package db

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	// Register the lib/pq based postgres driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Direction selects which way Run migrates.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Run applies every embedded migration in the given direction. Being already
// at the target version is not an error.
func Run(dsn string, direction Direction) error {
	if dsn == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database url is required to run migrations")
	}
	if direction != Up && direction != Down {
		return oops.Code("MIGRATION_DIRECTION_INVALID").With("direction", direction).Errorf("direction must be up or down")
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return oops.Code("MIGRATION_SOURCE_FAILED").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		source.Close()
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	defer m.Close()

	if direction == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_FAILED").With("direction", direction).Wrap(err)
	}
	return nil
}
