package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed schema
var schemaFS embed.FS

type migrationLogger struct{}

func (migrationLogger) Printf(format string, v ...any) {
	logger.LogDynamicany("debug", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrationLogger) Verbose() bool {
	return false
}

// Migrate brings the schema to the latest embedded version. It works on its
// own handle because closing the migrator closes the database it was given.
func Migrate(ctx context.Context, cfg Config) error {
	dsn := cfg.DSN
	dir := "schema/postgres"
	if cfg.Driver == DriverSqlite {
		dsn = sqliteDSN(dsn)
		dir = "schema/sqlite"
	}
	sqldb, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return apperrors.WrapWithMessageFor(apperrors.ErrClassConnection, "migrate", "open failed", cfg.Driver, err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return apperrors.WrapWithMessageFor(apperrors.ErrClassConnection, "migrate", "ping failed", cfg.Driver, err)
	}

	var driver migratedb.Driver
	if cfg.Driver == DriverSqlite {
		driver, err = sqlite3.WithInstance(sqldb, &sqlite3.Config{})
	} else {
		driver, err = postgres.WithInstance(sqldb, &postgres.Config{})
	}
	if err != nil {
		sqldb.Close()
		return apperrors.Wrap(apperrors.ErrClassDatabase, "migrate", err)
	}

	src, err := iofs.New(schemaFS, dir)
	if err != nil {
		driver.Close()
		return apperrors.Wrap(apperrors.ErrClassDatabase, "migrate", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, cfg.Driver, driver)
	if err != nil {
		src.Close()
		driver.Close()
		return apperrors.Wrap(apperrors.ErrClassDatabase, "migrate", err)
	}
	m.Log = migrationLogger{}
	defer m.Close()

	start := time.Now()
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, _ := m.Version()
		return apperrors.Wrap(apperrors.ErrClassDatabase, "migrate", err).
			WithContext("version", version).
			WithContext("dirty", dirty)
	}

	version, _, _ := m.Version()
	logger.LogDynamicany("info", "database schema up to date", "version", int64(version), "changed", err == nil, "duration", time.Since(start))
	return nil
}
