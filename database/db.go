package database

import (
	"context"
	"strings"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite3"

	// bind parameter ceilings of the drivers
	paramLimitPostgres = 65535
	paramLimitSqlite   = 32766
)

// Tables lists every table of the schema, parents before children.
var Tables = []string{
	"movies",
	"genres",
	"companies",
	"countries",
	"languages",
	"keywords",
	"movie_genres",
	"movie_companies",
	"movie_countries",
	"movie_languages",
	"movie_keywords",
}

type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	// BatchSize caps the rows of a single bulk statement.
	BatchSize int
}

// DB is the connection pool shared by all units of a run.
type DB struct {
	db         *sqlx.DB
	driver     string
	flavor     sqlbuilder.Flavor
	paramLimit int
	batchSize  int
}

// Connect opens and pings the pool. Any failure is a CONNECTION class error.
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	dsn := cfg.DSN
	if cfg.Driver == DriverSqlite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, apperrors.WrapWithMessageFor(apperrors.ErrClassConnection, "connect", "open failed", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.WrapWithMessageFor(apperrors.ErrClassConnection, "connect", "ping failed", cfg.Driver, err)
	}

	if cfg.Driver == DriverSqlite {
		// one writer at a time, parallel units queue on the pool
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	logger.LogDynamicany("debug", "database connected", "driver", cfg.Driver)
	return New(db, cfg.Driver, cfg.BatchSize), nil
}

// New wraps an open pool. Connect is the usual entry point.
func New(db *sqlx.DB, driver string, batchSize int) *DB {
	d := &DB{db: db, driver: driver, batchSize: batchSize}
	if driver == DriverSqlite {
		d.flavor = sqlbuilder.SQLite
		d.paramLimit = paramLimitSqlite
	} else {
		d.flavor = sqlbuilder.PostgreSQL
		d.paramLimit = paramLimitPostgres
	}
	return d
}

// sqliteDSN turns on foreign keys and a busy timeout unless the dsn sets them.
func sqliteDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_fk=") && !strings.Contains(dsn, "_foreign_keys=") {
		params = append(params, "_fk=1")
	}
	if !strings.Contains(dsn, "_busy_timeout=") && !strings.Contains(dsn, "_timeout=") {
		params = append(params, "_busy_timeout=10000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func (d *DB) Driver() string {
	return d.driver
}

// Flavor returns the sqlbuilder dialect matching the driver.
func (d *DB) Flavor() sqlbuilder.Flavor {
	return d.flavor
}

// Begin opens a transaction for one unit of work.
func (d *DB) Begin(ctx context.Context) (*Session, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrClassDatabase, "begin", err)
	}
	return &Session{tx: tx, db: d}, nil
}

// Select runs a read outside of any transaction.
func (d *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	if err := d.db.SelectContext(ctx, dest, query, args...); err != nil {
		return apperrors.Wrap(apperrors.ErrClassDatabase, "select", err).WithContext("query", query)
	}
	return nil
}

// Stats counts the rows of every table.
func (d *DB) Stats(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		sb := d.flavor.NewSelectBuilder()
		sb.Select("count(*)").From(table)
		query, args := sb.Build()

		var counter int64
		if err := d.db.GetContext(ctx, &counter, query, args...); err != nil {
			return out, apperrors.WrapWithMessageFor(apperrors.ErrClassDatabase, "stats", "count failed", table, err)
		}
		out[table] = counter
	}
	return out, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// chunkSize returns how many rows of cols columns fit in one statement.
func (d *DB) chunkSize(cols int) int {
	if cols <= 0 {
		return 0
	}
	maxRows := d.paramLimit / cols
	if d.batchSize <= 0 || d.batchSize > maxRows {
		return maxRows
	}
	return d.batchSize
}
