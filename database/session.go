package database

import (
	"context"
	"strings"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
)

// Insert describes a multi-row insert. With ConflictColumns set, rows hitting
// that unique key are skipped. Returning lists the columns reported back for
// rows actually inserted.
type Insert struct {
	Table           string
	Columns         []string
	Rows            [][]any
	ConflictColumns []string
	Returning       []string
}

func (in Insert) build(flavor sqlbuilder.Flavor, rows [][]any) (string, []any) {
	ib := flavor.NewInsertBuilder()
	ib.InsertInto(in.Table)
	ib.Cols(in.Columns...)
	for _, row := range rows {
		ib.Values(row...)
	}
	query, args := ib.Build()
	if len(in.ConflictColumns) > 0 {
		query += " ON CONFLICT (" + strings.Join(in.ConflictColumns, ", ") + ") DO NOTHING"
	}
	if len(in.Returning) > 0 {
		query += " RETURNING " + strings.Join(in.Returning, ", ")
	}
	return query, args
}

// Session is one transaction. Rollback after Commit is a no-op so callers can
// defer it.
type Session struct {
	tx     *sqlx.Tx
	db     *DB
	closed bool
}

func (s *Session) Flavor() sqlbuilder.Flavor {
	return s.db.flavor
}

func (s *Session) Select(ctx context.Context, dest any, query string, args ...any) error {
	if err := s.tx.SelectContext(ctx, dest, query, args...); err != nil {
		logger.LogDynamicany("debug", "error query", "query", query, err)
		return apperrors.Wrap(apperrors.ErrClassDatabase, "select", err).WithContext("query", query)
	}
	return nil
}

// BulkInsert writes all rows in chunks and returns the number of rows inserted.
// Returning is ignored; use BulkInsertReturning to read rows back.
func (s *Session) BulkInsert(ctx context.Context, in Insert) (int64, error) {
	in.Returning = nil
	var inserted int64
	size := s.db.chunkSize(len(in.Columns))
	if size == 0 {
		return 0, nil
	}
	for start := 0; start < len(in.Rows); start += size {
		end := min(start+size, len(in.Rows))
		query, args := in.build(s.db.flavor, in.Rows[start:end])
		result, err := s.tx.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, apperrors.WrapWithMessageFor(apperrors.ErrClassDatabase, "bulk insert", "chunk failed", in.Table, err).
				WithContext("offset", start).
				WithContext("rows", end-start)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += n
		}
	}
	return inserted, nil
}

// BulkInsertReturning writes all rows in chunks and hands every returned row
// to scan.
func (s *Session) BulkInsertReturning(ctx context.Context, in Insert, scan func(*sqlx.Rows) error) error {
	size := s.db.chunkSize(len(in.Columns))
	if size == 0 {
		return nil
	}
	for start := 0; start < len(in.Rows); start += size {
		end := min(start+size, len(in.Rows))
		query, args := in.build(s.db.flavor, in.Rows[start:end])
		if err := s.queryEach(ctx, query, args, scan); err != nil {
			return apperrors.WrapWithMessageFor(apperrors.ErrClassDatabase, "bulk insert", "chunk failed", in.Table, err).
				WithContext("offset", start).
				WithContext("rows", end-start)
		}
	}
	return nil
}

func (s *Session) queryEach(ctx context.Context, query string, args []any, scan func(*sqlx.Rows) error) error {
	rows, err := s.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Session) Commit() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrClassDatabase, "commit", err)
	}
	return nil
}

func (s *Session) Rollback() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Rollback(); err != nil {
		return apperrors.Wrap(apperrors.ErrClassDatabase, "rollback", err)
	}
	return nil
}
