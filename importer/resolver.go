package importer

import (
	"context"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/database"
	"github.com/Kellerman81/go_movie_loader/entities"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/jmoiron/sqlx"
)

// lookupChunk bounds the IN list of the follow-up lookup.
const lookupChunk = 500

type EntityResult struct {
	Category string
	Distinct int
	// Existing counts values found in the table before inserting.
	Existing int
	Inserted int
	// Recovered counts values another writer stored between read and insert.
	Recovered int
	Resolved  int
	Err       error
}

type pair struct {
	ID    int64  `db:"id"`
	Value string `db:"value"`
}

// Resolve maps every value of set to its stored id, inserting the values the
// table does not have yet. On failure the transaction is rolled back and the
// mapping holds only the rows read before the failure.
func Resolve(ctx context.Context, db *database.DB, cat entities.Category, set entities.Set) (entities.Mapping, EntityResult) {
	res := EntityResult{Category: cat.Name, Distinct: len(set)}
	mapping := make(entities.Mapping, len(set))

	fail := func(err error, sess *database.Session) (entities.Mapping, EntityResult) {
		if sess != nil {
			if rerr := sess.Rollback(); rerr != nil {
				logger.LogDynamicany("error", "rollback failed", logger.StrCategory, cat.Name, rerr)
			}
		}
		res.Err = apperrors.WrapWithMessageFor(apperrors.ErrClassResolution, "resolve", "category rolled back", cat.Table, err)
		res.Inserted = 0
		res.Recovered = 0
		res.Resolved = countResolved(set, mapping)
		logger.LogDynamicany("error", "entity resolution failed", append([]any{logger.StrCategory, cat.Name}, apperrors.LogFields(res.Err)...)...)
		return mapping, res
	}

	sess, err := db.Begin(ctx)
	if err != nil {
		return fail(err, nil)
	}
	defer sess.Rollback()

	var existing []pair
	sb := sess.Flavor().NewSelectBuilder()
	sb.Select("id", sb.As(cat.Column, "value")).From(cat.Table)
	query, args := sb.Build()
	if err := sess.Select(ctx, &existing, query, args...); err != nil {
		return fail(err, sess)
	}
	for _, p := range existing {
		mapping[p.Value] = p.ID
	}
	missing := set.Missing(mapping)
	res.Existing = len(set) - len(missing)

	if len(missing) == 0 {
		if err := sess.Commit(); err != nil {
			return fail(err, sess)
		}
		res.Resolved = countResolved(set, mapping)
		return mapping, res
	}

	rows := make([][]any, len(missing))
	for idx, v := range missing {
		rows[idx] = []any{v}
	}
	inserted := make(entities.Mapping, len(missing))
	err = sess.BulkInsertReturning(ctx, database.Insert{
		Table:           cat.Table,
		Columns:         []string{cat.Column},
		Rows:            rows,
		ConflictColumns: []string{cat.Column},
		Returning:       []string{"id", cat.Column},
	}, func(r *sqlx.Rows) error {
		var p pair
		if err := r.Scan(&p.ID, &p.Value); err != nil {
			return err
		}
		inserted[p.Value] = p.ID
		return nil
	})
	if err != nil {
		return fail(err, sess)
	}

	var lost []string
	for _, v := range missing {
		if _, ok := inserted[v]; !ok {
			lost = append(lost, v)
		}
	}
	recovered, err := lookup(ctx, sess, cat, lost)
	if err != nil {
		return fail(err, sess)
	}
	if err := sess.Commit(); err != nil {
		return fail(err, sess)
	}

	for v, id := range inserted {
		mapping[v] = id
	}
	for v, id := range recovered {
		mapping[v] = id
	}
	res.Inserted = len(inserted)
	res.Recovered = len(recovered)
	res.Resolved = countResolved(set, mapping)
	if dropped := len(lost) - len(recovered); dropped > 0 {
		logger.LogDynamicany("warn", "values not resolved", logger.StrCategory, cat.Name, logger.StrCount, dropped)
	}
	return mapping, res
}

// lookup reads the ids of values inside the running transaction.
func lookup(ctx context.Context, sess *database.Session, cat entities.Category, values []string) (entities.Mapping, error) {
	found := make(entities.Mapping, len(values))
	for start := 0; start < len(values); start += lookupChunk {
		end := min(start+lookupChunk, len(values))
		in := make([]any, 0, end-start)
		for _, v := range values[start:end] {
			in = append(in, v)
		}

		sb := sess.Flavor().NewSelectBuilder()
		sb.Select("id", sb.As(cat.Column, "value")).From(cat.Table).Where(sb.In(cat.Column, in...))
		query, args := sb.Build()

		var pairs []pair
		if err := sess.Select(ctx, &pairs, query, args...); err != nil {
			return nil, err
		}
		for _, p := range pairs {
			found[p.Value] = p.ID
		}
	}
	return found, nil
}

func countResolved(set entities.Set, mapping entities.Mapping) int {
	var n int
	for v := range set {
		if _, ok := mapping[v]; ok {
			n++
		}
	}
	return n
}
