package importer

import (
	"context"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/database"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/Kellerman81/go_movie_loader/records"
)

// MovieIDSet maps the movie ids present in storage after the upsert to their
// stored imdb id.
type MovieIDSet map[int64]string

// Has reports whether id is stored and belongs to imdbID. A record skipped on
// its imdb id while its id names another movie does not pass.
func (s MovieIDSet) Has(id int64, imdbID string) bool {
	stored, ok := s[id]
	return ok && stored == imdbID
}

type MovieResult struct {
	Rows     int
	Inserted int64
	Valid    int
	Err      error
}

// UpsertMovies inserts all movies in one transaction, skipping imdb ids already
// stored, and returns the ids present in the table afterwards. Any failure
// rolls back the whole batch and yields an empty set.
func UpsertMovies(ctx context.Context, db *database.DB, movies []records.Movie) (MovieIDSet, MovieResult) {
	res := MovieResult{Rows: len(movies)}

	fail := func(err error) (MovieIDSet, MovieResult) {
		res.Err = apperrors.WrapWithMessageFor(apperrors.ErrClassUpsert, "upsert movies", "batch rolled back", "movies", err)
		res.Inserted = 0
		res.Valid = 0
		logger.LogDynamicany("error", "movie upsert failed", apperrors.LogFields(res.Err)...)
		return MovieIDSet{}, res
	}

	sess, err := db.Begin(ctx)
	if err != nil {
		return fail(err)
	}
	defer sess.Rollback()

	rows := make([][]any, len(movies))
	for idx := range movies {
		rows[idx] = movies[idx].Values()
	}
	inserted, err := sess.BulkInsert(ctx, database.Insert{
		Table:           "movies",
		Columns:         records.MovieColumns,
		Rows:            rows,
		ConflictColumns: []string{"imdb_id"},
	})
	if err != nil {
		if rerr := sess.Rollback(); rerr != nil {
			logger.LogDynamicany("error", "rollback failed", logger.StrTable, "movies", rerr)
		}
		return fail(err)
	}
	if err := sess.Commit(); err != nil {
		return fail(err)
	}
	res.Inserted = inserted

	sb := db.Flavor().NewSelectBuilder()
	sb.Select("id", "imdb_id").From("movies")
	query, args := sb.Build()
	var stored []struct {
		ID     int64  `db:"id"`
		ImdbID string `db:"imdb_id"`
	}
	if err := db.Select(ctx, &stored, query, args...); err != nil {
		return fail(err)
	}
	valid := make(MovieIDSet, len(stored))
	for _, row := range stored {
		valid[row.ID] = row.ImdbID
	}
	res.Valid = len(valid)
	return valid, res
}
