package importer

import (
	"context"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/database"
	"github.com/Kellerman81/go_movie_loader/entities"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/Kellerman81/go_movie_loader/records"
)

type LinkResult struct {
	Category string
	Built    int
	// Unresolved counts mentions missing from the mapping.
	Unresolved int
	// Gated counts edges whose movie is not stored.
	Gated      int
	Duplicates int
	Inserted   int64
	Err        error
}

// BuildEdges turns the mentions of cat into join rows. Mentions without an id
// and movies outside valid, or stored under another imdb id, are dropped and
// counted.
func BuildEdges(movies []records.Movie, cat entities.Category, delim string, mapping entities.Mapping, valid MovieIDSet, progress *Progress) ([]entities.Edge, LinkResult) {
	res := LinkResult{Category: cat.Name}
	seen := make(map[entities.Edge]struct{})
	var edges []entities.Edge
	for idx := range movies {
		progress.Add(1)
		for _, v := range entities.Mentions(&movies[idx], cat, delim) {
			id, ok := mapping[v]
			if !ok {
				res.Unresolved++
				continue
			}
			res.Built++
			if !valid.Has(movies[idx].ID, movies[idx].ImdbID.String) {
				res.Gated++
				continue
			}
			edge := entities.Edge{MovieID: movies[idx].ID, EntityID: id}
			if _, ok := seen[edge]; ok {
				res.Duplicates++
				continue
			}
			seen[edge] = struct{}{}
			edges = append(edges, edge)
		}
	}
	progress.Done()
	return edges, res
}

// LinkCategory builds and stores the join rows of one category in its own
// transaction. A failure rolls back only this category.
func LinkCategory(ctx context.Context, db *database.DB, movies []records.Movie, cat entities.Category, delim string, mapping entities.Mapping, valid MovieIDSet, progress *Progress) LinkResult {
	edges, res := BuildEdges(movies, cat, delim, mapping, valid, progress)
	if len(edges) == 0 {
		return res
	}

	fail := func(err error) LinkResult {
		res.Err = apperrors.WrapWithMessageFor(apperrors.ErrClassUpsert, "link", "category rolled back", cat.JoinTable, err)
		res.Inserted = 0
		logger.LogDynamicany("error", "relationship insert failed", append([]any{logger.StrCategory, cat.Name}, apperrors.LogFields(res.Err)...)...)
		return res
	}

	sess, err := db.Begin(ctx)
	if err != nil {
		return fail(err)
	}
	defer sess.Rollback()

	rows := make([][]any, len(edges))
	for idx, e := range edges {
		rows[idx] = []any{e.MovieID, e.EntityID}
	}
	inserted, err := sess.BulkInsert(ctx, database.Insert{
		Table:           cat.JoinTable,
		Columns:         []string{"movie_id", cat.JoinColumn},
		Rows:            rows,
		ConflictColumns: []string{"movie_id", cat.JoinColumn},
	})
	if err != nil {
		if rerr := sess.Rollback(); rerr != nil {
			logger.LogDynamicany("error", "rollback failed", logger.StrTable, cat.JoinTable, rerr)
		}
		return fail(err)
	}
	if err := sess.Commit(); err != nil {
		return fail(err)
	}
	res.Inserted = inserted
	return res
}
