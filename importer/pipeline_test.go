package importer

import (
	"context"
	"testing"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/entities"
	"github.com/Kellerman81/go_movie_loader/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, p *Pipeline, movies ...records.Movie) *Report {
	t.Helper()
	return p.Run(context.Background(), records.Result{Rows: len(movies), Movies: movies})
}

func TestRunSharedGenre(t *testing.T) {
	db := openDB(t, 1000)
	p := New(db, Options{Workers: 4})

	report := run(t, p,
		movie(1, "tt1", withGenres("Drama")),
		movie(2, "tt2", withGenres("Drama")),
	)

	require.False(t, report.Failed(), report.FailedUnits())
	assert.EqualValues(t, 1, count(t, db, "genres"))
	assert.EqualValues(t, 2, count(t, db, "movie_genres"))

	dramaID := namesOf(t, db, entities.Genre)["Drama"]
	assert.Equal(t, []entities.Edge{{MovieID: 1, EntityID: dramaID}, {MovieID: 2, EntityID: dramaID}}, edgesOf(t, db, entities.Genre))

	assert.EqualValues(t, 2, report.Movies.Inserted)
	assert.Equal(t, 2, report.Movies.Valid)
	assert.Equal(t, 2, report.Admitted)
	assert.NotEmpty(t, report.RunID)
	assert.EqualValues(t, 2, report.Tables["movies"])
}

func TestRunStages(t *testing.T) {
	db := openDB(t, 1000)
	p := New(db, Options{Workers: 2})
	run(t, p, movie(1, "tt1", withGenres("Drama")))

	stages := p.Stages()
	require.Len(t, stages, 5)
	assert.Equal(t, StageLoaded, stages[0])
	assert.Equal(t, StageDeduplicated, stages[1])
	assert.ElementsMatch(t, []Stage{StageMoviesPersisted, StageEntitiesResolved}, stages[2:4])
	assert.Equal(t, StageLinksPersisted, stages[4])

	require.NoError(t, p.Close())
	assert.Equal(t, StageClosed, p.Stage())
}

func TestRunIsIdempotent(t *testing.T) {
	input := []records.Movie{
		movie(1, "tt1", withGenres("Drama, Action"), withKeywords("heist"), withLanguages("en, fr")),
		movie(2, "tt2", withGenres("Action ,action"), withKeywords("heist, twist")),
		movie(3, "tt3"),
	}

	once := openDB(t, 2)
	run(t, New(once, Options{}), input...)

	twice := openDB(t, 2)
	run(t, New(twice, Options{}), input...)
	second := run(t, New(twice, Options{}), input...)

	assert.Equal(t, snapshot(t, once), snapshot(t, twice))
	assert.False(t, second.Failed())
	assert.Zero(t, second.Movies.Inserted)
	assert.Equal(t, 3, second.Movies.Valid)
	for _, e := range second.Entities {
		assert.Zero(t, e.Inserted, e.Category)
		assert.Equal(t, e.Distinct, e.Existing, e.Category)
	}
	for _, l := range second.Links {
		assert.Zero(t, l.Inserted, l.Category)
	}
	assert.EqualValues(t, 3, count(t, twice, "genres"))
}

func TestRunWithStoredMovie(t *testing.T) {
	db := openDB(t, 1000)
	execSQL(t, db, `INSERT INTO movies (id, imdb_id, title, release_date) VALUES (7, 'tt7', 'Stored', '2019-01-01')`)

	report := run(t, New(db, Options{}), movie(7, "tt7", withGenres("Drama")), movie(8, "tt8", withGenres("Drama")))

	require.False(t, report.Failed())
	assert.EqualValues(t, 1, report.Movies.Inserted)
	assert.Equal(t, 2, report.Movies.Valid)
	assert.Len(t, edgesOf(t, db, entities.Genre), 2)

	var titles []string
	require.NoError(t, db.Select(context.Background(), &titles, "SELECT title FROM movies WHERE id = 7"))
	assert.Equal(t, []string{"Stored"}, titles)
}

func TestRunSkipsInadmissibleMovies(t *testing.T) {
	db := openDB(t, 1000)
	untitled := movie(2, "tt2", withGenres("Horror"))
	untitled.Title.Valid = false
	undated := movie(3, "tt3", withGenres("Horror"))
	undated.ReleaseDate.Valid = false
	noImdb := movie(4, "", withGenres("Horror"))
	noImdb.ImdbID.Valid = false

	report := run(t, New(db, Options{}), movie(1, "tt1", withGenres("Drama")), untitled, undated, noImdb)

	assert.Equal(t, 3, report.Inadmissible)
	assert.Equal(t, 1, report.Admitted)
	assert.EqualValues(t, 1, count(t, db, "movies"))
	assert.NotContains(t, namesOf(t, db, entities.Genre), "Horror")
}

func TestMovieFailureGatesAllLinks(t *testing.T) {
	db := openDB(t, 1000)
	execSQL(t, db, `CREATE TRIGGER movies_down BEFORE INSERT ON movies BEGIN SELECT RAISE(ABORT, 'movies unavailable'); END`)

	report := run(t, New(db, Options{}),
		movie(1, "tt1", withGenres("Drama"), withKeywords("heist")),
		movie(2, "tt2", withGenres("Comedy")),
	)

	require.Error(t, report.Movies.Err)
	assert.True(t, apperrors.IsClass(report.Movies.Err, apperrors.ErrClassUpsert))
	assert.Zero(t, report.Movies.Valid)
	assert.True(t, report.Failed())
	assert.Equal(t, []string{"movies"}, report.FailedUnits())

	// resolution is independent of the movie batch
	assert.EqualValues(t, 2, count(t, db, "genres"))
	assert.EqualValues(t, 1, count(t, db, "keywords"))
	assert.Zero(t, count(t, db, "movies"))
	assert.Zero(t, count(t, db, "movie_genres"))
	assert.Zero(t, count(t, db, "movie_keywords"))
	for _, l := range report.Links {
		assert.Equal(t, l.Built, l.Gated, l.Category)
		assert.NoError(t, l.Err)
	}
}

func TestCategoryFailureIsIsolated(t *testing.T) {
	db := openDB(t, 1000)
	execSQL(t, db, `CREATE TRIGGER keywords_down BEFORE INSERT ON keywords BEGIN SELECT RAISE(ABORT, 'keywords unavailable'); END`)

	report := run(t, New(db, Options{}),
		movie(1, "tt1", withGenres("Drama"), withKeywords("heist"), withLanguages("en")),
	)

	assert.True(t, report.Failed())
	assert.Equal(t, []string{"resolve:keyword"}, report.FailedUnits())
	for _, e := range report.Entities {
		if e.Category == entities.Keyword.Name {
			assert.True(t, apperrors.IsClass(e.Err, apperrors.ErrClassResolution))
			assert.Zero(t, e.Resolved)
			continue
		}
		assert.NoError(t, e.Err, e.Category)
	}
	assert.EqualValues(t, 1, count(t, db, "movie_genres"))
	assert.EqualValues(t, 1, count(t, db, "movie_languages"))
	assert.Zero(t, count(t, db, "keywords"))
	assert.Zero(t, count(t, db, "movie_keywords"))
}

func TestStrictModeSkipsLinking(t *testing.T) {
	db := openDB(t, 1000)
	execSQL(t, db, `CREATE TRIGGER keywords_down BEFORE INSERT ON keywords BEGIN SELECT RAISE(ABORT, 'keywords unavailable'); END`)

	p := New(db, Options{Strict: true})
	report := run(t, p, movie(1, "tt1", withGenres("Drama"), withKeywords("heist")))

	assert.True(t, report.Aborted)
	assert.True(t, report.Failed())
	assert.Empty(t, report.Links)
	assert.EqualValues(t, 1, count(t, db, "movies"))
	assert.EqualValues(t, 1, count(t, db, "genres"))
	assert.Zero(t, count(t, db, "movie_genres"))
	assert.NotContains(t, p.Stages(), StageLinksPersisted)
}

func TestStrictModeWithoutFailuresLinks(t *testing.T) {
	db := openDB(t, 1000)
	report := run(t, New(db, Options{Strict: true}), movie(1, "tt1", withGenres("Drama")))

	assert.False(t, report.Aborted)
	assert.False(t, report.Failed())
	assert.EqualValues(t, 1, count(t, db, "movie_genres"))
}

func TestDanglingMentionIsDropped(t *testing.T) {
	db := openDB(t, 1000)
	execSQL(t, db, `CREATE TRIGGER ghost_genre BEFORE INSERT ON genres WHEN NEW.name = 'Ghost' BEGIN SELECT RAISE(IGNORE); END`)

	report := run(t, New(db, Options{}), movie(1, "tt1", withGenres("Drama, Ghost")))

	require.False(t, report.Failed(), report.FailedUnits())
	genre := report.Entities[0]
	assert.Equal(t, entities.Genre.Name, genre.Category)
	assert.Equal(t, 2, genre.Distinct)
	assert.Equal(t, 1, genre.Resolved)

	link := report.Links[0]
	assert.Equal(t, 1, link.Unresolved)
	assert.EqualValues(t, 1, link.Inserted)
	assert.EqualValues(t, 1, count(t, db, "movie_genres"))
}

func TestDuplicateIDsKeepFirst(t *testing.T) {
	db := openDB(t, 1000)
	report := run(t, New(db, Options{}),
		movie(1, "tt1", withGenres("Drama")),
		movie(1, "tt1-again", withGenres("Comedy")),
	)

	require.False(t, report.Failed())
	assert.Equal(t, 1, report.Duplicates)
	assert.EqualValues(t, 1, count(t, db, "movies"))
	assert.NotContains(t, namesOf(t, db, entities.Genre), "Comedy")
}

func TestRunEmptyInput(t *testing.T) {
	db := openDB(t, 1000)
	report := run(t, New(db, Options{}))

	assert.False(t, report.Failed())
	assert.Zero(t, report.Movies.Valid)
	for _, table := range []string{"movies", "genres", "movie_genres"} {
		assert.Zero(t, count(t, db, table), table)
	}
}
