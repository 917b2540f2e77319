package records

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Movie is one normalized input row. Absent values are invalid Null fields.
type Movie struct {
	ID               int64
	Title            sql.NullString
	VoteAverage      sql.NullFloat64
	VoteCount        sql.NullInt64
	Status           sql.NullString
	ReleaseDate      sql.NullTime
	Revenue          decimal.NullDecimal
	Runtime          sql.NullInt64
	Adult            sql.NullBool
	Budget           decimal.NullDecimal
	ImdbID           sql.NullString
	OriginalLanguage sql.NullString
	OriginalTitle    sql.NullString
	Overview         sql.NullString
	Popularity       sql.NullFloat64
	Tagline          sql.NullString

	// raw delimited mention lists
	Genres              sql.NullString
	ProductionCompanies sql.NullString
	ProductionCountries sql.NullString
	SpokenLanguages     sql.NullString
	Keywords            sql.NullString
}

// MovieColumns is the column order of Values.
var MovieColumns = []string{
	"id",
	"title",
	"vote_average",
	"vote_count",
	"status",
	"release_date",
	"revenue",
	"runtime",
	"adult",
	"budget",
	"imdb_id",
	"original_language",
	"original_title",
	"overview",
	"popularity",
	"tagline",
}

// Admissible reports whether the movie carries title, imdb id and release date.
func (m *Movie) Admissible() bool {
	return m.Title.Valid && m.ImdbID.Valid && m.ReleaseDate.Valid
}

// Values returns the row for the movies table in MovieColumns order.
func (m *Movie) Values() []any {
	var release any
	if m.ReleaseDate.Valid {
		release = m.ReleaseDate.Time.Format(DateLayout)
	}
	return []any{
		m.ID,
		m.Title,
		m.VoteAverage,
		m.VoteCount,
		m.Status,
		release,
		m.Revenue,
		m.Runtime,
		m.Adult,
		m.Budget,
		m.ImdbID,
		m.OriginalLanguage,
		m.OriginalTitle,
		m.Overview,
		m.Popularity,
		m.Tagline,
	}
}

type AdmitStats struct {
	Inadmissible int
	Duplicates   int
}

// Admit drops inadmissible movies and repeated ids, keeping the first row of an id.
func Admit(movies []Movie) ([]Movie, AdmitStats) {
	var stats AdmitStats
	seen := make(map[int64]struct{}, len(movies))
	out := make([]Movie, 0, len(movies))
	for idx := range movies {
		if !movies[idx].Admissible() {
			stats.Inadmissible++
			continue
		}
		if _, ok := seen[movies[idx].ID]; ok {
			stats.Duplicates++
			continue
		}
		seen[movies[idx].ID] = struct{}{}
		out = append(out, movies[idx])
	}
	return out, stats
}
