package entities

import (
	"database/sql"

	"github.com/Kellerman81/go_movie_loader/records"
)

// Category is one kind of reference entity with its canonical and join tables.
type Category struct {
	Name       string
	Table      string
	Column     string
	JoinTable  string
	JoinColumn string
	// Field returns the raw mention list of a movie.
	Field func(*records.Movie) sql.NullString
}

var (
	Genre = Category{
		Name:       "genre",
		Table:      "genres",
		Column:     "name",
		JoinTable:  "movie_genres",
		JoinColumn: "genre_id",
		Field:      func(m *records.Movie) sql.NullString { return m.Genres },
	}
	Company = Category{
		Name:       "company",
		Table:      "companies",
		Column:     "name",
		JoinTable:  "movie_companies",
		JoinColumn: "company_id",
		Field:      func(m *records.Movie) sql.NullString { return m.ProductionCompanies },
	}
	Country = Category{
		Name:       "country",
		Table:      "countries",
		Column:     "name",
		JoinTable:  "movie_countries",
		JoinColumn: "country_id",
		Field:      func(m *records.Movie) sql.NullString { return m.ProductionCountries },
	}
	Language = Category{
		Name:       "language",
		Table:      "languages",
		Column:     "code",
		JoinTable:  "movie_languages",
		JoinColumn: "language_id",
		Field:      func(m *records.Movie) sql.NullString { return m.SpokenLanguages },
	}
	Keyword = Category{
		Name:       "keyword",
		Table:      "keywords",
		Column:     "name",
		JoinTable:  "movie_keywords",
		JoinColumn: "keyword_id",
		Field:      func(m *records.Movie) sql.NullString { return m.Keywords },
	}
)

// Categories returns every category in a fixed order.
func Categories() []Category {
	return []Category{Genre, Company, Country, Language, Keyword}
}
