package records

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func admissible(id int64, imdb string) Movie {
	return Movie{
		ID:          id,
		Title:       sql.NullString{String: "T", Valid: true},
		ImdbID:      sql.NullString{String: imdb, Valid: true},
		ReleaseDate: sql.NullTime{Time: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Valid: true},
	}
}

func TestAdmit(t *testing.T) {
	noTitle := admissible(2, "tt2")
	noTitle.Title = sql.NullString{}
	noImdb := admissible(3, "tt3")
	noImdb.ImdbID = sql.NullString{}
	noDate := admissible(4, "tt4")
	noDate.ReleaseDate = sql.NullTime{}

	first := admissible(1, "tt1")
	again := admissible(1, "tt1-other")

	out, stats := Admit([]Movie{first, noTitle, noImdb, noDate, again, admissible(5, "tt5")})

	require.Len(t, out, 2)
	assert.Equal(t, "tt1", out[0].ImdbID.String)
	assert.EqualValues(t, 5, out[1].ID)
	assert.Equal(t, 3, stats.Inadmissible)
	assert.Equal(t, 1, stats.Duplicates)
}

func TestValues(t *testing.T) {
	m := admissible(7, "tt7")
	m.Revenue = decimal.NewNullDecimal(decimal.RequireFromString("1.25"))

	vals := m.Values()
	require.Len(t, vals, len(MovieColumns))
	assert.Equal(t, int64(7), vals[0])
	assert.Equal(t, "2020-01-02", vals[5])
	assert.Equal(t, m.Revenue, vals[6])
	assert.Equal(t, m.ImdbID, vals[10])

	m.ReleaseDate = sql.NullTime{}
	assert.Nil(t, m.Values()[5])
}
