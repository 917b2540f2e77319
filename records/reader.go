package records

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	ColID                  = "id"
	ColTitle               = "title"
	ColVoteAverage         = "vote_average"
	ColVoteCount           = "vote_count"
	ColStatus              = "status"
	ColReleaseDate         = "release_date"
	ColRevenue             = "revenue"
	ColRuntime             = "runtime"
	ColAdult               = "adult"
	ColBudget              = "budget"
	ColImdbID              = "imdb_id"
	ColOriginalLanguage    = "original_language"
	ColOriginalTitle       = "original_title"
	ColOverview            = "overview"
	ColPopularity          = "popularity"
	ColTagline             = "tagline"
	ColGenres              = "genres"
	ColProductionCompanies = "production_companies"
	ColProductionCountries = "production_countries"
	ColSpokenLanguages     = "spoken_languages"
	ColKeywords            = "keywords"
)

var requiredColumns = []string{ColID, ColTitle, ColImdbID, ColReleaseDate}

type Options struct {
	// Comma is the field separator, ',' when zero.
	Comma rune
	// RecencyYears keeps movies released in the last n years. <= 0 keeps all.
	RecencyYears int
	// MoneyDivisor rescales revenue and budget. <= 0 leaves them as read.
	MoneyDivisor float64
	// Now anchors the recency window, time.Now when zero.
	Now time.Time
}

type Result struct {
	Movies      []Movie
	Rows        int
	Malformed   int
	OutOfWindow int
}

type header map[string]int

func (h header) get(record []string, col string) string {
	idx, ok := h[col]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// ReadFile opens path and reads it with Read.
func ReadFile(ctx context.Context, path string, opts Options) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, apperrors.WrapWithMessageFor(apperrors.ErrClassFileSystem, "read input", "open failed", path, err)
	}
	defer file.Close()
	res, err := Read(ctx, bufio.NewReader(file), opts)
	if err != nil {
		var ce *apperrors.ClassifiedError
		if errors.As(err, &ce) {
			ce.MessageFor = path
			return res, ce
		}
		return res, apperrors.WrapWithMessageFor(apperrors.ErrClassFileSystem, "read input", "read failed", path, err)
	}
	return res, nil
}

// Read parses a headered csv stream. Rows that cannot be parsed or carry no
// usable id are logged and skipped; a missing required column fails the read.
func Read(ctx context.Context, r io.Reader, opts Options) (Result, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.LazyQuotes = true
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to read csv header")
	}
	cols := make(header, len(first))
	for idx, name := range first {
		if idx == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		cols[strings.TrimSpace(name)] = idx
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := cols[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Result{}, apperrors.New(apperrors.ErrClassRecord, "read input", "missing required columns").
			WithContext("columns", missing)
	}

	var divisor decimal.Decimal
	if opts.MoneyDivisor > 0 {
		divisor = decimal.NewFromFloat(opts.MoneyDivisor)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	minYear := now.Year() - opts.RecencyYears

	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		res.Rows++
		if err != nil {
			res.Malformed++
			logger.LogDynamicany("warn", "skipped malformed row", "row", res.Rows,
				apperrors.Wrap(apperrors.ErrClassRecord, "parse row", errors.WithStack(err)))
			continue
		}

		movie, err := cols.movie(record, divisor)
		if err != nil {
			res.Malformed++
			logger.LogDynamicany("warn", "skipped malformed row", "row", res.Rows, err)
			continue
		}
		if opts.RecencyYears > 0 && (!movie.ReleaseDate.Valid || movie.ReleaseDate.Time.Year() < minYear) {
			res.OutOfWindow++
			continue
		}
		res.Movies = append(res.Movies, movie)
	}
	return res, nil
}

func (h header) movie(record []string, divisor decimal.Decimal) (Movie, error) {
	id := csvgetint(h.get(record, ColID))
	if !id.Valid {
		return Movie{}, apperrors.WrapWithMessageFor(apperrors.ErrClassRecord, "parse row", "invalid id", h.get(record, ColID), nil)
	}
	return Movie{
		ID:                  id.Int64,
		Title:               csvgetstring(h.get(record, ColTitle)),
		VoteAverage:         csvgetfloat(h.get(record, ColVoteAverage)),
		VoteCount:           csvgetint(h.get(record, ColVoteCount)),
		Status:              csvgetstring(h.get(record, ColStatus)),
		ReleaseDate:         csvgetdate(h.get(record, ColReleaseDate)),
		Revenue:             csvgetmoney(h.get(record, ColRevenue), divisor),
		Runtime:             csvgetint(h.get(record, ColRuntime)),
		Adult:               csvgetbool(h.get(record, ColAdult)),
		Budget:              csvgetmoney(h.get(record, ColBudget), divisor),
		ImdbID:              csvgetstring(h.get(record, ColImdbID)),
		OriginalLanguage:    csvgetstring(h.get(record, ColOriginalLanguage)),
		OriginalTitle:       csvgetstring(h.get(record, ColOriginalTitle)),
		Overview:            csvgetstring(h.get(record, ColOverview)),
		Popularity:          csvgetfloat(h.get(record, ColPopularity)),
		Tagline:             csvgetstring(h.get(record, ColTagline)),
		Genres:              csvgetraw(h.get(record, ColGenres)),
		ProductionCompanies: csvgetraw(h.get(record, ColProductionCompanies)),
		ProductionCountries: csvgetraw(h.get(record, ColProductionCountries)),
		SpokenLanguages:     csvgetraw(h.get(record, ColSpokenLanguages)),
		Keywords:            csvgetraw(h.get(record, ColKeywords)),
	}, nil
}
