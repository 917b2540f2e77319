package records

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var missingMarkers = map[string]struct{}{
	"":     {},
	"NaN":  {},
	"nan":  {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"<NA>": {},
	"null": {},
	"NULL": {},
	"None": {},
	`\N`:   {},
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// IsMissing reports whether a raw cell holds no value.
func IsMissing(instr string) bool {
	_, ok := missingMarkers[strings.TrimSpace(instr)]
	return ok
}

func csvgetstring(instr string) sql.NullString {
	if IsMissing(instr) {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(instr), Valid: true}
}

// csvgetraw keeps surrounding whitespace; mention lists are trimmed per piece.
func csvgetraw(instr string) sql.NullString {
	if IsMissing(instr) {
		return sql.NullString{}
	}
	return sql.NullString{String: instr, Valid: true}
}

// csvgetint accepts integral floats like "120.0" as written by float columns.
func csvgetint(instr string) sql.NullInt64 {
	if IsMissing(instr) {
		return sql.NullInt64{}
	}
	instr = strings.TrimSpace(instr)
	if getint, err := strconv.ParseInt(instr, 10, 64); err == nil {
		return sql.NullInt64{Int64: getint, Valid: true}
	}
	flo, err := strconv.ParseFloat(instr, 64)
	if err != nil || flo != math.Trunc(flo) || flo > math.MaxInt64 || flo < math.MinInt64 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(flo), Valid: true}
}

func csvgetfloat(instr string) sql.NullFloat64 {
	if IsMissing(instr) {
		return sql.NullFloat64{}
	}
	flo, err := strconv.ParseFloat(strings.TrimSpace(instr), 64)
	if err != nil || math.IsNaN(flo) || math.IsInf(flo, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: flo, Valid: true}
}

func csvgetbool(instr string) sql.NullBool {
	if IsMissing(instr) {
		return sql.NullBool{}
	}
	bo, err := strconv.ParseBool(strings.TrimSpace(instr))
	if err != nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: bo, Valid: true}
}

func csvgetdate(instr string) sql.NullTime {
	if IsMissing(instr) {
		return sql.NullTime{}
	}
	instr = strings.TrimSpace(instr)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, instr); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{}
}

// csvgetmoney parses an amount and divides it by divisor.
func csvgetmoney(instr string, divisor decimal.Decimal) decimal.NullDecimal {
	if IsMissing(instr) {
		return decimal.NullDecimal{}
	}
	dec, err := decimal.NewFromString(strings.TrimSpace(instr))
	if err != nil {
		return decimal.NullDecimal{}
	}
	if divisor.IsZero() {
		return decimal.NullDecimal{Decimal: dec, Valid: true}
	}
	return decimal.NullDecimal{Decimal: dec.Div(divisor), Valid: true}
}
