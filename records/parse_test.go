package records

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsMissing(t *testing.T) {
	for _, in := range []string{"", "  ", "NaN", "nan", "NA", "N/A", "n/a", "<NA>", "null", "NULL", "None", `\N`, " NaN "} {
		assert.True(t, IsMissing(in), "%q", in)
	}
	for _, in := range []string{"0", "Drama", "none", "-"} {
		assert.False(t, IsMissing(in), "%q", in)
	}
}

func TestCsvgetint(t *testing.T) {
	tests := map[string]struct {
		want  int64
		valid bool
	}{
		"42":     {42, true},
		" 7 ":    {7, true},
		"120.0":  {120, true},
		"120.5":  {0, false},
		"abc":    {0, false},
		"NaN":    {0, false},
		"-3":     {-3, true},
		"1e3":    {1000, true},
		"":       {0, false},
		"9.9e99": {0, false},
	}
	for in, tt := range tests {
		got := csvgetint(in)
		assert.Equal(t, tt.valid, got.Valid, in)
		if tt.valid {
			assert.Equal(t, tt.want, got.Int64, in)
		}
	}
}

func TestCsvgetfloatAndBool(t *testing.T) {
	assert.InDelta(t, 7.3, csvgetfloat("7.3").Float64, 1e-9)
	assert.False(t, csvgetfloat("seven").Valid)
	assert.False(t, csvgetfloat("inf").Valid)

	assert.Equal(t, true, csvgetbool("True").Bool)
	assert.True(t, csvgetbool("False").Valid)
	assert.False(t, csvgetbool("False").Bool)
	assert.False(t, csvgetbool("yes").Valid)
}

func TestCsvgetdate(t *testing.T) {
	want := time.Date(2019, 5, 30, 0, 0, 0, 0, time.UTC)
	assert.True(t, csvgetdate("2019-05-30").Time.Equal(want))
	assert.True(t, csvgetdate("2019-05-30 00:00:00").Time.Equal(want))
	assert.True(t, csvgetdate("2019-05-30T00:00:00Z").Time.Equal(want))
	assert.False(t, csvgetdate("30.05.2019").Valid)
	assert.False(t, csvgetdate("NaN").Valid)
}

func TestCsvgetmoney(t *testing.T) {
	divisor := decimal.NewFromInt(1_000_000_000)

	got := csvgetmoney("2500000000", divisor)
	assert.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("2.5")), got.Decimal.String())

	got = csvgetmoney("0", divisor)
	assert.True(t, got.Valid)
	assert.True(t, got.Decimal.IsZero())

	assert.False(t, csvgetmoney("NaN", divisor).Valid)
	assert.False(t, csvgetmoney("lots", divisor).Valid)
	assert.True(t, csvgetmoney("12", decimal.Decimal{}).Decimal.Equal(decimal.NewFromInt(12)))
}

func TestCsvgetrawKeepsSpacing(t *testing.T) {
	assert.Equal(t, "Action, Drama ", csvgetraw("Action, Drama ").String)
	assert.Equal(t, "Action", csvgetstring(" Action ").String)
	assert.False(t, csvgetraw("None").Valid)
}
