package entities

import (
	"slices"
	"strings"

	"github.com/Kellerman81/go_movie_loader/records"
)

// Set holds the distinct trimmed values of one category.
type Set map[string]struct{}

// Mapping resolves a canonical value to its stored id.
type Mapping map[string]int64

// Edge is one row of a join table.
type Edge struct {
	MovieID  int64
	EntityID int64
}

// Split cuts a mention list on delim and returns the trimmed, non-empty pieces.
// Case is kept.
func Split(raw string, delim string) []string {
	if delim == "" {
		delim = ","
	}
	parts := strings.Split(raw, delim)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Mentions returns the split mentions of cat for m, nil when the field is absent.
func Mentions(m *records.Movie, cat Category, delim string) []string {
	raw := cat.Field(m)
	if !raw.Valid {
		return nil
	}
	return Split(raw.String, delim)
}

// Collect gathers the distinct values of cat across movies.
func Collect(movies []records.Movie, cat Category, delim string) Set {
	set := make(Set)
	for idx := range movies {
		for _, v := range Mentions(&movies[idx], cat, delim) {
			set[v] = struct{}{}
		}
	}
	return set
}

// Values returns the set sorted, for stable statement order.
func (s Set) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Missing returns the values of s not present in m, sorted.
func (s Set) Missing(m Mapping) []string {
	var out []string
	for v := range s {
		if _, ok := m[v]; !ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
