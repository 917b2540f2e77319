package importer

import (
	"time"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/logger"
)

// Report summarizes one run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration

	Rows         int
	Malformed    int
	OutOfWindow  int
	Inadmissible int
	Duplicates   int
	Admitted     int

	Movies   MovieResult
	Entities []EntityResult
	Links    []LinkResult

	// Aborted is set when strict mode skipped linking.
	Aborted bool
	Tables  map[string]int64
}

// Failed reports whether any unit of the run failed or linking was skipped.
func (r *Report) Failed() bool {
	if r.Aborted || r.Movies.Err != nil {
		return true
	}
	for idx := range r.Entities {
		if r.Entities[idx].Err != nil {
			return true
		}
	}
	for idx := range r.Links {
		if r.Links[idx].Err != nil {
			return true
		}
	}
	return false
}

// FailedUnits lists the units that failed, e.g. "movies" or "resolve:genre".
func (r *Report) FailedUnits() []string {
	var out []string
	if r.Movies.Err != nil {
		out = append(out, "movies")
	}
	for idx := range r.Entities {
		if r.Entities[idx].Err != nil {
			out = append(out, "resolve:"+r.Entities[idx].Category)
		}
	}
	for idx := range r.Links {
		if r.Links[idx].Err != nil {
			out = append(out, "link:"+r.Links[idx].Category)
		}
	}
	return out
}

func (r *Report) entityErrors() bool {
	for idx := range r.Entities {
		if r.Entities[idx].Err != nil {
			return true
		}
	}
	return false
}

// Log writes one line per unit and a final summary line.
func (r *Report) Log() {
	for idx := range r.Entities {
		e := &r.Entities[idx]
		logger.LogDynamicany("info", "entities resolved",
			logger.StrCategory, e.Category,
			"distinct", e.Distinct,
			"existing", e.Existing,
			"inserted", e.Inserted,
			"recovered", e.Recovered,
			"resolved", e.Resolved,
			"failed", e.Err != nil,
		)
	}
	for idx := range r.Links {
		l := &r.Links[idx]
		logger.LogDynamicany("info", "relationships linked",
			logger.StrCategory, l.Category,
			"built", l.Built,
			"unresolved", l.Unresolved,
			"gated", l.Gated,
			"inserted", l.Inserted,
			"failed", l.Err != nil,
		)
	}
	for table, counter := range r.Tables {
		logger.LogDynamicany("debug", "table rows", logger.StrTable, table, logger.StrCount, counter)
	}

	level := "info"
	msg := "import finished"
	if r.Failed() {
		level = "warn"
		msg = "import finished with failures"
	}
	fields := []any{
		"rows", r.Rows,
		"malformed", r.Malformed,
		"out_of_window", r.OutOfWindow,
		"inadmissible", r.Inadmissible,
		"duplicates", r.Duplicates,
		"admitted", r.Admitted,
		"movies_inserted", r.Movies.Inserted,
		"movies_valid", r.Movies.Valid,
		"failed_units", r.FailedUnits(),
		"aborted", r.Aborted,
		"duration", r.Duration,
	}
	if r.Movies.Err != nil {
		fields = append(fields, "movie_error_class", string(apperrors.GetClass(r.Movies.Err)))
	}
	logger.LogDynamicany(level, msg, fields...)
}
