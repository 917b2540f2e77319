package importer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kellerman81/go_movie_loader/database"
	"github.com/Kellerman81/go_movie_loader/entities"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/Kellerman81/go_movie_loader/records"
	"github.com/google/uuid"
	"github.com/remeh/sizedwaitgroup"
)

type Stage string

const (
	StageLoaded           Stage = "loaded"
	StageDeduplicated     Stage = "deduplicated"
	StageMoviesPersisted  Stage = "movies_persisted"
	StageEntitiesResolved Stage = "entities_resolved"
	StageLinksPersisted   Stage = "links_persisted"
	StageClosed           Stage = "closed"
)

type Options struct {
	RunID string
	// Delimiter separates mentions inside a multi-value field.
	Delimiter string
	// Workers bounds the units running at the same time.
	Workers int
	// Strict skips linking when the movie upsert or any resolution failed.
	Strict        bool
	ProgressEvery int
}

// Pipeline runs one import against db. Movie upsert and entity resolution run
// concurrently; linking starts once all of them are done.
type Pipeline struct {
	db   *database.DB
	opts Options

	mu     sync.Mutex
	stage  Stage
	stages []Stage
}

func New(db *database.DB, opts Options) *Pipeline {
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if opts.Delimiter == "" {
		opts.Delimiter = ","
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Pipeline{db: db, opts: opts}
}

func (p *Pipeline) RunID() string {
	return p.opts.RunID
}

// Stage returns the last stage reached.
func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// Stages returns every stage reached, in order.
func (p *Pipeline) Stages() []Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Stage(nil), p.stages...)
}

func (p *Pipeline) reach(stage Stage) {
	p.mu.Lock()
	p.stage = stage
	p.stages = append(p.stages, stage)
	p.mu.Unlock()
	logger.LogDynamicany("info", "stage reached", logger.StrStage, string(stage))
}

// Run imports the read result and returns the report. Unit failures are
// recorded in the report, never returned.
func (p *Pipeline) Run(ctx context.Context, read records.Result) *Report {
	report := &Report{
		RunID:       p.opts.RunID,
		Started:     time.Now(),
		Rows:        read.Rows,
		Malformed:   read.Malformed,
		OutOfWindow: read.OutOfWindow,
	}
	defer func() {
		report.Duration = time.Since(report.Started)
	}()

	logger.LogDynamicany("info", "import running", logger.StrRunID, p.RunID(), "driver", p.db.Driver(), "workers", p.opts.Workers, "strict", p.opts.Strict)

	movies, admit := records.Admit(read.Movies)
	report.Inadmissible = admit.Inadmissible
	report.Duplicates = admit.Duplicates
	report.Admitted = len(movies)
	p.reach(StageLoaded)

	cats := entities.Categories()
	sets := make([]entities.Set, len(cats))
	progress := NewProgress("deduplicate", len(cats), 1)
	for idx := range cats {
		sets[idx] = entities.Collect(movies, cats[idx], p.opts.Delimiter)
		progress.Add(1)
	}
	progress.Done()
	p.reach(StageDeduplicated)

	var (
		valid    MovieIDSet
		mappings = make([]entities.Mapping, len(cats))
		pending  = int32(len(cats))
	)
	report.Entities = make([]EntityResult, len(cats))

	swg := sizedwaitgroup.New(p.opts.Workers)
	swg.Add()
	go func() {
		defer swg.Done()
		valid, report.Movies = UpsertMovies(ctx, p.db, movies)
		p.reach(StageMoviesPersisted)
	}()
	for idx := range cats {
		swg.Add()
		go func(idx int) {
			defer swg.Done()
			mappings[idx], report.Entities[idx] = Resolve(ctx, p.db, cats[idx], sets[idx])
			if atomic.AddInt32(&pending, -1) == 0 {
				p.reach(StageEntitiesResolved)
			}
		}(idx)
	}
	swg.Wait()

	if p.opts.Strict && (report.Movies.Err != nil || report.entityErrors()) {
		report.Aborted = true
		logger.LogDynamicany("error", "strict mode: skipping relationships", "failed_units", report.FailedUnits())
		p.finish(ctx, report)
		return report
	}

	report.Links = make([]LinkResult, len(cats))
	for idx := range cats {
		swg.Add()
		go func(idx int) {
			defer swg.Done()
			progress := NewProgress("link "+cats[idx].Name, len(movies), p.opts.ProgressEvery)
			report.Links[idx] = LinkCategory(ctx, p.db, movies, cats[idx], p.opts.Delimiter, mappings[idx], valid, progress)
		}(idx)
	}
	swg.Wait()
	p.reach(StageLinksPersisted)

	p.finish(ctx, report)
	return report
}

func (p *Pipeline) finish(ctx context.Context, report *Report) {
	stats, err := p.db.Stats(ctx)
	if err != nil {
		logger.LogDynamicany("warn", "table statistics unavailable", err)
	}
	report.Tables = stats
	report.Duration = time.Since(report.Started)
	report.Log()
}

// Close releases the connection pool.
func (p *Pipeline) Close() error {
	err := p.db.Close()
	p.reach(StageClosed)
	return err
}
