package importer

import (
	"time"

	"github.com/Kellerman81/go_movie_loader/logger"
)

const progressInterval = 10 * time.Second

// Progress logs the advance of one loop every n items or every ten seconds.
// It is not safe for concurrent use; each loop owns its own. A nil Progress
// does nothing.
type Progress struct {
	name       string
	total      int
	every      int
	current    int
	start      time.Time
	lastReport time.Time
}

func NewProgress(name string, total, every int) *Progress {
	now := time.Now()
	return &Progress{name: name, total: total, every: every, start: now, lastReport: now}
}

func (p *Progress) Add(n int) {
	if p == nil {
		return
	}
	before := p.current
	p.current += n
	crossed := p.every > 0 && p.current/p.every != before/p.every
	if crossed || time.Since(p.lastReport) > progressInterval {
		p.report("progress")
	}
}

func (p *Progress) Done() {
	if p == nil {
		return
	}
	p.report("completed")
}

func (p *Progress) report(msg string) {
	elapsed := time.Since(p.start)
	var rate float64
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}
	logger.LogDynamicany("info", msg,
		logger.StrStage, p.name,
		"current", p.current,
		"total", p.total,
		"rate_per_sec", rate,
		"elapsed", elapsed,
	)
	p.lastReport = time.Now()
}
