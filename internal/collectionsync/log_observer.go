package collectionsync

import (
	"log/slog"
	"sync"

	"bgmexport/internal/logging"
)

// LogObserver reports sync progress through the logger, thinned by a
// ProgressSampler. It stands in for progress bars when output is not a
// terminal.
type LogObserver struct {
	mu      sync.Mutex
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

// NewLogObserver builds a LogObserver that logs at most once per bucketSize
// percent of each phase.
func NewLogObserver(logger *slog.Logger, bucketSize float64) *LogObserver {
	return &LogObserver{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(bucketSize),
	}
}

func (o *LogObserver) PageDone(ev PageEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	percent := -1.0
	if ev.Cursor.TotalKnown && ev.Cursor.Total > 0 {
		percent = float64(ev.Cursor.Accumulated) / float64(ev.Cursor.Total) * 100
	}
	if !o.sampler.ShouldLog(percent, "collections") {
		return
	}
	o.logger.Info("collection progress",
		logging.String(logging.FieldPhase, "collections"),
		logging.Int("accumulated", ev.Cursor.Accumulated),
		logging.Int("total", ev.Cursor.Total),
		logging.Int("cached_pages", ev.Cursor.CachedPages),
		logging.Int("fetched_pages", ev.Cursor.FetchedPages),
	)
}

func (o *LogObserver) DetailStarted(total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sampler.ShouldLog(-1, "episodes")
	o.logger.Info("episode progress started",
		logging.String(logging.FieldPhase, "episodes"),
		logging.Int("subjects", total),
	)
}

func (o *LogObserver) DetailDone(ev DetailEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ev.Total <= 0 {
		return
	}
	percent := float64(ev.Index) / float64(ev.Total) * 100
	if !o.sampler.ShouldLog(percent, "episodes") {
		return
	}
	o.logger.Info("episode progress",
		logging.String(logging.FieldPhase, "episodes"),
		logging.Int("done", ev.Index),
		logging.Int("total", ev.Total),
	)
}
