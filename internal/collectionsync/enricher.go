package collectionsync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"bgmexport/internal/bangumi"
	"bgmexport/internal/cache"
	"bgmexport/internal/logging"
	"bgmexport/internal/services"
)

// EpisodeSource fetches the assembled episode collection of one subject.
type EpisodeSource interface {
	SubjectEpisodes(ctx context.Context, subjectID int64) (bangumi.EpisodeCollection, error)
}

// EnricherOptions configures an Enricher.
type EnricherOptions struct {
	Observer Observer
	Logger   *slog.Logger
}

// EnrichStats counts how each subject was resolved.
type EnrichStats struct {
	Cached   int
	Fetched  int
	Missing  int
	Degraded int
}

// Enricher fetches per-subject episode progress through the cache.
type Enricher struct {
	source   EpisodeSource
	cache    Cache
	observer Observer
	logger   *slog.Logger
}

// NewEnricher builds an Enricher.
func NewEnricher(source EpisodeSource, store Cache, opts EnricherOptions) *Enricher {
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Enricher{
		source:   source,
		cache:    store,
		observer: observer,
		logger:   logging.NewComponentLogger(opts.Logger, "enricher"),
	}
}

// Enrich resolves episode progress for every entry. Subjects without episode
// data, or whose fetch fails for any reason other than a rejected token,
// are simply absent from the result. Only auth or configuration failures and
// cancellation abort the pass.
func (e *Enricher) Enrich(ctx context.Context, user bangumi.User, entries []bangumi.UserCollection) (map[int64]*bangumi.EpisodeCollection, EnrichStats, error) {
	ctx = services.WithPhase(ctx, "episodes")
	details := make(map[int64]*bangumi.EpisodeCollection, len(entries))
	var stats EnrichStats

	e.observer.DetailStarted(len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		subjectID := entry.SubjectID
		subjectCtx := services.WithSubjectID(ctx, subjectID)
		event := DetailEvent{SubjectID: subjectID, Index: i + 1, Total: len(entries)}

		detail, fromCache, err := e.resolve(subjectCtx, user, subjectID)
		switch {
		case err == nil:
			event.FromCache = fromCache
			if fromCache {
				stats.Cached++
			} else {
				stats.Fetched++
			}
			if detail == nil {
				event.Missing = true
				stats.Missing++
			} else {
				details[subjectID] = detail
			}
		case services.IsFatal(err), ctx.Err() != nil:
			return nil, stats, err
		default:
			stats.Degraded++
			event.Err = err
			logging.WarnWithContext(logging.WithContext(subjectCtx, e.logger), "episode progress unavailable",
				"detail_degraded",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun later; the subject will be retried because nothing was cached"),
				logging.String(logging.FieldImpact, "progress columns stay empty for this subject"),
			)
		}
		e.observer.DetailDone(event)
	}

	e.logger.Info("episode progress complete",
		logging.Int("subjects", len(entries)),
		logging.Int("cached", stats.Cached),
		logging.Int("fetched", stats.Fetched),
		logging.Int("missing", stats.Missing),
		logging.Int("degraded", stats.Degraded),
	)
	return details, stats, nil
}

// resolve returns the episode collection of one subject, nil when the subject
// has no episode data.
func (e *Enricher) resolve(ctx context.Context, user bangumi.User, subjectID int64) (*bangumi.EpisodeCollection, bool, error) {
	logger := logging.WithContext(ctx, e.logger)
	key := cache.EpisodesKey(user.ID, subjectID)
	if entry, ok := e.cache.Get(key); ok {
		if entry.Empty {
			return nil, true, nil
		}
		detail, err := bangumi.DecodeEpisodeCollection(entry.Payload)
		if err == nil {
			return &detail, true, nil
		}
		logger.Debug("cached episodes unreadable, refetching", logging.String("key", string(key)), logging.Error(err))
	}

	detail, err := e.source.SubjectEpisodes(ctx, subjectID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			e.store(logger, key, nil)
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(detail.Data) == 0 {
		e.store(logger, key, nil)
		return nil, false, nil
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		return nil, false, err
	}
	e.store(logger, key, payload)
	return &detail, false, nil
}

func (e *Enricher) store(logger *slog.Logger, key cache.Key, payload []byte) {
	var err error
	if payload == nil {
		err = e.cache.PutEmpty(key)
	} else {
		err = e.cache.Put(key, payload)
	}
	if err != nil {
		logging.WarnWithContext(logger, "episode progress not cached",
			"cache_write_failed",
			logging.String("key", string(key)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions of the cache directory"),
			logging.String(logging.FieldImpact, "a rerun will fetch this subject again"),
		)
	}
}
