package collectionsync

import (
	"context"
	"log/slog"

	"bgmexport/internal/bangumi"
	"bgmexport/internal/cache"
	"bgmexport/internal/logging"
	"bgmexport/internal/services"
)

// State is the pagination state of a Fetcher run.
type State int

const (
	StateInit State = iota
	StateFetchingPage
	StateAccumulating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFetchingPage:
		return "fetching_page"
	case StateAccumulating:
		return "accumulating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Cursor is the in-memory progress of one pagination run. It is never
// persisted.
type Cursor struct {
	State        State
	Offset       int
	Accumulated  int
	Total        int
	TotalKnown   bool
	CachedPages  int
	FetchedPages int
}

// PageSource fetches one raw collection page.
type PageSource interface {
	CollectionPage(ctx context.Context, username string, limit, offset int) ([]byte, error)
}

// Cache is the subset of cache.Store the sync engine uses.
type Cache interface {
	Get(key cache.Key) (cache.Entry, bool)
	Put(key cache.Key, payload []byte) error
	PutEmpty(key cache.Key) error
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	PageSize int
	Observer Observer
	Logger   *slog.Logger
}

// Fetcher accumulates every collection entry of a user.
type Fetcher struct {
	source   PageSource
	cache    Cache
	pageSize int
	observer Observer
	logger   *slog.Logger
}

// DefaultPageSize matches the page size the remote list endpoint defaults to.
const DefaultPageSize = 30

// NewFetcher builds a Fetcher.
func NewFetcher(source PageSource, store Cache, opts FetcherOptions) *Fetcher {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Fetcher{
		source:   source,
		cache:    store,
		pageSize: pageSize,
		observer: observer,
		logger:   logging.NewComponentLogger(opts.Logger, "fetcher"),
	}
}

// FetchAll pages through the collection list until it is exhausted. Entries
// are returned in remote order. Any page failure aborts the run; pages are
// never skipped.
func (f *Fetcher) FetchAll(ctx context.Context, user bangumi.User) ([]bangumi.UserCollection, Cursor, error) {
	ctx = services.WithPhase(ctx, "collections")
	logger := logging.WithContext(ctx, f.logger)
	cur := Cursor{State: StateInit}
	var entries []bangumi.UserCollection

	for {
		if err := ctx.Err(); err != nil {
			cur.State = StateFailed
			return nil, cur, err
		}
		cur.State = StateFetchingPage
		page, fromCache, err := f.loadPage(ctx, logger, user, cur.Offset)
		if err != nil {
			cur.State = StateFailed
			return nil, cur, err
		}

		cur.State = StateAccumulating
		entries = append(entries, page.Data...)
		cur.Accumulated = len(entries)
		if page.TotalKnown() {
			cur.Total = page.Total
			cur.TotalKnown = true
		}
		if fromCache {
			cur.CachedPages++
		} else {
			cur.FetchedPages++
		}
		f.observer.PageDone(PageEvent{Cursor: cur, FromCache: fromCache, Entries: len(page.Data)})
		logger.Debug("collection page accumulated",
			logging.Int("offset", cur.Offset),
			logging.Int("entries", len(page.Data)),
			logging.Int("accumulated", cur.Accumulated),
			logging.Bool("from_cache", fromCache),
		)

		if len(page.Data) < f.pageSize || (cur.TotalKnown && cur.Accumulated >= cur.Total) {
			cur.State = StateDone
			logger.Info("collection list complete",
				logging.Int("entries", cur.Accumulated),
				logging.Int("cached_pages", cur.CachedPages),
				logging.Int("fetched_pages", cur.FetchedPages),
			)
			return entries, cur, nil
		}
		cur.Offset += len(page.Data)
	}
}

func (f *Fetcher) loadPage(ctx context.Context, logger *slog.Logger, user bangumi.User, offset int) (bangumi.CollectionPage, bool, error) {
	key := cache.CollectionPageKey(user.ID, f.pageSize, offset)
	if entry, ok := f.cache.Get(key); ok {
		if entry.Empty {
			return bangumi.CollectionPage{Total: -1}, true, nil
		}
		page, err := bangumi.DecodeCollectionPage(entry.Payload)
		if err == nil {
			return page, true, nil
		}
		logger.Debug("cached page unreadable, refetching", logging.String("key", string(key)), logging.Error(err))
	}

	raw, err := f.source.CollectionPage(ctx, user.Slug(), f.pageSize, offset)
	if err != nil {
		return bangumi.CollectionPage{}, false, err
	}
	page, err := bangumi.DecodeCollectionPage(raw)
	if err != nil {
		return bangumi.CollectionPage{}, false, err
	}
	if err := f.cache.Put(key, raw); err != nil {
		logging.WarnWithContext(logger, "collection page not cached",
			"cache_write_failed",
			logging.String("key", string(key)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions of the cache directory"),
			logging.String(logging.FieldImpact, "a rerun will fetch this page again"),
		)
	}
	return page, false, nil
}
