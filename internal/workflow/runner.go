package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"bgmexport/internal/archive"
	"bgmexport/internal/bangumi"
	"bgmexport/internal/cache"
	"bgmexport/internal/catalog"
	"bgmexport/internal/collectionsync"
	"bgmexport/internal/config"
	"bgmexport/internal/export"
	"bgmexport/internal/logging"
	"bgmexport/internal/normalize"
	"bgmexport/internal/ratelimit"
	"bgmexport/internal/services"
	"bgmexport/internal/token"
)

// Options are the per-run choices, usually from CLI flags.
type Options struct {
	Format      export.Format
	Detail      bool
	NoCache     bool
	OutputDir   string
	ArchivePath string
	// Summary receives the terminal summary; nil skips it.
	Summary  io.Writer
	Color    bool
	Observer collectionsync.Observer
}

// Result describes a finished run.
type Result struct {
	RunID       string
	User        bangumi.User
	TokenSource token.Source
	Records     []catalog.Record
	Skipped     []int64
	Files       []string
	Cursor      collectionsync.Cursor
	Enrich      collectionsync.EnrichStats
	Archived    bool
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Runner executes exports against one configuration.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
	gate       *ratelimit.Gate
	labels     *catalog.StatusLabelTable
	now        func() time.Time
	newID      func() string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) { r.httpClient = client }
}

// WithGate overrides the request gate.
func WithGate(gate *ratelimit.Gate) Option {
	return func(r *Runner) { r.gate = gate }
}

// WithClock overrides the wall clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRunIDGenerator overrides run ID generation.
func WithRunIDGenerator(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// NewRunner builds a Runner.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "workflow"),
		labels: catalog.NewStatusLabelTable(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.gate == nil {
		r.gate = ratelimit.New(cfg.RequestInterval())
	}
	return r
}

// Run performs one export.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	if r.cfg == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "workflow", "run", "configuration is required", nil)
	}
	if opts.Format == "" {
		opts.Format = export.FormatAll
	}
	if opts.OutputDir == "" {
		opts.OutputDir = r.cfg.Paths.OutputDir
	}
	if opts.ArchivePath == "" {
		opts.ArchivePath = r.cfg.Paths.ArchivePath
	}
	observer := opts.Observer
	if observer == nil {
		observer = collectionsync.NopObserver{}
	}

	result := Result{RunID: r.newID(), StartedAt: r.now()}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, r.logger)

	// A missing token must not cost the user their resumable cache.
	accessToken, source, err := token.Resolve(r.tokenOptions())
	if err != nil {
		return result, err
	}
	result.TokenSource = source
	logger.Debug("access token resolved", logging.String("source", string(source)))

	store, err := cache.Open(r.cfg.Paths.CacheDir, r.logger)
	if err != nil {
		return result, err
	}
	if err := store.Lock(); err != nil {
		return result, err
	}
	defer func() {
		if unlockErr := store.Unlock(); unlockErr != nil {
			logger.Debug("cache unlock failed", logging.Error(unlockErr))
		}
	}()
	if opts.NoCache {
		if err := store.Clear(); err != nil {
			return result, fmt.Errorf("clear cache: %w", err)
		}
		logger.Info("cache cleared for full resync", logging.String("cache_dir", store.Dir()))
	}

	client, err := bangumi.New(bangumi.Config{
		Token:           accessToken,
		BaseURL:         r.cfg.API.BaseURL,
		UserAgent:       r.cfg.API.UserAgent,
		Timeout:         r.cfg.RequestTimeout(),
		MaxRetries:      r.cfg.API.MaxRetries,
		InitialBackoff:  time.Duration(r.cfg.API.InitialBackoffSeconds) * time.Second,
		MaxBackoff:      time.Duration(r.cfg.API.MaxBackoffSeconds) * time.Second,
		EpisodePageSize: r.cfg.API.EpisodePageSize,
		Gate:            r.gate,
		HTTPClient:      r.httpClient,
		Logger:          r.logger,
	})
	if err != nil {
		return result, err
	}

	user, err := client.Me(services.WithPhase(ctx, "identity"))
	if err != nil {
		return result, err
	}
	result.User = user
	logger.Info("authenticated",
		logging.String("username", user.Username),
		logging.String("nickname", user.Nickname),
	)

	fetcher := collectionsync.NewFetcher(client, store, collectionsync.FetcherOptions{
		PageSize: r.cfg.API.PageSize,
		Observer: observer,
		Logger:   r.logger,
	})
	entries, cursor, err := fetcher.FetchAll(ctx, user)
	result.Cursor = cursor
	if err != nil {
		return result, err
	}

	var details map[int64]*bangumi.EpisodeCollection
	if opts.Detail {
		enricher := collectionsync.NewEnricher(client, store, collectionsync.EnricherOptions{
			Observer: observer,
			Logger:   r.logger,
		})
		details, result.Enrich, err = enricher.Enrich(ctx, user, entries)
		if err != nil {
			return result, err
		}
	}

	normalizer := normalize.New(r.labels, r.cfg.API.SiteURL, r.cfg.Location())
	result.Records, result.Skipped = normalizer.Records(entries, details, opts.Detail)
	if len(result.Skipped) > 0 {
		logging.WarnWithContext(logger, "entries with unknown collection status skipped",
			"unknown_status",
			logging.Int("count", len(result.Skipped)),
			logging.Any("subject_ids", result.Skipped),
			logging.String(logging.FieldErrorHint, "upgrade bgmexport if Bangumi added a collection status"),
			logging.String(logging.FieldImpact, "these entries are missing from the export"),
		)
	}

	if opts.Summary != nil {
		export.RenderSummary(opts.Summary, export.Summarize(result.Records, r.labels), opts.Color)
	}

	result.Files, err = export.WriteFiles(opts.OutputDir, opts.Format, result.Records, opts.Detail)
	if err != nil {
		return result, err
	}
	for _, path := range result.Files {
		logger.Info("export written", logging.String("path", path))
	}
	result.FinishedAt = r.now()

	if strings.TrimSpace(opts.ArchivePath) != "" {
		if err := r.archive(ctx, opts, &result); err != nil {
			logging.WarnWithContext(logger, "run not archived",
				"archive_failed",
				logging.String("archive_path", opts.ArchivePath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the archive path or delete an archive from an older version"),
			)
		} else {
			result.Archived = true
		}
	}
	return result, nil
}

func (r *Runner) archive(ctx context.Context, opts Options, result *Result) error {
	db, err := archive.Open(ctx, opts.ArchivePath)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveRun(ctx, archive.Run{
		ID:              result.RunID,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		UserID:          result.User.ID,
		Username:        result.User.Slug(),
		Format:          string(opts.Format),
		Detail:          opts.Detail,
		CachedPages:     result.Cursor.CachedPages,
		FetchedPages:    result.Cursor.FetchedPages,
		DegradedDetails: result.Enrich.Degraded,
	}, result.Records)
}

func (r *Runner) tokenOptions() token.Options {
	return token.Options{
		File:           r.cfg.Paths.TokenFile,
		KeyringEnabled: r.cfg.Keyring.Enabled,
		KeyringService: r.cfg.Keyring.Service,
		KeyringAccount: r.cfg.Keyring.Account,
	}
}

// IsNoToken reports whether err stems from a missing access token.
func IsNoToken(err error) bool {
	return errors.Is(err, token.ErrNoToken)
}
