// Package archive keeps a SQLite history of export runs and their records.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bgmexport/internal/catalog"
)

// Store wraps the archive database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("archive path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps pragmas and transactions on the same handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun writes the run row and every record in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, records []catalog.Record) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	run.RecordCount = len(records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO export_runs (
            id, started_at, finished_at, user_id, username, format, detail,
            record_count, cached_pages, fetched_pages, degraded_details
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.UserID,
		run.Username,
		run.Format,
		boolToInt(run.Detail),
		run.RecordCount,
		run.CachedPages,
		run.FetchedPages,
		run.DegradedDetails,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO export_records (
            run_id, position, subject_id, name, name_orig, subject_type, type_label,
            url, status, status_label, rating, tags, comment, updated_at,
            progress, progress_pct, watched
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		var pct sql.NullInt64
		if value, ok := r.Detail.Percent(); ok {
			pct = sql.NullInt64{Int64: int64(value), Valid: true}
		}
		var rating sql.NullInt64
		if r.Rated() {
			rating = sql.NullInt64{Int64: int64(r.Rating), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			i,
			r.SubjectID,
			r.Name,
			nullIfEmpty(r.OriginalName),
			int(r.Type),
			r.TypeLabel,
			r.URL,
			r.Status.String(),
			r.StatusLabel,
			rating,
			nullIfEmpty(strings.Join(r.Tags, ", ")),
			nullIfEmpty(r.Comment),
			nullIfEmpty(r.Updated),
			nullIfEmpty(r.Detail.Progress()),
			pct,
			nullIfEmpty(r.Detail.Notation()),
		); err != nil {
			return fmt.Errorf("insert record %d: %w", r.SubjectID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, user_id, username, format, detail,
            record_count, cached_pages, fetched_pages, degraded_details
        FROM export_runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
			detail            int
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.UserID, &run.Username, &run.Format, &detail,
			&run.RecordCount, &run.CachedPages, &run.FetchedPages, &run.DegradedDetails); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		run.Detail = detail != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Records returns the archived records of one run in export order.
func (s *Store) Records(ctx context.Context, runID string) ([]StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, subject_id, name, name_orig, subject_type, type_label, url,
            status, status_label, rating, tags, comment, updated_at, progress,
            progress_pct, watched
        FROM export_records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var (
			rec                                                 StoredRecord
			nameOrig, tags, comment, updated, progress, watched sql.NullString
			rating, pct                                         sql.NullInt64
		)
		if err := rows.Scan(&rec.Position, &rec.SubjectID, &rec.Name, &nameOrig, &rec.SubjectType, &rec.TypeLabel, &rec.URL,
			&rec.Status, &rec.StatusLabel, &rating, &tags, &comment, &updated, &progress, &pct, &watched); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.NameOrig = nameOrig.String
		rec.Rating = int(rating.Int64)
		rec.Tags = tags.String
		rec.Comment = comment.String
		rec.Updated = updated.String
		rec.Progress = progress.String
		rec.ProgressPct = int(pct.Int64)
		rec.HasPct = pct.Valid
		rec.Watched = watched.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune removes all but the newest keep runs and returns how many went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM export_runs WHERE id NOT IN (
            SELECT id FROM export_runs ORDER BY started_at DESC, id LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullIfEmpty(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
