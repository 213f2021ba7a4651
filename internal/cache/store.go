package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"bgmexport/internal/logging"
)

const lockFileName = ".lock"

// ErrLocked reports that another process holds the cache directory.
var ErrLocked = errors.New("cache directory is locked by another bgmexport process")

// Entry is one cached response.
type Entry struct {
	Key      Key             `json:"key"`
	StoredAt time.Time       `json:"stored_at"`
	Empty    bool            `json:"empty,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Store is a directory of cached responses.
type Store struct {
	dir    string
	logger *slog.Logger
	lock   *flock.Flock
	now    func() time.Time
}

// Open initialises a store rooted at dir, creating it when missing.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "cache"),
		lock:   flock.New(filepath.Join(dir, lockFileName)),
		now:    time.Now,
	}, nil
}

// Dir exposes the backing directory for inspection.
func (s *Store) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Lock takes the exclusive directory lock without blocking.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrLocked, s.dir)
	}
	return nil
}

// Unlock releases the directory lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Get returns the entry for key. Missing, unreadable, or corrupt entries are
// misses; the store never surfaces read errors to callers.
func (s *Store) Get(key Key) (Entry, bool) {
	if err := key.Validate(); err != nil {
		s.logger.Debug("cache key rejected", logging.String("key", string(key)), logging.Error(err))
		return Entry{}, false
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("cache read failed", logging.String("key", string(key)), logging.Error(err))
		}
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Debug("cache entry corrupt, treating as miss", logging.String("key", string(key)), logging.Error(err))
		return Entry{}, false
	}
	if entry.Key != key || (!entry.Empty && len(entry.Payload) == 0) {
		s.logger.Debug("cache entry incomplete, treating as miss", logging.String("key", string(key)))
		return Entry{}, false
	}
	return entry, true
}

// Put stores payload under key, replacing any previous entry.
func (s *Store) Put(key Key, payload []byte) error {
	if len(payload) == 0 {
		return s.PutEmpty(key)
	}
	if !json.Valid(payload) {
		return fmt.Errorf("cache put %s: payload is not valid JSON", key)
	}
	return s.write(Entry{Key: key, Payload: json.RawMessage(payload)})
}

// PutEmpty records that key was fetched and had nothing to store.
func (s *Store) PutEmpty(key Key) error {
	return s.write(Entry{Key: key, Empty: true})
}

func (s *Store) write(entry Entry) error {
	if err := entry.Key.Validate(); err != nil {
		return err
	}
	entry.StoredAt = s.now().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	path := s.path(entry.Key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure cache dir: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	s.logger.Debug("cache stored",
		logging.String("key", string(entry.Key)),
		logging.Bool("empty", entry.Empty),
		logging.Int("bytes", len(entry.Payload)),
	)
	return nil
}

// Clear removes every cached entry while keeping the directory and its lock file.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, e := range entries {
		if e.Name() == lockFileName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	s.logger.Info("cache cleared", logging.String("dir", s.dir))
	return nil
}

// KindStats summarises the entries of one request family.
type KindStats struct {
	Kind    string
	Entries int
	Empty   int
	Bytes   int64
}

// Stats walks the cache and groups entries by kind.
func (s *Store) Stats() ([]KindStats, error) {
	byKind := map[string]*KindStats{}
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		key := Key(strings.TrimSuffix(filepath.ToSlash(rel), ".json"))
		kind := key.Kind()
		if kind == "" {
			return nil
		}
		stats, ok := byKind[kind]
		if !ok {
			stats = &KindStats{Kind: kind}
			byKind[kind] = stats
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Entries++
		stats.Bytes += info.Size()
		if entry, ok := s.Get(key); ok && entry.Empty {
			stats.Empty++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan cache: %w", err)
	}
	out := make([]KindStats, 0, len(byKind))
	for _, kind := range []string{KindCollections, KindEpisodes} {
		if stats, ok := byKind[kind]; ok {
			out = append(out, *stats)
			delete(byKind, kind)
		}
	}
	for _, stats := range byKind {
		out = append(out, *stats)
	}
	return out, nil
}

func (s *Store) path(key Key) string {
	return filepath.Join(s.dir, key.relPath())
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
