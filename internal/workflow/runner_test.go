package workflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bgmexport/internal/archive"
	"bgmexport/internal/cache"
	"bgmexport/internal/config"
	"bgmexport/internal/export"
	"bgmexport/internal/logging"
	"bgmexport/internal/ratelimit"
	"bgmexport/internal/services"
	"bgmexport/internal/token"
	"bgmexport/internal/workflow"
)

type fakeAPI struct {
	mu         sync.Mutex
	calls      map[string]int
	entries    []map[string]any
	episodes   map[int64][]map[string]any
	malformed  map[int64]bool
	meStatus   int
	failOffset int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}, episodes: map[int64][]map[string]any{}, malformed: map[int64]bool{}, failOffset: -1}
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	query := r.URL.Query()
	switch {
	case r.URL.Path == "/v0/me":
		if f.meStatus != 0 {
			w.WriteHeader(f.meStatus)
			return
		}
		fmt.Fprint(w, `{"id": 42, "username": "sai", "nickname": "Sai"}`)
	case r.URL.Path == "/v0/users/sai/collections":
		limit, _ := strconv.Atoi(query.Get("limit"))
		offset, _ := strconv.Atoi(query.Get("offset"))
		if offset == f.failOffset {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		end := min(offset+limit, len(f.entries))
		page := []map[string]any{}
		if offset < len(f.entries) {
			page = f.entries[offset:end]
		}
		writeJSON(w, map[string]any{"total": len(f.entries), "limit": limit, "offset": offset, "data": page})
	case strings.HasPrefix(r.URL.Path, "/v0/users/-/collections/"):
		parts := strings.Split(r.URL.Path, "/")
		id, _ := strconv.ParseInt(parts[5], 10, 64)
		if f.malformed[id] {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"total":"weird","data":{}}`)
			return
		}
		data, ok := f.episodes[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"total": len(data), "limit": 100, "offset": 0, "data": data})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func collectionEntry(id int64, name, nameCN string, subjectType, status, rate, eps int) map[string]any {
	return map[string]any{
		"subject_id":   id,
		"subject_type": subjectType,
		"type":         status,
		"rate":         rate,
		"ep_status":    0,
		"updated_at":   "2024-03-01T12:30:00+08:00",
		"comment":      nil,
		"tags":         []string{},
		"private":      false,
		"subject":      map[string]any{"id": id, "name": name, "name_cn": nameCN, "type": subjectType, "eps": eps},
	}
}

func episode(sort, status int) map[string]any {
	return map[string]any{
		"episode": map[string]any{"id": 1000 + sort, "type": 0, "name": "", "name_cn": "", "sort": sort, "ep": sort},
		"type":    status,
	}
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.API.BaseURL = serverURL
	cfg.API.RequestIntervalSeconds = 0
	cfg.API.MaxRetries = 0
	cfg.API.PageSize = 2
	cfg.Paths.CacheDir = filepath.Join(dir, "cache")
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.Paths.TokenFile = filepath.Join(dir, "token")
	cfg.Keyring.Enabled = false
	cfg.Export.Timezone = "Asia/Shanghai"
	return &cfg
}

func newRunner(cfg *config.Config) *workflow.Runner {
	ids := 0
	return workflow.NewRunner(cfg, logging.NewNop(),
		workflow.WithGate(ratelimit.New(0)),
		workflow.WithRunIDGenerator(func() string {
			ids++
			return "run-" + strconv.Itoa(ids)
		}),
		workflow.WithClock(func() time.Time { return time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) }),
	)
}

func TestRunEndToEnd(t *testing.T) {
	t.Setenv(token.EnvVar, "test-token")
	api := newFakeAPI()
	api.entries = []map[string]any{collectionEntry(10380, "Steins;Gate", "命运石之门", 2, 2, 10, 24)}
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	var summary bytes.Buffer
	result, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatAll, Summary: &summary})
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, token.SourceEnv, result.TokenSource)
	assert.Equal(t, "sai", result.User.Username)
	require.Len(t, result.Records, 1)
	assert.Len(t, result.Files, 2)

	data, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, export.JSONFileName))
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"命运石之门","name_orig":"Steins;Gate","type":"动画","status":"看过","updated":"2024-03-01 12:30:00","rating":10}]`, string(data))

	data, err = os.ReadFile(filepath.Join(cfg.Paths.OutputDir, export.CSVFileName))
	require.NoError(t, err)
	csvText := string(data)
	assert.Contains(t, csvText, "看过")
	assert.Contains(t, csvText, ",10,")

	assert.Contains(t, summary.String(), "    命运石之门 [动画] [10分]")
	assert.Zero(t, api.count("/v0/users/-/collections/10380/episodes"), "no detail requests without detail mode")
}

func TestRerunServesCollectionsFromCache(t *testing.T) {
	t.Setenv(token.EnvVar, "test-token")
	api := newFakeAPI()
	for i := int64(1); i <= 5; i++ {
		api.entries = append(api.entries, collectionEntry(i, fmt.Sprintf("S%d", i), "", 2, 3, 0, 12))
	}
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	first, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Cursor.FetchedPages)
	assert.Equal(t, 3, api.count("/v0/users/sai/collections"))

	second, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, 3, second.Cursor.CachedPages)
	assert.Zero(t, second.Cursor.FetchedPages)
	assert.Equal(t, 3, api.count("/v0/users/sai/collections"), "no repeated page calls")
	assert.Equal(t, 2, api.count("/v0/me"), "identity is never cached")
	assert.Equal(t, first.Records, second.Records)

	third, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatJSON, NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, 3, third.Cursor.FetchedPages)
	assert.Equal(t, 6, api.count("/v0/users/sai/collections"))
}

func TestRunWithDetail(t *testing.T) {
	t.Setenv(token.EnvVar, "test-token")
	api := newFakeAPI()
	api.entries = []map[string]any{
		collectionEntry(1, "Anime", "动画一", 2, 3, 0, 4),
		collectionEntry(2, "Book", "", 1, 2, 8, 0),
	}
	api.episodes[1] = []map[string]any{episode(1, 2), episode(2, 2), episode(3, 0), episode(4, 2)}
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	result, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatAll, Detail: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Enrich.Missing)
	require.Len(t, result.Records, 2)
	require.NotNil(t, result.Records[0].Detail)
	assert.Equal(t, "3/4", result.Records[0].Detail.Progress())
	assert.Equal(t, "1-2,4", result.Records[0].Detail.Notation())
	assert.Nil(t, result.Records[1].Detail)

	data, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, export.JSONFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"progress":"3/4","progress_pct":"75%","watched":"1-2,4"`)

	// The empty marker for the book is cached, so a rerun asks for nothing new.
	before := api.total()
	_, err = newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatAll, Detail: true})
	require.NoError(t, err)
	assert.Equal(t, before+1, api.total(), "only /v0/me is requested again")
}

func TestRunWithoutTokenMakesNoRequests(t *testing.T) {
	t.Setenv(token.EnvVar, "")
	api := newFakeAPI()
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	_, err := newRunner(cfg).Run(context.Background(), workflow.Options{})
	require.Error(t, err)
	assert.True(t, workflow.IsNoToken(err))
	assert.Zero(t, api.total())
}

func TestRunWithoutTokenKeepsCache(t *testing.T) {
	t.Setenv(token.EnvVar, "test-token")
	api := newFakeAPI()
	api.entries = []map[string]any{collectionEntry(1, "S1", "", 2, 2, 0, 1)}
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	_, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatJSON})
	require.NoError(t, err)

	t.Setenv(token.EnvVar, "")
	_, err = newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatJSON, NoCache: true})
	require.Error(t, err)
	assert.True(t, workflow.IsNoToken(err))

	store, err := cache.Open(cfg.Paths.CacheDir, nil)
	require.NoError(t, err)
	stats, err := store.Stats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, cache.KindCollections, stats[0].Kind)
	assert.Equal(t, 1, stats[0].Entries)
}

func TestRunDegradesMalformedDetail(t *testing.T) {
	t.Setenv(token.EnvVar, "test-token")
	api := newFakeAPI()
	api.entries = []map[string]any{
		collectionEntry(1, "Broken", "", 2, 3, 0, 2),
		collectionEntry(2, "Second", "", 2, 3, 0, 2),
		collectionEntry(3, "Third", "", 2, 2, 0, 1),
	}
	api.malformed[1] = true
	api.episodes[2] = []map[string]any{episode(1, 2), episode(2, 0)}
	api.episodes[3] = []map[string]any{episode(1, 2)}
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	result, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatJSON, Detail: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Enrich.Degraded)
	assert.Equal(t, 2, result.Enrich.Fetched)
	require.Len(t, result.Records, 3)
	require.NotNil(t, result.Records[1].Detail)
	assert.Equal(t, "1/2", result.Records[1].Detail.Progress())
	require.NotNil(t, result.Records[2].Detail)
	assert.Equal(t, "1/1", result.Records[2].Detail.Progress())
	assert.Equal(t, 1, api.count("/v0/users/-/collections/3/episodes"))
	assert.Len(t, result.Files, 1)
}

func TestRunAuthFailureWritesNothing(t *testing.T) {
	t.Setenv(token.EnvVar, "test-token")
	api := newFakeAPI()
	for i := int64(1); i <= 5; i++ {
		api.entries = append(api.entries, collectionEntry(i, fmt.Sprintf("S%d", i), "", 2, 2, 0, 1))
	}
	api.failOffset = 2
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	result, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatAll})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrAuth)
	assert.Empty(t, result.Files)
	_, statErr := os.Stat(filepath.Join(cfg.Paths.OutputDir, export.JSONFileName))
	assert.True(t, os.IsNotExist(statErr))

	// The first page survived in the cache, so the resumed run starts at offset 2.
	api.failOffset = -1
	resumed, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatAll})
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.Cursor.CachedPages)
	assert.Len(t, resumed.Records, 5)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	t.Setenv(token.EnvVar, "test-token")
	api := newFakeAPI()
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	holder, err := cache.Open(cfg.Paths.CacheDir, nil)
	require.NoError(t, err)
	require.NoError(t, holder.Lock())
	defer holder.Unlock()

	_, err = newRunner(cfg).Run(context.Background(), workflow.Options{})
	assert.ErrorIs(t, err, cache.ErrLocked)
	assert.Zero(t, api.total())
}

func TestRunArchivesSnapshot(t *testing.T) {
	t.Setenv(token.EnvVar, "test-token")
	api := newFakeAPI()
	api.entries = []map[string]any{collectionEntry(10380, "Steins;Gate", "命运石之门", 2, 2, 10, 24)}
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	archivePath := filepath.Join(t.TempDir(), "history.db")
	result, err := newRunner(cfg).Run(context.Background(), workflow.Options{Format: export.FormatCSV, ArchivePath: archivePath})
	require.NoError(t, err)
	assert.True(t, result.Archived)

	db, err := archive.Open(context.Background(), archivePath)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "sai", runs[0].Username)
	assert.Equal(t, 1, runs[0].RecordCount)
	assert.Equal(t, "csv", runs[0].Format)
}
