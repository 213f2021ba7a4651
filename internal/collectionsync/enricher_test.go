package collectionsync_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bgmexport/internal/bangumi"
	"bgmexport/internal/collectionsync"
	"bgmexport/internal/services"
)

type fakeEpisodes struct {
	bySubject map[int64]bangumi.EpisodeCollection
	errs      map[int64]error
	calls     []int64
}

func (f *fakeEpisodes) SubjectEpisodes(_ context.Context, subjectID int64) (bangumi.EpisodeCollection, error) {
	f.calls = append(f.calls, subjectID)
	if err, ok := f.errs[subjectID]; ok {
		return bangumi.EpisodeCollection{}, err
	}
	if detail, ok := f.bySubject[subjectID]; ok {
		return detail, nil
	}
	return bangumi.EpisodeCollection{SubjectID: subjectID}, nil
}

func watched(subjectID int64, sorts ...float64) bangumi.EpisodeCollection {
	out := bangumi.EpisodeCollection{SubjectID: subjectID, Total: len(sorts)}
	for i, sort := range sorts {
		out.Data = append(out.Data, bangumi.UserEpisode{
			Episode: bangumi.Episode{ID: subjectID*100 + int64(i), Type: bangumi.EpisodeTypeMain, Sort: sort},
			Type:    bangumi.EpisodeStatusWatched,
		})
	}
	return out
}

func TestEnrichCachesEverySubject(t *testing.T) {
	dir := t.TempDir()
	entries := makeEntries(3)
	source := &fakeEpisodes{
		bySubject: map[int64]bangumi.EpisodeCollection{1: watched(1, 1, 2), 3: watched(3, 5)},
		errs:      map[int64]error{2: services.Wrap(services.ErrNotFound, "bangumi", "episodes", "404", nil)},
	}

	details, stats, err := collectionsync.NewEnricher(source, openCache(t, dir), collectionsync.EnricherOptions{}).
		Enrich(context.Background(), testUser, entries)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, source.calls)
	assert.Equal(t, collectionsync.EnrichStats{Fetched: 3, Missing: 1}, stats)
	require.Contains(t, details, int64(1))
	assert.NotContains(t, details, int64(2))
	assert.Len(t, details[1].Data, 2)

	replay := &fakeEpisodes{}
	again, stats, err := collectionsync.NewEnricher(replay, openCache(t, dir), collectionsync.EnricherOptions{}).
		Enrich(context.Background(), testUser, entries)
	require.NoError(t, err)
	assert.Empty(t, replay.calls)
	assert.Equal(t, collectionsync.EnrichStats{Cached: 3, Missing: 1}, stats)
	assert.Equal(t, details, again)
}

func TestEnrichDegradesOnTransientFailure(t *testing.T) {
	dir := t.TempDir()
	entries := makeEntries(2)
	source := &fakeEpisodes{
		bySubject: map[int64]bangumi.EpisodeCollection{2: watched(2, 1)},
		errs:      map[int64]error{1: services.Wrap(services.ErrNetwork, "bangumi", "episodes", "giving up", nil)},
	}

	details, stats, err := collectionsync.NewEnricher(source, openCache(t, dir), collectionsync.EnricherOptions{}).
		Enrich(context.Background(), testUser, entries)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Degraded)
	assert.NotContains(t, details, int64(1))
	assert.Contains(t, details, int64(2))

	// The degraded subject was not cached, so the next run asks again.
	retry := &fakeEpisodes{bySubject: map[int64]bangumi.EpisodeCollection{1: watched(1, 1)}}
	details, _, err = collectionsync.NewEnricher(retry, openCache(t, dir), collectionsync.EnricherOptions{}).
		Enrich(context.Background(), testUser, entries)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, retry.calls)
	assert.Contains(t, details, int64(1))
}

func TestEnrichDegradesOnMalformedDetail(t *testing.T) {
	dir := t.TempDir()
	entries := makeEntries(3)
	source := &fakeEpisodes{
		bySubject: map[int64]bangumi.EpisodeCollection{2: watched(2, 1, 2), 3: watched(3, 4)},
		errs:      map[int64]error{1: services.Wrap(services.ErrUnexpectedShape, "bangumi", "episodes", "decode episode page", nil)},
	}

	details, stats, err := collectionsync.NewEnricher(source, openCache(t, dir), collectionsync.EnricherOptions{}).
		Enrich(context.Background(), testUser, entries)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, source.calls)
	assert.Equal(t, collectionsync.EnrichStats{Fetched: 2, Degraded: 1}, stats)
	assert.NotContains(t, details, int64(1))
	assert.Len(t, details[2].Data, 2)
	assert.Len(t, details[3].Data, 1)

	// Nothing was cached for the malformed subject.
	retry := &fakeEpisodes{bySubject: map[int64]bangumi.EpisodeCollection{1: watched(1, 1)}}
	details, stats, err = collectionsync.NewEnricher(retry, openCache(t, dir), collectionsync.EnricherOptions{}).
		Enrich(context.Background(), testUser, entries)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, retry.calls)
	assert.Equal(t, collectionsync.EnrichStats{Cached: 2, Fetched: 1}, stats)
	assert.Contains(t, details, int64(1))
}

func TestEnrichAbortsOnAuthFailure(t *testing.T) {
	source := &fakeEpisodes{errs: map[int64]error{1: services.Wrap(services.ErrAuth, "bangumi", "episodes", "401", nil)}}
	_, _, err := collectionsync.NewEnricher(source, openCache(t, t.TempDir()), collectionsync.EnricherOptions{}).
		Enrich(context.Background(), testUser, makeEntries(3))
	assert.ErrorIs(t, err, services.ErrAuth)
	assert.Equal(t, []int64{1}, source.calls)
}

func TestEnrichStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := &fakeEpisodes{}
	_, _, err := collectionsync.NewEnricher(source, openCache(t, t.TempDir()), collectionsync.EnricherOptions{}).
		Enrich(ctx, testUser, makeEntries(2))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, source.calls)
}
