// Package normalize turns raw Bangumi collection entries into catalog records.
package normalize

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"bgmexport/internal/bangumi"
	"bgmexport/internal/catalog"
)

// UpdatedLayout renders record timestamps.
const UpdatedLayout = "2006-01-02 15:04:05"

// Normalizer is a pure mapping from raw entries to records. It is safe for
// concurrent use.
type Normalizer struct {
	labels   *catalog.StatusLabelTable
	siteURL  string
	location *time.Location
}

// New builds a Normalizer. A nil location renders timestamps in local time.
func New(labels *catalog.StatusLabelTable, siteURL string, location *time.Location) *Normalizer {
	if labels == nil {
		labels = catalog.NewStatusLabelTable()
	}
	if location == nil {
		location = time.Local
	}
	siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if siteURL == "" {
		siteURL = "https://bgm.tv"
	}
	return &Normalizer{labels: labels, siteURL: siteURL, location: location}
}

// Record normalizes one entry. episodes is nil outside detail mode or when
// the subject has no episode data; withDetail controls whether DetailInfo is
// derived at all.
func (n *Normalizer) Record(entry bangumi.UserCollection, episodes *bangumi.EpisodeCollection, withDetail bool) catalog.Record {
	subjectID := entry.SubjectID
	if subjectID == 0 {
		subjectID = entry.Subject.ID
	}
	subjectType := catalog.SubjectTypeFromCode(entry.Subject.Type)
	if entry.Subject.Type == 0 {
		subjectType = catalog.SubjectTypeFromCode(entry.SubjectType)
	}
	status, _ := catalog.CollectionStatusFromCode(entry.Type)

	name, original := selectNames(entry.Subject.NameCN, entry.Subject.Name)

	record := catalog.Record{
		SubjectID:     subjectID,
		Name:          name,
		OriginalName:  original,
		LocalizedName: strings.TrimSpace(entry.Subject.NameCN),
		Type:          subjectType,
		TypeLabel:     subjectType.Label(),
		URL:           n.siteURL + "/subject/" + strconv.FormatInt(subjectID, 10),
		Status:        status,
		StatusLabel:   n.labels.Label(subjectType, status),
		Tags:          cleanTags(entry.Tags),
		UpdatedAt:     entry.UpdatedAt,
	}
	if entry.Rate > 0 && entry.Rate <= 10 {
		record.Rating = entry.Rate
	}
	if entry.Comment != nil {
		record.Comment = strings.TrimSpace(*entry.Comment)
	}
	if !entry.UpdatedAt.IsZero() {
		record.Updated = entry.UpdatedAt.In(n.location).Format(UpdatedLayout)
	}
	if withDetail {
		record.Detail = deriveDetail(entry, episodes)
	}
	return record
}

// Records normalizes entries in order. Entries whose collection status is
// outside the known set are left out and their subject IDs returned.
func (n *Normalizer) Records(entries []bangumi.UserCollection, details map[int64]*bangumi.EpisodeCollection, withDetail bool) ([]catalog.Record, []int64) {
	out := make([]catalog.Record, 0, len(entries))
	var skipped []int64
	for _, entry := range entries {
		if _, ok := catalog.CollectionStatusFromCode(entry.Type); !ok {
			skipped = append(skipped, entry.SubjectID)
			continue
		}
		out = append(out, n.Record(entry, details[entry.SubjectID], withDetail))
	}
	return out, skipped
}

// selectNames prefers the localized name. The original is returned only when
// it differs after trimming and NFC normalization.
func selectNames(localized, original string) (string, string) {
	localized = strings.TrimSpace(localized)
	original = strings.TrimSpace(original)
	switch {
	case localized == "":
		return original, ""
	case original == "", norm.NFC.String(localized) == norm.NFC.String(original):
		return localized, ""
	default:
		return localized, original
	}
}

func cleanTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// deriveDetail computes progress from main episodes the user marked watched.
// Without main episodes it falls back to the collection's ep_status against
// the subject's episode count.
func deriveDetail(entry bangumi.UserCollection, episodes *bangumi.EpisodeCollection) *catalog.DetailInfo {
	var mainCount int
	var watched []int
	if episodes != nil {
		for _, item := range episodes.Data {
			if item.Episode.Type != bangumi.EpisodeTypeMain {
				continue
			}
			mainCount++
			if item.Type == bangumi.EpisodeStatusWatched && item.Episode.Sort >= 1 {
				watched = append(watched, int(item.Episode.Sort))
			}
		}
	}
	if mainCount > 0 {
		slices.Sort(watched)
		watched = slices.Compact(watched)
		return &catalog.DetailInfo{Completed: len(watched), Total: mainCount, Watched: watched}
	}
	if entry.Subject.Eps > 0 {
		return &catalog.DetailInfo{Completed: min(entry.EpStatus, entry.Subject.Eps), Total: entry.Subject.Eps}
	}
	return nil
}
