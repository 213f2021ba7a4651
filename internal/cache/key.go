package cache

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Key identifies one cached request. Keys are slash-separated paths built
// only from the constructors below.
type Key string

// Kind names for the second key segment.
const (
	KindCollections = "collections"
	KindEpisodes    = "episodes"
)

var segmentPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// CollectionPageKey addresses one page of a user's collection list. The page
// size is part of the key so a changed limit never reuses misaligned pages.
func CollectionPageKey(userID int64, limit, offset int) Key {
	return Key(fmt.Sprintf("%d/%s/%d-%d", userID, KindCollections, limit, offset))
}

// EpisodesKey addresses the assembled episode progress for one subject.
func EpisodesKey(userID, subjectID int64) Key {
	return Key(fmt.Sprintf("%d/%s/%d", userID, KindEpisodes, subjectID))
}

// Kind returns the request family of the key, or "" when malformed.
func (k Key) Kind() string {
	parts := strings.Split(string(k), "/")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// Validate rejects keys that could escape the cache directory.
func (k Key) Validate() error {
	parts := strings.Split(string(k), "/")
	if len(parts) != 3 {
		return fmt.Errorf("cache key %q: expected 3 segments", string(k))
	}
	if _, err := strconv.ParseInt(parts[0], 10, 64); err != nil {
		return fmt.Errorf("cache key %q: user segment must be numeric", string(k))
	}
	for _, part := range parts[1:] {
		if !segmentPattern.MatchString(part) {
			return fmt.Errorf("cache key %q: invalid segment %q", string(k), part)
		}
	}
	return nil
}

func (k Key) relPath() string {
	return filepath.FromSlash(string(k)) + ".json"
}
