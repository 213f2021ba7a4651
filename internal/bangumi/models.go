package bangumi

import (
	"encoding/json"
	"strconv"
	"time"

	"bgmexport/internal/services"
)

// User is the authenticated account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

// Slug returns the path segment used by user-scoped endpoints. Accounts
// without a custom username are addressed by numeric id.
func (u User) Slug() string {
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// CollectionPage is one page of /v0/users/{username}/collections.
type CollectionPage struct {
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Data   []UserCollection `json:"data"`
}

// UserCollection is one collected subject with the user's status.
type UserCollection struct {
	SubjectID   int64       `json:"subject_id"`
	SubjectType int         `json:"subject_type"`
	Type        int         `json:"type"`
	Rate        int         `json:"rate"`
	EpStatus    int         `json:"ep_status"`
	VolStatus   int         `json:"vol_status"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Comment     *string     `json:"comment"`
	Tags        []string    `json:"tags"`
	Private     bool        `json:"private"`
	Subject     SlimSubject `json:"subject"`
}

// SlimSubject is the subject summary embedded in a collection entry.
type SlimSubject struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	NameCN  string `json:"name_cn"`
	Type    int    `json:"type"`
	Eps     int    `json:"eps"`
	Volumes int    `json:"volumes"`
	Date    string `json:"date"`
}

// Episode types; only main episodes count toward progress.
const (
	EpisodeTypeMain = 0
)

// Episode collection states reported per episode.
const (
	EpisodeStatusNone    = 0
	EpisodeStatusWish    = 1
	EpisodeStatusWatched = 2
	EpisodeStatusDropped = 3
)

// Episode is one episode of a subject.
type Episode struct {
	ID     int64   `json:"id"`
	Type   int     `json:"type"`
	Name   string  `json:"name"`
	NameCN string  `json:"name_cn"`
	Sort   float64 `json:"sort"`
	Ep     float64 `json:"ep"`
}

// UserEpisode pairs an episode with the user's mark on it.
type UserEpisode struct {
	Episode Episode `json:"episode"`
	Type    int     `json:"type"`
}

// EpisodeCollection is the assembled episode list of one subject across all
// pages.
type EpisodeCollection struct {
	SubjectID int64         `json:"subject_id"`
	Total     int           `json:"total"`
	Data      []UserEpisode `json:"data"`
}

type pageEnvelope struct {
	Total  *int            `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
	Data   json.RawMessage `json:"data"`
}

// DecodeCollectionPage parses a raw collection page. A payload without a
// data array is an unexpected shape.
func DecodeCollectionPage(raw []byte) (CollectionPage, error) {
	var env pageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return CollectionPage{}, services.Wrap(services.ErrUnexpectedShape, "bangumi", "decode collections", "invalid JSON", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return CollectionPage{}, services.Wrap(services.ErrUnexpectedShape, "bangumi", "decode collections", "missing data array", nil)
	}
	page := CollectionPage{Limit: env.Limit, Offset: env.Offset}
	if env.Total != nil {
		page.Total = *env.Total
	} else {
		page.Total = -1
	}
	if err := json.Unmarshal(env.Data, &page.Data); err != nil {
		return CollectionPage{}, services.Wrap(services.ErrUnexpectedShape, "bangumi", "decode collections", "invalid data array", err)
	}
	return page, nil
}

// TotalKnown reports whether the page carried a total count.
func (p CollectionPage) TotalKnown() bool {
	return p.Total >= 0
}

// DecodeEpisodeCollection parses an assembled episode collection.
func DecodeEpisodeCollection(raw []byte) (EpisodeCollection, error) {
	var out EpisodeCollection
	if err := json.Unmarshal(raw, &out); err != nil {
		return EpisodeCollection{}, services.Wrap(services.ErrUnexpectedShape, "bangumi", "decode episodes", "invalid JSON", err)
	}
	return out, nil
}

type episodePage struct {
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Data   []UserEpisode `json:"data"`
}
