package catalog

import (
	"fmt"
	"math"
	"time"
)

// Record is one normalized collection entry, ready for export.
type Record struct {
	SubjectID int64
	// Name is the display name: localized when present, else original.
	Name string
	// OriginalName is set only when it differs from a present localized name.
	OriginalName string
	// LocalizedName is the trimmed localized name, "" when the subject has none.
	LocalizedName string
	Type          SubjectType
	TypeLabel     string
	URL           string
	Status        CollectionStatus
	StatusLabel   string
	Rating        int
	Tags          []string
	Comment       string
	UpdatedAt     time.Time
	Updated       string
	Detail        *DetailInfo
}

// SourceName returns the subject's original-language name.
func (r Record) SourceName() string {
	if r.OriginalName != "" {
		return r.OriginalName
	}
	return r.Name
}

// Rated reports whether the user gave a score.
func (r Record) Rated() bool {
	return r.Rating > 0
}

// DetailInfo carries episode progress for a record.
type DetailInfo struct {
	Completed int
	Total     int
	Watched   []int
}

// Progress renders "completed/total".
func (d *DetailInfo) Progress() string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", d.Completed, d.Total)
}

// Percent returns the rounded completion percentage. The boolean is false
// when the total is unknown.
func (d *DetailInfo) Percent() (int, bool) {
	if d == nil || d.Total <= 0 {
		return 0, false
	}
	return int(math.Round(float64(d.Completed) / float64(d.Total) * 100)), true
}

// PercentLabel renders the percentage with a trailing sign, or "" when unknown.
func (d *DetailInfo) PercentLabel() string {
	pct, ok := d.Percent()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d%%", pct)
}

// Notation returns the watched episodes in range notation.
func (d *DetailInfo) Notation() string {
	if d == nil {
		return ""
	}
	return EncodeRanges(d.Watched)
}
