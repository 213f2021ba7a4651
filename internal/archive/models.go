package archive

import "time"

// Run describes one completed export.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	UserID          int64
	Username        string
	Format          string
	Detail          bool
	RecordCount     int
	CachedPages     int
	FetchedPages    int
	DegradedDetails int
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StoredRecord is one archived record row.
type StoredRecord struct {
	Position    int
	SubjectID   int64
	Name        string
	NameOrig    string
	SubjectType int
	TypeLabel   string
	URL         string
	Status      string
	StatusLabel string
	Rating      int
	Tags        string
	Comment     string
	Updated     string
	Progress    string
	ProgressPct int
	HasPct      bool
	Watched     string
}
