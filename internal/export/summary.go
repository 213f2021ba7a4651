package export

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"bgmexport/internal/catalog"
)

// Bucket headers shared by every media type.
const (
	doingHeader = "在看/在玩/在读/在听"
	doneHeader  = "看过/玩过/读过/听过"
)

// Summary groups records for terminal display.
type Summary struct {
	Buckets []Bucket
	// Omitted counts records outside the displayed buckets.
	Omitted int
	Total   int
}

// Bucket is one status category.
type Bucket struct {
	Status catalog.CollectionStatus
	Header string
	Groups []Group
	Count  int
}

// Group holds the records of one media type inside a bucket.
type Group struct {
	Type        catalog.SubjectType
	TypeLabel   string
	StatusLabel string
	Records     []catalog.Record
}

// Summarize buckets in-progress then completed records, each split by media
// type in a fixed order. Empty buckets and groups are dropped.
func Summarize(records []catalog.Record, labels *catalog.StatusLabelTable) Summary {
	if labels == nil {
		labels = catalog.NewStatusLabelTable()
	}
	summary := Summary{Total: len(records)}
	plan := []struct {
		status catalog.CollectionStatus
		header string
	}{
		{catalog.StatusDoing, doingHeader},
		{catalog.StatusDone, doneHeader},
	}
	shown := 0
	for _, step := range plan {
		bucket := Bucket{Status: step.status, Header: step.header}
		for _, subject := range catalog.SubjectTypes() {
			group := Group{Type: subject, TypeLabel: subject.Label(), StatusLabel: labels.Label(subject, step.status)}
			for _, r := range records {
				if r.Status == step.status && catalog.SubjectTypeFromCode(int(r.Type)) == subject {
					group.Records = append(group.Records, r)
				}
			}
			if len(group.Records) > 0 {
				bucket.Groups = append(bucket.Groups, group)
				bucket.Count += len(group.Records)
			}
		}
		if bucket.Count > 0 {
			summary.Buckets = append(summary.Buckets, bucket)
			shown += bucket.Count
		}
	}
	summary.Omitted = len(records) - shown
	return summary
}

// RenderSummary prints the summary. Color codes are emitted only when
// useColor is set.
func RenderSummary(w io.Writer, summary Summary, useColor bool) {
	header := color.New(color.FgCyan, color.Bold)
	group := color.New(color.FgYellow)
	rating := color.New(color.FgGreen)
	muted := color.New(color.FgHiBlack)
	for _, c := range []*color.Color{header, group, rating, muted} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, bucket := range summary.Buckets {
		fmt.Fprintln(w)
		header.Fprintf(w, "== %s (%d) ==", bucket.Header, bucket.Count)
		fmt.Fprintln(w)
		for _, g := range bucket.Groups {
			group.Fprintf(w, "  --- %s %s (%d) ---", g.TypeLabel, g.StatusLabel, len(g.Records))
			fmt.Fprintln(w)
			for _, r := range g.Records {
				fmt.Fprintf(w, "    %s [%s]", r.Name, r.TypeLabel)
				if r.Rated() {
					fmt.Fprint(w, " ")
					rating.Fprintf(w, "[%d分]", r.Rating)
				}
				fmt.Fprintln(w)
			}
		}
	}
	if summary.Omitted > 0 {
		fmt.Fprintln(w)
		muted.Fprintf(w, "%d of %d entries not listed (wish, on hold, dropped)", summary.Omitted, summary.Total)
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}
