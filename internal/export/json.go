package export

import (
	"encoding/json"
	"io"
	"strings"

	"bgmexport/internal/catalog"
)

// jsonRecord fixes the key order of the compact export.
type jsonRecord struct {
	Name        string `json:"name"`
	NameOrig    string `json:"name_orig,omitempty"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Updated     string `json:"updated,omitempty"`
	Progress    string `json:"progress,omitempty"`
	ProgressPct string `json:"progress_pct,omitempty"`
	Watched     string `json:"watched,omitempty"`
	Rating      int    `json:"rating,omitempty"`
	Tags        string `json:"tags,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

func toJSONRecord(r catalog.Record) jsonRecord {
	out := jsonRecord{
		Name:     r.Name,
		NameOrig: r.OriginalName,
		Type:     r.TypeLabel,
		Status:   r.StatusLabel,
		Updated:  r.Updated,
		Rating:   r.Rating,
		Tags:     joinTags(r.Tags),
		Comment:  r.Comment,
	}
	if r.Detail != nil {
		out.Progress = r.Detail.Progress()
		out.ProgressPct = r.Detail.PercentLabel()
		out.Watched = r.Detail.Notation()
	}
	return out
}

// WriteJSON writes records as one compact JSON array.
func WriteJSON(w io.Writer, records []catalog.Record) error {
	out := make([]jsonRecord, 0, len(records))
	for _, r := range records {
		out = append(out, toJSONRecord(r))
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
