// Package export renders normalized records as CSV, JSON, and a terminal
// summary.
package export

import (
	"fmt"
	"strings"

	"bgmexport/internal/services"
)

// Format selects which export files are written.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatAll  Format = "all"
)

// Output file names inside the export directory.
const (
	JSONFileName = "bangumi_export.json"
	CSVFileName  = "bangumi_export.csv"
)

// ParseFormat accepts json, csv, or all, case-insensitively.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatAll, "":
		return FormatAll, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "export", "parse format", fmt.Sprintf("unsupported format %q (want json, csv, or all)", value), nil)
	}
}

// IncludesJSON reports whether the JSON file is written.
func (f Format) IncludesJSON() bool {
	return f == FormatJSON || f == FormatAll
}

// IncludesCSV reports whether the CSV file is written.
func (f Format) IncludesCSV() bool {
	return f == FormatCSV || f == FormatAll
}
