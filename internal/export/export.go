// Package export writes profile rows to files.
package export

import (
	"strings"

	"pbv-lab/internal/profile"
)

// Row is one output position of a full-histogram profile.
// A nil Histogram is a null row (window not yet full).
type Row struct {
	TimestampMs int64
	Position    int
	Histogram   *profile.Histogram
}

// TopNRow is one output position of a top-N profile. A nil Values is a null row.
type TopNRow struct {
	TimestampMs int64
	Position    int
	Values      profile.TopN
}

// Writer saves profile rows in one file format.
type Writer interface {
	WriteHistograms(path string, rows []Row) error
	WriteTopN(path string, rows []TopNRow) error
	Extension() string
}

// Formats lists the supported format names.
var Formats = []string{"csv", "json", "parquet"}

// NewWriter returns the writer for format (csv, json, parquet).
// Returns nil if the format is not supported.
func NewWriter(format string) Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVWriter{}
	case "json":
		return JSONWriter{}
	case "parquet":
		return ParquetWriter{}
	default:
		return nil
	}
}
