package reporting

import (
	"time"

	"pbv-lab/internal/domain"
)

// Report summarizes a stored profile run.
type Report struct {
	GeneratedAt time.Time
	Run         *domain.ProfileRun

	Summary Summary
	POC     POCStats

	// Track has one entry per stored row, ordered by position.
	Track []RowSummary
}

// Summary describes the rows a run produced.
type Summary struct {
	Rows             int
	FirstTimestampMs int64
	LastTimestampMs  int64
	MeanWindowVolume float64
}

// POCStats aggregates the point of control (highest-volume bin label) across rows.
type POCStats struct {
	Rows      int // rows with a defined point of control
	Min       float64
	Max       float64
	Mean      float64
	Mode      float64 // most frequent label, lowest on ties
	ModeCount int
	MeanShare float64 // mean fraction of window volume in the POC bin
	Shifts    int     // rows whose POC differs from the previous row's
}

// RowSummary is the point of control of one row.
type RowSummary struct {
	TimestampMs  int64
	Position     int
	POC          float64 // NaN when every bin volume is NaN
	POCVolume    float64
	WindowVolume float64
	Share        float64 // POCVolume / WindowVolume, NaN for an empty window
}
