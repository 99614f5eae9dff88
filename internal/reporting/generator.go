package reporting

import (
	"context"
	"fmt"
	"math"
	"time"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/storage"
)

// Generator builds reports from stored runs.
type Generator struct {
	runs  storage.RunStore
	rows  storage.ProfileStore
	clock func() time.Time
}

// NewGenerator creates a report generator.
func NewGenerator(runs storage.RunStore, rows storage.ProfileStore) *Generator {
	return &Generator{runs: runs, rows: rows, clock: time.Now}
}

// WithClock sets the time source for GeneratedAt.
func (g *Generator) WithClock(clock func() time.Time) *Generator {
	g.clock = clock
	return g
}

// Generate loads a run and its rows and builds the report.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	rows, err := g.rows.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load rows of %s: %w", runID, err)
	}
	return Build(run, rows, g.clock()), nil
}

// Build computes the report for rows ordered by position.
func Build(run *domain.ProfileRun, rows []*domain.ProfileRow, now time.Time) *Report {
	r := &Report{
		GeneratedAt: now.UTC(),
		Run:         run,
		Track:       make([]RowSummary, 0, len(rows)),
	}
	if len(rows) == 0 {
		return r
	}

	r.Summary.Rows = len(rows)
	r.Summary.FirstTimestampMs = rows[0].TimestampMs
	r.Summary.LastTimestampMs = rows[len(rows)-1].TimestampMs

	var volumeSum float64
	for _, row := range rows {
		s := summarizeRow(row)
		r.Track = append(r.Track, s)
		volumeSum += s.WindowVolume
	}
	r.Summary.MeanWindowVolume = volumeSum / float64(len(rows))
	r.POC = pocStats(r.Track)
	return r
}

// summarizeRow finds the highest-volume bin. Ties keep the lower bin and
// NaN volumes never win.
func summarizeRow(row *domain.ProfileRow) RowSummary {
	s := RowSummary{
		TimestampMs: row.TimestampMs,
		Position:    row.Position,
		POC:         math.NaN(),
		POCVolume:   math.NaN(),
		Share:       math.NaN(),
	}

	best := -1
	for i, v := range row.Volumes {
		if math.IsNaN(v) {
			continue
		}
		s.WindowVolume += v
		if best < 0 || v > row.Volumes[best] {
			best = i
		}
	}
	if best < 0 {
		return s
	}

	s.POC = row.Labels[best]
	s.POCVolume = row.Volumes[best]
	if s.WindowVolume != 0 {
		s.Share = s.POCVolume / s.WindowVolume
	}
	return s
}

func pocStats(track []RowSummary) POCStats {
	var (
		st       POCStats
		sum      float64
		shareSum float64
		shares   int
		prev     = math.NaN()
		counts   = make(map[float64]int)
	)

	for _, s := range track {
		if math.IsNaN(s.POC) {
			continue
		}
		if st.Rows == 0 || s.POC < st.Min {
			st.Min = s.POC
		}
		if st.Rows == 0 || s.POC > st.Max {
			st.Max = s.POC
		}
		if !math.IsNaN(prev) && s.POC != prev {
			st.Shifts++
		}
		prev = s.POC
		st.Rows++
		sum += s.POC
		counts[s.POC]++

		if !math.IsNaN(s.Share) {
			shareSum += s.Share
			shares++
		}
	}
	if st.Rows == 0 {
		return st
	}

	st.Mean = sum / float64(st.Rows)
	if shares > 0 {
		st.MeanShare = shareSum / float64(shares)
	}
	for label, n := range counts {
		if n > st.ModeCount || (n == st.ModeCount && label < st.Mode) {
			st.Mode = label
			st.ModeCount = n
		}
	}
	return st
}
