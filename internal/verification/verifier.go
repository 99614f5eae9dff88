// Package verification recomputes stored profile runs from their source
// series and reports every row that no longer matches.
package verification

import (
	"context"
	"fmt"
	"math"

	"pbv-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Position int         // row position, -1 for run-level fields
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

func (d FieldDivergence) String() string {
	if d.Position < 0 {
		return fmt.Sprintf("%s: stored %v, replayed %v", d.Field, d.Expected, d.Actual)
	}
	return fmt.Sprintf("row %d %s: stored %v, replayed %v", d.Position, d.Field, d.Expected, d.Actual)
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID        string            // verified run ID
	Match        bool              // true if all rows match
	Divergences  []FieldDivergence // list of divergent fields
	StoredRows   int
	ReplayedRows int
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  // total runs verified
	MatchedRuns   int                  // runs that matched exactly
	DivergentRuns int                  // runs with divergences
	Results       []VerificationResult // individual results
}

// Verifier interface for run replay verification.
type Verifier interface {
	// VerifyRun loads the stored run, recomputes it from the series store
	// with the same parameters, and compares every row.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifySymbol verifies all stored runs of a symbol.
	VerifySymbol(ctx context.Context, symbol string) (*VerificationReport, error)
}

// CompareRows compares stored and replayed rows by position.
// Rows present on only one side are reported as a "Row" divergence.
func CompareRows(stored, replayed []*domain.ProfileRow) []FieldDivergence {
	var divergences []FieldDivergence

	byPosition := make(map[int]*domain.ProfileRow, len(replayed))
	for _, r := range replayed {
		byPosition[r.Position] = r
	}

	for _, s := range stored {
		r, ok := byPosition[s.Position]
		if !ok {
			divergences = append(divergences, FieldDivergence{
				Position: s.Position,
				Field:    "Row",
				Expected: "present",
				Actual:   "missing",
			})
			continue
		}
		delete(byPosition, s.Position)
		divergences = append(divergences, CompareRow(s, r)...)
	}

	for _, r := range replayed {
		if _, extra := byPosition[r.Position]; extra {
			divergences = append(divergences, FieldDivergence{
				Position: r.Position,
				Field:    "Row",
				Expected: "missing",
				Actual:   "present",
			})
		}
	}

	return divergences
}

// CompareRow compares two rows at the same position.
// Uses FloatTolerance for labels and volumes.
func CompareRow(stored, replayed *domain.ProfileRow) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.TimestampMs != replayed.TimestampMs {
		divergences = append(divergences, FieldDivergence{
			Position: stored.Position,
			Field:    "TimestampMs",
			Expected: stored.TimestampMs,
			Actual:   replayed.TimestampMs,
		})
	}

	if len(stored.Labels) != len(replayed.Labels) {
		divergences = append(divergences, FieldDivergence{
			Position: stored.Position,
			Field:    "Bins",
			Expected: len(stored.Labels),
			Actual:   len(replayed.Labels),
		})
		return divergences
	}

	for i := range stored.Labels {
		if !floatEquals(stored.Labels[i], replayed.Labels[i]) {
			divergences = append(divergences, FieldDivergence{
				Position: stored.Position,
				Field:    fmt.Sprintf("Labels[%d]", i),
				Expected: stored.Labels[i],
				Actual:   replayed.Labels[i],
			})
		}
		if !floatEquals(stored.Volumes[i], replayed.Volumes[i]) {
			divergences = append(divergences, FieldDivergence{
				Position: stored.Position,
				Field:    fmt.Sprintf("Volumes[%d]", i),
				Expected: stored.Volumes[i],
				Actual:   replayed.Volumes[i],
			})
		}
	}

	return divergences
}

// floatEquals compares two floats with tolerance. Two NaNs are equal.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance
}
