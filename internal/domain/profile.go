package domain

// Profile output modes.
const (
	ModeFull       = "full"
	ModeTopNPrice  = "topn-price"
	ModeTopNVolume = "topn-volume"
)

// Run status values.
const (
	RunStatusDone   = "done"
	RunStatusFailed = "failed"
)

// ProfileRun records the parameters a set of profile rows was computed with.
// Corresponds to profile_runs table in PostgreSQL.
type ProfileRun struct {
	RunID       string // base58 hash of symbol, range and parameters
	Symbol      string
	FromMs      int64 // inclusive source range start
	ToMs        int64 // inclusive source range end
	WindowSize  int
	Bins        int
	CenterLabel bool
	Round       int
	Pct         bool
	Rows        int    // number of non-null rows written
	Status      string // RunStatusDone | RunStatusFailed
	CreatedAtMs int64
}

// ProfileRow is one non-null full-histogram row of a run.
// Corresponds to profile_rows table in ClickHouse.
type ProfileRow struct {
	RunID       string
	Symbol      string
	TimestampMs int64     // timestamp of the window's last observation
	Position    int       // 0-indexed row in the source series
	Labels      []float64 // bin price labels
	Volumes     []float64 // bin volumes, aligned with Labels
}
