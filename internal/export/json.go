package export

import (
	"encoding/json"
	"fmt"
	"os"

	"pbv-lab/internal/profile"
)

// JSONWriter writes an indented JSON array, null rows included.
type JSONWriter struct{}

func (JSONWriter) Extension() string { return "json" }

type histogramRecord struct {
	TimestampMs int64              `json:"timestamp_ms"`
	Position    int                `json:"position"`
	Histogram   *profile.Histogram `json:"histogram"`
}

type topNRecord struct {
	TimestampMs int64        `json:"timestamp_ms"`
	Position    int          `json:"position"`
	Values      profile.TopN `json:"values"`
}

func (JSONWriter) WriteHistograms(path string, rows []Row) error {
	records := make([]histogramRecord, len(rows))
	for i, r := range rows {
		records[i] = histogramRecord{TimestampMs: r.TimestampMs, Position: r.Position, Histogram: r.Histogram}
	}
	return writeJSON(path, records)
}

func (JSONWriter) WriteTopN(path string, rows []TopNRow) error {
	records := make([]topNRecord, len(rows))
	for i, r := range rows {
		records[i] = topNRecord{TimestampMs: r.TimestampMs, Position: r.Position, Values: r.Values}
	}
	return writeJSON(path, records)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return f.Close()
}
