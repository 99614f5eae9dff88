package export

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// ParquetWriter writes one record per non-null row. Histograms use list
// columns; top-N rows are flattened to one record per rank.
type ParquetWriter struct{}

func (ParquetWriter) Extension() string { return "parquet" }

// HistogramRecord is the parquet schema of a full-histogram row.
type HistogramRecord struct {
	TimestampMs int64     `parquet:"timestamp_ms"`
	Position    int64     `parquet:"position"`
	Labels      []float64 `parquet:"labels,list"`
	Volumes     []float64 `parquet:"volumes,list"`
}

// TopNRecord is the parquet schema of one ranked entry. Value is null past the bin count.
type TopNRecord struct {
	TimestampMs int64    `parquet:"timestamp_ms"`
	Position    int64    `parquet:"position"`
	Rank        int32    `parquet:"rank"`
	Value       *float64 `parquet:"value,optional"`
}

func (ParquetWriter) WriteHistograms(path string, rows []Row) error {
	records := make([]HistogramRecord, 0, len(rows))
	for _, r := range rows {
		if r.Histogram == nil {
			continue
		}
		records = append(records, HistogramRecord{
			TimestampMs: r.TimestampMs,
			Position:    int64(r.Position),
			Labels:      r.Histogram.Labels,
			Volumes:     r.Histogram.Volumes,
		})
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

func (ParquetWriter) WriteTopN(path string, rows []TopNRow) error {
	var records []TopNRecord
	for _, r := range rows {
		for rank, v := range r.Values {
			rec := TopNRecord{
				TimestampMs: r.TimestampMs,
				Position:    int64(r.Position),
				Rank:        int32(rank + 1),
			}
			if v.Valid {
				value := v.Float64
				rec.Value = &value
			}
			records = append(records, rec)
		}
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}
