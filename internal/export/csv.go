package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSVWriter writes rows in long format, one line per bin. Null rows are skipped.
type CSVWriter struct{}

func (CSVWriter) Extension() string { return "csv" }

// WriteHistograms writes timestamp_ms,position,bin,label,volume lines.
func (CSVWriter) WriteHistograms(path string, rows []Row) error {
	return writeCSV(path, []string{"timestamp_ms", "position", "bin", "label", "volume"}, func(w *csv.Writer) error {
		for _, r := range rows {
			if r.Histogram == nil {
				continue
			}
			for b := range r.Histogram.Labels {
				err := w.Write([]string{
					strconv.FormatInt(r.TimestampMs, 10),
					strconv.Itoa(r.Position),
					strconv.Itoa(b),
					formatFloat(r.Histogram.Labels[b]),
					formatFloat(r.Histogram.Volumes[b]),
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WriteTopN writes timestamp_ms,position,rank,value lines. Null entries have an empty value.
func (CSVWriter) WriteTopN(path string, rows []TopNRow) error {
	return writeCSV(path, []string{"timestamp_ms", "position", "rank", "value"}, func(w *csv.Writer) error {
		for _, r := range rows {
			if r.Values == nil {
				continue
			}
			for rank, v := range r.Values {
				value := ""
				if v.Valid {
					value = formatFloat(v.Float64)
				}
				err := w.Write([]string{
					strconv.FormatInt(r.TimestampMs, 10),
					strconv.Itoa(r.Position),
					strconv.Itoa(rank + 1),
					value,
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeCSV(path string, header []string, body func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := body(w); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

// formatFloat uses the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
