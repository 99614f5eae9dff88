package commands

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pbv-lab/internal/domain"
)

// csvTable is a header-indexed CSV reader.
type csvTable struct {
	r      *csv.Reader
	column map[string]int
	line   int
}

func newCSVTable(r io.Reader, required ...string) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &csvTable{r: cr, column: make(map[string]int, len(header)), line: 1}
	for i, name := range header {
		t.column[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := t.column[name]; !ok {
			return nil, fmt.Errorf("header is missing column %q", name)
		}
	}
	return t, nil
}

// next returns the following record, or io.EOF.
func (t *csvTable) next() ([]string, error) {
	rec, err := t.r.Read()
	if err != nil {
		return nil, err
	}
	t.line++
	return rec, nil
}

func (t *csvTable) has(name string) bool {
	_, ok := t.column[name]
	return ok
}

func (t *csvTable) float(rec []string, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[t.column[name]]), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s: %w", t.line, name, err)
	}
	return v, nil
}

func (t *csvTable) int64(rec []string, name string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(rec[t.column[name]]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s: %w", t.line, name, err)
	}
	return v, nil
}

// readSeries reads aligned price,volume rows. timestamp_ms is optional and
// defaults to the row index.
func readSeries(r io.Reader, symbol string) ([]*domain.SeriesPoint, error) {
	t, err := newCSVTable(r, "price", "volume")
	if err != nil {
		return nil, err
	}

	var points []*domain.SeriesPoint
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, err
		}

		p := &domain.SeriesPoint{Symbol: symbol, TimestampMs: int64(len(points)), TradeCount: 1}
		if p.Price, err = t.float(rec, "price"); err != nil {
			return nil, err
		}
		if p.Volume, err = t.float(rec, "volume"); err != nil {
			return nil, err
		}
		if t.has("timestamp_ms") {
			if p.TimestampMs, err = t.int64(rec, "timestamp_ms"); err != nil {
				return nil, err
			}
		}
		points = append(points, p)
	}
}

// readTrades reads timestamp_ms,price,quantity rows with optional seq and
// symbol columns. Rows without a symbol use the given default.
func readTrades(r io.Reader, symbol string) ([]*domain.Trade, error) {
	t, err := newCSVTable(r, "timestamp_ms", "price", "quantity")
	if err != nil {
		return nil, err
	}

	var trades []*domain.Trade
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return trades, nil
		}
		if err != nil {
			return nil, err
		}

		tr := &domain.Trade{Symbol: symbol, Seq: int64(len(trades))}
		if tr.TimestampMs, err = t.int64(rec, "timestamp_ms"); err != nil {
			return nil, err
		}
		if tr.Price, err = t.float(rec, "price"); err != nil {
			return nil, err
		}
		if tr.Quantity, err = t.float(rec, "quantity"); err != nil {
			return nil, err
		}
		if t.has("seq") {
			if tr.Seq, err = t.int64(rec, "seq"); err != nil {
				return nil, err
			}
		}
		if t.has("symbol") {
			if s := strings.TrimSpace(rec[t.column["symbol"]]); s != "" {
				tr.Symbol = s
			}
		}
		if tr.Symbol == "" {
			return nil, fmt.Errorf("line %d: trade has no symbol", t.line)
		}
		trades = append(trades, tr)
	}
}

func readSeriesFile(path, symbol string) ([]*domain.SeriesPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	points, err := readSeries(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

func readTradesFile(path, symbol string) ([]*domain.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	trades, err := readTrades(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trades, nil
}
