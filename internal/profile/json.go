package profile

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"math"
)

var jsonNull = []byte("null")

// nullableFloats maps non-finite values to nil so they encode as JSON null.
func nullableFloats(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
			out[i] = &values[i]
		}
	}
	return out
}

// finiteOrNaN reverses nullableFloats.
func finiteOrNaN(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	return out
}

type histogramJSON struct {
	Labels  []*float64 `json:"price"`
	Volumes []*float64 `json:"volume"`
}

// MarshalJSON encodes NaN and infinite entries as null.
func (h Histogram) MarshalJSON() ([]byte, error) {
	return json.Marshal(histogramJSON{
		Labels:  nullableFloats(h.Labels),
		Volumes: nullableFloats(h.Volumes),
	})
}

// UnmarshalJSON decodes null entries as NaN.
func (h *Histogram) UnmarshalJSON(data []byte) error {
	var raw histogramJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Labels = finiteOrNaN(raw.Labels)
	h.Volumes = finiteOrNaN(raw.Volumes)
	return nil
}

// MarshalJSON encodes a nil row as null and null entries as null.
func (t TopN) MarshalJSON() ([]byte, error) {
	if t == nil {
		return jsonNull, nil
	}
	out := make([]*float64, len(t))
	for i := range t {
		v := t[i].Float64
		if t[i].Valid && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = &v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null as a nil row and null entries as Valid == false.
func (t *TopN) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*t = nil
		return nil
	}
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	row := make(TopN, len(raw))
	for i, v := range raw {
		if v != nil {
			row[i] = sql.NullFloat64{Float64: *v, Valid: true}
		}
	}
	*t = row
	return nil
}
