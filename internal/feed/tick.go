// Package feed consumes live (price, volume) ticks from a websocket source.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedTick is returned for messages without a numeric price and volume.
var ErrMalformedTick = errors.New(`tick must be {"price":number,"volume":number}`)

// Tick is one observation on the wire. TimestampMs is optional.
type Tick struct {
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	TimestampMs int64   `json:"timestamp_ms,omitempty"`
}

// DecodeTick parses a JSON tick. Both price and volume must be present.
func DecodeTick(data []byte) (Tick, error) {
	var raw struct {
		Price       *float64 `json:"price"`
		Volume      *float64 `json:"volume"`
		TimestampMs int64    `json:"timestamp_ms"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tick{}, fmt.Errorf("%w: %v", ErrMalformedTick, err)
	}
	if raw.Price == nil || raw.Volume == nil {
		return Tick{}, ErrMalformedTick
	}
	return Tick{Price: *raw.Price, Volume: *raw.Volume, TimestampMs: raw.TimestampMs}, nil
}
