package profile

import "fmt"

// DefaultFanOut is the number of chunks created per worker by the parallel executor.
// Small chunks keep workers busy when window costs vary across the series.
const DefaultFanOut = 64

// Params holds the scalar parameters shared by every profile mode.
type Params struct {
	WindowSize  int  // trailing window length W
	Bins        int  // number of equal-width price bins B
	CenterLabel bool // label bins by center instead of lower bound
	Round       int  // decimal digits for labels and volumes; negative disables rounding
	Pct         bool // normalize bin volumes to fractions of the window total
}

// Validate checks that the parameters can form at least one window.
func (p Params) Validate() error {
	if p.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalidParameter, p.WindowSize)
	}
	if p.Bins <= 0 {
		return fmt.Errorf("%w: bins must be positive, got %d", ErrInvalidParameter, p.Bins)
	}
	return nil
}

// TopNParams extends Params with the number of bins kept per window.
type TopNParams struct {
	Params
	N int
}

// Validate checks the shared parameters and N.
// N larger than Bins is allowed; the tail of each row is null-padded.
func (p TopNParams) Validate() error {
	if err := p.Params.Validate(); err != nil {
		return err
	}
	return p.checkN()
}

func (p TopNParams) checkN() error {
	if p.N < 0 {
		return fmt.Errorf("%w: n must not be negative, got %d", ErrInvalidParameter, p.N)
	}
	return nil
}

// checkColumns validates the aligned input columns against the parameters.
func checkColumns(price, volume []float64, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(price) != len(volume) {
		return fmt.Errorf("%w: price has %d rows, volume has %d", ErrLengthMismatch, len(price), len(volume))
	}
	return nil
}
