package server

import (
	"fmt"
	"net/url"
	"strconv"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/profile"
)

// Limits used when the HTTP config leaves one unset.
const (
	defaultMaxWindow = 100000
	defaultMaxBins   = 10000
	defaultMaxN      = 10000
)

// limits caps the sizes a client may request, since window and bin counts
// size the buffers allocated per request.
type limits struct {
	window int
	bins   int
	n      int
}

func newLimits(window, bins, n int) limits {
	l := limits{window: window, bins: bins, n: n}
	if l.window <= 0 {
		l.window = defaultMaxWindow
	}
	if l.bins <= 0 {
		l.bins = defaultMaxBins
	}
	if l.n <= 0 {
		l.n = defaultMaxN
	}
	return l
}

func (l limits) check(p profile.TopNParams) error {
	if p.WindowSize > l.window {
		return fmt.Errorf("%w: window_size %d exceeds limit %d", profile.ErrInvalidParameter, p.WindowSize, l.window)
	}
	if p.Bins > l.bins {
		return fmt.Errorf("%w: bins %d exceeds limit %d", profile.ErrInvalidParameter, p.Bins, l.bins)
	}
	if p.N > l.n {
		return fmt.Errorf("%w: n %d exceeds limit %d", profile.ErrInvalidParameter, p.N, l.n)
	}
	return nil
}

// queryParams reads profile parameters from the query string, falling back
// to defaults for absent keys. N defaults to 1.
func queryParams(q url.Values, defaults profile.Params, lim limits) (profile.TopNParams, string, error) {
	p := profile.TopNParams{Params: defaults, N: 1}
	var err error

	if p.WindowSize, err = intParam(q, "window", p.WindowSize); err != nil {
		return p, "", err
	}
	if p.Bins, err = intParam(q, "bins", p.Bins); err != nil {
		return p, "", err
	}
	if p.Round, err = intParam(q, "round", p.Round); err != nil {
		return p, "", err
	}
	if p.N, err = intParam(q, "n", p.N); err != nil {
		return p, "", err
	}
	if p.CenterLabel, err = boolParam(q, "center", p.CenterLabel); err != nil {
		return p, "", err
	}
	if p.Pct, err = boolParam(q, "pct", p.Pct); err != nil {
		return p, "", err
	}

	mode := q.Get("mode")
	if mode == "" {
		mode = domain.ModeFull
	}
	if err := checkMode(mode); err != nil {
		return p, "", err
	}
	if err := p.Validate(); err != nil {
		return p, "", err
	}
	if err := lim.check(p); err != nil {
		return p, "", err
	}
	return p, mode, nil
}

// rangeParams reads the optional inclusive [from, to] millisecond range.
func rangeParams(q url.Values) (from, to int64, err error) {
	if from, err = int64Param(q, "from"); err != nil {
		return 0, 0, err
	}
	if to, err = int64Param(q, "to"); err != nil {
		return 0, 0, err
	}
	if to < from {
		return 0, 0, fmt.Errorf("%w: to %d before from %d", profile.ErrInvalidParameter, to, from)
	}
	return from, to, nil
}

func checkMode(mode string) error {
	switch mode {
	case domain.ModeFull, domain.ModeTopNPrice, domain.ModeTopNVolume:
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", profile.ErrInvalidParameter, mode)
	}
}

func intParam(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", profile.ErrInvalidParameter, key, raw)
	}
	return v, nil
}

func int64Param(q url.Values, key string) (int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", profile.ErrInvalidParameter, key, raw)
	}
	return v, nil
}

func boolParam(q url.Values, key string, def bool) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", profile.ErrInvalidParameter, key, raw)
	}
	return v, nil
}
