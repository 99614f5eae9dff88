package profile

import (
	"context"
	"fmt"
)

// Engine computes rolling price-by-volume profiles with a pluggable Executor.
// An Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	exec Executor
}

// NewEngine creates an Engine. A nil executor means Sequential.
func NewEngine(exec Executor) *Engine {
	if exec == nil {
		exec = Sequential{}
	}
	return &Engine{exec: exec}
}

// Histograms returns one row per input position: nil until the window
// fills, then the full histogram of the trailing window.
func (e *Engine) Histograms(ctx context.Context, price, volume []float64, p Params) ([]*Histogram, error) {
	if err := checkColumns(price, volume, p); err != nil {
		return nil, err
	}
	return drive(ctx, e.exec, len(price), p.WindowSize, func(start, end int) (*Histogram, error) {
		return p.histogram(price[start:end], volume[start:end])
	})
}

// TopNPrices returns, per position, the labels of the n highest-volume bins.
// Labels are rounded when Round >= 0; Pct has no effect on labels.
func (e *Engine) TopNPrices(ctx context.Context, price, volume []float64, p TopNParams) ([]TopN, error) {
	if err := checkColumns(price, volume, p.Params); err != nil {
		return nil, err
	}
	if err := p.checkN(); err != nil {
		return nil, err
	}
	return drive(ctx, e.exec, len(price), p.WindowSize, func(start, end int) (TopN, error) {
		labels, volumes, err := binWindow(price[start:end], volume[start:end], p.Bins, p.CenterLabel)
		if err != nil {
			return nil, err
		}
		roundAll(labels, p.Round)
		return selectTopN(labels, rankDescending(volumes), p.N), nil
	})
}

// TopNVolumes returns, per position, the volumes of the n highest-volume bins,
// normalized when Pct is set and then rounded when Round >= 0.
// Ranking always uses the raw window volumes.
func (e *Engine) TopNVolumes(ctx context.Context, price, volume []float64, p TopNParams) ([]TopN, error) {
	if err := checkColumns(price, volume, p.Params); err != nil {
		return nil, err
	}
	if err := p.checkN(); err != nil {
		return nil, err
	}
	return drive(ctx, e.exec, len(price), p.WindowSize, func(start, end int) (TopN, error) {
		_, volumes, err := binWindow(price[start:end], volume[start:end], p.Bins, p.CenterLabel)
		if err != nil {
			return nil, err
		}
		ranked := rankDescending(volumes)
		out := make([]float64, len(volumes))
		copy(out, volumes)
		if p.Pct {
			normalizePct(out)
		}
		roundAll(out, p.Round)
		return selectTopN(out, ranked, p.N), nil
	})
}

// histogram finishes one window: bin, normalize, then round.
func (p Params) histogram(price, volume []float64) (*Histogram, error) {
	labels, volumes, err := binWindow(price, volume, p.Bins, p.CenterLabel)
	if err != nil {
		return nil, err
	}
	if p.Pct {
		normalizePct(volumes)
	}
	roundAll(labels, p.Round)
	roundAll(volumes, p.Round)
	return &Histogram{Labels: labels, Volumes: volumes}, nil
}

// drive runs window over every position of an n-row series.
// Position i (1-indexed) uses rows [i-window, i); positions before the
// window fills keep the zero value of T, which callers treat as null.
func drive[T any](ctx context.Context, exec Executor, n, window int, row func(start, end int) (T, error)) ([]T, error) {
	out := make([]T, n)
	err := exec.Execute(ctx, n, func(start, end int) error {
		for i := start; i < end; i++ {
			if i < window {
				continue
			}
			v, err := row(i-window, i)
			if err != nil {
				return fmt.Errorf("window ending at row %d: %w", i-1, err)
			}
			out[i-1] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
