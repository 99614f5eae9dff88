package profile

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ChunkFunc computes the 1-indexed window-end positions in [start, end), in order.
// It must only write output owned by those positions.
type ChunkFunc func(start, end int) error

// Executor decides how the position range 1..n is split and scheduled.
// Implementations must call fn for every position exactly once.
type Executor interface {
	Execute(ctx context.Context, n int, fn ChunkFunc) error
}

// Sequential runs every position on the calling goroutine in increasing order.
type Sequential struct{}

// Execute implements Executor.
func (Sequential) Execute(ctx context.Context, n int, fn ChunkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return fn(1, n+1)
}

// Parallel splits the positions into Workers*FanOut contiguous chunks and
// computes them on at most Workers goroutines.
type Parallel struct {
	Workers int // zero means runtime.GOMAXPROCS(0)
	FanOut  int // zero means DefaultFanOut
}

func (p Parallel) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (p Parallel) fanOut() int {
	if p.FanOut > 0 {
		return p.FanOut
	}
	return DefaultFanOut
}

// Execute implements Executor.
// The first failing chunk cancels the rest and its error is returned.
func (p Parallel) Execute(ctx context.Context, n int, fn ChunkFunc) error {
	workers := p.workers()
	chunks := buildChunks(n, workers*p.fanOut())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(c[0], c[1])
		})
	}
	return g.Wait()
}

// buildChunks splits 1-indexed positions 1..n into at most count contiguous
// [start, end) ranges of ceil(n/count) positions each. Empty ranges are dropped.
func buildChunks(n, count int) [][2]int {
	if n <= 0 || count <= 0 {
		return nil
	}
	size := (n + count - 1) / count

	chunks := make([][2]int, 0, count)
	for k := 0; k < count; k++ {
		start := k*size + 1
		end := min((k+1)*size+1, n+1)
		if start >= end {
			break
		}
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}
