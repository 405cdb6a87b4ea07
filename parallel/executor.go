// Package parallel provides the parallel-for primitive used by the optimizer
// to linearize edges and assemble Hessian columns. The executor is injected,
// so the engine runs sequentially unless a Pool is configured.
package parallel

import (
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrBadWorkers indicates a pool size below one.
var ErrBadWorkers = errors.New("parallel: workers must be >= 1")

// Executor runs fn for every i in [0, n). worker is in [0, Workers()) and is
// stable for the duration of one fn call, so callers can index per-worker scratch.
type Executor interface {
	For(n int, fn func(worker, i int) error) error
	Workers() int
}

// Sequential runs every index on the calling goroutine as worker 0.
type Sequential struct{}

// For stops at the first error.
func (Sequential) For(n int, fn func(worker, i int) error) error {
	for i := 0; i < n; i++ {
		if err := fn(0, i); err != nil {
			return err
		}
	}

	return nil
}

// Workers returns 1.
func (Sequential) Workers() int { return 1 }

// Pool splits the index range into contiguous chunks, one goroutine per chunk,
// bounded by errgroup.SetLimit.
type Pool struct {
	workers int
}

// NewPool creates a pool of the given size; 0 means runtime.GOMAXPROCS(0).
func NewPool(workers int) (*Pool, error) {
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		return nil, ErrBadWorkers
	}

	return &Pool{workers: workers}, nil
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

// For returns the first error reported by any chunk; remaining chunks finish
// their current index and skip the rest.
func (p *Pool) For(n int, fn func(worker, i int) error) error {
	if n <= 0 {
		return nil
	}
	chunks := p.workers
	if chunks > n {
		chunks = n
	}
	if chunks == 1 {
		return Sequential{}.For(n, fn)
	}

	var g errgroup.Group
	g.SetLimit(chunks)
	size := (n + chunks - 1) / chunks
	for w := 0; w < chunks; w++ {
		lo, hi := w*size, (w+1)*size
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		worker := w
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := fn(worker, i); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
