// Package worker runs indexed jobs on a bounded set of goroutines.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/leakscan/pkg/logger"
	"github.com/okian/leakscan/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultWorkerCount = 6
)

// Task processes job i. Implementations write their result by index so that
// output order never depends on completion order.
type Task = func(ctx context.Context, i int) error

// Pool fans jobs out to a fixed number of workers.
type Pool struct {
	size   int
	name   string
	active atomic.Int64
	logger logger.Logger
}

// NewPool creates a pool of at most size concurrent workers.
func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = defaultWorkerCount
	}
	p := &Pool{
		size:   size,
		name:   "pool",
		logger: logger.Get().Named("worker"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Size returns the pool width.
func (p *Pool) Size() int { return p.size }

// Run executes task for every index in [0, n) and blocks until all jobs
// finish. The first error cancels the remaining jobs and is returned.
func (p *Pool) Run(ctx context.Context, n int, task Task) error {
	if n <= 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case jobs <- i:
			}
		}
		return nil
	})

	for w := 0; w < min(p.size, n); w++ {
		g.Go(func() error {
			metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
			defer func() { metrics.UpdateWorkerActiveCount(int(p.active.Add(-1))) }()

			for i := range jobs {
				start := time.Now()
				err := task(gctx, i)
				metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
				if err != nil {
					p.logger.Debug(gctx, "job failed",
						logger.String("pool", p.name),
						logger.Int("job", i),
						logger.Error(err),
					)
					return fmt.Errorf("%s job %d: %w", p.name, i, err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}
