package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Scheduler modes accepted by New
const (
	ModePool   = "pool"
	ModeSerial = "serial"
)

var (
	// ErrUnknownMode is returned by New for an unrecognized mode string
	ErrUnknownMode = errors.New("unknown scheduler mode")
	// ErrInvalidWorker is returned when a Mapper places a task outside the worker range
	ErrInvalidWorker = errors.New("task mapped to invalid worker")
)

// TaskFunc is the body of one task in a parallel phase. id is the task's
// position in the phase's id space [0, n).
type TaskFunc func(ctx context.Context, id int) error

// Scheduler launches one task per id in a discrete id space and blocks until
// every task has returned. A task error cancels the context seen by the
// remaining tasks and is returned from Spawn.
type Scheduler interface {
	Spawn(ctx context.Context, n int, fn TaskFunc) error
	Workers() int
}

// New creates a scheduler for the given mode. workers <= 0 selects
// runtime.NumCPU(); a nil mapper selects RoundRobinMapper.
func New(mode string, workers int, mapper Mapper) (Scheduler, error) {
	switch strings.ToLower(mode) {
	case ModePool, "":
		return NewPool(workers, mapper), nil
	case ModeSerial:
		return Serial{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// Pool runs tasks on a fixed set of worker goroutines. The Mapper decides
// which worker runs each task; every worker runs its tasks in ascending id
// order.
type Pool struct {
	workers int
	mapper  Mapper
}

// NewPool creates a worker pool scheduler
func NewPool(workers int, mapper Mapper) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if mapper == nil {
		mapper = RoundRobinMapper{}
	}
	return &Pool{workers: workers, mapper: mapper}
}

// Workers returns the configured worker count
func (p *Pool) Workers() int {
	return p.workers
}

// Mapper returns the placement strategy used by the pool
func (p *Pool) Mapper() Mapper {
	return p.mapper
}

// Spawn implements Scheduler
func (p *Pool) Spawn(ctx context.Context, n int, fn TaskFunc) error {
	if err := checkSpawn(ctx, n, fn); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	queues, err := p.place(n)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ids := range queues {
		if len(ids) == 0 {
			continue
		}
		ids := ids
		g.Go(func() error {
			for _, id := range ids {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(gctx, id); err != nil {
					return fmt.Errorf("task %d: %w", id, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// place builds the per-worker task queues before any task is launched
func (p *Pool) place(n int) ([][]int, error) {
	numWorkers := min(p.workers, n)
	queues := make([][]int, numWorkers)
	for id := 0; id < n; id++ {
		w := p.mapper.Map(id, n, numWorkers)
		if w < 0 || w >= numWorkers {
			return nil, fmt.Errorf("%w: task %d -> worker %d (workers=%d)",
				ErrInvalidWorker, id, w, numWorkers)
		}
		queues[w] = append(queues[w], id)
	}
	return queues, nil
}

// Serial runs every task on the calling goroutine in ascending id order and
// stops at the first error.
type Serial struct{}

// Workers implements Scheduler
func (Serial) Workers() int { return 1 }

// Spawn implements Scheduler
func (Serial) Spawn(ctx context.Context, n int, fn TaskFunc) error {
	if err := checkSpawn(ctx, n, fn); err != nil {
		return err
	}
	for id := 0; id < n; id++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, id); err != nil {
			return fmt.Errorf("task %d: %w", id, err)
		}
	}
	return nil
}

func checkSpawn(ctx context.Context, n int, fn TaskFunc) error {
	if n < 0 {
		return fmt.Errorf("invalid task count %d", n)
	}
	if fn == nil {
		return fmt.Errorf("nil task function")
	}
	return ctx.Err()
}
