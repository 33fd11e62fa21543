package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/notargets/BlockRemap/align"
	"github.com/notargets/BlockRemap/logger"
	"github.com/notargets/BlockRemap/partitions"
	"github.com/notargets/BlockRemap/scheduler"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrSecondaryModified is returned by a guarded remap when the secondary
	// backing array changed during the phase
	ErrSecondaryModified = errors.New("secondary domain modified during remap")
	// ErrUnknownOp is returned for an op name that was never defined
	ErrUnknownOp = errors.New("remap op not defined")
)

// RemapOp is the body of one remap task. primary is exclusive to the task;
// secondary exposes the cells visible to the primary block.
type RemapOp func(ctx context.Context, primary *partitions.BlockView, secondary *SecondaryView) error

// Runner executes remap phases on a scheduler
type Runner struct {
	sched     scheduler.Scheduler
	readGuard bool

	mu  sync.RWMutex
	ops map[string]RemapOp
}

// Option configures a Runner
type Option func(*Runner)

// WithReadGuard compares the secondary backing array before and after every
// remap phase
func WithReadGuard(enabled bool) Option {
	return func(r *Runner) { r.readGuard = enabled }
}

// NewRunner creates a Runner with the built-in ops defined
func NewRunner(sched scheduler.Scheduler, opts ...Option) *Runner {
	r := &Runner{
		sched: sched,
		ops:   make(map[string]RemapOp),
	}
	for _, opt := range opts {
		opt(r)
	}
	for name, op := range builtinOps {
		r.ops[name] = op
	}
	return r
}

// ReadGuard reports whether the read guard is enabled
func (r *Runner) ReadGuard() bool { return r.readGuard }

// DefineOp registers op under name
func (r *Runner) DefineOp(name string, op RemapOp) error {
	if name == "" || op == nil {
		return fmt.Errorf("op name and function are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("op %s already defined", name)
	}
	r.ops[name] = op
	return nil
}

// Op returns the op defined under name
func (r *Runner) Op(name string) (RemapOp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOp, name)
	}
	return op, nil
}

// OpNames returns the defined op names in ascending order
func (r *Runner) OpNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunOp looks up a defined op and runs it with Remap
func (r *Runner) RunOp(ctx context.Context, name string, primary, secondary *partitions.Domain,
	aligned *align.AlignedPartition) error {
	op, err := r.Op(name)
	if err != nil {
		return err
	}
	return r.Remap(ctx, primary, secondary, aligned, op)
}

// Remap runs op once per primary block. Task i holds block i of primary
// exclusively and shared read locks on the secondary blocks its aligned cell
// touches, taken in ascending block order. The first task error aborts the
// phase.
func (r *Runner) Remap(ctx context.Context, primary, secondary *partitions.Domain,
	aligned *align.AlignedPartition, op RemapOp) error {
	if err := validateRemap(primary, secondary, aligned, op); err != nil {
		return err
	}

	plan, err := align.NewGatherPlan(aligned)
	if err != nil {
		return fmt.Errorf("gather plan: %w", err)
	}

	var before []float64
	if r.readGuard {
		before = secondary.Snapshot().RawMatrix().Data
	}

	err = r.sched.Spawn(ctx, primary.NumBlocks, func(ctx context.Context, id int) error {
		blocks := aligned.SecondaryBlocks(id)
		readers, releaseRead, err := secondary.AcquireRead(blocks)
		if err != nil {
			return fmt.Errorf("primary block %d: %w", id, err)
		}
		defer releaseRead()

		view, release := primary.Acquire(id)
		defer release()

		sv := newSecondaryView(id, secondary.Width, aligned, plan, readers)
		logger.Debug("remap task", "primary", id, "secondary_blocks", blocks, "pieces", len(sv.pieces))
		if err := op(ctx, view, sv); err != nil {
			return fmt.Errorf("primary block %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remap phase failed: %w", err)
	}

	if r.readGuard {
		after := secondary.Snapshot().RawMatrix().Data
		if !floats.Equal(before, after) {
			return fmt.Errorf("%w: domain %q checksum %g -> %g",
				ErrSecondaryModified, secondary.Name, floats.Sum(before), floats.Sum(after))
		}
	}
	return nil
}

func validateRemap(primary, secondary *partitions.Domain, aligned *align.AlignedPartition, op RemapOp) error {
	if primary == nil || secondary == nil || aligned == nil {
		return fmt.Errorf("primary, secondary and aligned partition are required")
	}
	if op == nil {
		return fmt.Errorf("nil remap op")
	}
	if primary == secondary {
		return fmt.Errorf("%w: primary and secondary are the same domain %q",
			partitions.ErrInvalidDomain, primary.Name)
	}
	if aligned.NumPrimary() != primary.NumBlocks {
		return fmt.Errorf("%w: aligned partition keyed by %d ids, primary %q has %d blocks",
			align.ErrKeySpaceMismatch, aligned.NumPrimary(), primary.Name, primary.NumBlocks)
	}
	if aligned.SecondarySize() != secondary.Size() || aligned.SecondaryWidth() != secondary.Width {
		return fmt.Errorf("%w: aligned partition covers %d positions, secondary %q has %d",
			align.ErrKeySpaceMismatch, aligned.SecondarySize(), secondary.Name, secondary.Size())
	}
	return nil
}
