package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/notargets/BlockRemap/align"
	"github.com/notargets/BlockRemap/dependency"
	"github.com/notargets/BlockRemap/logger"
	"github.com/notargets/BlockRemap/metrics"
	"github.com/notargets/BlockRemap/partitions"
	"github.com/notargets/BlockRemap/scheduler"
	"gonum.org/v1/gonum/floats"
)

// DomainConfig describes one blocked domain of a pipeline run
type DomainConfig struct {
	Name     string
	Elements int
	Blocks   int
	Halo     int
	Strategy partitions.SplitStrategy
	Fill     partitions.FillFunc // nil fills every cell with Blocks*blockID
}

// AssignerFactory builds the dependency policy once both domains exist
type AssignerFactory func(primary, secondary *partitions.Domain) (dependency.Assigner, error)

// PipelineConfig holds everything a pipeline run needs
type PipelineConfig struct {
	Primary   DomainConfig
	Secondary DomainConfig
	Slots     int
	Assigner  AssignerFactory
	Op        string // Defined op name, defaults to mean_shift
}

// PhaseTiming records one completed phase
type PhaseTiming struct {
	Phase    string
	Tasks    int
	Duration time.Duration
}

// BlockResult summarizes one primary block after the remap
type BlockResult struct {
	Primary         int
	SecondaryBlocks []int
	Cell            partitions.RangeSet
	Visible         int     // Secondary cells visible to the block
	Mean            float64 // Mean of the block's owned cells after remap
}

// Report is the outcome of a pipeline run
type Report struct {
	Phases    []PhaseTiming
	Primary   *partitions.Domain
	Secondary *partitions.Domain
	Table     *dependency.Table
	Aligned   *align.AlignedPartition
	Results   []BlockResult
}

// Phase returns the timing of the named phase
func (r *Report) Phase(name string) (PhaseTiming, bool) {
	for _, p := range r.Phases {
		if p.Phase == name {
			return p, true
		}
	}
	return PhaseTiming{}, false
}

// Pipeline runs create, populate, build, align and remap in order. Every
// phase completes before the next starts; a failed phase ends the run.
type Pipeline struct {
	cfg     PipelineConfig
	sched   scheduler.Scheduler
	runner  *Runner
	metrics *metrics.PhaseMetrics
}

// NewPipeline creates a pipeline. m may be nil.
func NewPipeline(cfg PipelineConfig, sched scheduler.Scheduler, m *metrics.PhaseMetrics, opts ...Option) *Pipeline {
	if cfg.Op == "" {
		cfg.Op = OpMeanShift
	}
	return &Pipeline{
		cfg:     cfg,
		sched:   sched,
		runner:  NewRunner(sched, opts...),
		metrics: m,
	}
}

// Runner returns the runner used for the remap phase, so callers can define
// additional ops before Run
func (p *Pipeline) Runner() *Runner { return p.runner }

// Run executes every phase and returns the report
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	cfg := p.cfg

	op, err := p.runner.Op(cfg.Op)
	if err != nil {
		return nil, err
	}

	err = p.phase(report, metrics.PhaseCreate, 2, func() error {
		var err error
		if report.Primary, err = newDomain(cfg.Primary); err != nil {
			return err
		}
		report.Secondary, err = newDomain(cfg.Secondary)
		return err
	})
	if err != nil {
		return nil, err
	}
	primary, secondary := report.Primary, report.Secondary

	err = p.phase(report, metrics.PhasePopulate, primary.NumBlocks+secondary.NumBlocks, func() error {
		if err := secondary.Populate(ctx, p.sched, fillOrDefault(cfg.Secondary)); err != nil {
			return fmt.Errorf("domain %q: %w", secondary.Name, err)
		}
		if err := primary.Populate(ctx, p.sched, fillOrDefault(cfg.Primary)); err != nil {
			return fmt.Errorf("domain %q: %w", primary.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var assigner dependency.Assigner
	if cfg.Assigner != nil {
		if assigner, err = cfg.Assigner(primary, secondary); err != nil {
			return nil, fmt.Errorf("assigner: %w", err)
		}
	}

	err = p.phase(report, metrics.PhaseBuild, primary.NumBlocks, func() error {
		var err error
		report.Table, err = dependency.Build(ctx, p.sched, primary, secondary, assigner, cfg.Slots)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.phase(report, metrics.PhaseAlign, report.Table.Slots, func() error {
		var err error
		report.Aligned, err = align.Align(ctx, p.sched, secondary, report.Table)
		return err
	})
	if err != nil {
		return nil, err
	}
	for id := 0; id < report.Aligned.NumPrimary(); id++ {
		cell := report.Aligned.Cell(id)
		p.metrics.SetAlignedRanges(id, cell.NumRanges())
		logger.Debug("aligned cell", "primary", id, "cell", cell.String(), "cells", cell.Len())
	}

	err = p.phase(report, metrics.PhaseRemap, primary.NumBlocks, func() error {
		return p.runner.Remap(ctx, primary, secondary, report.Aligned, op)
	})
	if err != nil {
		return nil, err
	}

	report.Results = summarize(primary, report.Aligned)
	return report, nil
}

func (p *Pipeline) phase(report *Report, name string, tasks int, fn func() error) error {
	logger.Info("phase started", "phase", name, "tasks", tasks)
	start := time.Now()
	err := fn()
	duration := time.Since(start)
	p.metrics.ObservePhase(name, tasks, duration, err)
	if err != nil {
		logger.Error("phase failed", "phase", name, "tasks", tasks, "duration_ms", logger.Duration(start), "error", err)
		return fmt.Errorf("%s phase: %w", name, err)
	}
	logger.Info("phase complete", "phase", name, "tasks", tasks, "duration_ms", logger.Duration(start))
	report.Phases = append(report.Phases, PhaseTiming{Phase: name, Tasks: tasks, Duration: duration})
	return nil
}

func newDomain(dc DomainConfig) (*partitions.Domain, error) {
	return partitions.NewDomainWithStrategy(dc.Name, dc.Elements, dc.Blocks, dc.Halo, dc.Strategy)
}

func fillOrDefault(dc DomainConfig) partitions.FillFunc {
	if dc.Fill != nil {
		return dc.Fill
	}
	return partitions.ColorFill(float64(dc.Blocks))
}

func summarize(primary *partitions.Domain, aligned *align.AlignedPartition) []BlockResult {
	results := make([]BlockResult, primary.NumBlocks)
	for id := range results {
		width := primary.Block(id).Width
		owned := primary.Row(id)[:width]
		results[id] = BlockResult{
			Primary:         id,
			SecondaryBlocks: aligned.SecondaryBlocks(id),
			Cell:            aligned.Cell(id),
			Visible:         aligned.Cell(id).Len(),
			Mean:            floats.Sum(owned) / float64(width),
		}
	}
	return results
}
