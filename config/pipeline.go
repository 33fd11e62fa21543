package config

import (
	"fmt"

	"github.com/notargets/BlockRemap/dependency"
	"github.com/notargets/BlockRemap/logger"
	"github.com/notargets/BlockRemap/partitions"
	"github.com/notargets/BlockRemap/runner"
	"github.com/notargets/BlockRemap/scheduler"
)

// LoggerConfig converts the logging section for logger.Init
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// NewScheduler creates the configured scheduler
func (c *Config) NewScheduler() (scheduler.Scheduler, error) {
	mapper, err := scheduler.ParseMapper(c.Scheduler.Mapper)
	if err != nil {
		return nil, err
	}
	return scheduler.New(c.Scheduler.Mode, c.Scheduler.Workers, mapper)
}

// PipelineConfig converts the configuration into a pipeline description
func (c *Config) PipelineConfig() (runner.PipelineConfig, error) {
	assigner, err := c.assignerFactory()
	if err != nil {
		return runner.PipelineConfig{}, err
	}
	return runner.PipelineConfig{
		Primary:   domainConfig(c.Primary),
		Secondary: domainConfig(c.Secondary),
		Slots:     c.Slots,
		Assigner:  assigner,
		Op:        c.Remap.Op,
	}, nil
}

// RunnerOptions returns the runner options selected by the remap section
func (c *Config) RunnerOptions() []runner.Option {
	return []runner.Option{runner.WithReadGuard(c.Remap.ReadGuard)}
}

func (c *Config) assignerFactory() (runner.AssignerFactory, error) {
	switch c.Assigner {
	case AssignerTable:
		table := c.Table
		return func(_, secondary *partitions.Domain) (dependency.Assigner, error) {
			return dependency.NewTableAssigner(secondary, table), nil
		}, nil
	case AssignerCoverage:
		return func(primary, secondary *partitions.Domain) (dependency.Assigner, error) {
			return dependency.CoverageAssigner{Primary: primary, Secondary: secondary}, nil
		}, nil
	case AssignerEmpty:
		return func(_, _ *partitions.Domain) (dependency.Assigner, error) {
			return dependency.EmptyAssigner{}, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown assigner %q", c.Assigner)
	}
}

func domainConfig(dc DomainConfig) runner.DomainConfig {
	return runner.DomainConfig{
		Name:     dc.Name,
		Elements: dc.Elements,
		Blocks:   dc.Blocks,
		Halo:     dc.Halo,
		Strategy: dc.Split,
	}
}
