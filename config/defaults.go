package config

import (
	"github.com/notargets/BlockRemap/dependency"
	"github.com/notargets/BlockRemap/partitions"
	"github.com/notargets/BlockRemap/runner"
	"github.com/notargets/BlockRemap/scheduler"
)

// Assigner names
const (
	AssignerTable    = "table"
	AssignerCoverage = "coverage"
	AssignerEmpty    = "empty"
)

// ApplyDefaults fills in zero values with the demo configuration. Booleans
// are left as decoded.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyDomainDefaults(&cfg.Primary, "large", 100, 9, 4)
	applyDomainDefaults(&cfg.Secondary, "small", 64, 4, 2)
	applySchedulerDefaults(&cfg.Scheduler)

	if cfg.Assigner == "" {
		cfg.Assigner = AssignerTable
	}
	if cfg.Slots == 0 && cfg.Assigner != AssignerEmpty {
		cfg.Slots = 4
	}
	if cfg.Assigner == AssignerTable && len(cfg.Table) == 0 {
		cfg.Table = dependency.DemoTable()
	}
	if cfg.Remap.Op == "" {
		cfg.Remap.Op = runner.OpMeanShift
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyDomainDefaults(cfg *DomainConfig, name string, elements, blocks, halo int) {
	if cfg.Name == "" {
		cfg.Name = name
	}
	if cfg.Elements == 0 {
		cfg.Elements = elements
	}
	if cfg.Blocks == 0 {
		cfg.Blocks = blocks
	}
	if cfg.Halo == 0 {
		cfg.Halo = halo
	}
}

func applySchedulerDefaults(cfg *SchedulerConfig) {
	if cfg.Mode == "" {
		cfg.Mode = scheduler.ModePool
	}
	if cfg.Mapper == "" {
		cfg.Mapper = scheduler.MapperRoundRobin
	}
}

// GetDefaultConfig returns the demo configuration: a 100-element, 9-block
// primary read against a 64-element, 4-block secondary through the literal
// dependency table.
func GetDefaultConfig() *Config {
	cfg := baseDefaultConfig()
	ApplyDefaults(cfg)
	return cfg
}

// baseDefaultConfig holds the defaults ApplyDefaults cannot infer from zero
// values
func baseDefaultConfig() *Config {
	return &Config{
		Primary:   DomainConfig{Split: partitions.EvenSplit},
		Secondary: DomainConfig{Split: partitions.EvenSplit},
		Remap:     RemapConfig{ReadGuard: true},
		Metrics:   MetricsConfig{Enabled: true},
	}
}
