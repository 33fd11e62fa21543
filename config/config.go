package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/notargets/BlockRemap/partitions"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the BlockRemap run configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BLOCKREMAP_*, e.g. BLOCKREMAP_PRIMARY_BLOCKS);
//     the table map is file-only
//  2. Configuration file (YAML)
//  3. Default values (the 9-block / 4-block demo)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Primary is the domain whose blocks drive the remap tasks
	Primary DomainConfig `mapstructure:"primary" yaml:"primary"`

	// Secondary is the domain read during the remap
	Secondary DomainConfig `mapstructure:"secondary" yaml:"secondary"`

	// Slots is the maximum number of secondary ranges per primary block (K)
	Slots int `mapstructure:"slots" validate:"gte=0" yaml:"slots"`

	// Assigner selects the dependency policy: table, coverage or empty
	Assigner string `mapstructure:"assigner" validate:"required,oneof=table coverage empty" yaml:"assigner"`

	// Table maps primary block ids to secondary block ids for the table assigner
	Table map[int][]int `mapstructure:"table" yaml:"table,omitempty"`

	// Scheduler configures task placement
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`

	// Remap configures the remap phase
	Remap RemapConfig `mapstructure:"remap" yaml:"remap"`

	// Metrics controls the Prometheus summary printed after a run
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// DomainConfig describes one blocked domain.
type DomainConfig struct {
	Name     string                   `mapstructure:"name" validate:"required" yaml:"name"`
	Elements int                      `mapstructure:"elements" validate:"required,gt=0" yaml:"elements"`
	Blocks   int                      `mapstructure:"blocks" validate:"required,gt=0,ltefield=Elements" yaml:"blocks"`
	Halo     int                      `mapstructure:"halo" validate:"required,gt=0" yaml:"halo"`
	Split    partitions.SplitStrategy `mapstructure:"split" yaml:"split"`
}

// SchedulerConfig configures the task scheduler.
type SchedulerConfig struct {
	// Mode is pool or serial
	Mode string `mapstructure:"mode" validate:"required,oneof=pool serial" yaml:"mode"`

	// Workers is the pool size, 0 selects one worker per CPU
	Workers int `mapstructure:"workers" validate:"gte=0" yaml:"workers"`

	// Mapper is the pool placement policy: round_robin or block
	Mapper string `mapstructure:"mapper" validate:"required,oneof=round_robin block" yaml:"mapper"`
}

// RemapConfig configures the remap phase.
type RemapConfig struct {
	// ReadGuard fails the phase if the secondary domain changes
	ReadGuard bool `mapstructure:"read_guard" yaml:"read_guard"`

	// Op names the remap operation
	Op string `mapstructure:"op" validate:"required" yaml:"op"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
// A missing file yields the default configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)
	if err := bindEnvKeys(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// Without a file, booleans start from the demo defaults
	cfg := &Config{}
	if !configFileFound {
		cfg = baseDefaultConfig()
	}
	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfigPath is the file read when no --config flag is given
const DefaultConfigPath = "blockremap.yaml"

// InitConfigToPath writes the default configuration to path. An existing
// file is kept unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	return SaveConfig(GetDefaultConfig(), path)
}

// Validate checks struct tags and the cross-field rules the tags cannot
// express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Assigner != AssignerEmpty && cfg.Slots == 0 {
		return fmt.Errorf("assigner %s needs slots > 0", cfg.Assigner)
	}
	if cfg.Assigner == AssignerTable {
		for id, blocks := range cfg.Table {
			if id < 0 || id >= cfg.Primary.Blocks {
				return fmt.Errorf("table: primary block %d outside [0,%d)", id, cfg.Primary.Blocks)
			}
			if len(blocks) > cfg.Slots {
				return fmt.Errorf("table: primary block %d lists %d secondary blocks, slots=%d",
					id, len(blocks), cfg.Slots)
			}
			for _, b := range blocks {
				if b < 0 || b >= cfg.Secondary.Blocks {
					return fmt.Errorf("table: primary block %d references secondary block %d outside [0,%d)",
						id, b, cfg.Secondary.Blocks)
				}
			}
		}
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: BLOCKREMAP_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("BLOCKREMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("blockremap")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys binds every scalar key of t so environment variables apply
// even when the key is absent from the file. Maps such as the dependency
// table can only come from the file.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			continue
		}
		key := prefix + name
		switch field.Type.Kind() {
		case reflect.Map:
			continue
		case reflect.Struct:
			if err := bindEnvKeys(v, field.Type, key+"."); err != nil {
				return err
			}
		default:
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("bind %s: %w", key, err)
			}
		}
	}
	return nil
}

// readConfigFile returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks handles split strategy names and comma-separated lists
// supplied through the environment.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
