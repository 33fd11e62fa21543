// Package commands implements the blockremap CLI.
package commands

import (
	"fmt"

	"github.com/notargets/BlockRemap/config"
	"github.com/notargets/BlockRemap/logger"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "blockremap",
	Short: "Align two block decompositions and remap between them",
	Long: `blockremap builds two blocked 1-D domains, records which secondary
blocks every primary block depends on, derives the aligned partition of the
secondary domain and runs one remap task per primary block.

Without --config the demo configuration is used: 100 elements in 9 blocks
read against 64 elements in 4 blocks through a literal dependency table.

Environment variables override the file and the defaults for every scalar
key, e.g. BLOCKREMAP_SCHEDULER_MODE=serial or BLOCKREMAP_REMAP_OP=noop.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultConfigPath+")")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration named by --config and initializes the
// logger from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
