package commands

import (
	"fmt"

	"github.com/notargets/BlockRemap/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the demo configuration file",
	Long: `Write the demo configuration as YAML.

Examples:
  # Write ./blockremap.yaml
  blockremap init

  # Write to a custom path, replacing an existing file
  blockremap init --config /tmp/remap.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath
	}
	if err := config.InitConfigToPath(path, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	fmt.Fprintf(out, "Run it with: blockremap run --config %s\n", path)
	return nil
}
