package commands

import (
	"io"
	"strconv"

	"github.com/notargets/BlockRemap/metrics"
	"github.com/notargets/BlockRemap/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var runOp string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full remap pipeline",
	Long: `Run create, populate, build, align and remap in order, then print one
row per primary block followed by the phase timings.

Examples:
  # Run the demo configuration
  blockremap run

  # Run a config file with the noop op
  blockremap run --config remap.yaml --op noop`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runOp, "op", "", "Remap op to run (overrides remap.op)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runOp != "" {
		cfg.Remap.Op = runOp
	}

	sched, err := cfg.NewScheduler()
	if err != nil {
		return err
	}
	pcfg, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	var registry *prometheus.Registry
	var pm *metrics.PhaseMetrics
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		pm = metrics.NewPhaseMetrics(registry)
	}

	report, err := runner.NewPipeline(pcfg, sched, pm, cfg.RunnerOptions()...).Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printResults(out, report)
	section(out, "Phases")
	printPhases(out, report)

	if registry != nil {
		samples, err := metrics.Summarize(registry)
		if err != nil {
			return err
		}
		section(out, "Metrics")
		printSamples(out, samples)
	}
	return nil
}

func printResults(w io.Writer, report *runner.Report) {
	data := newTableData("Primary", "Secondary Blocks", "Ranges", "Cell", "Visible", "Mean")
	for _, r := range report.Results {
		data.addRow(
			strconv.Itoa(r.Primary),
			joinInts(r.SecondaryBlocks),
			strconv.Itoa(r.Cell.NumRanges()),
			r.Cell.String(),
			strconv.Itoa(r.Visible),
			formatFloat(r.Mean),
		)
	}
	printTable(w, data)
}

func printPhases(w io.Writer, report *runner.Report) {
	data := newTableData("Phase", "Tasks", "Duration")
	for _, p := range report.Phases {
		data.addRow(p.Phase, strconv.Itoa(p.Tasks), p.Duration.String())
	}
	printTable(w, data)
}

func printSamples(w io.Writer, samples []metrics.Sample) {
	data := newTableData("Metric", "Labels", "Value")
	for _, s := range samples {
		data.addRow(s.Name, s.Labels, formatFloat(s.Value))
	}
	printTable(w, data)
}
