package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/notargets/BlockRemap/align"
	"github.com/notargets/BlockRemap/dependency"
	"github.com/notargets/BlockRemap/partitions"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the dependency table and aligned partition",
	Long: `Build both domains and the dependency table without populating or
remapping, then print every primary block's slots, the secondary blocks it
depends on and its aligned cell.`,
	RunE: runTable,
}

func runTable(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sched, err := cfg.NewScheduler()
	if err != nil {
		return err
	}
	pcfg, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	primary, err := partitions.NewDomainWithStrategy(pcfg.Primary.Name, pcfg.Primary.Elements,
		pcfg.Primary.Blocks, pcfg.Primary.Halo, pcfg.Primary.Strategy)
	if err != nil {
		return fmt.Errorf("primary domain: %w", err)
	}
	secondary, err := partitions.NewDomainWithStrategy(pcfg.Secondary.Name, pcfg.Secondary.Elements,
		pcfg.Secondary.Blocks, pcfg.Secondary.Halo, pcfg.Secondary.Strategy)
	if err != nil {
		return fmt.Errorf("secondary domain: %w", err)
	}

	assigner, err := pcfg.Assigner(primary, secondary)
	if err != nil {
		return err
	}
	table, err := dependency.Build(cmd.Context(), sched, primary, secondary, assigner, pcfg.Slots)
	if err != nil {
		return err
	}
	aligned, err := align.Align(cmd.Context(), sched, secondary, table)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d elements, %d blocks, width %d\n",
		primary.Name, primary.NumElements, primary.NumBlocks, primary.Width)
	fmt.Fprintf(out, "%s: %d elements, %d blocks, width %d\n",
		secondary.Name, secondary.NumElements, secondary.NumBlocks, secondary.Width)
	section(out, "Slots")
	printSlots(out, table)
	section(out, "Aligned")
	printAligned(out, table, aligned)
	return nil
}

func printSlots(w io.Writer, table *dependency.Table) {
	headers := []string{"Primary"}
	for k := 0; k < table.Slots; k++ {
		headers = append(headers, "Slot "+strconv.Itoa(k))
	}
	data := newTableData(headers...)
	for id := 0; id < table.NumPrimary; id++ {
		row := []string{strconv.Itoa(id)}
		for _, e := range table.Row(id) {
			if e.Present {
				row = append(row, e.Range.String())
			} else {
				row = append(row, "-")
			}
		}
		data.addRow(row...)
	}
	printTable(w, data)
}

func printAligned(w io.Writer, table *dependency.Table, aligned *align.AlignedPartition) {
	adjacency := table.Adjacency()
	data := newTableData("Primary", "Secondary Blocks", "Cell", "Visible")
	for id := 0; id < aligned.NumPrimary(); id++ {
		cell := aligned.Cell(id)
		data.addRow(strconv.Itoa(id), joinInts(adjacency[id]), cell.String(), strconv.Itoa(cell.Len()))
	}
	printTable(w, data)
	fmt.Fprintf(w, "\nshared positions: %d, complete: %t\n",
		len(aligned.SharedPositions()), aligned.IsComplete())
}
