package runner

import (
	"context"

	"github.com/notargets/BlockRemap/partitions"
	"gonum.org/v1/gonum/floats"
)

// Names of the ops every Runner defines
const (
	OpMeanShift = "mean_shift"
	OpNoop      = "noop"
)

var builtinOps = map[string]RemapOp{
	OpMeanShift: MeanShiftOp,
	OpNoop:      NoopOp,
}

// MeanShiftOp adds the mean of every visible secondary value to each cell of
// the primary block's row. A block with no visible values is left unchanged.
func MeanShiftOp(_ context.Context, primary *partitions.BlockView, secondary *SecondaryView) error {
	if secondary.Len() == 0 {
		return nil
	}
	values, err := secondary.Values()
	if err != nil {
		return err
	}
	shift := floats.Sum(values) / float64(len(values))
	floats.AddConst(shift, primary.Data())
	return nil
}

// NoopOp leaves the primary block unchanged
func NoopOp(context.Context, *partitions.BlockView, *SecondaryView) error {
	return nil
}
