package align

import (
	"fmt"
	"sort"

	"github.com/notargets/BlockRemap/dependency"
	"github.com/notargets/BlockRemap/partitions"
)

// AlignedPartition maps every primary block id to the set of secondary
// backing positions it may read. It is aliased (cells of different ids may
// overlap) and possibly incomplete (cells need not cover the array). It is
// immutable once built.
type AlignedPartition struct {
	cells          []partitions.RangeSet
	secondarySize  int
	secondaryWidth int
}

// NumPrimary returns the size of the primary id space
func (ap *AlignedPartition) NumPrimary() int { return len(ap.cells) }

// SecondarySize returns the number of positions of the secondary array
func (ap *AlignedPartition) SecondarySize() int { return ap.secondarySize }

// SecondaryWidth returns the row width of the secondary array
func (ap *AlignedPartition) SecondaryWidth() int { return ap.secondaryWidth }

// Cell returns the secondary positions visible to primary id i
func (ap *AlignedPartition) Cell(i int) partitions.RangeSet { return ap.cells[i] }

// Pieces returns cell i cut at secondary row boundaries, so that every piece
// lies inside one secondary block's backing row
func (ap *AlignedPartition) Pieces(i int) []partitions.Range {
	return ap.cells[i].SplitRows(ap.secondaryWidth)
}

// SecondaryBlocks returns the ascending ids of the secondary blocks that cell
// i touches
func (ap *AlignedPartition) SecondaryBlocks(i int) []int {
	var blocks []int
	for _, p := range ap.Pieces(i) {
		b := p.Lo / ap.secondaryWidth
		if len(blocks) == 0 || blocks[len(blocks)-1] != b {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Overlaps reports whether primary ids i and j share a secondary position
func (ap *AlignedPartition) Overlaps(i, j int) bool {
	return ap.cells[i].Overlaps(ap.cells[j])
}

// IsAliased reports whether any two distinct primary ids share a position
func (ap *AlignedPartition) IsAliased() bool {
	for i := range ap.cells {
		for j := i + 1; j < len(ap.cells); j++ {
			if ap.Overlaps(i, j) {
				return true
			}
		}
	}
	return false
}

// Coverage returns the union of every cell
func (ap *AlignedPartition) Coverage() partitions.RangeSet {
	var all partitions.RangeSet
	for _, c := range ap.cells {
		all = all.Union(c)
	}
	return all
}

// IsComplete reports whether the cells cover the whole secondary array
func (ap *AlignedPartition) IsComplete() bool {
	return ap.Coverage().Equal(partitions.NewRangeSet(partitions.Range{Lo: 0, Hi: ap.secondarySize}))
}

// Readers returns the ascending primary ids whose cells contain pos
func (ap *AlignedPartition) Readers(pos int) []int {
	var ids []int
	for i, c := range ap.cells {
		if c.Contains(pos) {
			ids = append(ids, i)
		}
	}
	return ids
}

// Equal reports whether both partitions map every id to the same positions
func (ap *AlignedPartition) Equal(o *AlignedPartition) bool {
	if ap.secondarySize != o.secondarySize || len(ap.cells) != len(o.cells) {
		return false
	}
	for i := range ap.cells {
		if !ap.cells[i].Equal(o.cells[i]) {
			return false
		}
	}
	return true
}

// Verify checks that cell i is exactly the union of table row i and that
// every cell lies inside the secondary array
func (ap *AlignedPartition) Verify(table *dependency.Table) error {
	if table.NumPrimary != len(ap.cells) {
		return fmt.Errorf("%w: table has %d primary ids, partition %d",
			ErrKeySpaceMismatch, table.NumPrimary, len(ap.cells))
	}
	full := partitions.NewRangeSet(partitions.Range{Lo: 0, Hi: ap.secondarySize})
	for i, c := range ap.cells {
		want := partitions.NewRangeSet(table.Ranges(i)...)
		if !c.Equal(want) {
			return fmt.Errorf("primary %d: cell %v, table union %v", i, c, want)
		}
		if !full.Intersect(c).Equal(c) {
			return fmt.Errorf("primary %d: cell %v outside secondary array of %d", i, c, ap.secondarySize)
		}
	}
	return nil
}

// SharedPositions returns, for every secondary position read by more than
// one primary id, the ids reading it
func (ap *AlignedPartition) SharedPositions() map[int][]int {
	shared := make(map[int][]int)
	for _, pos := range ap.Coverage().Positions() {
		if readers := ap.Readers(pos); len(readers) > 1 {
			shared[pos] = readers
		}
	}
	return shared
}

// SortedSharedPositions returns the keys of SharedPositions in ascending order
func (ap *AlignedPartition) SortedSharedPositions() []int {
	shared := ap.SharedPositions()
	positions := make([]int, 0, len(shared))
	for pos := range shared {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}
