package dependency

import (
	"fmt"
	"sort"

	"github.com/notargets/BlockRemap/partitions"
)

// Assigner decides which secondary sub-ranges primary block primaryID must
// see. Implementations must be deterministic and free of side effects; Build
// calls Assign concurrently for different ids.
type Assigner interface {
	Assign(primaryID int) ([]partitions.Range, error)
}

// AssignFunc adapts a function to the Assigner interface
type AssignFunc func(primaryID int) ([]partitions.Range, error)

// Assign implements Assigner
func (f AssignFunc) Assign(primaryID int) ([]partitions.Range, error) {
	return f(primaryID)
}

// EmptyAssigner assigns nothing to every primary block
type EmptyAssigner struct{}

// Assign implements Assigner
func (EmptyAssigner) Assign(int) ([]partitions.Range, error) {
	return nil, nil
}

// TableAssigner maps primary block ids to whole secondary blocks through a
// literal lookup table. Ids missing from the table get no ranges.
type TableAssigner struct {
	secondary *partitions.Domain
	table     map[int][]int
}

// NewTableAssigner creates a TableAssigner over the secondary domain. The
// table is copied; block ids are checked when Assign runs so that a bad entry
// fails the build phase.
func NewTableAssigner(secondary *partitions.Domain, table map[int][]int) *TableAssigner {
	cp := make(map[int][]int, len(table))
	for id, blocks := range table {
		cp[id] = append([]int(nil), blocks...)
	}
	return &TableAssigner{secondary: secondary, table: cp}
}

// Assign implements Assigner
func (ta *TableAssigner) Assign(primaryID int) ([]partitions.Range, error) {
	blocks := ta.table[primaryID]
	ranges := make([]partitions.Range, 0, len(blocks))
	for _, b := range blocks {
		if b < 0 || b >= ta.secondary.NumBlocks {
			return nil, fmt.Errorf("%w: secondary block %d outside [0,%d)",
				ErrRangeOutOfBounds, b, ta.secondary.NumBlocks)
		}
		ranges = append(ranges, ta.secondary.BlockRange(b))
	}
	return ranges, nil
}

// PrimaryIDs returns the table's primary ids in ascending order
func (ta *TableAssigner) PrimaryIDs() []int {
	ids := make([]int, 0, len(ta.table))
	for id := range ta.table {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// DemoTable is the illustrative assignment of nine primary blocks onto four
// secondary blocks used by the reference workload. It is not derived from a
// geometric rule.
func DemoTable() map[int][]int {
	return map[int][]int{
		0: {0},
		1: {0, 1},
		2: {1},
		3: {0, 2},
		4: {0, 1, 2, 3},
		5: {1, 3},
		6: {2},
		7: {2, 3},
		8: {3},
	}
}

// CoverageAssigner derives assignments from the relative placement of the two
// decompositions. Primary block i covers its owned elements plus its halo,
// [Start, Start+Width+Halo) clipped to the primary domain. That interval is
// scaled into secondary logical coordinates by Ns/Np, rounded outward, and
// every secondary block whose owned elements intersect it contributes the
// intersecting cells of its row.
type CoverageAssigner struct {
	Primary   *partitions.Domain
	Secondary *partitions.Domain
}

// Assign implements Assigner
func (ca CoverageAssigner) Assign(primaryID int) ([]partitions.Range, error) {
	if primaryID < 0 || primaryID >= ca.Primary.NumBlocks {
		return nil, fmt.Errorf("primary block %d outside [0,%d)", primaryID, ca.Primary.NumBlocks)
	}
	var (
		pb = ca.Primary.Block(primaryID)
		np = ca.Primary.NumElements
		ns = ca.Secondary.NumElements
		lo = pb.Start
		hi = min(pb.End()+pb.Halo, np)
	)

	// Outward rounding keeps every partially covered secondary element
	slo := lo * ns / np
	shi := min((hi*ns+np-1)/np, ns)

	var ranges []partitions.Range
	for _, sb := range ca.Secondary.Blocks() {
		olo, ohi := max(slo, sb.Start), min(shi, sb.End())
		if olo >= ohi {
			continue
		}
		base := sb.ID * ca.Secondary.Width
		ranges = append(ranges, partitions.Range{
			Lo: base + olo - sb.Start,
			Hi: base + ohi - sb.Start,
		})
	}
	return ranges, nil
}
