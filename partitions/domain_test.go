package partitions

import (
	"context"
	"sync"
	"testing"

	"github.com/notargets/BlockRemap/scheduler"
	"github.com/notargets/BlockRemap/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Section 1: Creation and configuration errors
// ============================================================================

func TestNewDomain_InvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name    string
		n, b, h int
	}{
		{"zero_elements", 0, 4, 2},
		{"zero_blocks", 64, 0, 2},
		{"zero_halo", 64, 4, 0},
		{"negative_halo", 64, 4, -1},
		{"more_blocks_than_elements", 3, 4, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewDomain("bad", tc.n, tc.b, tc.h)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrInvalidDomain)
		})
	}
}

func TestNewDomain_CeilSplitRejectsEmptyBlock(t *testing.T) {
	// ceil(5/4)=2 gives widths 2,2,1,0
	_, err := NewDomainWithStrategy("ceil", 5, 4, 1, CeilSplit)
	assert.ErrorIs(t, err, ErrInvalidDomain)

	// Even split of the same sizes is fine: 2,1,1,1
	d, err := NewDomainWithStrategy("even", 5, 4, 1, EvenSplit)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 1, 1}, blockWidths(d))
}

// ============================================================================
// Section 2: Layout invariants
// ============================================================================

func TestNewDomain_Layout(t *testing.T) {
	testCases := []struct {
		name           string
		n, b, h        int
		strategy       SplitStrategy
		expectedWidth  int
		expectedWidths []int
	}{
		{"secondary_demo", 64, 4, 2, EvenSplit, 18, []int{16, 16, 16, 16}},
		{"primary_demo", 100, 9, 4, EvenSplit, 16, []int{12, 11, 11, 11, 11, 11, 11, 11, 11}},
		{"primary_demo_ceil", 100, 9, 4, CeilSplit, 16, []int{12, 12, 12, 12, 12, 12, 12, 12, 4}},
		{"single_block", 10, 1, 3, EvenSplit, 13, []int{10}},
		{"one_per_block", 4, 4, 1, EvenSplit, 2, []int{1, 1, 1, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewDomainWithStrategy(tc.name, tc.n, tc.b, tc.h, tc.strategy)
			require.NoError(t, err)
			require.NoError(t, d.Verify())

			assert.Equal(t, tc.expectedWidth, d.Width)
			assert.Equal(t, tc.b*tc.expectedWidth, d.Size())
			assert.Equal(t, tc.expectedWidths, blockWidths(d))

			// Owned widths sum to N
			sum := 0
			for _, w := range blockWidths(d) {
				sum += w
			}
			assert.Equal(t, tc.n, sum)

			// Rows are pairwise disjoint and tile the backing array
			covered := RangeSet{}
			for i := 0; i < d.NumBlocks; i++ {
				for j := i + 1; j < d.NumBlocks; j++ {
					assert.False(t, d.BlockRange(i).Overlaps(d.BlockRange(j)),
						"rows %d and %d overlap", i, j)
				}
				covered = covered.Add(d.BlockRange(i))
			}
			assert.True(t, covered.Equal(NewRangeSet(Range{0, d.Size()})))
		})
	}
}

func TestDomain_Locate(t *testing.T) {
	d, err := NewDomain("s", 64, 4, 2)
	require.NoError(t, err)

	block, local, err := d.Locate(37)
	require.NoError(t, err)
	assert.Equal(t, 2, block)
	assert.Equal(t, 1, local)

	_, _, err = d.Locate(d.Size())
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, _, err = d.Locate(-1)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDomain_Statistics(t *testing.T) {
	d, err := NewDomain("p", 100, 9, 4)
	require.NoError(t, err)

	stats := d.Statistics()
	assert.Equal(t, 9, stats.NumBlocks)
	assert.Equal(t, 11, stats.MinWidth)
	assert.Equal(t, 12, stats.MaxWidth)
	assert.InDelta(t, 100.0/9.0, stats.AvgWidth, 1e-12)
	assert.InDelta(t, 12/(100.0/9.0), stats.Imbalance, 1e-12)
}

func TestParseSplitStrategy(t *testing.T) {
	s, err := ParseSplitStrategy("CEIL")
	require.NoError(t, err)
	assert.Equal(t, CeilSplit, s)
	assert.Equal(t, "ceil", s.String())

	s, err = ParseSplitStrategy("")
	require.NoError(t, err)
	assert.Equal(t, EvenSplit, s)

	_, err = ParseSplitStrategy("metis")
	assert.Error(t, err)
}

// ============================================================================
// Section 3: Populate
// ============================================================================

func TestDomain_Populate(t *testing.T) {
	d, err := NewDomain("small", 64, 4, 2)
	require.NoError(t, err)

	sched := utils.CreateTestScheduler()
	err = d.Populate(context.Background(), sched, func(blockID, local int) float64 {
		return float64(1000*blockID + local)
	})
	require.NoError(t, err)

	for b := 0; b < d.NumBlocks; b++ {
		row := d.Row(b)
		require.Len(t, row, d.Width)
		for j, v := range row {
			if v != float64(1000*b+j) {
				t.Errorf("block %d cell %d: got %v, want %v", b, j, v, float64(1000*b+j))
			}
		}
	}
	assert.Equal(t, float64(2005), d.At(2*d.Width+5))
}

func TestDomain_PopulateColorFill(t *testing.T) {
	d, err := NewDomain("large", 100, 9, 4)
	require.NoError(t, err)

	require.NoError(t, d.Populate(context.Background(), scheduler.Serial{}, ColorFill(9)))
	for b := 0; b < d.NumBlocks; b++ {
		for _, v := range d.Row(b) {
			assert.Equal(t, 9*float64(b), v)
		}
	}
}

func TestDomain_PopulateExclusivePerBlock(t *testing.T) {
	d, err := NewDomain("x", 40, 8, 1)
	require.NoError(t, err)

	// Every fill call for a block must come from the task holding that block
	var mu sync.Mutex
	seen := make(map[int]map[int]bool)
	sched := scheduler.NewPool(8, scheduler.RoundRobinMapper{})
	err = d.Populate(context.Background(), sched, func(blockID, local int) float64 {
		mu.Lock()
		defer mu.Unlock()
		if seen[blockID] == nil {
			seen[blockID] = make(map[int]bool)
		}
		if seen[blockID][local] {
			t.Errorf("block %d cell %d written twice", blockID, local)
		}
		seen[blockID][local] = true
		return 1
	})
	require.NoError(t, err)
	assert.Len(t, seen, 8)
	for b, cells := range seen {
		assert.Len(t, cells, d.Width, "block %d", b)
	}
}

func TestDomain_PopulateNilFill(t *testing.T) {
	d, err := NewDomain("x", 8, 2, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, d.Populate(context.Background(), scheduler.Serial{}, nil), ErrInvalidDomain)
}

// ============================================================================
// Section 4: Views and locks
// ============================================================================

func TestDomain_AcquireViews(t *testing.T) {
	d, err := NewDomain("v", 10, 2, 2)
	require.NoError(t, err)

	view, release := d.Acquire(1)
	assert.Equal(t, 1, view.Block().ID)
	assert.Equal(t, d.Width, view.Len())
	assert.Len(t, view.Owned(), 5)
	assert.Len(t, view.HaloCells(), 2)
	view.Set(0, 42)
	view.HaloCells()[0] = 7
	release()

	assert.Equal(t, float64(42), d.At(d.Width))
	assert.Equal(t, float64(7), d.At(d.Width+5))

	readers, releaseRead, err := d.AcquireRead([]int{0, 1})
	require.NoError(t, err)
	require.Len(t, readers, 2)
	assert.Equal(t, 1, readers[1].Block())
	assert.Equal(t, float64(42), readers[1].At(0))
	dst := make([]float64, 2)
	assert.Equal(t, 2, readers[1].CopyTo(dst, 5, 7))
	assert.Equal(t, []float64{7, 0}, dst)

	// Readers share the lock
	more, releaseMore, err := d.AcquireRead([]int{1})
	require.NoError(t, err)
	assert.Len(t, more, 1)
	releaseMore()
	releaseRead()

	_, _, err = d.AcquireRead([]int{1, 0})
	assert.Error(t, err)
	_, _, err = d.AcquireRead([]int{2})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDomain_SnapshotMatches(t *testing.T) {
	d, err := NewDomain("snap", 16, 4, 1)
	require.NoError(t, err)
	require.NoError(t, d.Populate(context.Background(), scheduler.Serial{}, ColorFill(4)))

	snap := d.Snapshot()
	assert.True(t, d.Matches(snap))

	view, release := d.Acquire(3)
	view.Set(2, -1)
	release()
	assert.False(t, d.Matches(snap))
}

func blockWidths(d *Domain) []int {
	widths := make([]int, d.NumBlocks)
	for i, b := range d.Blocks() {
		widths[i] = b.Width
	}
	return widths
}
