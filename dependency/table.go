package dependency

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/BlockRemap/partitions"
	"github.com/notargets/BlockRemap/scheduler"
)

var (
	// ErrInvalidSlots marks a slot count that cannot hold the assignment
	ErrInvalidSlots = errors.New("invalid slot count")
	// ErrRangeOutOfBounds marks an assigned range outside the secondary backing array
	ErrRangeOutOfBounds = errors.New("secondary range out of bounds")
	// ErrTooManyRanges marks an assignment with more ranges than slots
	ErrTooManyRanges = errors.New("too many secondary ranges")
)

// Entry is one slot of a primary block's dependency record. Present is false
// for unused slots.
type Entry struct {
	Range   partitions.Range
	Present bool
}

// Table records, for every primary block, up to Slots references into the
// secondary domain's backing array. It is written once by Build and read-only
// afterwards.
type Table struct {
	NumPrimary int
	Slots      int

	// Secondary backing geometry the ranges refer to
	SecondarySize  int
	SecondaryWidth int

	// Row-major [primary][slot]
	entries []Entry
}

// Build runs one task per primary block. Task i calls assigner.Assign(i) and
// writes the non-empty ranges into slots 0..len-1 of row i; the remaining
// slots stay absent. Any range outside the secondary backing array, or more
// ranges than slots, fails the whole phase.
func Build(ctx context.Context, sched scheduler.Scheduler, primary, secondary *partitions.Domain,
	assigner Assigner, slots int) (*Table, error) {
	if primary == nil || secondary == nil {
		return nil, fmt.Errorf("primary and secondary domains are required")
	}
	if slots < 0 {
		return nil, fmt.Errorf("%w: K=%d", ErrInvalidSlots, slots)
	}
	if slots == 0 && !isTrivial(assigner) {
		return nil, fmt.Errorf("%w: K=0 with assigner %T", ErrInvalidSlots, assigner)
	}
	if assigner == nil {
		assigner = EmptyAssigner{}
	}

	t := &Table{
		NumPrimary:     primary.NumBlocks,
		Slots:          slots,
		SecondarySize:  secondary.Size(),
		SecondaryWidth: secondary.Width,
		entries:        make([]Entry, primary.NumBlocks*slots),
	}

	err := sched.Spawn(ctx, primary.NumBlocks, func(_ context.Context, id int) error {
		ranges, err := assigner.Assign(id)
		if err != nil {
			return fmt.Errorf("assign primary block %d: %w", id, err)
		}

		// Each task owns row id exclusively
		row := t.entries[id*slots : (id+1)*slots]
		k := 0
		for _, r := range ranges {
			if !r.Within(t.SecondarySize) {
				return fmt.Errorf("%w: primary block %d range %v, secondary size %d",
					ErrRangeOutOfBounds, id, r, t.SecondarySize)
			}
			if r.Empty() {
				continue
			}
			if k == slots {
				return fmt.Errorf("%w: primary block %d assigned more than K=%d ranges",
					ErrTooManyRanges, id, slots)
			}
			row[k] = Entry{Range: r, Present: true}
			k++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dependency table build failed: %w", err)
	}
	return t, nil
}

func isTrivial(assigner Assigner) bool {
	switch assigner.(type) {
	case nil, EmptyAssigner, *EmptyAssigner:
		return true
	}
	return false
}

// Entry returns slot k of primary block id and whether it is present
func (t *Table) Entry(id, k int) (partitions.Range, bool) {
	e := t.entries[id*t.Slots+k]
	return e.Range, e.Present
}

// Row returns a copy of primary block id's slots
func (t *Table) Row(id int) []Entry {
	out := make([]Entry, t.Slots)
	copy(out, t.entries[id*t.Slots:(id+1)*t.Slots])
	return out
}

// Ranges returns the present ranges of primary block id in slot order
func (t *Table) Ranges(id int) []partitions.Range {
	var out []partitions.Range
	for _, e := range t.entries[id*t.Slots : (id+1)*t.Slots] {
		if e.Present {
			out = append(out, e.Range)
		}
	}
	return out
}

// NumPresent returns the number of present entries across the table
func (t *Table) NumPresent() int {
	n := 0
	for _, e := range t.entries {
		if e.Present {
			n++
		}
	}
	return n
}

// Adjacency returns, for every primary block, the ascending ids of the
// secondary blocks its ranges touch
func (t *Table) Adjacency() [][]int {
	adj := make([][]int, t.NumPrimary)
	for id := 0; id < t.NumPrimary; id++ {
		seen := make(map[int]bool)
		for _, r := range t.Ranges(id) {
			for b := r.Lo / t.SecondaryWidth; b <= (r.Hi-1)/t.SecondaryWidth; b++ {
				seen[b] = true
			}
		}
		blocks := make([]int, 0, len(seen))
		for b := range seen {
			blocks = append(blocks, b)
		}
		sort.Ints(blocks)
		adj[id] = blocks
	}
	return adj
}

// Verify checks that every present entry is a non-empty range inside the
// secondary backing array and that absent entries carry no range
func (t *Table) Verify() error {
	if len(t.entries) != t.NumPrimary*t.Slots {
		return fmt.Errorf("table holds %d entries, expected %d x %d",
			len(t.entries), t.NumPrimary, t.Slots)
	}
	for i, e := range t.entries {
		id, k := i/max(t.Slots, 1), i%max(t.Slots, 1)
		if !e.Present {
			if e.Range != (partitions.Range{}) {
				return fmt.Errorf("primary %d slot %d: absent entry carries range %v", id, k, e.Range)
			}
			continue
		}
		if e.Range.Empty() || !e.Range.Within(t.SecondarySize) {
			return fmt.Errorf("primary %d slot %d: range %v invalid for secondary size %d",
				id, k, e.Range, t.SecondarySize)
		}
	}
	return nil
}
