package align

import (
	"context"
	"errors"
	"fmt"

	"github.com/notargets/BlockRemap/dependency"
	"github.com/notargets/BlockRemap/partitions"
	"github.com/notargets/BlockRemap/scheduler"
)

// ErrKeySpaceMismatch is returned when partitions keyed by different primary
// id spaces, or referring to different secondary arrays, are combined
var ErrKeySpaceMismatch = errors.New("partition key space mismatch")

// Image is a partition of a secondary backing array keyed by primary block
// id. Cells may overlap across keys and need not cover the array.
type Image struct {
	cells []partitions.RangeSet
}

// NewImage creates an image with numKeys empty cells
func NewImage(numKeys int) Image {
	return Image{cells: make([]partitions.RangeSet, numKeys)}
}

// NumKeys returns the size of the primary id space
func (im Image) NumKeys() int { return len(im.cells) }

// Cell returns the positions assigned to primary id i
func (im Image) Cell(i int) partitions.RangeSet { return im.cells[i] }

// Empty reports whether every cell is empty
func (im Image) Empty() bool {
	for _, c := range im.cells {
		if !c.Empty() {
			return false
		}
	}
	return true
}

// SlotImage returns the image of the secondary array under slot k: cell i is
// the range stored in table[i][k], or empty when that entry is absent.
func SlotImage(table *dependency.Table, k int) (Image, error) {
	if k < 0 || k >= table.Slots {
		return Image{}, fmt.Errorf("slot %d outside [0,%d)", k, table.Slots)
	}
	im := NewImage(table.NumPrimary)
	for i := 0; i < table.NumPrimary; i++ {
		if r, ok := table.Entry(i, k); ok {
			im.cells[i] = partitions.NewRangeSet(r)
		}
	}
	return im, nil
}

// Union combines two images cellwise. Either operand may be empty.
func Union(a, b Image) (Image, error) {
	if a.NumKeys() != b.NumKeys() {
		return Image{}, fmt.Errorf("%w: %d keys vs %d keys", ErrKeySpaceMismatch, a.NumKeys(), b.NumKeys())
	}
	out := NewImage(a.NumKeys())
	for i := range out.cells {
		out.cells[i] = a.cells[i].Union(b.cells[i])
	}
	return out, nil
}

// Align derives the aligned partition of the secondary domain from a
// dependency table. The K slot images are computed concurrently, one task
// per slot, then folded by pairwise union, one task per pair and level, until
// a single image remains.
func Align(ctx context.Context, sched scheduler.Scheduler, secondary *partitions.Domain,
	table *dependency.Table) (*AlignedPartition, error) {
	if secondary == nil || table == nil {
		return nil, fmt.Errorf("secondary domain and dependency table are required")
	}
	if table.SecondarySize != secondary.Size() || table.SecondaryWidth != secondary.Width {
		return nil, fmt.Errorf("%w: table built for %d positions of width %d, domain %q has %d of width %d",
			ErrKeySpaceMismatch, table.SecondarySize, table.SecondaryWidth,
			secondary.Name, secondary.Size(), secondary.Width)
	}

	images := make([]Image, table.Slots)
	err := sched.Spawn(ctx, table.Slots, func(_ context.Context, k int) error {
		im, err := SlotImage(table, k)
		if err != nil {
			return err
		}
		images[k] = im
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("slot images: %w", err)
	}

	result, err := reduce(ctx, sched, images, table.NumPrimary)
	if err != nil {
		return nil, fmt.Errorf("slot union: %w", err)
	}

	return &AlignedPartition{
		cells:          result.cells,
		secondarySize:  secondary.Size(),
		secondaryWidth: secondary.Width,
	}, nil
}

// reduce folds images by pairwise union. An odd image at the end of a level
// is carried to the next level unchanged.
func reduce(ctx context.Context, sched scheduler.Scheduler, images []Image, numKeys int) (Image, error) {
	if len(images) == 0 {
		return NewImage(numKeys), nil
	}
	for len(images) > 1 {
		pairs := len(images) / 2
		next := make([]Image, (len(images)+1)/2)
		err := sched.Spawn(ctx, pairs, func(_ context.Context, p int) error {
			u, err := Union(images[2*p], images[2*p+1])
			if err != nil {
				return err
			}
			next[p] = u
			return nil
		})
		if err != nil {
			return Image{}, err
		}
		if len(images)%2 == 1 {
			next[len(next)-1] = images[len(images)-1]
		}
		images = next
	}
	return images[0], nil
}
