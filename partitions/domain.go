package partitions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/notargets/BlockRemap/scheduler"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidDomain marks a configuration error in domain sizing
	ErrInvalidDomain = errors.New("invalid domain")
	// ErrInvalidRange marks a range that does not fit the domain's backing array
	ErrInvalidRange = errors.New("invalid range")
)

// Block describes one contiguous chunk of a domain
type Block struct {
	ID int

	// Owned logical elements [Start, Start+Width)
	Start int
	Width int

	// Halo cells appended after the owned cells in the backing row
	Halo int

	// Backing row width shared by every block of the domain
	Capacity int
}

// End returns one past the last owned logical element
func (b Block) End() int {
	return b.Start + b.Width
}

// Domain is a 1-D index range of NumElements logical elements split into
// NumBlocks contiguous blocks. Each block owns one row of a (NumBlocks, Width)
// backing array, Width = ceil(NumElements/NumBlocks) + Halo.
type Domain struct {
	Name string

	NumElements int
	NumBlocks   int
	Halo        int
	Width       int // Backing row width including halo

	Strategy SplitStrategy

	blocks []Block
	data   *mat.Dense

	// One lock per backing row; exclusive for writers, shared for readers
	locks []sync.RWMutex
}

// NewDomain creates a domain using the EvenSplit strategy
func NewDomain(name string, numElements, numBlocks, halo int) (*Domain, error) {
	return NewDomainWithStrategy(name, numElements, numBlocks, halo, EvenSplit)
}

// NewDomainWithStrategy creates a domain and allocates its backing array
func NewDomainWithStrategy(name string, numElements, numBlocks, halo int,
	strategy SplitStrategy) (*Domain, error) {
	if numElements <= 0 || numBlocks <= 0 || halo <= 0 {
		return nil, fmt.Errorf("%w %q: N=%d, B=%d, H=%d must all be positive",
			ErrInvalidDomain, name, numElements, numBlocks, halo)
	}
	if numBlocks > numElements {
		return nil, fmt.Errorf("%w %q: B=%d exceeds N=%d",
			ErrInvalidDomain, name, numBlocks, numElements)
	}

	widths, err := splitWidths(numElements, numBlocks, strategy)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDomain, name, err)
	}

	capacity := ceilDiv(numElements, numBlocks) + halo
	blocks := make([]Block, numBlocks)
	start := 0
	for i, w := range widths {
		blocks[i] = Block{
			ID:       i,
			Start:    start,
			Width:    w,
			Halo:     halo,
			Capacity: capacity,
		}
		start += w
	}

	d := &Domain{
		Name:        name,
		NumElements: numElements,
		NumBlocks:   numBlocks,
		Halo:        halo,
		Width:       capacity,
		Strategy:    strategy,
		blocks:      blocks,
		data:        mat.NewDense(numBlocks, capacity, nil),
		locks:       make([]sync.RWMutex, numBlocks),
	}

	if err := d.Verify(); err != nil {
		return nil, fmt.Errorf("invalid block layout: %w", err)
	}
	return d, nil
}

// Size returns the number of backing-array positions (NumBlocks * Width)
func (d *Domain) Size() int {
	return d.NumBlocks * d.Width
}

// Block returns the descriptor of block id
func (d *Domain) Block(id int) Block {
	return d.blocks[id]
}

// Blocks returns a copy of all block descriptors
func (d *Domain) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// BlockRange returns the flat backing positions owned by block id's row
func (d *Domain) BlockRange(id int) Range {
	return Range{Lo: id * d.Width, Hi: (id + 1) * d.Width}
}

// Locate converts a flat backing position to (block id, local offset)
func (d *Domain) Locate(pos int) (block, local int, err error) {
	if pos < 0 || pos >= d.Size() {
		return 0, 0, fmt.Errorf("%w: position %d outside [0,%d)", ErrInvalidRange, pos, d.Size())
	}
	return pos / d.Width, pos % d.Width, nil
}

// At returns the value stored at flat backing position pos. It takes no
// lock and must not race with a running write phase.
func (d *Domain) At(pos int) float64 {
	return d.data.At(pos/d.Width, pos%d.Width)
}

// Row returns a copy of block id's backing row
func (d *Domain) Row(id int) []float64 {
	out := make([]float64, d.Width)
	copy(out, d.data.RawRowView(id))
	return out
}

// Snapshot returns a copy of the whole backing array
func (d *Domain) Snapshot() *mat.Dense {
	return mat.DenseCopyOf(d.data)
}

// Matches reports whether the backing array equals a previous snapshot
func (d *Domain) Matches(snapshot mat.Matrix) bool {
	return mat.Equal(d.data, snapshot)
}

// Acquire takes block id's write lock and returns an exclusive view of its
// row. The returned function releases the lock.
func (d *Domain) Acquire(id int) (*BlockView, func()) {
	d.locks[id].Lock()
	view := &BlockView{block: d.blocks[id], row: d.data.RawRowView(id)}
	return view, func() {
		view.row = nil
		d.locks[id].Unlock()
	}
}

// AcquireRead takes shared read locks on the given blocks in ascending id
// order and returns read-only views of their rows, indexed like ids. The
// returned function releases every lock.
func (d *Domain) AcquireRead(ids []int) ([]RowReader, func(), error) {
	for i, id := range ids {
		if id < 0 || id >= d.NumBlocks {
			return nil, nil, fmt.Errorf("%w: block %d outside [0,%d)", ErrInvalidRange, id, d.NumBlocks)
		}
		if i > 0 && ids[i-1] >= id {
			return nil, nil, fmt.Errorf("block ids must be strictly ascending: %v", ids)
		}
	}

	readers := make([]RowReader, len(ids))
	for i, id := range ids {
		d.locks[id].RLock()
		readers[i] = RowReader{block: id, row: d.data.RawRowView(id)}
	}
	return readers, func() {
		for i := len(ids) - 1; i >= 0; i-- {
			d.locks[ids[i]].RUnlock()
		}
	}, nil
}

// FillFunc computes the initial value of a block's local cell
type FillFunc func(blockID, local int) float64

// ColorFill returns a FillFunc writing scale*blockID into every cell
func ColorFill(scale float64) FillFunc {
	return func(blockID, _ int) float64 {
		return scale * float64(blockID)
	}
}

// Populate runs one task per block writing fill(blockID, local) into every
// cell of the block's backing row, halo and padding included. Each task holds
// its block's write lock for the duration of the fill.
func (d *Domain) Populate(ctx context.Context, sched scheduler.Scheduler, fill FillFunc) error {
	if fill == nil {
		return fmt.Errorf("%w %q: nil fill function", ErrInvalidDomain, d.Name)
	}
	return sched.Spawn(ctx, d.NumBlocks, func(_ context.Context, id int) error {
		view, release := d.Acquire(id)
		defer release()
		for j := 0; j < view.Len(); j++ {
			view.Set(j, fill(id, j))
		}
		return nil
	})
}

// Verify checks that the blocks partition the logical range and the backing
// array disjointly and completely.
func (d *Domain) Verify() error {
	if len(d.blocks) != d.NumBlocks {
		return fmt.Errorf("block count %d != NumBlocks %d", len(d.blocks), d.NumBlocks)
	}
	rows, cols := d.data.Dims()
	if rows != d.NumBlocks || cols != d.Width {
		return fmt.Errorf("backing array is %dx%d, expected %dx%d", rows, cols, d.NumBlocks, d.Width)
	}

	maxWidth := ceilDiv(d.NumElements, d.NumBlocks)
	total := 0
	for i, b := range d.blocks {
		if b.ID != i {
			return fmt.Errorf("block %d has ID %d", i, b.ID)
		}
		if b.Start != total {
			return fmt.Errorf("block %d: start %d, expected %d", i, b.Start, total)
		}
		if b.Width <= 0 || b.Width > maxWidth {
			return fmt.Errorf("block %d: width %d outside [1,%d]", i, b.Width, maxWidth)
		}
		if b.Width+b.Halo > d.Width {
			return fmt.Errorf("block %d: width %d + halo %d exceeds row width %d",
				i, b.Width, b.Halo, d.Width)
		}
		total += b.Width
	}
	if total != d.NumElements {
		return fmt.Errorf("block widths sum to %d, expected %d", total, d.NumElements)
	}

	// Rows tile [0, Size) with no gaps or overlap
	next := 0
	for i := range d.blocks {
		r := d.BlockRange(i)
		if r.Lo != next || r.Len() != d.Width {
			return fmt.Errorf("block %d: row range %v does not follow %d", i, r, next)
		}
		next = r.Hi
	}
	if next != d.Size() {
		return fmt.Errorf("rows cover %d positions, expected %d", next, d.Size())
	}
	return nil
}

// BlockView is exclusive read-write access to one block's backing row
type BlockView struct {
	block Block
	row   []float64
}

// Block returns the descriptor of the viewed block
func (v *BlockView) Block() Block { return v.block }

// Len returns the row width
func (v *BlockView) Len() int { return len(v.row) }

// At returns local cell i
func (v *BlockView) At(i int) float64 { return v.row[i] }

// Set writes local cell i
func (v *BlockView) Set(i int, value float64) { v.row[i] = value }

// Data returns the whole row, owned, halo and padding cells
func (v *BlockView) Data() []float64 { return v.row }

// Owned returns the owned cells of the row
func (v *BlockView) Owned() []float64 { return v.row[:v.block.Width] }

// HaloCells returns the halo cells of the row
func (v *BlockView) HaloCells() []float64 {
	return v.row[v.block.Width : v.block.Width+v.block.Halo]
}

// RowReader is read-only access to one block's backing row
type RowReader struct {
	block int
	row   []float64
}

// Block returns the id of the block being read
func (r RowReader) Block() int { return r.block }

// Len returns the row width
func (r RowReader) Len() int { return len(r.row) }

// At returns local cell i
func (r RowReader) At(i int) float64 { return r.row[i] }

// CopyTo copies local cells [lo, hi) into dst and returns the count copied
func (r RowReader) CopyTo(dst []float64, lo, hi int) int {
	return copy(dst, r.row[lo:hi])
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
