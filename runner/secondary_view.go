package runner

import (
	"sort"

	"github.com/notargets/BlockRemap/align"
	"github.com/notargets/BlockRemap/partitions"
)

// Piece is the part of a primary block's aligned cell that lies in one
// secondary block's backing row
type Piece struct {
	Block  int              // Secondary block id
	Local  partitions.Range // Cells of the secondary row
	Offset int              // Index of the first value in Values order
}

// SecondaryView is read-only access to the secondary cells visible to one
// primary block during a remap. It is valid only inside the RemapOp call.
type SecondaryView struct {
	primary int
	pieces  []Piece
	readers map[int]partitions.RowReader
	plan    *align.GatherPlan
	length  int
}

func newSecondaryView(primary, width int, aligned *align.AlignedPartition, plan *align.GatherPlan,
	readers []partitions.RowReader) *SecondaryView {
	sv := &SecondaryView{
		primary: primary,
		readers: make(map[int]partitions.RowReader, len(readers)),
		plan:    plan,
	}
	for _, r := range readers {
		sv.readers[r.Block()] = r
	}
	for _, r := range aligned.Pieces(primary) {
		block := r.Lo / width
		base := block * width
		sv.pieces = append(sv.pieces, Piece{
			Block:  block,
			Local:  partitions.Range{Lo: r.Lo - base, Hi: r.Hi - base},
			Offset: sv.length,
		})
		sv.length += r.Len()
	}
	return sv
}

// Primary returns the id of the primary block this view belongs to
func (sv *SecondaryView) Primary() int { return sv.primary }

// Pieces returns a copy of the per-block pieces in ascending position order
func (sv *SecondaryView) Pieces() []Piece {
	out := make([]Piece, len(sv.pieces))
	copy(out, sv.pieces)
	return out
}

// Len returns the number of visible secondary cells
func (sv *SecondaryView) Len() int { return sv.length }

// At returns visible value i, counted in Values order
func (sv *SecondaryView) At(i int) float64 {
	k := sort.Search(len(sv.pieces), func(k int) bool {
		return sv.pieces[k].Offset+sv.pieces[k].Local.Len() > i
	})
	p := sv.pieces[k]
	return sv.readers[p.Block].At(p.Local.Lo + i - p.Offset)
}

// CopyTo copies the visible values into dst and returns the count copied
func (sv *SecondaryView) CopyTo(dst []float64) int {
	n := 0
	for _, p := range sv.pieces {
		if n >= len(dst) {
			break
		}
		hi := min(p.Local.Hi, p.Local.Lo+len(dst)-n)
		n += sv.readers[p.Block].CopyTo(dst[n:], p.Local.Lo, hi)
	}
	return n
}

// Values returns a new slice holding every visible value. It fails if the
// gather plan does not describe this view's cell.
func (sv *SecondaryView) Values() ([]float64, error) {
	out := make([]float64, sv.length)
	if sv.plan == nil {
		sv.CopyTo(out)
		return out, nil
	}
	if err := sv.plan.Gather(sv.primary, sv.read, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (sv *SecondaryView) read(q, cell int) float64 {
	return sv.readers[q].At(cell)
}
