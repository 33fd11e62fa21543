package align

import (
	"fmt"
)

// GatherPlan holds the pick and place indices that copy each primary id's
// visible secondary cells into a contiguous per-primary buffer
type GatherPlan struct {
	NumPrimary     int
	NumSecondary   int // Secondary blocks
	SecondaryWidth int // Row width of the secondary backing array

	BufferLen []int // [primary] gathered buffer length

	// Pick/Place indices
	PickIndices  [][]PickBuffer  // [secondaryBlock][primary]
	PlaceIndices [][]PlaceBuffer // [primary][secondaryBlock]
}

// PickBuffer contains local cell indices read from one secondary row
type PickBuffer struct {
	Indices []int // Local cells of the secondary row
	Primary int
}

// PlaceBuffer contains buffer positions written for one secondary row
type PlaceBuffer struct {
	Indices   []int // Gather buffer positions
	Secondary int
}

// NewGatherPlan builds pick and place indices from an aligned partition
func NewGatherPlan(ap *AlignedPartition) (*GatherPlan, error) {
	if ap.secondaryWidth <= 0 || ap.secondarySize%ap.secondaryWidth != 0 {
		return nil, fmt.Errorf("invalid secondary geometry: size %d, width %d",
			ap.secondarySize, ap.secondaryWidth)
	}

	gp := &GatherPlan{
		NumPrimary:     ap.NumPrimary(),
		NumSecondary:   ap.secondarySize / ap.secondaryWidth,
		SecondaryWidth: ap.secondaryWidth,
		BufferLen:      make([]int, ap.NumPrimary()),
	}
	gp.initializeBuffers()

	for p := 0; p < gp.NumPrimary; p++ {
		pos := 0
		for _, piece := range ap.Pieces(p) {
			q := piece.Lo / gp.SecondaryWidth
			base := q * gp.SecondaryWidth
			for cell := piece.Lo; cell < piece.Hi; cell++ {
				gp.PickIndices[q][p].Indices = append(gp.PickIndices[q][p].Indices, cell-base)
				gp.PlaceIndices[p][q].Indices = append(gp.PlaceIndices[p][q].Indices, pos)
				pos++
			}
		}
		gp.BufferLen[p] = pos
	}

	return gp, nil
}

func (gp *GatherPlan) initializeBuffers() {
	gp.PickIndices = make([][]PickBuffer, gp.NumSecondary)
	for q := range gp.PickIndices {
		gp.PickIndices[q] = make([]PickBuffer, gp.NumPrimary)
		for p := range gp.PickIndices[q] {
			gp.PickIndices[q][p] = PickBuffer{Indices: make([]int, 0), Primary: p}
		}
	}
	gp.PlaceIndices = make([][]PlaceBuffer, gp.NumPrimary)
	for p := range gp.PlaceIndices {
		gp.PlaceIndices[p] = make([]PlaceBuffer, gp.NumSecondary)
		for q := range gp.PlaceIndices[p] {
			gp.PlaceIndices[p][q] = PlaceBuffer{Indices: make([]int, 0), Secondary: q}
		}
	}
}

// GetPickIndices returns the local cells of secondary row q read by primary p
func (gp *GatherPlan) GetPickIndices(q, p int) []int {
	if q < 0 || q >= gp.NumSecondary || p < 0 || p >= gp.NumPrimary {
		return nil
	}
	return gp.PickIndices[q][p].Indices
}

// GetPlaceIndices returns the buffer positions of primary p filled from secondary row q
func (gp *GatherPlan) GetPlaceIndices(p, q int) []int {
	if p < 0 || p >= gp.NumPrimary || q < 0 || q >= gp.NumSecondary {
		return nil
	}
	return gp.PlaceIndices[p][q].Indices
}

// Gather fills dst with primary p's visible secondary values. read returns
// local cell of secondary row q. dst must hold BufferLen[p] values.
func (gp *GatherPlan) Gather(p int, read func(q, cell int) float64, dst []float64) error {
	if len(dst) < gp.BufferLen[p] {
		return fmt.Errorf("gather buffer for primary %d holds %d values, need %d",
			p, len(dst), gp.BufferLen[p])
	}
	for q := 0; q < gp.NumSecondary; q++ {
		pick := gp.PickIndices[q][p].Indices
		if len(pick) == 0 {
			continue
		}
		place := gp.PlaceIndices[p][q].Indices
		for i, idx := range pick {
			dst[place[i]] = read(q, idx)
		}
	}
	return nil
}

// Verify checks index validity and conservation properties
func (gp *GatherPlan) Verify() error {
	// Local validity: pick indices stay inside a secondary row
	for q := 0; q < gp.NumSecondary; q++ {
		for p := 0; p < gp.NumPrimary; p++ {
			for _, idx := range gp.PickIndices[q][p].Indices {
				if idx < 0 || idx >= gp.SecondaryWidth {
					return fmt.Errorf("invalid pick index %d for secondary %d (max %d)",
						idx, q, gp.SecondaryWidth-1)
				}
			}
		}
	}

	// Correspondence: pick and place arrays pair up
	for q := 0; q < gp.NumSecondary; q++ {
		for p := 0; p < gp.NumPrimary; p++ {
			pickLen := len(gp.PickIndices[q][p].Indices)
			placeLen := len(gp.PlaceIndices[p][q].Indices)
			if pickLen != placeLen {
				return fmt.Errorf("length mismatch: pick[%d][%d]=%d, place[%d][%d]=%d",
					q, p, pickLen, p, q, placeLen)
			}
		}
	}

	// Conservation: every buffer position is placed exactly once
	for p := 0; p < gp.NumPrimary; p++ {
		seen := make([]bool, gp.BufferLen[p])
		placed := 0
		for q := 0; q < gp.NumSecondary; q++ {
			for _, pos := range gp.PlaceIndices[p][q].Indices {
				if pos < 0 || pos >= gp.BufferLen[p] || seen[pos] {
					return fmt.Errorf("primary %d: buffer position %d placed twice or out of range", p, pos)
				}
				seen[pos] = true
				placed++
			}
		}
		if placed != gp.BufferLen[p] {
			return fmt.Errorf("conservation error: primary %d placed %d of %d values",
				p, placed, gp.BufferLen[p])
		}
	}

	return nil
}
