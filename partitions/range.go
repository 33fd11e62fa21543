package partitions

import (
	"fmt"
	"sort"
	"strings"
)

// Range is a half-open interval [Lo, Hi) of flat backing-array positions.
// Position p of a domain with backing width W lives in block p/W at local
// offset p%W.
type Range struct {
	Lo int
	Hi int
}

// Len returns the number of positions in the range
func (r Range) Len() int {
	if r.Hi <= r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// Empty reports whether the range holds no positions
func (r Range) Empty() bool {
	return r.Hi <= r.Lo
}

// Contains reports whether pos lies in the range
func (r Range) Contains(pos int) bool {
	return pos >= r.Lo && pos < r.Hi
}

// Within reports whether the range is well formed and lies inside [0, size)
func (r Range) Within(size int) bool {
	return r.Lo >= 0 && r.Lo <= r.Hi && r.Hi <= size
}

// Intersect returns the common part of r and o, empty if they are disjoint
func (r Range) Intersect(o Range) Range {
	lo, hi := max(r.Lo, o.Lo), min(r.Hi, o.Hi)
	if hi < lo {
		hi = lo
	}
	return Range{Lo: lo, Hi: hi}
}

// Overlaps reports whether r and o share at least one position
func (r Range) Overlaps(o Range) bool {
	return !r.Intersect(o).Empty()
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Lo, r.Hi)
}

// RangeSet is an ordered set of disjoint, non-adjacent, non-empty ranges.
// The zero value is the empty set. RangeSet values are immutable; every
// operation returns a new set.
type RangeSet struct {
	ranges []Range
}

// NewRangeSet builds a set from arbitrary ranges, dropping empty ones and
// coalescing overlapping or adjacent ones.
func NewRangeSet(ranges ...Range) RangeSet {
	rs := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if !r.Empty() {
			rs = append(rs, r)
		}
	}
	if len(rs) == 0 {
		return RangeSet{}
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Lo != rs[j].Lo {
			return rs[i].Lo < rs[j].Lo
		}
		return rs[i].Hi < rs[j].Hi
	})

	merged := rs[:1]
	for _, r := range rs[1:] {
		last := &merged[len(merged)-1]
		if r.Lo <= last.Hi {
			if r.Hi > last.Hi {
				last.Hi = r.Hi
			}
			continue
		}
		merged = append(merged, r)
	}
	return RangeSet{ranges: merged}
}

// Ranges returns a copy of the coalesced ranges in ascending order
func (s RangeSet) Ranges() []Range {
	out := make([]Range, len(s.ranges))
	copy(out, s.ranges)
	return out
}

// NumRanges returns the number of coalesced ranges
func (s RangeSet) NumRanges() int {
	return len(s.ranges)
}

// Len returns the number of positions in the set
func (s RangeSet) Len() int {
	total := 0
	for _, r := range s.ranges {
		total += r.Len()
	}
	return total
}

// Empty reports whether the set holds no positions
func (s RangeSet) Empty() bool {
	return len(s.ranges) == 0
}

// Add returns the union of s and r
func (s RangeSet) Add(r Range) RangeSet {
	return s.Union(NewRangeSet(r))
}

// Union returns the set of positions in s or o
func (s RangeSet) Union(o RangeSet) RangeSet {
	if o.Empty() {
		return s
	}
	if s.Empty() {
		return o
	}
	all := make([]Range, 0, len(s.ranges)+len(o.ranges))
	all = append(all, s.ranges...)
	all = append(all, o.ranges...)
	return NewRangeSet(all...)
}

// Intersect returns the set of positions in both s and o
func (s RangeSet) Intersect(o RangeSet) RangeSet {
	var out []Range
	i, j := 0, 0
	for i < len(s.ranges) && j < len(o.ranges) {
		if x := s.ranges[i].Intersect(o.ranges[j]); !x.Empty() {
			out = append(out, x)
		}
		if s.ranges[i].Hi < o.ranges[j].Hi {
			i++
		} else {
			j++
		}
	}
	return NewRangeSet(out...)
}

// Overlaps reports whether s and o share at least one position
func (s RangeSet) Overlaps(o RangeSet) bool {
	return !s.Intersect(o).Empty()
}

// Contains reports whether pos is in the set
func (s RangeSet) Contains(pos int) bool {
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].Hi > pos })
	return i < len(s.ranges) && s.ranges[i].Contains(pos)
}

// Covers reports whether every position of r is in the set
func (s RangeSet) Covers(r Range) bool {
	if r.Empty() {
		return true
	}
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].Hi > r.Lo })
	return i < len(s.ranges) && s.ranges[i].Lo <= r.Lo && s.ranges[i].Hi >= r.Hi
}

// Equal reports whether s and o hold the same positions
func (s RangeSet) Equal(o RangeSet) bool {
	if len(s.ranges) != len(o.ranges) {
		return false
	}
	for i := range s.ranges {
		if s.ranges[i] != o.ranges[i] {
			return false
		}
	}
	return true
}

// Positions enumerates every position of the set in ascending order
func (s RangeSet) Positions() []int {
	out := make([]int, 0, s.Len())
	for _, r := range s.ranges {
		for p := r.Lo; p < r.Hi; p++ {
			out = append(out, p)
		}
	}
	return out
}

// SplitRows cuts the set at every multiple of width so that each returned
// range lies inside a single backing row.
func (s RangeSet) SplitRows(width int) []Range {
	if width <= 0 {
		return s.Ranges()
	}
	var out []Range
	for _, r := range s.ranges {
		for lo := r.Lo; lo < r.Hi; {
			rowEnd := (lo/width + 1) * width
			hi := min(r.Hi, rowEnd)
			out = append(out, Range{Lo: lo, Hi: hi})
			lo = hi
		}
	}
	return out
}

func (s RangeSet) String() string {
	parts := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}
