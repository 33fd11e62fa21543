package partitions

import (
	"fmt"
	"math"
	"strings"
)

// SplitStrategy defines how logical elements are grouped into blocks
type SplitStrategy int

const (
	// EvenSplit spreads the remainder of N/B over the first blocks, so block
	// widths differ by at most one
	EvenSplit SplitStrategy = iota
	// CeilSplit gives every block ceil(N/B) elements and the last block the rest
	CeilSplit
)

func (s SplitStrategy) String() string {
	switch s {
	case EvenSplit:
		return "even"
	case CeilSplit:
		return "ceil"
	default:
		return fmt.Sprintf("SplitStrategy(%d)", int(s))
	}
}

// ParseSplitStrategy maps a configuration name to a SplitStrategy
func ParseSplitStrategy(name string) (SplitStrategy, error) {
	switch strings.ToLower(name) {
	case "even", "":
		return EvenSplit, nil
	case "ceil":
		return CeilSplit, nil
	default:
		return 0, fmt.Errorf("unknown split strategy %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s SplitStrategy) MarshalText() ([]byte, error) {
	switch s {
	case EvenSplit, CeilSplit:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("unknown split strategy %d", int(s))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *SplitStrategy) UnmarshalText(text []byte) error {
	parsed, err := ParseSplitStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// splitWidths returns the owned width of every block
func splitWidths(numElements, numBlocks int, strategy SplitStrategy) ([]int, error) {
	widths := make([]int, numBlocks)

	switch strategy {
	case EvenSplit:
		var (
			base      = numElements / numBlocks
			remainder = numElements % numBlocks
		)
		for i := range widths {
			widths[i] = base
			if i < remainder {
				widths[i]++
			}
		}

	case CeilSplit:
		chunk := ceilDiv(numElements, numBlocks)
		left := numElements
		for i := range widths {
			widths[i] = min(chunk, left)
			left -= widths[i]
			if widths[i] == 0 {
				return nil, fmt.Errorf("ceil split of N=%d into B=%d leaves block %d empty",
					numElements, numBlocks, i)
			}
		}

	default:
		return nil, fmt.Errorf("unknown split strategy %v", strategy)
	}

	return widths, nil
}

// Stats summarizes the load balance of a domain's blocks
type Stats struct {
	NumBlocks int
	MinWidth  int
	MaxWidth  int
	AvgWidth  float64
	Imbalance float64 // MaxWidth / AvgWidth
}

// Statistics computes load balance metrics over the owned block widths
func (d *Domain) Statistics() Stats {
	stats := Stats{
		NumBlocks: d.NumBlocks,
		MinWidth:  math.MaxInt32,
		AvgWidth:  float64(d.NumElements) / float64(d.NumBlocks),
	}

	for _, b := range d.blocks {
		if b.Width < stats.MinWidth {
			stats.MinWidth = b.Width
		}
		if b.Width > stats.MaxWidth {
			stats.MaxWidth = b.Width
		}
	}

	stats.Imbalance = float64(stats.MaxWidth) / stats.AvgWidth
	return stats
}
