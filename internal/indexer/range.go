package indexer

import "fmt"

// BlockRange is an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// Contains reports whether block lies in the range.
func (r BlockRange) Contains(block uint64) bool {
	return block >= r.From && block <= r.To
}

// SplitRange cuts [from, to] into consecutive ranges of at most batchSize
// blocks. Each range is committed on its own.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; start += batchSize {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
	}
}
