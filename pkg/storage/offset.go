package storage

import (
	"fmt"
	"math/bits"

	"RangeSSE/pkg/utils"
)

func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// Log2 is exact for powers of two.
func Log2(v uint64) uint64 {
	return uint64(bits.Len64(v) - 1)
}

// NextPowerOfTwo is the smallest power of two >= v, 1 for v = 0.
func NextPowerOfTwo(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len64(v-1)
}

// levelStart is the number of entries taken by every level above level:
// (top-level)*2N - (1 - 2^(level-top))*2^(top+1), which reduces to
// 2N(top-level-1) + 2^(level+1) below the top.
func levelStart(level, top, leafCount uint64) uint64 {
	if level == top {
		return 0
	}
	return 2*leafCount*(top-level-1) + 1<<(level+1)
}

// Offset places entry rank of a node's bucket in the locality layout of a
// perfect tree over leafCount leaves starting at domainMin. Levels are laid out
// from the root down, nodes of one level by start, one bucket of bucketSize
// entries each.
func Offset(node utils.Range, bucketSize, rank, domainMin, leafCount uint64) (uint64, error) {
	if !IsPowerOfTwo(bucketSize) || !IsPowerOfTwo(leafCount) {
		return 0, fmt.Errorf("%w: bucket size %d, leaf count %d", ErrNotPowerOfTwo, bucketSize, leafCount)
	}
	if bucketSize > leafCount || node.Start < domainMin {
		return 0, fmt.Errorf("%w: node %s outside domain of %d leaves at %d", ErrOffsetOutOfRange, node, leafCount, domainMin)
	}
	if rank >= bucketSize {
		return 0, fmt.Errorf("%w: rank %d of %d", ErrRankOutOfBucket, rank, bucketSize)
	}

	level, top := Log2(bucketSize), Log2(leafCount)
	step := max(bucketSize/2, 1)
	rel := node.Start - domainMin
	if rel%step != 0 {
		return 0, fmt.Errorf("%w: node %s not aligned to %d", ErrOffsetOutOfRange, node, step)
	}
	pos := rel / step
	slots := leafCount
	if bucketSize > 1 {
		slots = 2*leafCount/bucketSize - 1
	}
	if pos >= slots {
		return 0, fmt.Errorf("%w: node %s past the end of level %d", ErrOffsetOutOfRange, node, level)
	}
	return levelStart(level, top, leafCount) + pos*bucketSize + rank, nil
}

// TotalEntries is the size of the locality layout over leafCount leaves.
func TotalEntries(leafCount uint64) uint64 {
	if leafCount <= 1 {
		return leafCount
	}
	return levelStart(0, Log2(leafCount), leafCount) + leafCount
}
