package utils

import (
	"encoding/binary"
	"fmt"
	"math"
)

type Operation uint8

const (
	Insert Operation = iota // 0
	Delete                  // 1
)

func (op Operation) String() string {
	switch op {
	case Insert:
		return "INS"
	case Delete:
		return "DEL"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(op))
	}
}

// Range is an inclusive interval [Start, End] over an integral domain.
type Range struct {
	Start uint64
	End   uint64
}

func NewRange(start, end uint64) (Range, error) {
	if start > end {
		return Range{}, fmt.Errorf("%w: [%d,%d]", ErrInvalidRange, start, end)
	}
	return Range{Start: start, End: end}, nil
}

// Unit returns the single-value range [v,v].
func Unit(v uint64) Range {
	return Range{Start: v, End: v}
}

// Size wraps to 0 for the full uint64 domain.
func (r Range) Size() uint64 {
	return r.End - r.Start + 1
}

func (r Range) IsUnit() bool {
	return r.Start == r.End
}

func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

func (r Range) ContainsValue(v uint64) bool {
	return r.Start <= v && v <= r.End
}

func (r Range) IsDisjointFrom(other Range) bool {
	return r.End < other.Start || other.End < r.Start
}

// IsAdjacent reports whether the two ranges touch without overlapping.
func (r Range) IsAdjacent(other Range) bool {
	if r.End != math.MaxUint64 && r.End+1 == other.Start {
		return true
	}
	return other.End != math.MaxUint64 && other.End+1 == r.Start
}

func (r Range) Intersect(other Range) (Range, bool) {
	if r.IsDisjointFrom(other) {
		return Range{}, false
	}
	return Range{Start: max(r.Start, other.Start), End: min(r.End, other.End)}, true
}

// Union returns the smallest range covering both.
func (r Range) Union(other Range) Range {
	return Range{Start: min(r.Start, other.Start), End: max(r.End, other.End)}
}

func (r Range) Less(other Range) bool {
	if r.Start != other.Start {
		return r.Start < other.Start
	}
	return r.End < other.End
}

// Excess is how many domain values r covers outside q. r must contain q.
func (r Range) Excess(q Range) uint64 {
	return (q.Start - r.Start) + (r.End - q.End)
}

// Bytes is the 16-byte big endian encoding used as PRF input.
func (r Range) Bytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], r.Start)
	binary.BigEndian.PutUint64(b[8:], r.End)
	return b
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Record is one (id, keyword, operation) tuple. A Delete record is a tombstone
// for the Insert carrying the same id.
type Record struct {
	ID      uint64
	Keyword uint64
	Op      Operation
}

func NewInsert(id, keyword uint64) Record {
	return Record{ID: id, Keyword: keyword, Op: Insert}
}

func NewDelete(id, keyword uint64) Record {
	return Record{ID: id, Keyword: keyword, Op: Delete}
}

func (r Record) IsTombstone() bool {
	return r.Op == Delete
}

func (r Record) String() string {
	return fmt.Sprintf("Record{ID: %d, Keyword: %d, Op: %s}", r.ID, r.Keyword, r.Op)
}
