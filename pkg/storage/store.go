package storage

import (
	"fmt"
	"sync"
)

// BucketStore is a byte-addressable array of fixed-length entries.
type BucketStore interface {
	// Init sizes the store to size empty entries, discarding earlier content.
	Init(size uint64) error
	WriteAt(off uint64, e Entry) error
	// ReadAt reports false for an empty slot.
	ReadAt(off uint64) (Entry, bool, error)
	Size() uint64
	Layout() Layout
	Close() error
}

// RangeReader is implemented by stores that can read a contiguous run of
// entries in one access.
type RangeReader interface {
	// ReadRange returns n entries starting at off; empty slots are zero entries.
	ReadRange(off, n uint64) ([]Entry, error)
}

// BatchWriter is implemented by stores that write many entries at once.
type BatchWriter interface {
	WriteBatch(cells []Cell) error
}

// Cell is an entry placed at an offset.
type Cell struct {
	Off   uint64
	Entry Entry
}

// WriteCells writes every cell, in one batch when the store supports it.
func WriteCells(s BucketStore, cells []Cell) error {
	if bw, ok := s.(BatchWriter); ok {
		return bw.WriteBatch(cells)
	}
	for _, c := range cells {
		if err := s.WriteAt(c.Off, c.Entry); err != nil {
			return err
		}
	}
	return nil
}

// ReadRange reads n consecutive entries, falling back to single reads.
func ReadRange(s BucketStore, off, n uint64) ([]Entry, error) {
	if n == 0 {
		return nil, nil
	}
	if off+n > s.Size() || off+n < off {
		return nil, fmt.Errorf("%w: [%d,%d) of %d", ErrOffsetOutOfRange, off, off+n, s.Size())
	}
	if rr, ok := s.(RangeReader); ok {
		return rr.ReadRange(off, n)
	}
	out := make([]Entry, n)
	for i := range n {
		e, ok, err := s.ReadAt(off + i)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = e
		}
	}
	return out, nil
}

func checkOffset(off, size uint64) error {
	if off >= size {
		return fmt.Errorf("%w: %d of %d", ErrOffsetOutOfRange, off, size)
	}
	return nil
}

type RAMStore struct {
	mu      sync.RWMutex
	layout  Layout
	entries []Entry
}

func NewRAMStore(layout Layout) *RAMStore {
	return &RAMStore{layout: layout}
}

func (s *RAMStore) Init(size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]Entry, size)
	return nil
}

func (s *RAMStore) WriteAt(off uint64, e Entry) error {
	if err := s.layout.check(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkOffset(off, uint64(len(s.entries))); err != nil {
		return err
	}
	s.entries[off] = e
	return nil
}

func (s *RAMStore) ReadAt(off uint64) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := checkOffset(off, uint64(len(s.entries))); err != nil {
		return Entry{}, false, err
	}
	e := s.entries[off]
	if e.Label == nil || e.IsEmpty() {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (s *RAMStore) Size() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries))
}

func (s *RAMStore) Layout() Layout { return s.layout }

func (s *RAMStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
