package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const createAttempts = 8

// DiskStore keeps entries in a file of fixed-length records. The file is
// created on Init under a fresh name and removed on Close.
type DiskStore struct {
	mu     sync.Mutex
	dir    string
	prefix string
	layout Layout
	file   *os.File
	size   uint64
}

func NewDiskStore(dir, prefix string, layout Layout) *DiskStore {
	return &DiskStore{dir: dir, prefix: prefix, layout: layout}
}

func (s *DiskStore) create() (*os.File, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	for range createAttempts {
		name := filepath.Join(s.dir, fmt.Sprintf("%s-%s.bkt", s.prefix, uuid.NewString()))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create store file: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("create store file in %s: no free name after %d attempts", s.dir, createAttempts)
}

func (s *DiskStore) Init(size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		f, err := s.create()
		if err != nil {
			return err
		}
		s.file = f
	}
	// truncating to zero and back zero-fills every record
	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate store: %w", err)
	}
	if err := s.file.Truncate(int64(size) * int64(s.layout.EntrySize())); err != nil {
		return fmt.Errorf("size store: %w", err)
	}
	s.size = size
	return nil
}

// Path is the backing file, empty before Init.
func (s *DiskStore) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ""
	}
	return s.file.Name()
}

func (s *DiskStore) pos(off uint64) int64 {
	return int64(off) * int64(s.layout.EntrySize())
}

func (s *DiskStore) WriteAt(off uint64, e Entry) error {
	b, err := s.layout.Marshal(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkOffset(off, s.size); err != nil {
		return err
	}
	if _, err := s.file.WriteAt(b, s.pos(off)); err != nil {
		return fmt.Errorf("write entry %d: %w", off, err)
	}
	return nil
}

func (s *DiskStore) ReadAt(off uint64) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkOffset(off, s.size); err != nil {
		return Entry{}, false, err
	}
	b := make([]byte, s.layout.EntrySize())
	if _, err := s.file.ReadAt(b, s.pos(off)); err != nil {
		return Entry{}, false, fmt.Errorf("read entry %d: %w", off, err)
	}
	e, err := s.layout.Unmarshal(b)
	if err != nil {
		return Entry{}, false, err
	}
	if e.IsEmpty() {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// ReadRange reads the run of records with one sequential read.
func (s *DiskStore) ReadRange(off, n uint64) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off+n > s.size || off+n < off {
		return nil, fmt.Errorf("%w: [%d,%d) of %d", ErrOffsetOutOfRange, off, off+n, s.size)
	}
	size := s.layout.EntrySize()
	b := make([]byte, int(n)*size)
	if _, err := s.file.ReadAt(b, s.pos(off)); err != nil {
		return nil, fmt.Errorf("read entries [%d,%d): %w", off, off+n, err)
	}
	out := make([]Entry, n)
	for i := range out {
		e, err := s.layout.Unmarshal(b[i*size : (i+1)*size])
		if err != nil {
			return nil, err
		}
		if !e.IsEmpty() {
			out[i] = e
		}
	}
	return out, nil
}

func (s *DiskStore) Size() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *DiskStore) Layout() Layout { return s.layout }

func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	name := s.file.Name()
	err := s.file.Close()
	s.file = nil
	s.size = 0
	return errors.Join(err, os.Remove(name))
}
