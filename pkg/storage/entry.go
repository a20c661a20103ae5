// Package storage holds the untrusted server side of every index: fixed-record
// bucket stores addressed by offset, label stores addressed by a blind label,
// and the locality layout that maps tree nodes to contiguous offsets.
package storage

import (
	"errors"
	"fmt"

	"RangeSSE/pkg/utils"
)

var (
	ErrNotPowerOfTwo    = errors.New("not a power of two")
	ErrRankOutOfBucket  = errors.New("rank out of bucket")
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrEntrySize means an entry does not match the store layout.
	ErrEntrySize = errors.New("entry does not match layout")
)

// Layout fixes the byte length of every entry field in one store.
type Layout struct {
	LabelSize      int
	CiphertextSize int
	IVSize         int
}

// SealedLayout is the layout of an entry holding one sealed payload of
// payloadSize bytes under a digest-sized label.
func SealedLayout(payloadSize int) Layout {
	return Layout{
		LabelSize:      utils.DigestSize,
		CiphertextSize: payloadSize + utils.Overhead,
		IVSize:         utils.IVSize,
	}
}

func (l Layout) EntrySize() int {
	return l.LabelSize + l.CiphertextSize + l.IVSize
}

// Entry is one encrypted bucket cell. The all-zero entry marks an empty slot.
type Entry struct {
	Label      []byte
	Ciphertext []byte
	IV         []byte
}

func (e Entry) IsEmpty() bool {
	for _, part := range [][]byte{e.Label, e.Ciphertext, e.IV} {
		for _, b := range part {
			if b != 0 {
				return false
			}
		}
	}
	return true
}

func (l Layout) check(e Entry) error {
	if len(e.Label) != l.LabelSize || len(e.Ciphertext) != l.CiphertextSize || len(e.IV) != l.IVSize {
		return fmt.Errorf("%w: label %d ciphertext %d iv %d, want %d/%d/%d", ErrEntrySize,
			len(e.Label), len(e.Ciphertext), len(e.IV), l.LabelSize, l.CiphertextSize, l.IVSize)
	}
	return nil
}

// Marshal writes label || ciphertext || iv.
func (l Layout) Marshal(e Entry) ([]byte, error) {
	if err := l.check(e); err != nil {
		return nil, err
	}
	b := make([]byte, 0, l.EntrySize())
	b = append(b, e.Label...)
	b = append(b, e.Ciphertext...)
	b = append(b, e.IV...)
	return b, nil
}

func (l Layout) Unmarshal(b []byte) (Entry, error) {
	if len(b) != l.EntrySize() {
		return Entry{}, fmt.Errorf("%w: entry of %d bytes", utils.ErrMalformedEncoding, len(b))
	}
	c := l.LabelSize + l.CiphertextSize
	return Entry{
		Label:      append([]byte(nil), b[:l.LabelSize]...),
		Ciphertext: append([]byte(nil), b[l.LabelSize:c]...),
		IV:         append([]byte(nil), b[c:]...),
	}, nil
}
