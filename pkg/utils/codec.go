package utils

import (
	"encoding/binary"
	"fmt"
)

// Codec encodes values of T into fixed-size byte strings so every encrypted
// entry of an index has the same length on the wire.
type Codec[T any] interface {
	Size() int
	Encode(v T) []byte
	Decode(b []byte) (T, error)
}

// RecordSize is ID(8) || Keyword(8) || Op(1).
const RecordSize = 17

type RecordCodec struct{}

func (RecordCodec) Size() int { return RecordSize }

func (RecordCodec) Encode(r Record) []byte {
	b := make([]byte, RecordSize)
	binary.BigEndian.PutUint64(b[0:8], r.ID)
	binary.BigEndian.PutUint64(b[8:16], r.Keyword)
	b[16] = byte(r.Op)
	return b
}

func (RecordCodec) Decode(b []byte) (Record, error) {
	if len(b) != RecordSize {
		return Record{}, fmt.Errorf("%w: record of %d bytes", ErrMalformedEncoding, len(b))
	}
	op := Operation(b[16])
	if op != Insert && op != Delete {
		return Record{}, fmt.Errorf("%w: operation %d", ErrMalformedEncoding, b[16])
	}
	return Record{
		ID:      binary.BigEndian.Uint64(b[0:8]),
		Keyword: binary.BigEndian.Uint64(b[8:16]),
		Op:      op,
	}, nil
}

// RangeCodec encodes a Range as Start(8) || End(8).
type RangeCodec struct{}

func (RangeCodec) Size() int { return 16 }

func (RangeCodec) Encode(r Range) []byte { return r.Bytes() }

func (RangeCodec) Decode(b []byte) (Range, error) {
	if len(b) != 16 {
		return Range{}, fmt.Errorf("%w: range of %d bytes", ErrMalformedEncoding, len(b))
	}
	r := Range{Start: binary.BigEndian.Uint64(b[:8]), End: binary.BigEndian.Uint64(b[8:])}
	if r.Start > r.End {
		return Range{}, fmt.Errorf("%w: inverted range %s", ErrMalformedEncoding, r)
	}
	return r, nil
}

// Uint64Bytes is the 8-byte big endian form of a counter.
func Uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
