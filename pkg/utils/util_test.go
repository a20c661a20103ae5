package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange(t *testing.T) {
	_, err := NewRange(5, 4)
	require.ErrorIs(t, err, ErrInvalidRange)

	r, err := NewRange(3, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), r.Size())
	assert.True(t, r.Contains(Range{4, 9}))
	assert.False(t, r.Contains(Range{2, 9}))
	assert.True(t, r.IsDisjointFrom(Range{10, 12}))
	assert.False(t, r.IsDisjointFrom(Range{9, 12}))
	assert.True(t, r.IsAdjacent(Range{10, 10}))
	assert.True(t, Range{0, 2}.IsAdjacent(r))
	assert.False(t, r.IsAdjacent(Range{11, 11}))
	assert.Equal(t, uint64(3), r.Excess(Range{4, 7}))
	assert.Equal(t, "[3,9]", r.String())

	in, ok := r.Intersect(Range{7, 20})
	require.True(t, ok)
	assert.Equal(t, Range{7, 9}, in)
	_, ok = r.Intersect(Range{10, 20})
	assert.False(t, ok)
}

func TestRecordCodec(t *testing.T) {
	var c RecordCodec
	rec := NewDelete(42, 7)
	got, err := c.Decode(c.Encode(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "short", input: make([]byte, RecordSize-1)},
		{name: "long", input: make([]byte, RecordSize+1)},
		{name: "bad op", input: append(make([]byte, RecordSize-1), 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.input)
			assert.True(t, errors.Is(err, ErrMalformedEncoding))
		})
	}
}

func TestRangeCodecRejectsInverted(t *testing.T) {
	var c RangeCodec
	b := Range{Start: 1, End: 5}.Bytes()
	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, Range{1, 5}, got)

	inverted := append(Range{Start: 5, End: 5}.Bytes()[:8], Uint64Bytes(1)...)
	_, err = c.Decode(inverted)
	assert.ErrorIs(t, err, ErrMalformedEncoding)
}

func TestReconcile(t *testing.T) {
	records := []Record{
		NewInsert(1, 5),
		NewInsert(2, 5),
		NewDelete(1, 5),
		NewInsert(3, 9),
	}
	assert.Equal(t, []Record{NewInsert(2, 5), NewInsert(3, 9)}, Reconcile(records))
	assert.Empty(t, Reconcile(nil))
}

func TestGenKeySet(t *testing.T) {
	for _, bits := range []int{128, 192, 256} {
		keys, err := GenKeySet(rand.Reader, bits)
		require.NoError(t, err)
		assert.Len(t, keys.PRFKey, bits/8)
		assert.Len(t, keys.EncKey, bits/8)
		assert.False(t, bytes.Equal(keys.PRFKey, keys.EncKey))
	}
	_, err := GenKeySet(rand.Reader, 100)
	assert.ErrorIs(t, err, ErrInvalidSecurityParameter)
}

func TestSealOpen(t *testing.T) {
	key := PrfF([]byte("key"), []byte("w"))
	iv, err := NewIV(rand.Reader)
	require.NoError(t, err)

	ct, err := Seal(key, iv, []byte("payload"), []byte("label"))
	require.NoError(t, err)
	assert.Len(t, ct, len("payload")+Overhead)

	pt, err := Open(key, iv, ct, []byte("label"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), pt)

	_, err = Open(key, iv, ct, []byte("other"))
	assert.ErrorIs(t, err, ErrMalformedEncoding)
}

func TestDatabaseGroup(t *testing.T) {
	db := RecordDatabase([]Record{
		NewInsert(1, 9),
		NewInsert(2, 5),
		NewInsert(3, 9),
	})
	groups := db.Group()
	require.Len(t, groups, 2)
	assert.Equal(t, Unit(5), groups[0].Key)
	assert.Equal(t, []Record{NewInsert(2, 5)}, groups[0].Values)
	assert.Equal(t, Unit(9), groups[1].Key)
	assert.Equal(t, []Record{NewInsert(1, 9), NewInsert(3, 9)}, groups[1].Values)
	assert.Equal(t, []Range{Unit(5), Unit(9)}, db.Keys())

	domain, ok := KeywordDomain(db)
	require.True(t, ok)
	assert.Equal(t, Range{5, 9}, domain)
	assert.Equal(t, []Record{NewInsert(2, 5)}, FilterRecords(db.Values(), Range{4, 6}))
}
