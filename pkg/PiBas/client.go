// Package PiBas implements the single-keyword encrypted index. The client
// derives one token per key range and seals every value under a key the
// server never sees; the server stores sealed entries and answers blind
// lookups by token.
package PiBas

import (
	"encoding/binary"
	"fmt"
	"io"

	"RangeSSE/pkg/storage"
	"RangeSSE/pkg/utils"
)

// Placement decides where the server keeps the i-th entry of a token.
type Placement int

const (
	// ResultHiding hashes labels into an open-addressing table sized to the entry count.
	ResultHiding Placement = iota
	// ResultRevealing keys entries by Hash(token || counter) in a label store.
	ResultRevealing
)

func (p Placement) String() string {
	switch p {
	case ResultHiding:
		return "hiding"
	case ResultRevealing:
		return "revealing"
	default:
		return fmt.Sprintf("Placement(%d)", int(p))
	}
}

func ParsePlacement(s string) (Placement, error) {
	switch s {
	case "hiding", "":
		return ResultHiding, nil
	case "revealing":
		return ResultRevealing, nil
	}
	return 0, fmt.Errorf("unknown placement %q", s)
}

const (
	tokenDomain byte = 0x01
	sealDomain  byte = 0x02
)

// Client holds the keys of one index and everything derived from them.
type Client[T any] struct {
	codec utils.Codec[T]
	rng   io.Reader
	keys  utils.KeySet
	ready bool
}

func NewClient[T any](codec utils.Codec[T], rng io.Reader) *Client[T] {
	return &Client[T]{codec: codec, rng: rng}
}

// Setup draws a fresh key set; earlier tokens stop matching.
func (c *Client[T]) Setup(secParam int) error {
	keys, err := utils.GenKeySet(c.rng, secParam)
	if err != nil {
		return err
	}
	c.keys = keys
	c.ready = true
	return nil
}

func (c *Client[T]) Ready() bool { return c.ready }

// Token is the search token of w, the only key material sent to the server.
func (c *Client[T]) Token(w utils.Range) []byte {
	return utils.PrfF(c.keys.PRFKey, append(w.Bytes(), tokenDomain))
}

func (c *Client[T]) sealKey(w utils.Range) []byte {
	return utils.PrfF(c.keys.EncKey, append(w.Bytes(), sealDomain))
}

func (c *Client[T]) Layout() storage.Layout {
	return storage.SealedLayout(c.codec.Size())
}

// Seal encrypts v as the entry stored under label for key w.
func (c *Client[T]) Seal(w utils.Range, label []byte, v T) (storage.Entry, error) {
	iv, err := utils.NewIV(c.rng)
	if err != nil {
		return storage.Entry{}, err
	}
	ct, err := utils.Seal(c.sealKey(w), iv, c.codec.Encode(v), label)
	if err != nil {
		return storage.Entry{}, err
	}
	return storage.Entry{Label: label, Ciphertext: ct, IV: iv}, nil
}

func (c *Client[T]) Open(w utils.Range, e storage.Entry) (T, error) {
	var zero T
	pt, err := utils.Open(c.sealKey(w), e.IV, e.Ciphertext, e.Label)
	if err != nil {
		return zero, err
	}
	return c.codec.Decode(pt)
}

// Label is the label of the i-th entry under token.
func Label(p Placement, token []byte, i uint64) []byte {
	if p == ResultRevealing {
		return utils.Hash(append(append([]byte(nil), token...), utils.Uint64Bytes(i)...))
	}
	return utils.PrfF(token, utils.Uint64Bytes(i))
}

// home is the first slot probed for label in a table of capacity slots.
func home(label []byte, capacity uint64) uint64 {
	return binary.BigEndian.Uint64(utils.Hash(label)[:8]) % capacity
}
