package utils

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Scheme is a static range-searchable encrypted index over records. Setup
// replaces any previous content with fresh keys.
type Scheme interface {
	Setup(secParam int, db Database[Record]) error
	// Search returns the inserts with keyword in q that have no tombstone.
	Search(q Range) ([]Record, error)
	// SearchRaw returns every matching entry, tombstones included.
	SearchRaw(q Range) ([]Record, error)
	IsEmpty() bool
	// Plaintext is the client-side copy of the indexed records.
	Plaintext() Database[Record]
	Close() error
}

// SchemeFactory creates an empty static scheme.
type SchemeFactory func() Scheme

// Reconcile drops tombstones and every insert whose id has a tombstone.
func Reconcile(records []Record) []Record {
	deleted := mapset.NewThreadUnsafeSet[uint64]()
	for _, r := range records {
		if r.IsTombstone() {
			deleted.Add(r.ID)
		}
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.IsTombstone() || deleted.Contains(r.ID) {
			continue
		}
		out = append(out, r)
	}
	return out
}
