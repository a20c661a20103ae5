package utils

import (
	"github.com/google/btree"
)

// Pair places a value at a key range. Records sit at their keyword; derived
// indexes place values at tree node ranges.
type Pair[T any] struct {
	Value T
	Key   Range
}

// Database is an ordered collection of pairs.
type Database[T any] []Pair[T]

// Group is every value sharing one key, in database order.
type Group[T any] struct {
	Key    Range
	Values []T
}

// RecordDatabase places each record at its keyword.
func RecordDatabase(records []Record) Database[Record] {
	db := make(Database[Record], len(records))
	for i, r := range records {
		db[i] = Pair[Record]{Value: r, Key: Unit(r.Keyword)}
	}
	return db
}

func (db Database[T]) Values() []T {
	values := make([]T, len(db))
	for i, p := range db {
		values[i] = p.Value
	}
	return values
}

// Group returns the groups in ascending key order.
func (db Database[T]) Group() []Group[T] {
	tree := btree.NewG(32, func(a, b *Group[T]) bool { return a.Key.Less(b.Key) })
	for _, p := range db {
		g, ok := tree.Get(&Group[T]{Key: p.Key})
		if !ok {
			g = &Group[T]{Key: p.Key}
			tree.ReplaceOrInsert(g)
		}
		g.Values = append(g.Values, p.Value)
	}

	groups := make([]Group[T], 0, tree.Len())
	tree.Ascend(func(g *Group[T]) bool {
		groups = append(groups, *g)
		return true
	})
	return groups
}

// Keys returns the distinct keys in ascending order.
func (db Database[T]) Keys() []Range {
	groups := db.Group()
	keys := make([]Range, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

// KeywordDomain is the hull of every record keyword.
func KeywordDomain(db Database[Record]) (Range, bool) {
	if len(db) == 0 {
		return Range{}, false
	}
	domain := Unit(db[0].Value.Keyword)
	for _, p := range db[1:] {
		domain = domain.Union(Unit(p.Value.Keyword))
	}
	return domain, true
}

// FilterRecords is the linear scan reference: every record whose keyword is in q.
func FilterRecords(records []Record, q Range) []Record {
	var out []Record
	for _, r := range records {
		if q.ContainsValue(r.Keyword) {
			out = append(out, r)
		}
	}
	return out
}
