package TDAG

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"RangeSSE/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		leaves []utils.Range
		want   error
	}{
		{name: "empty", leaves: nil, want: utils.ErrEmptyDomain},
		{name: "not unit", leaves: []utils.Range{{Start: 0, End: 1}, utils.Unit(2)}, want: utils.ErrInvalidDomain},
		{name: "gap", leaves: []utils.Range{utils.Unit(0), utils.Unit(2)}, want: utils.ErrInvalidDomain},
		{name: "duplicate", leaves: []utils.Range{utils.Unit(3), utils.Unit(3)}, want: utils.ErrInvalidDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.leaves)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestShapeFourLeaves(t *testing.T) {
	tree, err := Build([]utils.Range{utils.Unit(3), utils.Unit(1), utils.Unit(0), utils.Unit(2)})
	require.NoError(t, err)

	root := tree.Root()
	assert.Equal(t, utils.Range{Start: 0, End: 3}, tree.Range(root))
	assert.Equal(t, utils.Range{Start: 0, End: 1}, tree.Range(tree.Left(root)))
	assert.Equal(t, utils.Range{Start: 2, End: 3}, tree.Range(tree.Right(root)))
	assert.Equal(t, 7, tree.Len(), "no extra parent without grandchildren")
	assert.Equal(t, 4, tree.LeafCount())
	assert.Equal(t, 2, tree.Height())

	id, ok := tree.FindCover(utils.Range{Start: 1, End: 2})
	require.True(t, ok)
	assert.Equal(t, root, id)
}

func TestExtraParents(t *testing.T) {
	tree, err := BuildDomain(utils.Range{Start: 0, End: 15})
	require.NoError(t, err)

	var extras []utils.Range
	tree.Walk(func(id NodeID, r utils.Range) bool {
		if tree.IsExtra(id) {
			extras = append(extras, r)
		}
		return true
	})
	slices.SortFunc(extras, func(a, b utils.Range) int { return int(a.Start) - int(b.Start) })
	assert.Equal(t, []utils.Range{
		{Start: 2, End: 5},
		{Start: 4, End: 11},
		{Start: 6, End: 9},
		{Start: 10, End: 13},
	}, extras)

	tests := []struct {
		query utils.Range
		want  utils.Range
		extra bool
	}{
		{query: utils.Range{Start: 7, End: 8}, want: utils.Range{Start: 6, End: 9}, extra: true},
		{query: utils.Range{Start: 5, End: 10}, want: utils.Range{Start: 4, End: 11}, extra: true},
		{query: utils.Range{Start: 3, End: 4}, want: utils.Range{Start: 2, End: 5}, extra: true},
		{query: utils.Range{Start: 4, End: 7}, want: utils.Range{Start: 4, End: 7}},
		{query: utils.Range{Start: 1, End: 2}, want: utils.Range{Start: 0, End: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.query.String(), func(t *testing.T) {
			id, ok := tree.FindCover(tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.want, tree.Range(id))
			assert.Equal(t, tt.extra, tree.IsExtra(id))
		})
	}
}

func TestFindCoverDisjoint(t *testing.T) {
	tree, err := BuildDomain(utils.Range{Start: 10, End: 20})
	require.NoError(t, err)

	_, ok := tree.FindCover(utils.Range{Start: 0, End: 9})
	assert.False(t, ok)
	_, ok = tree.FindCover(utils.Range{Start: 21, End: 30})
	assert.False(t, ok)
	_, ok = tree.FindCover(utils.Range{Start: 5, End: 25})
	assert.False(t, ok, "no node contains a query wider than the domain")
}

func TestCoverageCompleteness(t *testing.T) {
	for _, n := range []uint64{1, 2, 3, 5, 8, 13, 16, 31} {
		t.Run(fmt.Sprintf("leaves=%d", n), func(t *testing.T) {
			tree, err := BuildDomain(utils.Range{Start: 100, End: 100 + n - 1})
			require.NoError(t, err)

			for v := uint64(100); v < 100+n; v++ {
				leaf := utils.Unit(v)
				id, ok := tree.FindCover(leaf)
				require.True(t, ok)
				assert.True(t, tree.Range(id).Contains(leaf))

				covering := tree.CoveringNodes(leaf)
				require.NotEmpty(t, covering)
				assert.Equal(t, tree.Root(), covering[0])
				assert.Contains(t, covering, id)
				for _, c := range covering {
					assert.True(t, tree.Range(c).Contains(leaf))
				}

				var want int
				tree.Walk(func(_ NodeID, r utils.Range) bool {
					if r.Contains(leaf) {
						want++
					}
					return true
				})
				assert.Len(t, covering, want, "every containing node is enumerated once")
			}
		})
	}
}

func TestCoverMinimality(t *testing.T) {
	for _, n := range []uint64{1, 2, 3, 4, 5, 6, 7, 8, 13, 16, 31, 32} {
		t.Run(fmt.Sprintf("leaves=%d", n), func(t *testing.T) {
			tree, err := BuildDomain(utils.Range{Start: 0, End: n - 1})
			require.NoError(t, err)

			for s := uint64(0); s < n; s++ {
				for e := s; e < n; e++ {
					q := utils.Range{Start: s, End: e}
					id, ok := tree.FindCover(q)
					require.True(t, ok, "query %s", q)
					require.True(t, tree.Range(id).Contains(q))

					best := tree.Range(tree.Root()).Excess(q)
					tree.Walk(func(_ NodeID, r utils.Range) bool {
						if r.Contains(q) {
							best = min(best, r.Excess(q))
						}
						return true
					})
					assert.Equal(t, best, tree.Range(id).Excess(q), "query %s", q)
				}
			}
		})
	}
}

func TestCoveringNodesOutsideDomain(t *testing.T) {
	tree, err := BuildDomain(utils.Range{Start: 0, End: 3})
	require.NoError(t, err)
	assert.Nil(t, tree.CoveringNodes(utils.Unit(4)))
}

func TestDomainTooLarge(t *testing.T) {
	tests := []struct {
		name   string
		domain utils.Range
	}{
		{name: "sparse keywords", domain: utils.Range{Start: 0, End: 1 << 62}},
		{name: "full uint64", domain: utils.Range{Start: 0, End: math.MaxUint64}},
		{name: "one past the bound", domain: utils.Range{Start: 7, End: 7 + MaxLeaves}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildDomain(tt.domain)
			assert.ErrorIs(t, err, utils.ErrDomainTooLarge)
		})
	}

	_, err := BuildDomain(utils.Range{Start: 9, End: 3})
	assert.ErrorIs(t, err, utils.ErrInvalidRange)
}
