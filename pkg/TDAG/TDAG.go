// Package TDAG implements the tree-based directed acyclic graph used for
// single range cover (SRC) lookups.
//
// The tree is a full binary tree over a contiguous domain of unit leaves,
// augmented with "extra parent" nodes: for every node whose inner grandchildren
// (left.right and right.left) are both internal, an extra node spans the two of
// them. A query straddling a natural split can then be answered by one node
// instead of two.
//
// Nodes live in an arena and reference each other by NodeID.
package TDAG

import (
	"fmt"
	"slices"

	"RangeSSE/pkg/utils"

	mapset "github.com/deckarep/golang-set/v2"
)

// NodeID addresses a node inside a Tree.
type NodeID int32

// NoNode marks a missing child or extra parent.
const NoNode NodeID = -1

type node struct {
	rng         utils.Range
	left        NodeID
	right       NodeID
	extraParent NodeID
	extra       bool
}

type Tree struct {
	nodes     []node
	root      NodeID
	leafCount int
}

func (t *Tree) newNode(r utils.Range, left, right NodeID, extra bool) NodeID {
	t.nodes = append(t.nodes, node{rng: r, left: left, right: right, extraParent: NoNode, extra: extra})
	return NodeID(len(t.nodes) - 1)
}

// MaxLeaves bounds the leaf count of one tree. A tree holds up to four nodes
// per leaf.
const MaxLeaves = 1 << 22

// BuildDomain builds a tree whose leaves are every value of domain.
func BuildDomain(domain utils.Range) (*Tree, error) {
	if domain.Start > domain.End {
		return nil, fmt.Errorf("%w: %s", utils.ErrInvalidRange, domain)
	}
	// End-Start does not wrap, unlike Size on the full uint64 domain
	if domain.End-domain.Start >= MaxLeaves {
		return nil, fmt.Errorf("%w: %s spans more than %d values", utils.ErrDomainTooLarge, domain, MaxLeaves)
	}
	leaves := make([]utils.Range, 0, domain.Size())
	for v := domain.Start; ; v++ {
		leaves = append(leaves, utils.Unit(v))
		if v == domain.End {
			break
		}
	}
	return Build(leaves)
}

// Build constructs the tree over disjoint unit leaves covering a contiguous domain.
func Build(leaves []utils.Range) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, utils.ErrEmptyDomain
	}
	if len(leaves) > MaxLeaves {
		return nil, fmt.Errorf("%w: %d leaves, at most %d", utils.ErrDomainTooLarge, len(leaves), MaxLeaves)
	}
	sorted := slices.Clone(leaves)
	slices.SortFunc(sorted, func(a, b utils.Range) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	for i, l := range sorted {
		if !l.IsUnit() {
			return nil, fmt.Errorf("%w: leaf %s is not a unit range", utils.ErrInvalidDomain, l)
		}
		if i > 0 && sorted[i-1].End+1 != l.Start {
			return nil, fmt.Errorf("%w: leaves %s and %s are not contiguous", utils.ErrInvalidDomain, sorted[i-1], l)
		}
	}

	t := &Tree{
		nodes:     make([]node, 0, 4*len(sorted)),
		leafCount: len(sorted),
	}
	queue := make([]NodeID, 0, len(sorted))
	for _, l := range sorted {
		queue = append(queue, t.newNode(l, NoNode, NoNode, false))
	}

	for len(queue) > 1 {
		current := queue[0]
		queue = queue[1:]

		partner := -1
		if t.adjacent(current, queue[0]) {
			partner = 0
		} else if last := len(queue) - 1; t.adjacent(current, queue[last]) {
			partner = last
		} else {
			for i := 1; i < len(queue)-1; i++ {
				if t.adjacent(current, queue[i]) {
					partner = i
					break
				}
			}
		}
		if partner < 0 {
			// a contiguous domain always has a partner; keep the node moving
			queue = append(queue, current)
			continue
		}

		other := queue[partner]
		queue = slices.Delete(queue, partner, partner+1)
		left, right := current, other
		if t.nodes[other].rng.Less(t.nodes[current].rng) {
			left, right = other, current
		}
		parent := t.newNode(t.nodes[left].rng.Union(t.nodes[right].rng), left, right, false)
		queue = append(queue, parent)
	}
	t.root = queue[0]
	t.addExtraParents()
	return t, nil
}

func (t *Tree) adjacent(a, b NodeID) bool {
	return t.nodes[a].rng.IsAdjacent(t.nodes[b].rng)
}

func (t *Tree) hasTwoChildren(id NodeID) bool {
	return t.nodes[id].left != NoNode && t.nodes[id].right != NoNode
}

// addExtraParents visits the tree nodes in preorder; extra nodes created on the
// way are checked too but never descended into, their children are tree nodes.
func (t *Tree) addExtraParents() {
	type item struct {
		id      NodeID
		descend bool
	}
	stack := []item{{id: t.root, descend: true}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.nodes[it.id]
		if !t.hasTwoChildren(it.id) {
			continue
		}
		if t.hasTwoChildren(n.left) && t.hasTwoChildren(n.right) {
			inner1 := t.nodes[n.left].right
			inner2 := t.nodes[n.right].left
			if t.hasTwoChildren(inner1) && t.hasTwoChildren(inner2) &&
				t.nodes[inner1].extraParent == NoNode && t.nodes[inner2].extraParent == NoNode {
				r := t.nodes[inner1].rng.Union(t.nodes[inner2].rng)
				extra := t.newNode(r, inner1, inner2, true)
				t.nodes[inner1].extraParent = extra
				t.nodes[inner2].extraParent = extra
				stack = append(stack, item{id: extra, descend: false})
			}
		}
		if it.descend {
			stack = append(stack, item{id: n.right, descend: true}, item{id: n.left, descend: true})
		}
	}
}

// FindCover returns the node whose range contains q with the least excess.
func (t *Tree) FindCover(q utils.Range) (NodeID, bool) {
	if t.nodes[t.root].rng.IsDisjointFrom(q) {
		return NoNode, false
	}
	c := t.cover(t.root, q, true)
	return c.id, c.id != NoNode
}

type candidate struct {
	id     NodeID
	excess uint64
	exact  bool
}

var notFound = candidate{id: NoNode}

func (c *candidate) offer(other candidate) {
	if other.id == NoNode {
		return
	}
	if c.id == NoNode || other.excess < c.excess {
		*c = other
	}
}

func (t *Tree) cover(id NodeID, q utils.Range, descend bool) candidate {
	n := t.nodes[id]
	if n.rng.IsDisjointFrom(q) {
		return notFound
	}

	best := notFound
	if n.rng.Contains(q) {
		best = candidate{id: id, excess: n.rng.Excess(q), exact: n.rng == q}
		if best.exact {
			return best
		}
	}
	if n.extraParent != NoNode {
		c := t.cover(n.extraParent, q, false)
		if c.exact {
			return c
		}
		best.offer(c)
	}
	if !descend || n.rng.Size() < q.Size() {
		return best
	}
	for _, child := range []NodeID{n.left, n.right} {
		if child == NoNode {
			continue
		}
		c := t.cover(child, q, true)
		if c.exact {
			return c
		}
		best.offer(c)
	}
	return best
}

// CoveringNodes returns every node, extra parents included, whose range
// contains leaf. The root comes first.
func (t *Tree) CoveringNodes(leaf utils.Range) []NodeID {
	if !t.nodes[t.root].rng.Contains(leaf) {
		return nil
	}
	seen := mapset.NewThreadUnsafeSet[NodeID]()
	var out []NodeID
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !seen.Add(id) {
			continue
		}
		out = append(out, id)

		n := t.nodes[id]
		next := []NodeID{n.right, n.left, n.extraParent}
		if n.extra {
			next = []NodeID{n.extraParent}
		}
		for _, c := range next {
			if c != NoNode && t.nodes[c].rng.Contains(leaf) {
				stack = append(stack, c)
			}
		}
	}
	return out
}

func (t *Tree) Root() NodeID { return t.root }

func (t *Tree) Domain() utils.Range { return t.nodes[t.root].rng }

func (t *Tree) Range(id NodeID) utils.Range { return t.nodes[id].rng }

func (t *Tree) Left(id NodeID) NodeID { return t.nodes[id].left }

func (t *Tree) Right(id NodeID) NodeID { return t.nodes[id].right }

func (t *Tree) ExtraParent(id NodeID) NodeID { return t.nodes[id].extraParent }

// IsExtra reports whether id was created by the extra-parent augmentation.
func (t *Tree) IsExtra(id NodeID) bool { return t.nodes[id].extra }

func (t *Tree) IsLeaf(id NodeID) bool {
	return t.nodes[id].left == NoNode && t.nodes[id].right == NoNode
}

// Len counts every node, extra parents included.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) LeafCount() int { return t.leafCount }

// Walk calls fn for every node in creation order until fn returns false.
func (t *Tree) Walk(fn func(id NodeID, r utils.Range) bool) {
	for i := range t.nodes {
		if !fn(NodeID(i), t.nodes[i].rng) {
			return
		}
	}
}

// Height is the longest root-to-leaf path over tree edges.
func (t *Tree) Height() int {
	var height func(id NodeID) int
	height = func(id NodeID) int {
		if id == NoNode || t.IsLeaf(id) {
			return 0
		}
		return 1 + max(height(t.nodes[id].left), height(t.nodes[id].right))
	}
	return height(t.root)
}
