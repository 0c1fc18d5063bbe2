// Package revmap implements C4, the persistent monotone source-rev →
// target-rev mapping (§4.4). Lookups use "largest key ≤ s" (floor)
// semantics, which is what lets the add/copy planner translate a
// copy-from revision that points at an unchanged ancestor revision into
// the right target revision.
package revmap

import (
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// Map is a monotone source-rev → target-rev mapping: src1 < src2 implies
// map(src1) < map(src2) (§3 invariant). It contains exactly one entry per
// already-replayed source revision.
type Map struct {
	tree *redblacktree.Tree
}

// New returns an empty revision map.
func New() *Map {
	return &Map{tree: redblacktree.NewWith(utils.IntComparator)}
}

// Insert records that source revision src was replayed as target
// revision tgt. Called once per successful commit (§4.4 "Incremental").
func (m *Map) Insert(src, tgt int) {
	m.tree.Put(src, tgt)
}

// Get returns map(r) for the largest r <= s present in the map, or
// (0, false) if s precedes the first replayed revision.
func (m *Map) Get(s int) (int, bool) {
	node, found := m.tree.Floor(s)
	if !found {
		return 0, false
	}
	return node.Value.(int), true
}

// Last returns the largest source revision recorded, or (0, false) if the
// map is empty. Used by the orchestrator to determine the resume point.
func (m *Map) Last() (int, bool) {
	if m.tree.Size() == 0 {
		return 0, false
	}
	node := m.tree.Right()
	return node.Key.(int), true
}

// Size returns the number of replayed revisions recorded.
func (m *Map) Size() int {
	return m.tree.Size()
}

// Each calls fn for every (src, tgt) pair in ascending source-revision
// order. Used by tests.
func (m *Map) Each(fn func(src, tgt int)) {
	it := m.tree.Iterator()
	for it.Next() {
		fn(it.Key().(int), it.Value().(int))
	}
}
