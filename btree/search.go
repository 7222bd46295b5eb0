package btree

import "github.com/alxdb/nvtree/consts"

// Search descends from the root using the key >= keys[i] -> go right
// convention, then linearly scans the leaf's unsorted entries for an
// exact match. It performs no writes and no fences.
func (t *Tree) Search(key int32) (int32, bool) {
	root := t.RootOffset()
	if root == consts.NullOffset {
		return 0, false
	}
	off := root
	for {
		block := t.block(off)
		if isLeaf(block) {
			return scanLeaf(newLeafView(block, t.cfg), key)
		}
		v := newInternalView(block, t.cfg)
		off = v.child(childIndex(v, key))
	}
}

func scanLeaf(v *leafView, key int32) (int32, bool) {
	n := int(v.keyCount())
	for i := 0; i < n; i++ {
		k, val := v.entry(i)
		if k == key {
			return val, true
		}
	}
	return 0, false
}
