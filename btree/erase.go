package btree

import "github.com/alxdb/nvtree/consts"

// Erase removes key via lazy swap-with-last: the leaf never merges or
// rebalances, so erase touches exactly one leaf and never its parent.
func (t *Tree) Erase(key int32) (bool, error) {
	root := t.RootOffset()
	if root == consts.NullOffset {
		return false, nil
	}
	off := root
	for {
		block := t.block(off)
		if isLeaf(block) {
			ok, err := t.eraseFromLeaf(newLeafView(block, t.cfg), key)
			if ok {
				t.size--
			}
			return ok, err
		}
		v := newInternalView(block, t.cfg)
		off = v.child(childIndex(v, key))
	}
}

func (t *Tree) eraseFromLeaf(v *leafView, key int32) (bool, error) {
	n := int(v.keyCount())
	idx := -1
	for i := 0; i < n; i++ {
		k, _ := v.entry(i)
		if k == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	last := n - 1
	if idx != last {
		lk, lv := v.entry(last)
		v.setEntry(idx, lk, lv)
		off := headerSize + idx*8
		if err := t.mgr.PersistBytes(v.back[off : off+8]); err != nil {
			return false, err
		}
	}
	v.setKeyCount(uint32(last))
	setCRC(v.back, computeCRC(v.back))
	if err := t.mgr.PersistBytes(v.back[:headerSize]); err != nil {
		return false, err
	}
	if err := t.mgr.UpdatePersistedChecksum(); err != nil {
		return false, err
	}
	return true, nil
}
