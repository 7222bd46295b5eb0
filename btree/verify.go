package btree

import "github.com/alxdb/nvtree/consts"

// Verify walks the tree from its root and checks the structural
// invariants of every visited node: the stored CRC matches a fresh
// computation, key_count never exceeds the node's capacity, and no
// internal node has a null child. The CRC covers the whole block
// except its own field, so a changed key or value byte fails it too.
// It does not check key ordering within a leaf (leaves are unsorted by
// design).
func (t *Tree) Verify() error {
	root := t.RootOffset()
	if root == consts.NullOffset {
		return nil
	}
	return t.verify(root)
}

func (t *Tree) verify(off uint64) error {
	block := t.block(off)
	if !verifyCRC(block) {
		return errCorrupt
	}
	if isLeaf(block) {
		v := newLeafView(block, t.cfg)
		if v.keyCount() > t.cfg.LeafCapacity {
			return errCorrupt
		}
		return nil
	}
	v := newInternalView(block, t.cfg)
	if v.keyCount() > t.cfg.MaxKeys {
		return errCorrupt
	}
	n := int(v.keyCount())
	for i := 0; i <= n; i++ {
		child := v.child(i)
		if child == consts.NullOffset {
			return errCorrupt
		}
		if err := t.verify(child); err != nil {
			return err
		}
	}
	return nil
}
