package btree

import (
	"sort"

	"github.com/alxdb/nvtree/consts"
	"github.com/alxdb/nvtree/durability"
	"github.com/alxdb/nvtree/slice"
)

// Insert writes key -> value, splitting leaves and internal nodes
// bottom-up as needed and growing the tree's height when the root
// itself splits.
func (t *Tree) Insert(key, value int32) error {
	root := t.RootOffset()
	if root == consts.NullOffset {
		off, leaf, err := t.allocLeaf()
		if err != nil {
			return err
		}
		if err := t.insertIntoLeaf(leaf, key, value); err != nil {
			return err
		}
		t.size++
		return t.mgr.SetRootOffset(off)
	}

	splitKey, newOff, didSplit, err := t.insertRecursive(root, key, value)
	if err != nil {
		return err
	}
	if !didSplit {
		return nil
	}

	rootOff, rootNode, err := t.allocInternal()
	if err != nil {
		return err
	}
	rootNode.setKey(0, splitKey)
	rootNode.setChild(0, root)
	rootNode.setChild(1, newOff)
	rootNode.setKeyCount(1)
	if err := t.persist(rootNode.back); err != nil {
		return err
	}
	return t.mgr.SetRootOffset(rootOff)
}

// insertRecursive descends to the leaf that should hold key,
// splitting it (and, on the way back up, any full ancestor) as
// needed. didSplit reports whether off's node split; splitKey and
// newOff are the pivot the caller (off's parent) must install.
func (t *Tree) insertRecursive(off uint64, key, value int32) (splitKey int32, newOff uint64, didSplit bool, err error) {
	block := t.block(off)
	if isLeaf(block) {
		v := newLeafView(block, t.cfg)
		if v.keyCount() < t.cfg.LeafCapacity {
			if err := t.insertIntoLeaf(v, key, value); err != nil {
				return 0, 0, false, err
			}
			t.size++
			return 0, 0, false, nil
		}
		sk, rightOff, err := t.splitLeaf(off, v)
		if err != nil {
			return 0, 0, false, err
		}
		target := v
		if key >= sk {
			target = newLeafView(t.block(rightOff), t.cfg)
		}
		if err := t.insertIntoLeaf(target, key, value); err != nil {
			return 0, 0, false, err
		}
		t.size++
		return sk, rightOff, true, nil
	}

	v := newInternalView(block, t.cfg)
	idx := childIndex(v, key)
	childOff := v.child(idx)
	sk, newChildOff, childSplit, err := t.insertRecursive(childOff, key, value)
	if err != nil {
		return 0, 0, false, err
	}
	if !childSplit {
		return 0, 0, false, nil
	}
	if v.keyCount() < t.cfg.MaxKeys {
		insertPivot(v, idx, sk, newChildOff)
		if err := t.persist(v.back); err != nil {
			return 0, 0, false, err
		}
		return 0, 0, false, nil
	}
	promoted, rightOff, err := t.splitInternal(off, v, idx, sk, newChildOff)
	if err != nil {
		return 0, 0, false, err
	}
	return promoted, rightOff, true, nil
}

// insertIntoLeaf appends the entry, persists it, then bumps and
// persists the count that makes it visible: the entry is durable
// before the count that exposes it, so a crash between the two leaves
// a valid leaf either with or without the new entry, never with a
// torn one.
func (t *Tree) insertIntoLeaf(v *leafView, key, value int32) error {
	n := int(v.keyCount())
	v.setEntry(n, key, value)
	entryOff := headerSize + n*8
	if err := t.mgr.PersistBytes(v.back[entryOff : entryOff+8]); err != nil {
		return err
	}
	v.setKeyCount(uint32(n + 1))
	setCRC(v.back, computeCRC(v.back))
	if err := t.mgr.PersistBytes(v.back[:headerSize]); err != nil {
		return err
	}
	return t.mgr.UpdatePersistedChecksum()
}

// insertPivot shifts keys/children right of idx by one slot and
// installs pivot/rightChild into the freed slot.
func insertPivot(v *internalView, idx int, pivot int32, rightChild uint64) {
	n := int(v.keyCount())
	for j := n; j > idx; j-- {
		v.setKey(j, v.key(j-1))
	}
	for j := n + 1; j > idx+1; j-- {
		v.setChild(j, v.child(j-1))
	}
	v.setKey(idx, pivot)
	v.setChild(idx+1, rightChild)
	v.setKeyCount(uint32(n + 1))
}

type leafEntry struct {
	key, value int32
}

// splitLeaf shadow-splits old: allocate a sibling, sort the entries
// into a scratch buffer (the leaf itself is unsorted), fill and
// persist the new right half, atomically splice it into the leaf
// chain, then shrink and persist the old leaf. The new leaf is fully
// durable before the pointer that makes it reachable is published, so
// a crash mid-split leaves the old leaf, not a dangling reference.
func (t *Tree) splitLeaf(oldOff uint64, old *leafView) (splitKey int32, newOff uint64, err error) {
	newOff, newLeaf, err := t.allocLeaf()
	if err != nil {
		return 0, 0, err
	}

	total := int(old.keyCount())
	buf := make([]leafEntry, total)
	for i := 0; i < total; i++ {
		k, val := old.entry(i)
		buf[i] = leafEntry{k, val}
	}
	sort.Slice(buf, func(i, j int) bool { return buf[i].key < buf[j].key })

	mid := total / 2
	for i := mid; i < total; i++ {
		newLeaf.setEntry(i-mid, buf[i].key, buf[i].value)
	}
	newLeaf.setKeyCount(uint32(total - mid))
	splitKey = buf[mid].key
	newLeaf.setNextLeaf(old.nextLeaf())
	if err := t.persist(newLeaf.back); err != nil {
		return 0, 0, err
	}

	nextOff := old.nextLeafOffset()
	durability.AtomicSwapU64(slice.Uint64At(old.back, nextOff), newOff)
	if err := t.mgr.PersistBytes(old.back[nextOff : nextOff+8]); err != nil {
		return 0, 0, err
	}

	for i := 0; i < mid; i++ {
		old.setEntry(i, buf[i].key, buf[i].value)
	}
	old.setKeyCount(uint32(mid))
	if err := t.persist(old.back); err != nil {
		return 0, 0, err
	}
	return splitKey, newOff, nil
}

// splitInternal inserts pivot/rightChild into a conceptually
// oversized copy of old's key/child arrays, then divides that copy
// across old and a fresh sibling, promoting the middle key.
func (t *Tree) splitInternal(oldOff uint64, old *internalView, idx int, pivot int32, rightChild uint64) (splitKey int32, newOff uint64, err error) {
	n := int(old.keyCount())
	keys := make([]int32, n+1)
	children := make([]uint64, n+2)

	ki := 0
	for i := 0; i <= n; i++ {
		if i == idx {
			keys[ki] = pivot
			ki++
		}
		if i < n {
			keys[ki] = old.key(i)
			ki++
		}
	}
	ci := 0
	for i := 0; i <= n+1; i++ {
		if i == idx+1 {
			children[ci] = rightChild
			ci++
		}
		if i <= n {
			children[ci] = old.child(i)
			ci++
		}
	}

	mid := (n + 1) / 2
	splitKey = keys[mid]

	newOff, newNode, err := t.allocInternal()
	if err != nil {
		return 0, 0, err
	}
	rn := n - mid
	for i := 0; i < rn; i++ {
		newNode.setKey(i, keys[mid+1+i])
	}
	for i := 0; i < rn+1; i++ {
		newNode.setChild(i, children[mid+1+i])
	}
	newNode.setKeyCount(uint32(rn))
	if err := t.persist(newNode.back); err != nil {
		return 0, 0, err
	}

	for i := 0; i < mid; i++ {
		old.setKey(i, keys[i])
	}
	for i := 0; i < mid+1; i++ {
		old.setChild(i, children[i])
	}
	old.setKeyCount(uint32(mid))
	if err := t.persist(old.back); err != nil {
		return 0, 0, err
	}
	return splitKey, newOff, nil
}
