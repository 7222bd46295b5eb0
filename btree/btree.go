package btree

import (
	"github.com/alxdb/nvtree/consts"
	"github.com/alxdb/nvtree/errors"
	"github.com/alxdb/nvtree/region"
)

// Config is the tree's structural configuration: the same values
// stamped into the region's superblock at create time.
type Config = region.Config

// Tree is a B+-tree over the blocks of a region.Manager. It carries
// no state beyond an item-count cache; the region's root_offset field
// is the tree's only source of truth.
type Tree struct {
	mgr  *region.Manager
	cfg  Config
	size int64
}

// New wraps a freshly created, empty region in a Tree. The region's
// root_offset starts at consts.NullOffset; the first Insert allocates
// the first leaf and installs it as root.
func New(mgr *region.Manager) (*Tree, error) {
	return &Tree{mgr: mgr, cfg: mgr.Config()}, nil
}

// Open wraps an existing region, restoring the in-memory item count
// by walking the leaf chain once.
func Open(mgr *region.Manager) (*Tree, error) {
	t := &Tree{mgr: mgr, cfg: mgr.Config()}
	n, err := t.countEntries()
	if err != nil {
		return nil, err
	}
	t.size = n
	return t, nil
}

// RootOffset returns the persisted root of the tree, or
// consts.NullOffset if it is empty.
func (t *Tree) RootOffset() uint64 {
	return t.mgr.RootOffset()
}

// Size returns the number of live key-value pairs, maintained
// incrementally across Insert and Erase.
func (t *Tree) Size() int64 {
	return t.size
}

func (t *Tree) block(off uint64) []byte {
	return t.mgr.Block(off)
}

// persist recomputes a node's CRC, flushes+fences the whole block, and
// refreshes the region's whole-region checksum - the commit every
// split and internal-node mutation ends with, mirroring the original
// C++ persist_node's unconditional refresh after every node write.
func (t *Tree) persist(block []byte) error {
	setCRC(block, computeCRC(block))
	if err := t.mgr.PersistBytes(block); err != nil {
		return err
	}
	return t.mgr.UpdatePersistedChecksum()
}

// allocLeaf allocates a fresh block, tags it a leaf, and zeroes its
// header and next_leaf pointer.
func (t *Tree) allocLeaf() (uint64, *leafView, error) {
	off, err := t.mgr.AllocBlock()
	if err != nil {
		return 0, nil, err
	}
	block := t.block(off)
	initNode(block, consts.LEAF)
	v := newLeafView(block, t.cfg)
	v.setNextLeaf(consts.NullOffset)
	return off, v, nil
}

// allocInternal allocates a fresh block and tags it internal.
func (t *Tree) allocInternal() (uint64, *internalView, error) {
	off, err := t.mgr.AllocBlock()
	if err != nil {
		return 0, nil, err
	}
	block := t.block(off)
	initNode(block, consts.INTERNAL)
	v := newInternalView(block, t.cfg)
	return off, v, nil
}

func (t *Tree) leftmostLeaf(root uint64) uint64 {
	off := root
	for {
		block := t.block(off)
		if isLeaf(block) {
			return off
		}
		off = newInternalView(block, t.cfg).child(0)
	}
}

func (t *Tree) countEntries() (int64, error) {
	root := t.RootOffset()
	if root == consts.NullOffset {
		return 0, nil
	}
	var n int64
	off := t.leftmostLeaf(root)
	for off != consts.NullOffset {
		v := newLeafView(t.block(off), t.cfg)
		n += int64(v.keyCount())
		off = v.nextLeaf()
	}
	return n, nil
}

// childIndex returns the index of the child an internal node routes
// key to, under the convention key >= keys[i] advances the index: the
// largest i such that key >= keys[i-1], i.e. the first i with key <
// keys[i].
func childIndex(v *internalView, key int32) int {
	n := int(v.keyCount())
	i := 0
	for i < n && key >= v.key(i) {
		i++
	}
	return i
}

var errCorrupt = errors.Errorf("btree: node failed verification")
