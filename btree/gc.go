package btree

import (
	"github.com/alxdb/nvtree/consts"
	"github.com/alxdb/nvtree/region"
)

// markFrom marks off and everything reachable from it (children for
// an internal node, next_leaf for a leaf) in seen, indexed by block
// number. The tree is acyclic and the leaf chain singly linked
// left-to-right, so this always terminates.
func markFrom(mgr *region.Manager, cfg Config, off uint64, seen []bool, blockSize uint64) {
	idx := off / blockSize
	if seen[idx] {
		return
	}
	seen[idx] = true

	block := mgr.Block(off)
	if isLeaf(block) {
		v := newLeafView(block, cfg)
		if next := v.nextLeaf(); next != consts.NullOffset {
			markFrom(mgr, cfg, next, seen, blockSize)
		}
		return
	}
	v := newInternalView(block, cfg)
	n := int(v.keyCount())
	for i := 0; i <= n; i++ {
		if c := v.child(i); c != consts.NullOffset {
			markFrom(mgr, cfg, c, seen, blockSize)
		}
	}
}

// Collect runs a single mark-sweep pass over mgr's allocation bitmap:
// every block reachable from root is kept, every other allocated block
// is freed. Callers must serialize Collect against Insert/Erase -
// running it mid-split, after the new leaf is allocated but before its
// parent's pivot is installed, would reclaim the new leaf out from
// under the insert still in flight; this package does no internal
// locking to enforce that.
func Collect(mgr *region.Manager, root uint64, cfg Config) (marked, freed int, err error) {
	blockSize := mgr.BlockSize()
	blockCount := mgr.BlockCount()
	seen := make([]bool, blockCount)
	for i := uint64(0); i < mgr.ReservedBlocks(); i++ {
		seen[i] = true
	}
	if root != consts.NullOffset {
		markFrom(mgr, cfg, root, seen, blockSize)
	}
	for _, b := range seen {
		if b {
			marked++
		}
	}

	for i := uint64(0); i < blockCount; i++ {
		if seen[i] || !mgr.BlockAllocated(i) {
			continue
		}
		if err := mgr.FreeBlock(i * blockSize); err != nil {
			return marked, freed, err
		}
		freed++
	}

	if freed > 0 {
		if err := mgr.UpdatePersistedChecksum(); err != nil {
			return marked, freed, err
		}
		mgr.LogGC(marked, freed)
	}
	return marked, freed, nil
}
