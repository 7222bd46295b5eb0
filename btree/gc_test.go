package btree

import (
	"testing"

	"github.com/alxdb/nvtree/consts"
)

// after a split-heavy workload, collecting leaves only root-reachable
// blocks allocated (any orphan is reclaimed), and a second
// back-to-back collect frees nothing.
func TestCollectReclaimsOrphans(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(splitCfg)
	defer cleanup()

	for i := int32(1); i <= 50; i++ {
		t.assert_nil(tr.Insert(i, i*10))
	}
	for i := int32(10); i <= 20; i++ {
		_, err := tr.Erase(i)
		t.assert_nil(err)
	}

	marked, freed, err := Collect(tr.mgr, tr.RootOffset(), tr.cfg)
	t.assert_nil(err)
	t.assert("freed >= 0", freed >= 0)
	t.assert("marked > 0", marked > 0)

	assertReachabilityClosure(t, tr)

	_, freed2, err := Collect(tr.mgr, tr.RootOffset(), tr.cfg)
	t.assert_nil(err)
	t.assert("second collect frees nothing", freed2 == 0)
}

// every allocated block is either reserved or reachable from root.
func assertReachabilityClosure(t *T, tr *Tree) {
	blockSize := tr.mgr.BlockSize()
	blockCount := tr.mgr.BlockCount()
	seen := make([]bool, blockCount)
	for i := uint64(0); i < tr.mgr.ReservedBlocks(); i++ {
		seen[i] = true
	}
	if root := tr.RootOffset(); root != consts.NullOffset {
		markFrom(tr.mgr, tr.cfg, root, seen, blockSize)
	}
	for i := uint64(0); i < blockCount; i++ {
		if tr.mgr.BlockAllocated(i) {
			t.assert("allocated block is reachable", seen[i])
		}
	}
}

// the stored whole-region checksum always matches a fresh
// recomputation at a quiescent point.
func TestChecksumRoundTrip(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(testCfg)
	defer cleanup()

	for i := int32(0); i < 40; i++ {
		t.assert_nil(tr.Insert(i, i))
	}
	t.assert("checksum round-trips", tr.mgr.VerifyChecksum())

	_, err := tr.Erase(5)
	t.assert_nil(err)
	t.assert("checksum round-trips after erase", tr.mgr.VerifyChecksum())
}

// every live node's stored CRC matches a fresh computation over its
// bytes.
func TestPerNodeCRC(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(splitCfg)
	defer cleanup()

	for i := int32(1); i <= 50; i++ {
		t.assert_nil(tr.Insert(i, i*10))
	}

	blockSize := tr.mgr.BlockSize()
	blockCount := tr.mgr.BlockCount()
	for i := uint64(0); i < blockCount; i++ {
		if !tr.mgr.BlockAllocated(i) || i < tr.mgr.ReservedBlocks() {
			continue
		}
		block := tr.mgr.Block(i * blockSize)
		t.assert("crc verifies", verifyCRC(block))
	}

	t.assert_nil(tr.Verify())
}
