// Package btree implements the offset-addressed B+-tree over a
// region.Manager: unsorted-append leaves chained by next_leaf,
// shadow-split on overflow, lazy swap-with-last erase, and the
// mark-sweep collector that reclaims blocks no longer reachable from
// the persisted root.
package btree

import (
	"fmt"
	"hash/crc32"

	"github.com/alxdb/nvtree/consts"
	"github.com/alxdb/nvtree/region"
	"github.com/alxdb/nvtree/slice"
)

// headerSize is the fixed 16-byte header every node block begins
// with: 1-byte flag, 3-byte pad, 4-byte key count, 4-byte CRC, 4-byte
// pad.
const headerSize = 16

const (
	flagOffset     = 0
	keyCountOffset = 4
	crcOffset      = 8
	crcLen         = 4
)

func flagOf(block []byte) consts.Flag {
	return consts.Flag(block[flagOffset])
}

func isLeaf(block []byte) bool {
	return flagOf(block)&consts.LEAF != 0
}

// computeCRC runs CRC-32/IEEE over block with the 4-byte checksum
// field itself excluded from the input: the two halves of the block
// on either side of the field are fed through the same running
// checksum rather than the field being zeroed, so the CRC depends
// only on bytes that are never self-referential.
func computeCRC(block []byte) uint32 {
	c := crc32.Update(0, crc32.IEEETable, block[:crcOffset])
	c = crc32.Update(c, crc32.IEEETable, block[crcOffset+crcLen:])
	return c
}

func storedCRC(block []byte) uint32 {
	return *slice.Uint32At(block, crcOffset)
}

func setCRC(block []byte, c uint32) {
	*slice.Uint32At(block, crcOffset) = c
}

// verifyCRC reports whether block's stored checksum matches a fresh
// computation.
func verifyCRC(block []byte) bool {
	return storedCRC(block) == computeCRC(block)
}

func keyCountOf(block []byte) *uint32 {
	return slice.Uint32At(block, keyCountOffset)
}

// internalView is a typed accessor over an internal node's payload:
// up to cfg.MaxKeys sorted int32 keys followed, 8-byte aligned, by up
// to cfg.MaxKeys+1 uint64 child offsets.
type internalView struct {
	back []byte
	cfg  region.Config
}

func newInternalView(block []byte, cfg region.Config) *internalView {
	return &internalView{back: block, cfg: cfg}
}

func (v *internalView) childrenOffset() int {
	return align8(headerSize + int(v.cfg.MaxKeys)*4)
}

func (v *internalView) keyCount() uint32 {
	return *keyCountOf(v.back)
}

func (v *internalView) setKeyCount(n uint32) {
	*keyCountOf(v.back) = n
}

func (v *internalView) key(i int) int32 {
	return *slice.Int32At(v.back, headerSize+i*4)
}

func (v *internalView) setKey(i int, k int32) {
	*slice.Int32At(v.back, headerSize+i*4) = k
}

func (v *internalView) child(i int) uint64 {
	return *slice.Uint64At(v.back, v.childrenOffset()+i*8)
}

func (v *internalView) setChild(i int, off uint64) {
	*slice.Uint64At(v.back, v.childrenOffset()+i*8) = off
}

func (v *internalView) String() string {
	return fmt.Sprintf("internal(keys=%d)", v.keyCount())
}

// leafView is a typed accessor over a leaf node's payload: up to
// cfg.LeafCapacity (key, value) entries in insertion order, followed
// by a single uint64 next_leaf offset.
type leafView struct {
	back []byte
	cfg  region.Config
}

func newLeafView(block []byte, cfg region.Config) *leafView {
	return &leafView{back: block, cfg: cfg}
}

func (v *leafView) nextLeafOffset() int {
	return headerSize + int(v.cfg.LeafCapacity)*8
}

func (v *leafView) keyCount() uint32 {
	return *keyCountOf(v.back)
}

func (v *leafView) setKeyCount(n uint32) {
	*keyCountOf(v.back) = n
}

func (v *leafView) entry(i int) (key, value int32) {
	off := headerSize + i*8
	return *slice.Int32At(v.back, off), *slice.Int32At(v.back, off+4)
}

func (v *leafView) setEntry(i int, key, value int32) {
	off := headerSize + i*8
	*slice.Int32At(v.back, off) = key
	*slice.Int32At(v.back, off+4) = value
}

func (v *leafView) nextLeaf() uint64 {
	return *slice.Uint64At(v.back, v.nextLeafOffset())
}

func (v *leafView) setNextLeaf(off uint64) {
	*slice.Uint64At(v.back, v.nextLeafOffset()) = off
}

func (v *leafView) String() string {
	return fmt.Sprintf("leaf(keys=%d, next=%#x)", v.keyCount(), v.nextLeaf())
}

func align8(n int) int {
	return (n + 7) &^ 7
}

func initNode(block []byte, flag consts.Flag) {
	for i := range block[:headerSize] {
		block[i] = 0
	}
	block[flagOffset] = byte(flag)
}
