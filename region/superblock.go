package region

import (
	"github.com/alxdb/nvtree/consts"
	"github.com/alxdb/nvtree/slice"
)

// superblockSize is the fixed, 8-byte-aligned size of the header that
// lives at offset 0 of every region. The allocation bitmap begins
// immediately after it.
const superblockSize = 64

// superblock is a typed view over the first superblockSize bytes of a
// mapped region. Every field access goes through this type rather
// than ad-hoc offsets so the layout is defined exactly once.
type superblock struct {
	back []byte
}

func asSuperblock(back []byte) *superblock {
	return &superblock{back: back[:superblockSize]}
}

func (s *superblock) magic() *uint64       { return slice.Uint64At(s.back, 0) }
func (s *superblock) version() *uint32     { return slice.Uint32At(s.back, 8) }
func (s *superblock) rootOffset() *uint64  { return slice.Uint64At(s.back, 16) }
func (s *superblock) blockCount() *uint64  { return slice.Uint64At(s.back, 24) }
func (s *superblock) blockSize() *uint64   { return slice.Uint64At(s.back, 32) }
func (s *superblock) maxKeys() *uint32     { return slice.Uint32At(s.back, 40) }
func (s *superblock) minKeys() *uint32     { return slice.Uint32At(s.back, 44) }
func (s *superblock) leafCapacity() *uint32 { return slice.Uint32At(s.back, 48) }
func (s *superblock) checksum() *uint64    { return slice.Uint64At(s.back, checksumOffset) }

// valid reports whether the superblock's magic tag matches. It does
// not check the whole-region checksum - that requires the full
// mapping and is the caller's job (see Manager.VerifyChecksum).
func (s *superblock) valid() bool {
	return *s.magic() == consts.MAGIC
}
