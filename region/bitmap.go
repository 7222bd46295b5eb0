package region

import (
	"math/bits"

	"github.com/alxdb/nvtree/slice"
)

// bitmap is a typed view over the allocation bitmap: contiguous
// 64-bit words immediately following the superblock, bit i set iff
// block i is allocated, bits numbered LSB-first within each word.
type bitmap struct {
	words []uint64
}

// bitmapWords returns how many 64-bit words a bitmap covering
// blockCount blocks needs.
func bitmapWords(blockCount uint64) uint64 {
	return (blockCount + 63) / 64
}

// bitmapBytes returns how many bytes a bitmap covering blockCount
// blocks occupies, rounded up to a whole 64-bit word.
func bitmapBytes(blockCount uint64) uint64 {
	return bitmapWords(blockCount) * 8
}

func asBitmap(back []byte, blockCount uint64) *bitmap {
	n := int(bitmapWords(blockCount))
	s := slice.AsSlice(&back)
	s.Len = n
	s.Cap = n
	return &bitmap{words: *s.AsUint64s()}
}

func (b *bitmap) get(i uint64) bool {
	return b.words[i/64]&(1<<(i%64)) != 0
}

func (b *bitmap) set(i uint64) {
	b.words[i/64] |= 1 << (i % 64)
}

func (b *bitmap) clear(i uint64) {
	b.words[i/64] &^= 1 << (i % 64)
}

// popcount returns the number of set bits, i.e. the number of
// allocated blocks.
func (b *bitmap) popcount() uint64 {
	var n uint64
	for _, w := range b.words {
		n += uint64(bits.OnesCount64(w))
	}
	return n
}

// firstFree scans the bitmap words left to right for the first word
// that is not all-ones, then returns the index of its lowest zero bit
// via the count-trailing-zeros of the inverted word. ok is false if
// every block is allocated.
func (b *bitmap) firstFree() (index uint64, ok bool) {
	for wi, w := range b.words {
		if w == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^w)
		return uint64(wi)*64 + uint64(bit), true
	}
	return 0, false
}
