package region

import (
	"math/bits"

	"github.com/alxdb/nvtree/slice"
)

// checksumOffset is the byte offset of the checksum field within the
// superblock (see superblock.go), skipped by wholeRegionChecksum so
// the field can live inside the region it covers.
const checksumOffset = 56

// wholeRegionChecksum computes the whole-region integrity checksum:
// the XOR, over every 8-byte word of data, of that word rotated left
// by one bit - except the word holding the checksum field itself,
// which is skipped entirely. len(data) must be a multiple of 8.
//
// A zero word (common in an unused tail of a block) contributes
// nothing. A word with a single set bit contributes according to the
// bit's position within the word but not according to which word
// holds it, so moving a set bit to the same position in another word
// leaves the checksum unchanged.
func wholeRegionChecksum(data []byte) uint64 {
	var sum uint64
	n := len(data) / 8
	s := slice.AsSlice(&data)
	s.Len = n
	s.Cap = n
	words := *s.AsUint64s()
	for i := range words {
		off := i * 8
		if off == checksumOffset {
			continue
		}
		sum ^= bits.RotateLeft64(words[i], 1)
	}
	return sum
}
