// Package consts holds the handful of constants shared across the
// region manager and the B+-tree that must agree on wire layout.
package consts

// Flag is a bitset stored in a single byte at the head of every node
// block.
type Flag uint8

const (
	INTERNAL Flag = 1 << iota
	LEAF
)

// BLOCKSIZE is the default block size for a fresh region. Regions may
// be created with a different block size, but it must always be a
// multiple of 8 so every sub-array in a node stays naturally aligned.
const BLOCKSIZE = 4096

// MAGIC identifies a valid region superblock. It is the ASCII bytes
// "ATREE" read as a big-endian number; stored as a little-endian
// uint64, the superblock's first five bytes read "EERTA".
const MAGIC uint64 = 0x4154524545

// Version is the on-disk superblock format version this package
// writes and expects to read back.
const Version uint32 = 1

// NullOffset is the sentinel for "no block" - offset 0 is always the
// superblock, so no tree node is ever placed there.
const NullOffset uint64 = 0
