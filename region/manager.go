// Package region implements the persistent region manager: a single
// memory-mapped backing file divided into fixed-size blocks, with an
// in-region superblock and allocation bitmap, durability primitives,
// and a whole-region integrity checksum.
//
// The mapping is established with a plain syscall.Mmap rather than a
// cgo-backed library, since the region's size is fixed at creation and
// never grows, so no incremental-resize machinery is needed.
package region

import (
	"fmt"
	"log"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/alxdb/nvtree/consts"
	"github.com/alxdb/nvtree/durability"
	"github.com/alxdb/nvtree/errors"
)

// Config is the tree configuration stamped into the superblock at
// create time and reloaded on every open.
type Config struct {
	MaxKeys      uint32
	MinKeys      uint32
	LeafCapacity uint32
}

// Manager owns the mapping of one backing file and the superblock,
// bitmap, and block arena carved out of it.
type Manager struct {
	path       string
	file       *os.File
	data       []byte
	blockSize  uint64
	blockCount uint64
	reserved   uint64 // blocks 0..reserved-1 hold the superblock+bitmap
	logger     *log.Logger
}

// Create truncates path to regionSize, maps it, reserves the blocks
// covering the superblock and bitmap, stamps the magic/version/config,
// and persists the fresh superblock.
func Create(path string, regionSize uint64, blockSize uint32, cfg Config) (*Manager, error) {
	if blockSize == 0 || blockSize%8 != 0 {
		return nil, errors.Errorf("block size must be a positive multiple of 8, got %v", blockSize)
	}
	blockCount := regionSize / uint64(blockSize)
	if blockCount == 0 {
		return nil, errors.Errorf("region too small for even one block")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, wrapOpenFailure(err)
	}
	size := blockCount * uint64(blockSize)
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, wrapOpenFailure(err)
	}
	data, err := mmapFile(f, size)
	if err != nil {
		f.Close()
		return nil, wrapOpenFailure(err)
	}

	reserved := (superblockSize + bitmapBytes(blockCount) + uint64(blockSize) - 1) / uint64(blockSize)

	mgr := &Manager{
		path:       path,
		file:       f,
		data:       data,
		blockSize:  uint64(blockSize),
		blockCount: blockCount,
		reserved:   reserved,
		logger:     log.Default(),
	}

	sb := asSuperblock(mgr.data)
	*sb.magic() = consts.MAGIC
	*sb.version() = consts.Version
	*sb.rootOffset() = consts.NullOffset
	*sb.blockCount() = blockCount
	*sb.blockSize() = uint64(blockSize)
	*sb.maxKeys() = cfg.MaxKeys
	*sb.minKeys() = cfg.MinKeys
	*sb.leafCapacity() = cfg.LeafCapacity

	bm := mgr.bitmap()
	for i := uint64(0); i < reserved; i++ {
		bm.set(i)
	}

	*sb.checksum() = wholeRegionChecksum(mgr.data)
	if err := durability.Persist(mgr.data, addrOf(mgr.data), uintptr(len(mgr.data))); err != nil {
		mgr.Close()
		return nil, errors.Wrap(err)
	}
	return mgr, nil
}

// Open maps an existing region, verifies the superblock magic, and
// recomputes the whole-region checksum to compare against the stored
// value. Recovery is intentionally permissive: a checksum mismatch is
// logged and reported via the second return value rather than failing
// Open, since the caller may still be able to use whatever survived
// the crash.
func Open(path string) (mgr *Manager, integrityOK bool, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	if err != nil {
		return nil, false, wrapOpenFailure(err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, wrapOpenFailure(err)
	}
	size := uint64(fi.Size())
	data, err := mmapFile(f, size)
	if err != nil {
		f.Close()
		return nil, false, wrapOpenFailure(err)
	}

	sb := asSuperblock(data)
	if !sb.valid() {
		munmap(data)
		f.Close()
		return nil, false, errors.Wrap(fmt.Errorf("%w: bad magic", ErrIntegrityFailure))
	}

	blockSize := *sb.blockSize()
	blockCount := *sb.blockCount()
	reserved := (superblockSize + bitmapBytes(blockCount) + blockSize - 1) / blockSize

	mgr = &Manager{
		path:       path,
		file:       f,
		data:       data,
		blockSize:  blockSize,
		blockCount: blockCount,
		reserved:   reserved,
		logger:     log.Default(),
	}

	want := *sb.checksum()
	got := wholeRegionChecksum(mgr.data)
	integrityOK = got == want
	if !integrityOK {
		mgr.logger.Printf("nvtree: integrity failure on open of %s: checksum %#x != stored %#x", path, got, want)
	}
	return mgr, integrityOK, nil
}

// SetLogger overrides the default logger used for integrity-failure
// and GC summary lines.
func (m *Manager) SetLogger(l *log.Logger) {
	m.logger = l
}

// Config returns the tree configuration stamped into the superblock.
func (m *Manager) Config() Config {
	sb := asSuperblock(m.data)
	return Config{
		MaxKeys:      *sb.maxKeys(),
		MinKeys:      *sb.minKeys(),
		LeafCapacity: *sb.leafCapacity(),
	}
}

// BlockSize returns the configured block size in bytes.
func (m *Manager) BlockSize() uint64 {
	return m.blockSize
}

// BlockCount returns the total number of blocks in the region.
func (m *Manager) BlockCount() uint64 {
	return m.blockCount
}

// RootOffset returns the persisted root of the tree, or
// consts.NullOffset if the tree is empty.
func (m *Manager) RootOffset() uint64 {
	return *asSuperblock(m.data).rootOffset()
}

// SetRootOffset stores the new root offset into the superblock,
// recomputes the whole-region checksum, and persists both fields.
// This is the commit point for tree-height growth.
func (m *Manager) SetRootOffset(offset uint64) error {
	sb := asSuperblock(m.data)
	durability.AtomicSwapU64(sb.rootOffset(), offset)
	*sb.checksum() = wholeRegionChecksum(m.data)
	if err := durability.Persist(m.data, addrOf(sb.back), superblockSize); err != nil {
		return errors.Wrap(err)
	}
	return nil
}

// Block returns the []byte view of the block at offset. The returned
// slice aliases the mapping directly; callers must Persist whatever
// they mutate.
func (m *Manager) Block(offset uint64) []byte {
	return m.data[offset : offset+m.blockSize]
}

// Persist flushes and fences the byte range [addr, addr+length)
// within the region's mapping. addr must be a pointer into a slice
// previously returned by Block or the Manager's own superblock.
func (m *Manager) Persist(addr uintptr, length uint64) error {
	return durability.Persist(m.data, addr, uintptr(length))
}

// PersistBytes persists the byte range b, which must be a sub-slice
// of a block returned by Block or of the Manager's own mapping.
func (m *Manager) PersistBytes(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return m.Persist(addrOf(b), uint64(len(b)))
}

func (m *Manager) bitmap() *bitmap {
	return asBitmap(m.data[superblockSize:], m.blockCount)
}

// AllocBlock scans the bitmap for the first free block, marks it
// allocated, and returns its byte offset. The block's contents are
// left undefined; callers must initialize before persisting.
func (m *Manager) AllocBlock() (offset uint64, err error) {
	bm := m.bitmap()
	i, ok := bm.firstFree()
	if !ok {
		return 0, ErrOutOfSpace
	}
	bm.set(i)
	bitmapOff := superblockSize + (i/64)*8
	if err := m.Persist(addrOf(m.data[bitmapOff:bitmapOff+8]), 8); err != nil {
		return 0, errors.Wrap(err)
	}
	return i * m.blockSize, nil
}

// FreeBlock clears the bit for the block containing offset. Freeing
// an already-free block is a no-op. The block's bytes are left
// untouched.
func (m *Manager) FreeBlock(offset uint64) error {
	i := offset / m.blockSize
	bm := m.bitmap()
	if !bm.get(i) {
		return nil
	}
	bm.clear(i)
	bitmapOff := superblockSize + (i/64)*8
	return m.Persist(addrOf(m.data[bitmapOff:bitmapOff+8]), 8)
}

// AllocatedBlocks returns the number of blocks currently marked
// allocated in the bitmap, rebuilt by popcount.
func (m *Manager) AllocatedBlocks() uint64 {
	return m.bitmap().popcount()
}

// ReservedBlocks returns the number of blocks permanently reserved
// for the superblock and bitmap.
func (m *Manager) ReservedBlocks() uint64 {
	return m.reserved
}

// BlockAllocated reports whether the block at the given block index
// (offset / block size) is currently marked allocated.
func (m *Manager) BlockAllocated(index uint64) bool {
	return m.bitmap().get(index)
}

// LogGC emits the one-line collector summary this package's ambient
// logging policy calls for: once per pass, only when something was
// reclaimed.
func (m *Manager) LogGC(marked, freed int) {
	m.logger.Printf("nvtree: gc marked=%d freed=%d", marked, freed)
}

// RecomputeChecksum recomputes the whole-region checksum without
// storing it, for verification.
func (m *Manager) RecomputeChecksum() uint64 {
	return wholeRegionChecksum(m.data)
}

// VerifyChecksum reports whether the stored checksum matches a fresh
// computation.
func (m *Manager) VerifyChecksum() bool {
	return m.RecomputeChecksum() == *asSuperblock(m.data).checksum()
}

// UpdatePersistedChecksum recomputes and persists the whole-region
// checksum. Callers that mutate bytes directly through Block (the
// B+-tree package) call this once their mutation is otherwise
// persisted, to keep the superblock's checksum authoritative.
func (m *Manager) UpdatePersistedChecksum() error {
	sb := asSuperblock(m.data)
	*sb.checksum() = wholeRegionChecksum(m.data)
	return m.Persist(addrOf(sb.back), superblockSize)
}

// Stats summarizes allocator and durability state for telemetry.
type Stats struct {
	BlockCount      uint64
	AllocatedBlocks uint64
	ReservedBlocks  uint64
	FlushedBytes    uint64
}

func (m *Manager) Stats() Stats {
	return Stats{
		BlockCount:      m.blockCount,
		AllocatedBlocks: m.AllocatedBlocks(),
		ReservedBlocks:  m.reserved,
		FlushedBytes:    durability.FlushedBytes(),
	}
}

// Close syncs the mapping to disk, unmaps it, and closes the file.
func (m *Manager) Close() error {
	if m.data != nil {
		if err := unix.Msync(m.data, syscall.MS_SYNC); err != nil {
			return errors.Wrap(err)
		}
		if err := munmap(m.data); err != nil {
			return errors.Wrap(err)
		}
		m.data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			return errors.Wrap(err)
		}
		m.file = nil
	}
	return nil
}

func mmapFile(f *os.File, size uint64) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
}

func munmap(data []byte) error {
	return syscall.Munmap(data)
}
