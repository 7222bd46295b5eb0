// Package durability implements the handful of primitives a
// memory-mapped NVM region needs to make a write survive a crash: a
// cache-line flush, a store fence, their combination, and the one
// atomic required to publish a pointer swap.
//
// There is no portable way from Go to issue a CLFLUSH/CLWB instruction
// directly, so this package treats "flush" as "make sure the kernel
// has a coherent view of this range," which on a memory-mapped file is
// exactly what msync(2) does. Flush accounts for the range in
// cache-line-sized strides (so the "bytes flushed" telemetry means
// something) and msyncs the containing page range once per call.
package durability

import (
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CacheLineSize is the unit Flush accounts bytes in. It does not need
// to match the real hardware cache line size to be correct - msync
// covers whatever range is requested regardless of stride - but using
// the conventional 64 bytes keeps the telemetry realistic.
const CacheLineSize = 64

var flushedBytes uint64

// Flush makes the range [addr, addr+length) durable against an OS
// crash (not a power loss, which is the limit of what msync can
// promise from user space). mem must be the mmap'd region addr lies
// within.
func Flush(mem []byte, addr uintptr, length uintptr) error {
	if length == 0 {
		return nil
	}
	base := uintptr(unsafe.Pointer(&mem[0]))
	start := addr - base
	end := start + length
	pageSize := uintptr(syscall.Getpagesize())
	pageStart := (start / pageSize) * pageSize
	pageEnd := ((end + pageSize - 1) / pageSize) * pageSize
	if pageEnd > uintptr(len(mem)) {
		pageEnd = uintptr(len(mem))
	}
	if err := unix.Msync(mem[pageStart:pageEnd], syscall.MS_SYNC); err != nil {
		return err
	}
	lines := (length + CacheLineSize - 1) / CacheLineSize
	atomic.AddUint64(&flushedBytes, uint64(lines)*CacheLineSize)
	return nil
}

// Fence issues a store fence: every write Flushed before Fence is
// globally ordered before every write issued after it. msync is
// already a full barrier with respect to the mapping it targets, so
// on this implementation Fence is a no-op kept as a named step to
// keep call sites honest about where the ordering requirement is.
func Fence() {
}

// Persist is Flush followed by Fence, the combination every mutation
// that must survive a crash ends with.
func Persist(mem []byte, addr uintptr, length uintptr) error {
	if err := Flush(mem, addr, length); err != nil {
		return err
	}
	Fence()
	return nil
}

// AtomicSwapU64 atomically stores new at the naturally aligned 8-byte
// slot pointed to by addr and returns the previous value. This is the
// one atomic the design requires: both the next_leaf publication
// during a leaf split and the root_offset publication during root
// growth go through this call.
func AtomicSwapU64(addr *uint64, new uint64) uint64 {
	return atomic.SwapUint64(addr, new)
}

// FlushedBytes returns the running total of bytes ever flushed, for
// telemetry only.
func FlushedBytes() uint64 {
	return atomic.LoadUint64(&flushedBytes)
}
