// Package slice provides the unsafe casts used to turn the bytes of a
// memory-mapped block into typed views without copying. This is the
// same trick the rest of the region/btree packages lean on: a block is
// just a []byte, and a node is a typed window into it.
package slice

import (
	"unsafe"
)

// Slice mirrors the runtime layout of a []byte header so that a
// pointer to one can be reinterpreted as a pointer to the other.
type Slice struct {
	Array unsafe.Pointer
	Len   int
	Cap   int
}

// AsSlice reinterprets the header of bytes as a *Slice.
func AsSlice(bytes *[]byte) *Slice {
	return (*Slice)(unsafe.Pointer(bytes))
}

// AsBytes reinterprets ss as a *[]byte.
func (ss *Slice) AsBytes() *[]byte {
	return (*[]byte)(unsafe.Pointer(ss))
}

// AsUint32s reinterprets ss as a *[]uint32.
func (ss *Slice) AsUint32s() *[]uint32 {
	return (*[]uint32)(unsafe.Pointer(ss))
}

// AsUint64s reinterprets ss as a *[]uint64.
func (ss *Slice) AsUint64s() *[]uint64 {
	return (*[]uint64)(unsafe.Pointer(ss))
}

// Uint32At returns a pointer to the uint32 at byte offset off in buf.
func Uint32At(buf []byte, off int) *uint32 {
	s := AsSlice(&buf)
	return (*uint32)(unsafe.Pointer(uintptr(s.Array) + uintptr(off)))
}

// Uint64At returns a pointer to the uint64 at byte offset off in buf.
func Uint64At(buf []byte, off int) *uint64 {
	s := AsSlice(&buf)
	return (*uint64)(unsafe.Pointer(uintptr(s.Array) + uintptr(off)))
}

// Int32At returns a pointer to the int32 at byte offset off in buf.
func Int32At(buf []byte, off int) *int32 {
	s := AsSlice(&buf)
	return (*int32)(unsafe.Pointer(uintptr(s.Array) + uintptr(off)))
}
