package region

import "unsafe"

// addrOf returns the address of b's first byte, for passing to
// durability.Persist alongside the mapping it is a sub-slice of.
func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
