// Package volatile performs single, fixed-width loads and stores on raw memory
// that may be backed by device registers.
//
// Every helper touches memory exactly once with an access of its own width.
// The 8 and 16 bit forms are kept out of line so the compiler cannot merge,
// elide or hoist them; the 32 and 64 bit forms go through sync/atomic when the
// address is naturally aligned, which also orders them against other accesses.
package volatile

import (
	"sync/atomic"
	"unsafe"
)

// Load8 loads one byte from addr.
//
//go:noinline
//go:nocheckptr
func Load8(addr unsafe.Pointer) uint8 {
	return *(*uint8)(addr)
}

// Load16 loads two bytes from addr in host byte order.
//
//go:noinline
//go:nocheckptr
func Load16(addr unsafe.Pointer) uint16 {
	return *(*uint16)(addr)
}

// Load32 loads four bytes from addr in host byte order.
//
//go:nocheckptr
func Load32(addr unsafe.Pointer) uint32 {
	if uintptr(addr)&3 == 0 {
		return atomic.LoadUint32((*uint32)(addr))
	}
	return load32(addr)
}

// Load64 loads eight bytes from addr in host byte order.
//
//go:nocheckptr
func Load64(addr unsafe.Pointer) uint64 {
	if uintptr(addr)&7 == 0 {
		return atomic.LoadUint64((*uint64)(addr))
	}
	return load64(addr)
}

// Store8 stores one byte at addr.
//
//go:noinline
//go:nocheckptr
func Store8(addr unsafe.Pointer, val uint8) {
	*(*uint8)(addr) = val
}

// Store16 stores two bytes at addr in host byte order.
//
//go:noinline
//go:nocheckptr
func Store16(addr unsafe.Pointer, val uint16) {
	*(*uint16)(addr) = val
}

// Store32 stores four bytes at addr in host byte order.
//
//go:nocheckptr
func Store32(addr unsafe.Pointer, val uint32) {
	if uintptr(addr)&3 == 0 {
		atomic.StoreUint32((*uint32)(addr), val)
		return
	}
	store32(addr, val)
}

// Store64 stores eight bytes at addr in host byte order.
//
//go:nocheckptr
func Store64(addr unsafe.Pointer, val uint64) {
	if uintptr(addr)&7 == 0 {
		atomic.StoreUint64((*uint64)(addr), val)
		return
	}
	store64(addr, val)
}

// Unaligned fallbacks for bases the caller did not align. They still issue a
// single access; whether the CPU tolerates it is the caller's problem.

//go:noinline
//go:nocheckptr
func load32(addr unsafe.Pointer) uint32 {
	return *(*uint32)(addr)
}

//go:noinline
//go:nocheckptr
func load64(addr unsafe.Pointer) uint64 {
	return *(*uint64)(addr)
}

//go:noinline
//go:nocheckptr
func store32(addr unsafe.Pointer, val uint32) {
	*(*uint32)(addr) = val
}

//go:noinline
//go:nocheckptr
func store64(addr unsafe.Pointer, val uint64) {
	*(*uint64)(addr) = val
}
