package mmio

import (
	"fmt"
	"unsafe"
)

// Window is a fixed-length span of raw memory starting at an effective base
// address. It is immutable after construction and safe to share by pointer.
type Window struct {
	base   unsafe.Pointer
	length int
}

// New returns a window of length bytes starting offset bytes past base.
//
// Nothing is validated here: a bogus base, offset or length is accepted and
// only the access-time checks apply. The caller guarantees that length bytes
// starting at the effective base stay mapped while the window is in use.
func New(base unsafe.Pointer, offset int64, length int) *Window {
	return &Window{
		base:   unsafe.Add(base, offset),
		length: length,
	}
}

// NewAddr is New for callers that only hold the mapping address as an
// integer, such as host-language bindings.
func NewAddr(addr uintptr, offset int64, length int) *Window {
	// Reinterpret the integer without a uintptr->Pointer conversion expression.
	return New(*(*unsafe.Pointer)(unsafe.Pointer(&addr)), offset, length)
}

// FromBytes returns a window over b, which is usually the slice returned by
// an mmap call. An empty slice yields a window that rejects every access.
func FromBytes(b []byte) *Window {
	if len(b) == 0 {
		return &Window{}
	}
	return &Window{
		base:   unsafe.Pointer(unsafe.SliceData(b)),
		length: len(b),
	}
}

// Len returns the window length in bytes.
func (w *Window) Len() int {
	return w.length
}

// Base returns the effective base address.
func (w *Window) Base() unsafe.Pointer {
	return w.base
}

func (w *Window) String() string {
	return fmt.Sprintf("mmio.Window{base: %p, length: %#x}", w.base, w.length)
}
