package mmio

import "strconv"

// Width is the size in bytes of a single access.
type Width int

const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
	Width64 Width = 8
)

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	switch w {
	case Width8, Width16, Width32, Width64:
		return true
	}
	return false
}

// Mask returns the value mask covering the low w*8 bits.
func (w Width) Mask() uint64 {
	if w >= Width64 {
		return ^uint64(0)
	}
	return uint64(1)<<(uint(w)*8) - 1
}

func (w Width) String() string {
	if !w.Valid() {
		return "width(" + strconv.Itoa(int(w)) + ")"
	}
	return "uint" + strconv.Itoa(int(w)*8)
}

// Validate checks an access of width bytes at offset against the window.
//
// Only the start offset is bounds checked: an aligned access whose last
// bytes run past the end of the window is accepted. Bounds are checked before
// alignment, so an offset that is both out of range and misaligned reports
// ErrOutOfBounds.
func (w *Window) Validate(offset int64, width Width) (uintptr, error) {
	if !width.Valid() {
		return 0, ErrInvalidWidth
	}
	if offset < 0 || offset >= int64(w.length) {
		return 0, ErrOutOfBounds
	}
	if offset%int64(width) != 0 {
		return 0, ErrMisaligned
	}
	return uintptr(offset), nil
}
