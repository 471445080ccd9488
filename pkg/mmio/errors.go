package mmio

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when the start offset is negative or not
	// strictly less than the window length.
	ErrOutOfBounds = errors.New("offset exceeds mapped region")
	// ErrMisaligned is returned when the offset is not a multiple of the
	// access width.
	ErrMisaligned = errors.New("offset violates access alignment")
	// ErrInvalidWidth is returned by Read and Write for widths other than
	// 1, 2, 4 or 8 bytes.
	ErrInvalidWidth = errors.New("unsupported access width")
)

// AccessError describes a rejected access. No memory was touched.
type AccessError struct {
	Op     string
	Offset int64
	Width  Width
	Length int
	Err    error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("mmio: %s %s at offset %#x (window length %#x): %v",
		e.Op, e.Width, e.Offset, e.Length, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
