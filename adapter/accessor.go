// Package adapter connects window accessors to metrics, tracing and health
// check endpoints.
package adapter

import (
	"errors"

	"github.com/srediag/plugin-mmio/api"
	"github.com/srediag/plugin-mmio/pkg/mmio"
)

// Hook observes accesses made through an Instrumented accessor. Begin is
// called before the access; the returned func is called with its result.
type Hook interface {
	Begin(op string, width mmio.Width, offset int64) func(err error)
}

// Instrumented wraps an accessor and reports every access to its hooks.
// Accesses are still performed exactly once, by the wrapped accessor.
type Instrumented struct {
	inner api.Accessor
	hooks []Hook
}

var _ api.Accessor = (*Instrumented)(nil)

// Instrument wraps inner with hooks.
func Instrument(inner api.Accessor, hooks ...Hook) *Instrumented {
	return &Instrumented{inner: inner, hooks: hooks}
}

func (a *Instrumented) begin(op string, width mmio.Width, offset int64) func(error) {
	if len(a.hooks) == 1 {
		return a.hooks[0].Begin(op, width, offset)
	}
	ends := make([]func(error), len(a.hooks))
	for i, h := range a.hooks {
		ends[i] = h.Begin(op, width, offset)
	}
	return func(err error) {
		for i := len(ends) - 1; i >= 0; i-- {
			ends[i](err)
		}
	}
}

// Read performs a generic read and reports it to the hooks.
func (a *Instrumented) Read(offset int64, width mmio.Width) (uint64, error) {
	end := a.begin("read", width, offset)
	v, err := a.inner.Read(offset, width)
	end(err)
	return v, err
}

// Write performs a generic write and reports it to the hooks.
func (a *Instrumented) Write(offset int64, width mmio.Width, value uint64) error {
	end := a.begin("write", width, offset)
	err := a.inner.Write(offset, width, value)
	end(err)
	return err
}

// Len returns the wrapped accessor length.
func (a *Instrumented) Len() int { return a.inner.Len() }

// ReadUint8 reads one byte at offset.
func (a *Instrumented) ReadUint8(offset int64) (uint8, error) {
	v, err := a.Read(offset, mmio.Width8)
	return uint8(v), err
}

// ReadUint16 reads two bytes at offset, which must be 2-byte aligned.
func (a *Instrumented) ReadUint16(offset int64) (uint16, error) {
	v, err := a.Read(offset, mmio.Width16)
	return uint16(v), err
}

// ReadUint32 reads four bytes at offset, which must be 4-byte aligned.
func (a *Instrumented) ReadUint32(offset int64) (uint32, error) {
	v, err := a.Read(offset, mmio.Width32)
	return uint32(v), err
}

// ReadUint64 reads eight bytes at offset, which must be 8-byte aligned.
func (a *Instrumented) ReadUint64(offset int64) (uint64, error) {
	return a.Read(offset, mmio.Width64)
}

// WriteUint8 stores the low byte of value at offset.
func (a *Instrumented) WriteUint8(offset int64, v uint64) error {
	return a.Write(offset, mmio.Width8, v)
}

// WriteUint16 stores the low two bytes of value at offset, which must be 2-byte aligned.
func (a *Instrumented) WriteUint16(offset int64, v uint64) error {
	return a.Write(offset, mmio.Width16, v)
}

// WriteUint32 stores the low four bytes of value at offset, which must be 4-byte aligned.
func (a *Instrumented) WriteUint32(offset int64, v uint64) error {
	return a.Write(offset, mmio.Width32, v)
}

// WriteUint64 stores value at offset, which must be 8-byte aligned.
func (a *Instrumented) WriteUint64(offset int64, v uint64) error {
	return a.Write(offset, mmio.Width64, v)
}

// ReadByteAt is ReadUint8.
func (a *Instrumented) ReadByteAt(offset int64) (uint8, error) { return a.ReadUint8(offset) }

// ReadHalf is ReadUint16.
func (a *Instrumented) ReadHalf(offset int64) (uint16, error) { return a.ReadUint16(offset) }

// ReadWord is ReadUint32.
func (a *Instrumented) ReadWord(offset int64) (uint32, error) { return a.ReadUint32(offset) }

// ReadQuad is ReadUint64.
func (a *Instrumented) ReadQuad(offset int64) (uint64, error) { return a.ReadUint64(offset) }

// WriteByteAt is WriteUint8.
func (a *Instrumented) WriteByteAt(offset int64, v uint64) error { return a.WriteUint8(offset, v) }

// WriteHalf is WriteUint16.
func (a *Instrumented) WriteHalf(offset int64, v uint64) error { return a.WriteUint16(offset, v) }

// WriteWord is WriteUint32.
func (a *Instrumented) WriteWord(offset int64, v uint64) error { return a.WriteUint32(offset, v) }

// WriteQuad is WriteUint64.
func (a *Instrumented) WriteQuad(offset int64, v uint64) error { return a.WriteUint64(offset, v) }

// errorKind maps an access error onto a low-cardinality label.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, mmio.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, mmio.ErrMisaligned):
		return "misaligned"
	case errors.Is(err, mmio.ErrInvalidWidth):
		return "invalid_width"
	}
	return "other"
}
