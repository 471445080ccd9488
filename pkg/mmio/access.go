package mmio

import (
	"unsafe"

	"github.com/srediag/plugin-mmio/internal/volatile"
)

// Read loads width bytes at offset and returns them zero-extended to 64 bits.
// A rejected access returns 0 and an *AccessError without touching memory.
func (w *Window) Read(offset int64, width Width) (uint64, error) {
	off, err := w.Validate(offset, width)
	if err != nil {
		return 0, w.accessError("read", offset, width, err)
	}
	p := unsafe.Add(w.base, off)
	switch width {
	case Width8:
		return uint64(volatile.Load8(p)), nil
	case Width16:
		return uint64(volatile.Load16(p)), nil
	case Width32:
		return uint64(volatile.Load32(p)), nil
	default:
		return volatile.Load64(p), nil
	}
}

// Write stores the low width bytes of value at offset. Higher bits are
// silently dropped. A rejected access returns an *AccessError without
// touching memory.
func (w *Window) Write(offset int64, width Width, value uint64) error {
	off, err := w.Validate(offset, width)
	if err != nil {
		return w.accessError("write", offset, width, err)
	}
	p := unsafe.Add(w.base, off)
	value &= width.Mask()
	switch width {
	case Width8:
		volatile.Store8(p, uint8(value))
	case Width16:
		volatile.Store16(p, uint16(value))
	case Width32:
		volatile.Store32(p, uint32(value))
	default:
		volatile.Store64(p, value)
	}
	return nil
}

func (w *Window) accessError(op string, offset int64, width Width, err error) error {
	return &AccessError{Op: op, Offset: offset, Width: width, Length: w.length, Err: err}
}

// ReadUint8 reads one byte at offset.
func (w *Window) ReadUint8(offset int64) (uint8, error) {
	v, err := w.Read(offset, Width8)
	return uint8(v), err
}

// ReadUint16 reads two bytes at offset, which must be 2-byte aligned.
func (w *Window) ReadUint16(offset int64) (uint16, error) {
	v, err := w.Read(offset, Width16)
	return uint16(v), err
}

// ReadUint32 reads four bytes at offset, which must be 4-byte aligned.
func (w *Window) ReadUint32(offset int64) (uint32, error) {
	v, err := w.Read(offset, Width32)
	return uint32(v), err
}

// ReadUint64 reads eight bytes at offset, which must be 8-byte aligned.
func (w *Window) ReadUint64(offset int64) (uint64, error) {
	return w.Read(offset, Width64)
}

// The Write helpers take a uint64 so callers can hand over wider values and
// rely on truncation, as with Write.

// WriteUint8 stores the low byte of value at offset.
func (w *Window) WriteUint8(offset int64, value uint64) error {
	return w.Write(offset, Width8, value)
}

// WriteUint16 stores the low two bytes of value at offset, which must be 2-byte aligned.
func (w *Window) WriteUint16(offset int64, value uint64) error {
	return w.Write(offset, Width16, value)
}

// WriteUint32 stores the low four bytes of value at offset, which must be 4-byte aligned.
func (w *Window) WriteUint32(offset int64, value uint64) error {
	return w.Write(offset, Width32, value)
}

// WriteUint64 stores value at offset, which must be 8-byte aligned.
func (w *Window) WriteUint64(offset int64, value uint64) error {
	return w.Write(offset, Width64, value)
}

// Byte/half/word/quad aliases. ReadByte and WriteByte are taken by the
// io.ByteReader and io.ByteWriter signatures, hence the At suffix.

// ReadByteAt is ReadUint8.
func (w *Window) ReadByteAt(offset int64) (uint8, error) { return w.ReadUint8(offset) }

// ReadHalf is ReadUint16.
func (w *Window) ReadHalf(offset int64) (uint16, error) { return w.ReadUint16(offset) }

// ReadWord is ReadUint32.
func (w *Window) ReadWord(offset int64) (uint32, error) { return w.ReadUint32(offset) }

// ReadQuad is ReadUint64.
func (w *Window) ReadQuad(offset int64) (uint64, error) { return w.ReadUint64(offset) }

// WriteByteAt is WriteUint8.
func (w *Window) WriteByteAt(offset int64, v uint64) error { return w.WriteUint8(offset, v) }

// WriteHalf is WriteUint16.
func (w *Window) WriteHalf(offset int64, v uint64) error { return w.WriteUint16(offset, v) }

// WriteWord is WriteUint32.
func (w *Window) WriteWord(offset int64, v uint64) error { return w.WriteUint32(offset, v) }

// WriteQuad is WriteUint64.
func (w *Window) WriteQuad(offset int64, v uint64) error { return w.WriteUint64(offset, v) }
