package mmio

import (
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

const dumpRowBytes = 16

// Dump reads length bytes starting at offset in accesses of the given width
// and writes them to out as hex, sixteen bytes per row:
//
//	00000010: 11223344 00000000 deadbeef 00000001
//
// Reading registers can have side effects on the device; Dump performs
// exactly one access per element, in ascending address order. It stops at
// the first rejected access and returns its error.
func (w *Window) Dump(out io.Writer, offset int64, length int, width Width) error {
	if !width.Valid() {
		return w.accessError("read", offset, width, ErrInvalidWidth)
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	digits := int(width) * 2
	end := offset + int64(length)
	for row := offset; row < end; row += dumpRowBytes {
		buf.Reset()
		appendHex(buf, uint64(row), 8)
		_, _ = buf.WriteString(":")
		for off := row; off < row+dumpRowBytes && off < end; off += int64(width) {
			v, err := w.Read(off, width)
			if err != nil {
				return err
			}
			_ = buf.WriteByte(' ')
			appendHex(buf, v, digits)
		}
		_ = buf.WriteByte('\n')
		if _, err := out.Write(buf.B); err != nil {
			return err
		}
	}
	return nil
}

func appendHex(buf *bytebufferpool.ByteBuffer, v uint64, digits int) {
	s := strconv.FormatUint(v, 16)
	for i := len(s); i < digits; i++ {
		_ = buf.WriteByte('0')
	}
	_, _ = buf.WriteString(s)
}
