// Package api defines public API contracts for plugin-mmio.
package api

import "github.com/srediag/plugin-mmio/pkg/mmio"

// Accessor is the surface a binding layer exposes over a window: one
// validated read and write per width, under both naming schemes. Every
// method either performs exactly one access or returns an error and touches
// nothing.
type Accessor interface {
	Read(offset int64, width mmio.Width) (uint64, error)
	Write(offset int64, width mmio.Width, value uint64) error

	ReadUint8(offset int64) (uint8, error)
	ReadUint16(offset int64) (uint16, error)
	ReadUint32(offset int64) (uint32, error)
	ReadUint64(offset int64) (uint64, error)
	WriteUint8(offset int64, value uint64) error
	WriteUint16(offset int64, value uint64) error
	WriteUint32(offset int64, value uint64) error
	WriteUint64(offset int64, value uint64) error

	ReadByteAt(offset int64) (uint8, error)
	ReadHalf(offset int64) (uint16, error)
	ReadWord(offset int64) (uint32, error)
	ReadQuad(offset int64) (uint64, error)
	WriteByteAt(offset int64, value uint64) error
	WriteHalf(offset int64, value uint64) error
	WriteWord(offset int64, value uint64) error
	WriteQuad(offset int64, value uint64) error

	Len() int
}

var _ Accessor = (*mmio.Window)(nil)
