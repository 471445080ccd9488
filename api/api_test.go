package api

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/plugin-mmio/pkg/mmio"
	"github.com/srediag/plugin-mmio/pkg/shm"
)

var _ MappingProvider = (*shm.Region)(nil)

type sliceProvider []byte

func (p sliceProvider) Window(offset int64, length int) (*mmio.Window, error) {
	if length < 0 {
		length = len(p) - int(offset)
	}
	return mmio.FromBytes(p[offset : offset+int64(length)]), nil
}

func TestAccessorThroughProvider(t *testing.T) {
	backing := make([]uint64, 4)
	var p MappingProvider = sliceProvider(unsafe.Slice((*byte)(unsafe.Pointer(&backing[0])), 32))

	w, err := p.Window(8, 16)
	require.NoError(t, err)
	var acc Accessor = w
	assert.Equal(t, 16, acc.Len())

	require.NoError(t, acc.WriteWord(4, 0x12345678))
	v, err := acc.ReadUint32(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)

	_, err = acc.ReadQuad(16)
	assert.ErrorIs(t, err, mmio.ErrOutOfBounds)
}
