//go:build unix

package shm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	internalshm "github.com/srediag/plugin-mmio/internal/shm"
	"github.com/srediag/plugin-mmio/pkg/mmio"
)

type RegionTestSuite struct {
	suite.Suite
	region *Region
}

func (s *RegionTestSuite) SetupTest() {
	var err error
	s.region, err = Open(context.Background(), OpenOptions{
		Path:   filepath.Join(s.T().TempDir(), "region"),
		Size:   4096,
		Create: true,
		Unlink: true,
	})
	s.Require().NoError(err)
}

func (s *RegionTestSuite) TearDownTest() {
	s.Require().NoError(s.region.Close())
}

func (s *RegionTestSuite) TestWindowSharesMapping() {
	a, err := s.region.Window(0x100, 0x40)
	s.Require().NoError(err)
	b, err := s.region.Window(0x120, 0x20)
	s.Require().NoError(err)

	s.Require().NoError(a.WriteUint32(0x20, 0xCAFEBABE))
	v, err := b.ReadUint32(0)
	s.Require().NoError(err)
	s.Equal(uint32(0xCAFEBABE), v)
}

func (s *RegionTestSuite) TestWindowToEnd() {
	w, err := s.region.Window(0x800, -1)
	s.Require().NoError(err)
	s.Equal(0x800, w.Len())

	w, err = s.region.Window(4096, -1)
	s.Require().NoError(err)
	s.Equal(0, w.Len())
	_, err = w.ReadUint8(0)
	s.ErrorIs(err, mmio.ErrOutOfBounds)
}

func (s *RegionTestSuite) TestWindowRange() {
	_, err := s.region.Window(-1, 4)
	s.ErrorIs(err, ErrRegionRange)
	_, err = s.region.Window(4000, 100)
	s.ErrorIs(err, ErrRegionRange)
	_, err = s.region.Window(4097, -1)
	s.ErrorIs(err, ErrRegionRange)
}

func (s *RegionTestSuite) TestClose() {
	path := s.region.Path()
	s.NotEmpty(path)
	s.Equal(4096, s.region.Size())

	r, err := Open(context.Background(), OpenOptions{Path: path})
	s.Require().NoError(err)
	s.Require().NoError(r.Close())
	s.Require().NoError(r.Close())

	s.Equal(0, r.Size())
	s.Empty(r.Path())
	_, err = r.Window(0, 4)
	s.ErrorIs(err, ErrClosed)
}

func (s *RegionTestSuite) TestOpenGrowsShortFile() {
	path := filepath.Join(s.T().TempDir(), "short")
	s.Require().NoError(os.WriteFile(path, make([]byte, 16), 0600))

	r, err := Open(context.Background(), OpenOptions{Path: path, Size: 8192, Create: true})
	s.Require().NoError(err)
	defer r.Close()
	s.Equal(8192, r.Size())

	w, err := r.Window(4096, 64)
	s.Require().NoError(err)
	s.Require().NoError(w.WriteUint32(0, 0x5A5A5A5A))
	v, err := w.ReadUint32(0)
	s.Require().NoError(err)
	s.Equal(uint32(0x5A5A5A5A), v)

	_, err = Open(context.Background(), OpenOptions{Path: path, Size: 16384})
	s.ErrorIs(err, internalshm.ErrInvalidSize)
}

func (s *RegionTestSuite) TestSlotManager() {
	sm, err := NewSlotManager(s.region, []SizePercentPair{
		{1024, 50},
		{256, 25},
	})
	s.Require().NoError(err)
	// 25% of 4096 is four 256-byte slots, 50% is two 1024-byte slots.
	s.Equal(map[uint32]int{256: 4, 1024: 2}, sm.Stats())

	small, err := sm.Alloc(100)
	s.Require().NoError(err)
	s.Equal(uint32(256), small.Cap)
	s.Equal(256, small.Len())

	big, err := sm.Alloc(512)
	s.Require().NoError(err)
	s.Equal(uint32(1024), big.Cap)
	s.Equal(int64(1024), big.Offset)

	s.Require().NoError(big.WriteUint64(8, 42))
	whole, err := s.region.Window(0, -1)
	s.Require().NoError(err)
	v, err := whole.ReadUint64(big.Offset + 8)
	s.Require().NoError(err)
	s.Equal(uint64(42), v)

	s.Equal(map[uint32]int{256: 3, 1024: 1}, sm.Stats())
	sm.Recycle(small)
	sm.Recycle(big)
	sm.Recycle(nil)
	s.Equal(map[uint32]int{256: 4, 1024: 2}, sm.Stats())

	_, err = sm.Alloc(2048)
	s.ErrorIs(err, ErrNoFreeSlot)
}

func (s *RegionTestSuite) TestSlotFallsBackToLargerClass() {
	sm, err := NewSlotManager(s.region, []SizePercentPair{{2048, 50}, {4096, 0}})
	s.Require().NoError(err)
	a, err := sm.Alloc(16)
	s.Require().NoError(err)
	s.Equal(uint32(2048), a.Cap)
	_, err = sm.Alloc(16)
	s.ErrorIs(err, ErrNoFreeSlot)
	// Classes without room for a single slot are still reported.
	s.Equal(map[uint32]int{2048: 0, 4096: 0}, sm.Stats())
}

func (s *RegionTestSuite) TestVerifyLayout() {
	s.Error(VerifyLayout(nil))
	s.Error(VerifyLayout([]SizePercentPair{{0, 10}}))
	s.Error(VerifyLayout([]SizePercentPair{{64, 10}, {64, 10}}))
	s.Error(VerifyLayout([]SizePercentPair{{64, 70}, {128, 31}}))
	s.NoError(VerifyLayout([]SizePercentPair{{64, 70}, {128, 30}}))

	_, err := NewSlotManager(s.region, nil)
	s.Error(err)
}

func TestRegionTestSuite(t *testing.T) {
	suite.Run(t, new(RegionTestSuite))
}
