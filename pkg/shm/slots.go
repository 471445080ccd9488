package shm

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/srediag/plugin-mmio/pkg/mmio"
)

// ErrNoFreeSlot is returned by Alloc when every large-enough slot is in use.
var ErrNoFreeSlot = errors.New("no free slot")

// SizePercentPair describes one slot class: Percent of the region is cut
// into slots of Size bytes.
type SizePercentPair struct {
	Size    uint32
	Percent uint32
}

// Slot is a fixed-size window carved out of a region.
type Slot struct {
	*mmio.Window
	Offset int64
	Cap    uint32

	used bool
}

// SlotManager hands out fixed-size windows of a region, e.g. descriptor or
// DMA buffer slots shared with a device.
type SlotManager struct {
	mu    sync.Mutex
	pools map[uint32][]*Slot // key: size
	sizes []uint32
}

// VerifyLayout checks that the layout is non-empty, uses positive sizes and
// claims at most 100 percent of the region.
func VerifyLayout(layout []SizePercentPair) error {
	if len(layout) == 0 {
		return errors.New("slot layout is empty")
	}
	total := uint32(0)
	seen := make(map[uint32]bool, len(layout))
	for _, pair := range layout {
		if pair.Size == 0 {
			return errors.New("slot size must be greater than 0")
		}
		if seen[pair.Size] {
			return fmt.Errorf("duplicated slot size %d", pair.Size)
		}
		seen[pair.Size] = true
		total += pair.Percent
	}
	if total > 100 {
		return fmt.Errorf("slot layout uses %d percent of the region", total)
	}
	return nil
}

// NewSlotManager carves region into slots according to layout. Classes are
// laid out back to back in ascending size order.
func NewSlotManager(region *Region, layout []SizePercentPair) (*SlotManager, error) {
	if err := VerifyLayout(layout); err != nil {
		return nil, err
	}
	sorted := append([]SizePercentPair(nil), layout...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size < sorted[j].Size })

	sm := &SlotManager{
		pools: make(map[uint32][]*Slot, len(sorted)),
	}
	total := int64(region.Size())
	offset := int64(0)
	for _, pair := range sorted {
		budget := total * int64(pair.Percent) / 100
		count := budget / int64(pair.Size)
		sm.pools[pair.Size] = make([]*Slot, 0, count)
		for i := int64(0); i < count; i++ {
			w, err := region.Window(offset, int(pair.Size))
			if err != nil {
				return nil, err
			}
			sm.pools[pair.Size] = append(sm.pools[pair.Size], &Slot{
				Window: w,
				Offset: offset,
				Cap:    pair.Size,
			})
			offset += int64(pair.Size)
		}
		sm.sizes = append(sm.sizes, pair.Size)
	}
	return sm, nil
}

// Alloc returns a free slot from the smallest class that holds size bytes.
func (sm *SlotManager) Alloc(size uint32) (*Slot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, classSize := range sm.sizes {
		if classSize < size {
			continue
		}
		for _, s := range sm.pools[classSize] {
			if !s.used {
				s.used = true
				return s, nil
			}
		}
	}
	return nil, fmt.Errorf("%w for %d bytes", ErrNoFreeSlot, size)
}

// Recycle returns a slot to its pool.
func (sm *SlotManager) Recycle(s *Slot) {
	if s == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s.used = false
}

// Stats returns the number of free slots for each size.
func (sm *SlotManager) Stats() map[uint32]int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	stats := make(map[uint32]int, len(sm.pools))
	for size, pool := range sm.pools {
		free := 0
		for _, s := range pool {
			if !s.used {
				free++
			}
		}
		stats[size] = free
	}
	return stats
}
