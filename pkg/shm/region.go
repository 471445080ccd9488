package shm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	internalshm "github.com/srediag/plugin-mmio/internal/shm"
	"github.com/srediag/plugin-mmio/pkg/mmio"
)

var (
	// ErrRegionRange is returned when a requested window does not fit in the mapping.
	ErrRegionRange = errors.New("region range error")
	// ErrClosed is returned by a Region after Close.
	ErrClosed = errors.New("region closed")
)

// OpenOptions defines options for creating or opening a shared memory region.
type OpenOptions struct {
	// Name is the identifier of the region under /dev/shm.
	Name string
	// Path overrides Name with an explicit backing file.
	Path string
	// Size is the region size in bytes. Zero maps an existing file whole.
	Size int
	// Create indicates whether to create (if not exists) or open existing.
	Create bool
	// Unlink removes a created backing file on Close.
	Unlink bool
}

// Region is a mapped shared memory file.
type Region struct {
	mu     sync.RWMutex
	region *internalshm.MappedRegion
}

// Open creates or opens a shared memory region with the given options.
func Open(ctx context.Context, opts OpenOptions) (*Region, error) {
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		Name:   opts.Name,
		Path:   opts.Path,
		Size:   opts.Size,
		Create: opts.Create,
		Unlink: opts.Unlink,
	})
	if err != nil {
		return nil, err
	}
	return &Region{region: region}, nil
}

// Size returns the mapped size in bytes, or 0 once closed.
func (r *Region) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.region == nil {
		return 0
	}
	return len(r.region.Addr)
}

// Path returns the backing file path.
func (r *Region) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.region == nil {
		return ""
	}
	return r.region.Path
}

// Window returns a window of length bytes at offset into the region. A
// negative length extends the window to the end of the mapping.
func (r *Region) Window(offset int64, length int) (*mmio.Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.region == nil {
		return nil, ErrClosed
	}
	size := int64(len(r.region.Addr))
	if offset < 0 || offset > size {
		return nil, fmt.Errorf("%w (offset=%d,length=%d)", ErrRegionRange, offset, length)
	}
	if length < 0 {
		length = int(size - offset)
	} else if offset+int64(length) > size {
		return nil, fmt.Errorf("%w (offset=%d,length=%d)", ErrRegionRange, offset, length)
	}
	if length == 0 {
		return mmio.FromBytes(nil), nil
	}
	return mmio.FromBytes(r.region.Addr[offset : offset+int64(length)]), nil
}

// Close unmaps the region. Windows obtained from it must not be used
// afterwards.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.region == nil {
		return nil
	}
	err := internalshm.UnmapRegion(context.Background(), r.region)
	r.region = nil
	return err
}
