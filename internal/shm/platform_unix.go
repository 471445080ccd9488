//go:build unix

package shm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"
)

// MapRegion maps or creates a shared memory region.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Size < 0 || (opts.Create && opts.Size == 0) {
		return nil, ErrInvalidSize
	}
	path, err := opts.path()
	if err != nil {
		return nil, err
	}

	flags := unix.O_RDWR | unix.O_CLOEXEC
	created := false
	if opts.Create {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if !canCreateOnDevShm(uint64(opts.Size), path) {
				return nil, fmt.Errorf("%w: path %s, size %d", ErrNoSpace, path, opts.Size)
			}
			flags |= unix.O_CREAT
			created = true
		}
	}
	fd, err := unix.Open(path, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	size := opts.Size
	if created {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			_ = os.Remove(path)
			return nil, fmt.Errorf("ftruncate: %w", err)
		}
	} else {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("fstat: %w", err)
		}
		switch {
		case size == 0:
			size = int(st.Size)
			if size == 0 {
				_ = unix.Close(fd)
				return nil, ErrInvalidSize
			}
		case st.Size < int64(size) && opts.Create:
			// Pages past the end of the file fault on access.
			if err := unix.Ftruncate(fd, int64(size)); err != nil {
				_ = unix.Close(fd)
				return nil, fmt.Errorf("ftruncate: %w", err)
			}
		case st.Size < int64(size):
			_ = unix.Close(fd)
			return nil, fmt.Errorf("%w: file %s holds %d bytes, want %d", ErrInvalidSize, path, st.Size, size)
		}
	}

	addr, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		if created {
			_ = os.Remove(path)
		}
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &MappedRegion{
		Addr:    addr,
		Path:    path,
		fd:      fd,
		created: created,
		unlink:  opts.Unlink,
	}, nil
}

// UnmapRegion unmaps and closes the shared memory region.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if err := unix.Munmap(region.Addr); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	region.Addr = nil
	if err := unix.Close(region.fd); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if region.created && region.unlink {
		if err := os.Remove(region.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove: %w", err)
		}
	}
	return nil
}

// canCreateOnDevShm only checks free space on /dev/shm; any other location
// is left to the filesystem to refuse.
func canCreateOnDevShm(size uint64, path string) bool {
	if !strings.HasPrefix(filepath.Clean(path), DevShmDir+"/") {
		return true
	}
	stat, err := disk.Usage(DevShmDir)
	if err != nil {
		return true
	}
	return stat.Free >= size
}
