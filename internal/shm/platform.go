// Package shm contains the platform-specific mapping of shared memory files
// backing pkg/shm regions.
package shm

import (
	"errors"
	"path/filepath"
)

// DevShmDir is where named regions live when no explicit path is given.
const DevShmDir = "/dev/shm"

var (
	ErrInvalidSize     = errors.New("invalid region size")
	ErrNoSpace         = errors.New("share memory had not left space")
	ErrUnsupported     = errors.New("shared memory mapping not supported on this platform")
	ErrMissingLocation = errors.New("region name or path required")
)

// MappedRegion represents a memory-mapped shared region.
type MappedRegion struct {
	Addr []byte
	Path string

	fd      int
	created bool
	unlink  bool
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	// Name is a file name under DevShmDir. Ignored when Path is set.
	Name string
	// Path is the full path of the backing file.
	Path string
	// Size is the mapping size. Zero maps the whole existing file.
	Size int
	// Create creates and sizes the backing file if it does not exist.
	Create bool
	// Unlink removes a file created by MapRegion when it is unmapped.
	Unlink bool
}

func (o MapOptions) path() (string, error) {
	if o.Path != "" {
		return filepath.Clean(o.Path), nil
	}
	if o.Name == "" {
		return "", ErrMissingLocation
	}
	return filepath.Join(DevShmDir, o.Name), nil
}
