package api

import "github.com/srediag/plugin-mmio/pkg/mmio"

// MappingProvider owns a mapped region and hands out windows over it. The
// region must stay mapped for as long as any window obtained from it is used.
type MappingProvider interface {
	// Window returns length bytes at offset; a negative length runs to the
	// end of the region.
	Window(offset int64, length int) (*mmio.Window, error)
}
