// Package shm maps shared memory files and hands out mmio windows over them.
//
// It is a mapping provider: a Region owns the mapping, and every window it
// returns is only valid until the Region is closed.
//
// Example usage:
//
//	region, err := shm.Open(ctx, shm.OpenOptions{
//	  Name:   "dma-ring",
//	  Size:   1 << 16,
//	  Create: true,
//	})
//	// ...
//	defer region.Close()
//	ctrl, err := region.Window(0, 64)
//	// ...
//	_ = ctrl.WriteUint32(0, 1)
//
// Platform-specific helpers are in internal/shm.
package shm
