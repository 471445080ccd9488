// Package mmio provides bounds-checked, alignment-checked, fixed-width access
// to a window of raw memory, typically a memory-mapped register block or a
// shared device buffer.
//
// A Window only borrows the memory it points at. Obtaining the mapping and
// keeping it alive for as long as any Window built on it is in use is the job
// of a mapping provider such as package uio or package shm.
//
// Example usage:
//
//	dev, err := uio.OpenName(ctx, uio.DefaultConfig(), "axi-gpio")
//	// ...
//	regs, err := dev.Regs(0, -1, 0)
//	// ...
//	if err := regs.WriteUint32(0x04, 0x1); err != nil {
//	  // ...
//	}
//	status, err := regs.ReadUint32(0x00)
//
// Accesses are not synchronized. Callers that share a Window across
// goroutines coordinate overlapping accesses themselves.
package mmio
