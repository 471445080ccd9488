//go:build linux

package uio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

func (d *Device) writeIRQControl(v uint32) error {
	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], v)
	if _, err := d.file.Write(buf[:]); err != nil {
		return fmt.Errorf("irq control: %w", err)
	}
	return nil
}

// IRQOn enables (re-arms) the device interrupt.
func (d *Device) IRQOn() error {
	return d.writeIRQControl(1)
}

// IRQOff disables the device interrupt.
func (d *Device) IRQOff() error {
	return d.writeIRQControl(0)
}

// WaitIRQ waits up to timeout for an interrupt and returns the total
// interrupt count reported by the driver. ok is false when the timeout
// expired first. A negative timeout waits indefinitely.
func (d *Device) WaitIRQ(timeout time.Duration) (count uint32, ok bool, err error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	fds := []unix.PollFd{{Fd: int32(d.file.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return 0, false, nil
		}
		break
	}
	var buf [4]byte
	if _, err := io.ReadFull(d.file, buf[:]); err != nil {
		return 0, false, fmt.Errorf("read irq count: %w", err)
	}
	return binary.NativeEndian.Uint32(buf[:]), true, nil
}
