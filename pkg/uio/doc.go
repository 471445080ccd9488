// Package uio is a mapping provider for Linux userspace I/O devices.
//
// It finds a device by the name its driver exports in sysfs, maps its memory
// regions and hands out mmio windows over them, and arms and waits for its
// interrupt. Windows stay valid until the Device is closed.
//
// Device and its interrupt helpers are only built on Linux; IRQWatcher works
// with any IRQSource.
package uio
