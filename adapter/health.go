package adapter

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"

	"github.com/srediag/plugin-mmio/api"
	"github.com/srediag/plugin-mmio/pkg/mmio"
)

// Probe describes a register whose value tells whether the device is ready,
// e.g. a status register with a "ready" bit.
type Probe struct {
	Name   string
	Offset int64
	Width  mmio.Width
	// Mask selects the bits compared against Expect. Zero compares the whole value.
	Mask   uint64
	Expect uint64
}

// LivenessCheck passes while the probe register can be read at all.
func LivenessCheck(acc api.Accessor, p Probe) healthcheck.Check {
	return func() error {
		_, err := acc.Read(p.Offset, p.Width)
		return err
	}
}

// ReadinessCheck passes when the masked probe register equals Expect.
func ReadinessCheck(acc api.Accessor, p Probe) healthcheck.Check {
	mask := p.Mask
	if mask == 0 {
		mask = ^uint64(0)
	}
	return func() error {
		v, err := acc.Read(p.Offset, p.Width)
		if err != nil {
			return err
		}
		if v&mask != p.Expect&mask {
			return fmt.Errorf("%s: register %#x is %#x, want %#x under mask %#x",
				p.Name, p.Offset, v, p.Expect, mask)
		}
		return nil
	}
}

// RegisterChecks adds the liveness and readiness checks for p to h.
func RegisterChecks(h healthcheck.Handler, acc api.Accessor, p Probe) {
	h.AddLivenessCheck(p.Name, LivenessCheck(acc, p))
	h.AddReadinessCheck(p.Name, ReadinessCheck(acc, p))
}
