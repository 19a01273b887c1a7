package engine

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
)

// frameDevice forwards every call to the engine device except Present. Each display draws its
// layer into the same canvas frame and the engine presents once after the top layer.
type frameDevice struct {
	gpu.Device
}

func (frameDevice) Present() {}

// restoreDevice asks the device for a new context.
//
// Parameters:
//   - dev: the device whose context was lost
//
// Returns:
//   - error: the restore failure, or a context lost error if dev cannot restore
func restoreDevice(dev gpu.Device) error {
	switch d := dev.(type) {
	case interface{ Restore() error }:
		return d.Restore()
	case interface{ RestoreContext() }:
		d.RestoreContext()
		return nil
	}
	return fmt.Errorf("device %T cannot restore its context: %w", dev, gpu.ErrContextLost)
}

// resizeDevice resizes the canvas of devices that own one.
func resizeDevice(dev gpu.Device, width, height int) {
	if r, ok := dev.(interface{ Resize(width, height int) }); ok {
		r.Resize(width, height)
	}
}

// releaseDevice releases devices that hold native resources.
func releaseDevice(dev gpu.Device) {
	if r, ok := dev.(interface{ Release() }); ok {
		r.Release()
	}
}
