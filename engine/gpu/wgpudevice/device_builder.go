package wgpudevice

import "github.com/cogentcore/webgpu/wgpu"

// DeviceBuilderOption is a function that configures a device during NewDevice.
type DeviceBuilderOption func(*device)

// WithSurface renders the canvas into a window surface instead of an offscreen texture.
//
// Parameters:
//   - descriptor: the platform surface descriptor, typically from wgpuglfw.GetSurfaceDescriptor
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface option to a device
func WithSurface(descriptor *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(d *device) {
		d.surfaceDescriptor = descriptor
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the adapter option to a device
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallbackAdapter = force
	}
}

// WithPresentMode sets the initial surface present mode.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode to a device
func WithPresentMode(mode PresentMode) DeviceBuilderOption {
	return func(d *device) {
		if mode == PresentModeUncapped {
			d.presentMode = wgpu.PresentModeImmediate
			return
		}
		d.presentMode = wgpu.PresentModeFifo
	}
}

// WithMSAA sets the sample count of canvas passes. It only applies when a surface is used.
//
// Parameters:
//   - samples: the MSAASampleCount to use
//
// Returns:
//   - DeviceBuilderOption: a function that applies the MSAA option to a device
func WithMSAA(samples MSAASampleCount) DeviceBuilderOption {
	return func(d *device) {
		d.sampleCount = samples
	}
}

// WithLabel sets the label prefix of the WebGPU device.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label to a device
func WithLabel(label string) DeviceBuilderOption {
	return func(d *device) {
		d.label = label
	}
}
