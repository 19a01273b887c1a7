package renderer

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/chunk"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/object"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/program"
	"github.com/go-gl/mathgl/mgl32"
)

// DisplayBuilderOption is a functional option applied to a display during construction via NewDisplay.
type DisplayBuilderOption func(*display)

// WithTransparent makes the canvas clear to fully transparent black instead of the ambient color,
// for displays composited over other content.
//
// Parameters:
//   - transparent: true to clear to (0, 0, 0, 0)
//
// Returns:
//   - DisplayBuilderOption: a function that applies the transparency option to a display
func WithTransparent(transparent bool) DisplayBuilderOption {
	return func(d *display) {
		d.transparentCanvas = transparent
	}
}

// WithClearColor sets the clear color used until an ambient light replaces it.
//
// Parameters:
//   - c: the initial clear color
//
// Returns:
//   - DisplayBuilderOption: a function that applies the clear color option to a display
func WithClearColor(c mgl32.Vec4) DisplayBuilderOption {
	return func(d *display) {
		d.clearColor = c
	}
}

// WithProgramCache replaces the program cache, for example to share one between displays on the same device.
//
// Parameters:
//   - c: the program cache
//
// Returns:
//   - DisplayBuilderOption: a function that applies the program cache option to a display
func WithProgramCache(c program.Cache) DisplayBuilderOption {
	return func(d *display) {
		d.programs = c
	}
}

// WithChunkPool replaces the chunk pool.
//
// Parameters:
//   - p: the chunk pool
//
// Returns:
//   - DisplayBuilderOption: a function that applies the chunk pool option to a display
func WithChunkPool(p chunk.Pool) DisplayBuilderOption {
	return func(d *display) {
		d.chunks = p
	}
}

// WithObjectPool replaces the object pool.
//
// Parameters:
//   - p: the object pool
//
// Returns:
//   - DisplayBuilderOption: a function that applies the object pool option to a display
func WithObjectPool(p object.Pool) DisplayBuilderOption {
	return func(d *display) {
		d.objects = p
	}
}

// WithStageObserver registers a callback invoked after each pipeline stage runs.
//
// Parameters:
//   - fn: the observer
//
// Returns:
//   - DisplayBuilderOption: a function that applies the observer option to a display
func WithStageObserver(fn func(Stage)) DisplayBuilderOption {
	return func(d *display) {
		d.observer = fn
	}
}
